package scenery

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for the viewport X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Viewport is the part of the room shown on screen. X and Y are the room
// position of the screen's top-left corner.
type Viewport struct {
	X, Y float64
	// Width and Height are the screen size in pixels.
	Width, Height int

	roomW, roomH int

	followTarget *Entity
	followLerp   float64

	scrollTween *scrollAnim
}

func newViewport(w, h int) *Viewport {
	return &Viewport{Width: w, Height: h}
}

// Offset returns the integer room offset used for drawing.
func (v *Viewport) Offset() (int, int) {
	return int(math.Round(v.X)), int(math.Round(v.Y))
}

// SetPosition moves the viewport immediately, cancelling any scroll.
func (v *Viewport) SetPosition(x, y int) {
	v.scrollTween = nil
	v.X, v.Y = float64(x), float64(y)
	v.clamp()
}

// Follow keeps the entity centred on screen. A lerp of 1 snaps; lower values
// trail behind.
func (v *Viewport) Follow(e *Entity, lerp float64) {
	v.followTarget = e
	v.followLerp = lerp
}

// Unfollow stops tracking the current target.
func (v *Viewport) Unfollow() {
	v.followTarget = nil
}

// ScrollTo animates the viewport to room position (x, y) over duration
// seconds. A nil easing function scrolls linearly.
func (v *Viewport) ScrollTo(x, y int, duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.Linear
	}
	v.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(v.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(v.Y), float32(y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is in progress.
func (v *Viewport) Scrolling() bool { return v.scrollTween != nil }

// update advances follow, scroll and clamping. It reports whether the
// integer offset changed.
func (v *Viewport) update(dt float32) bool {
	px, py := v.Offset()

	if v.followTarget != nil {
		tx := float64(v.followTarget.X - v.Width/2)
		ty := float64(v.followTarget.Y - v.Height/2)
		v.X += (tx - v.X) * v.followLerp
		v.Y += (ty - v.Y) * v.followLerp
	}

	if v.scrollTween != nil {
		if !v.scrollTween.doneX {
			val, done := v.scrollTween.tweenX.Update(dt)
			v.X = float64(val)
			v.scrollTween.doneX = done
		}
		if !v.scrollTween.doneY {
			val, done := v.scrollTween.tweenY.Update(dt)
			v.Y = float64(val)
			v.scrollTween.doneY = done
		}
		if v.scrollTween.doneX && v.scrollTween.doneY {
			v.scrollTween = nil
		}
	}

	v.clamp()
	nx, ny := v.Offset()
	return nx != px || ny != py
}

// clamp keeps the screen inside the room. A room smaller than the screen
// pins the offset to 0.
func (v *Viewport) clamp() {
	maxX := float64(v.roomW - v.Width)
	maxY := float64(v.roomH - v.Height)
	v.X = math.Max(0, math.Min(v.X, math.Max(maxX, 0)))
	v.Y = math.Max(0, math.Min(v.Y, math.Max(maxY, 0)))
}

// RoomToScreen converts room coordinates to screen coordinates.
func (v *Viewport) RoomToScreen(x, y int) (int, int) {
	ox, oy := v.Offset()
	return x - ox, y - oy
}

// ScreenToRoom converts screen coordinates to room coordinates.
func (v *Viewport) ScreenToRoom(x, y int) (int, int) {
	ox, oy := v.Offset()
	return x + ox, y + oy
}
