package scenery

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 integer fields of an Entity simultaneously.
// Create one with TweenPosition, TweenZoom or TweenTransparency and either
// call Update(dt) yourself or hand it to Compositor.Animate.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*int
	Done   bool
}

// Update advances all tweens by dt seconds and writes the rounded values to
// the target fields.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = int(math.Round(float64(val)))
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
}

func newTween(from, to int, duration float32, fn ease.TweenFunc) *gween.Tween {
	if fn == nil {
		fn = ease.Linear
	}
	return gween.New(float32(from), float32(to), duration, fn)
}

// TweenPosition walks e to (toX, toY) over duration seconds.
func TweenPosition(e *Entity, toX, toY int, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2}
	g.tweens[0] = newTween(e.X, toX, duration, fn)
	g.tweens[1] = newTween(e.Y, toY, duration, fn)
	g.fields[0] = &e.X
	g.fields[1] = &e.Y
	return g
}

// TweenZoom scales e to the given percentage.
func TweenZoom(e *Entity, to int, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1}
	g.tweens[0] = newTween(e.zoom(), to, duration, fn)
	g.fields[0] = &e.Zoom
	return g
}

// TweenTransparency fades e to the given transparency percentage.
func TweenTransparency(e *Entity, to int, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1}
	g.tweens[0] = newTween(e.Transparency, to, duration, fn)
	g.fields[0] = &e.Transparency
	return g
}

// Animate runs g from Update until it is done.
func (c *Compositor) Animate(g *TweenGroup) {
	if g != nil && !g.Done {
		c.tweens = append(c.tweens, g)
	}
}

// Animating reports whether any tween added with Animate is still running.
func (c *Compositor) Animating() bool { return len(c.tweens) > 0 }

func (c *Compositor) updateTweens(dt float32) {
	live := c.tweens[:0]
	for _, g := range c.tweens {
		g.Update(dt)
		if !g.Done {
			live = append(live, g)
		}
	}
	clear(c.tweens[len(live):])
	c.tweens = live
}
