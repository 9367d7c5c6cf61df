// Package ebitendevice is an accelerated scenery.GraphicsDevice backed by
// Ebitengine. Entity images are uploaded once and scaled, flipped, tinted
// and faded on the GPU, so the compositor skips its software transforms and
// redraws the whole screen each frame.
package ebitendevice

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/phanxgames/scenery"
)

// Bitmap is the DeviceBitmap of a Device.
type Bitmap struct {
	img      *ebiten.Image
	w, h     int
	depth    scenery.ColorDepth
	hasAlpha bool
	opaque   bool

	transparency int
	flipped      bool
	stretchW     int
	stretchH     int
	tintR        uint8
	tintG        uint8
	tintB        uint8
	saturation   int
	lightLevel   int
}

func (b *Bitmap) Width() int                       { return b.w }
func (b *Bitmap) Height() int                      { return b.h }
func (b *Bitmap) ColorDepth() scenery.ColorDepth   { return b.depth }
func (b *Bitmap) SetTransparency(t int)            { b.transparency = t }
func (b *Bitmap) SetFlippedLeftRight(flipped bool) { b.flipped = flipped }
func (b *Bitmap) SetStretch(w, h int)              { b.stretchW, b.stretchH = w, h }
func (b *Bitmap) SetLightLevel(level int)          { b.lightLevel = level }
func (b *Bitmap) SetTint(r, g, bl uint8, saturation int) {
	b.tintR, b.tintG, b.tintB, b.saturation = r, g, bl, saturation
}

// Image returns the GPU image. It is nil after DestroyBitmap.
func (b *Bitmap) Image() *ebiten.Image { return b.img }

// size returns the on-screen size.
func (b *Bitmap) size() (int, int) {
	if b.stretchW > 0 && b.stretchH > 0 {
		return b.stretchW, b.stretchH
	}
	return b.w, b.h
}

// geoM places b at (x, y) with its stretch and flip applied.
func (b *Bitmap) geoM(x, y int) ebiten.GeoM {
	var m ebiten.GeoM
	if b.flipped {
		m.Scale(-1, 1)
		m.Translate(float64(b.w), 0)
	}
	if sw, sh := b.size(); sw != b.w || sh != b.h {
		m.Scale(float64(sw)/float64(b.w), float64(sh)/float64(b.h))
	}
	m.Translate(float64(x), float64(y))
	return m
}

// colorScale maps the transparency, tint and light settings of b to a
// multiplicative colour scale. Tints are approximated by blending white
// towards the tint colour by the saturation, then darkening by the
// luminance.
func (b *Bitmap) colorScale() ebiten.ColorScale {
	var cs ebiten.ColorScale
	if b.saturation > 0 {
		tint := colorful.Color{R: float64(b.tintR) / 255, G: float64(b.tintG) / 255, B: float64(b.tintB) / 255}
		white := colorful.Color{R: 1, G: 1, B: 1}
		mix := white.BlendRgb(tint, min(float64(b.saturation)/256, 1)).Clamped()
		cs.Scale(float32(mix.R), float32(mix.G), float32(mix.B), 1)
	}
	switch {
	case b.lightLevel == 0:
	case b.lightLevel < 256:
		f := float32(b.lightLevel) / 255
		cs.Scale(f, f, f, 1)
	default:
		f := float32(b.lightLevel) / 256
		cs.Scale(f, f, f, 1)
	}
	if b.transparency > 0 {
		cs.ScaleAlpha(float32(255-min(b.transparency, 255)) / 255)
	}
	return cs
}

type drawEntry struct {
	x, y int
	ddb  *Bitmap
}

// Device composes onto an ebiten.Image target, normally the screen passed
// to Game.Draw.
type Device struct {
	target *ebiten.Image
	list   []drawEntry
	smooth bool

	onNull func(x, y int)
	snap   *image.RGBA
}

// New returns a device without a target. SetTarget must be called before a
// frame with sprites is rendered.
func New() *Device {
	return &Device{}
}

// SetTarget sets the image Render draws onto.
func (d *Device) SetTarget(img *ebiten.Image) { d.target = img }

// SetSmoothScaling selects linear filtering for stretched images.
func (d *Device) SetSmoothScaling(smooth bool) { d.smooth = smooth }

// SetNullSpriteCallback sets the function called for hook entries of the
// draw list.
func (d *Device) SetNullSpriteCallback(fn func(x, y int)) { d.onNull = fn }

func (d *Device) ColorDepth() scenery.ColorDepth     { return scenery.Depth32 }
func (d *Device) HasAcceleratedStretchAndFlip() bool { return true }
func (d *Device) RequiresFullRedrawEachFrame() bool  { return true }

func (d *Device) CreateBitmapFromImage(img *scenery.Bitmap, hasAlpha, opaque bool) scenery.DeviceBitmap {
	return &Bitmap{
		img:      ebiten.NewImageFromImage(toRGBA(img)),
		w:        img.Width(),
		h:        img.Height(),
		depth:    img.Depth(),
		hasAlpha: hasAlpha,
		opaque:   opaque,
	}
}

func (d *Device) UpdateBitmapFromImage(ddb scenery.DeviceBitmap, img *scenery.Bitmap, hasAlpha bool) {
	b, ok := ddb.(*Bitmap)
	if !ok {
		return
	}
	rgba := toRGBA(img)
	if b.img != nil && b.w == img.Width() && b.h == img.Height() {
		b.img.WritePixels(rgba.Pix)
	} else {
		if b.img != nil {
			b.img.Deallocate()
		}
		b.img = ebiten.NewImageFromImage(rgba)
		b.w, b.h = img.Width(), img.Height()
	}
	b.depth = img.Depth()
	b.hasAlpha = hasAlpha
}

func (d *Device) DestroyBitmap(ddb scenery.DeviceBitmap) {
	if b, ok := ddb.(*Bitmap); ok && b.img != nil {
		b.img.Deallocate()
		b.img = nil
	}
}

func (d *Device) DrawSprite(x, y int, ddb scenery.DeviceBitmap) {
	var b *Bitmap
	if ddb != nil {
		b, _ = ddb.(*Bitmap)
	}
	d.list = append(d.list, drawEntry{x: x, y: y, ddb: b})
}

func (d *Device) ClearDrawList() { d.list = d.list[:0] }

// Render draws the list onto the target in order.
func (d *Device) Render() error {
	defer d.ClearDrawList()
	d.snap = nil
	for _, e := range d.list {
		if e.ddb == nil {
			if d.onNull == nil {
				return ErrNullSprite
			}
			d.onNull(e.x, e.y)
			continue
		}
		if e.ddb.img == nil {
			return scenery.ErrNilBitmap
		}
		if d.target == nil {
			return ErrNoTarget
		}
		d.draw(e)
	}
	return nil
}

func (d *Device) draw(e drawEntry) {
	b := e.ddb
	if b.transparency >= 255 {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM = b.geoM(e.x, e.y)
	op.ColorScale = b.colorScale()
	if d.smooth {
		op.Filter = ebiten.FilterLinear
	}
	if b.opaque && b.transparency == 0 {
		op.Blend = ebiten.BlendCopy
	}
	d.target.DrawImage(b.img, &op)
}

// Snapshot reads back the target. It is only valid while the game loop is
// drawing.
func (d *Device) Snapshot() image.Image {
	if d.target == nil {
		return nil
	}
	if d.snap == nil {
		b := d.target.Bounds()
		d.snap = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		d.target.ReadPixels(d.snap.Pix)
	}
	return d.snap
}

// toRGBA converts a memory bitmap to premultiplied RGBA, with mask pixels
// fully transparent.
func toRGBA(b *scenery.Bitmap) *image.RGBA {
	src := b.ToNRGBA()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}
