package scenery

import "errors"

// Presenter shows a composed frame, for example on a terminal or in a file.
type Presenter interface {
	Present(frame *Bitmap) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(frame *Bitmap) error

// Present calls f(frame).
func (f PresenterFunc) Present(frame *Bitmap) error { return f(frame) }

var errNullSprite = errors.New("scenery: unhandled attempt to draw null sprite")

// SoftwareBitmap is the DeviceBitmap of a SoftwareDevice. It wraps the
// memory bitmap it was created from without copying.
type SoftwareBitmap struct {
	bmp          *Bitmap
	opaque       bool
	hasAlpha     bool
	transparency int
	flipped      bool
	stretchW     int
	stretchH     int
}

func (b *SoftwareBitmap) Width() int                   { return b.bmp.w }
func (b *SoftwareBitmap) Height() int                  { return b.bmp.h }
func (b *SoftwareBitmap) ColorDepth() ColorDepth       { return b.bmp.depth }
func (b *SoftwareBitmap) SetTransparency(t int)        { b.transparency = t }
func (b *SoftwareBitmap) SetFlippedLeftRight(f bool)   { b.flipped = f }
func (b *SoftwareBitmap) SetStretch(w, h int)          { b.stretchW, b.stretchH = w, h }
func (b *SoftwareBitmap) SetTint(_, _, _ uint8, _ int) {}
func (b *SoftwareBitmap) SetLightLevel(int)            {}

// Bitmap returns the wrapped memory bitmap.
func (b *SoftwareBitmap) Bitmap() *Bitmap { return b.bmp }

type softDrawEntry struct {
	x, y int
	ddb  *SoftwareBitmap
}

// SoftwareDevice composes frames into a memory back buffer that persists
// between frames. It has no accelerated scaling, so the compositor
// transforms entity images itself and only restores the dirty parts of the
// back buffer each frame.
type SoftwareDevice struct {
	back      *Bitmap
	list      []softDrawEntry
	presenter Presenter
	scratch   bitmapPool

	// OnNullSprite is called for nil entries of the draw list. Without it,
	// such entries make Render fail.
	OnNullSprite func(x, y int)

	frames int
}

// NewSoftwareDevice returns a device with a w x h back buffer.
func NewSoftwareDevice(w, h int, depth ColorDepth) *SoftwareDevice {
	return &SoftwareDevice{back: NewBitmap(w, h, depth)}
}

// SetPresenter sets where Render sends finished frames. nil disables it.
func (d *SoftwareDevice) SetPresenter(p Presenter) { d.presenter = p }

// SetNullSpriteCallback sets OnNullSprite.
func (d *SoftwareDevice) SetNullSpriteCallback(fn func(x, y int)) { d.OnNullSprite = fn }

// BackBuffer returns the composed frame.
func (d *SoftwareDevice) BackBuffer() *Bitmap { return d.back }

// Frames returns the number of frames rendered.
func (d *SoftwareDevice) Frames() int { return d.frames }

func (d *SoftwareDevice) ColorDepth() ColorDepth             { return d.back.depth }
func (d *SoftwareDevice) HasAcceleratedStretchAndFlip() bool { return false }
func (d *SoftwareDevice) RequiresFullRedrawEachFrame() bool  { return false }

func (d *SoftwareDevice) CreateBitmapFromImage(img *Bitmap, hasAlpha, opaque bool) DeviceBitmap {
	return &SoftwareBitmap{bmp: img, hasAlpha: hasAlpha, opaque: opaque}
}

func (d *SoftwareDevice) UpdateBitmapFromImage(ddb DeviceBitmap, img *Bitmap, hasAlpha bool) {
	if sb, ok := ddb.(*SoftwareBitmap); ok {
		sb.bmp = img
		sb.hasAlpha = hasAlpha
	}
}

func (d *SoftwareDevice) DestroyBitmap(ddb DeviceBitmap) {
	if sb, ok := ddb.(*SoftwareBitmap); ok {
		sb.bmp = nil
	}
}

func (d *SoftwareDevice) DrawSprite(x, y int, ddb DeviceBitmap) {
	var sb *SoftwareBitmap
	if ddb != nil {
		sb, _ = ddb.(*SoftwareBitmap)
	}
	d.list = append(d.list, softDrawEntry{x: x, y: y, ddb: sb})
}

func (d *SoftwareDevice) ClearDrawList() {
	d.list = d.list[:0]
}

// Render applies the draw list to the back buffer in order and hands the
// result to the presenter.
func (d *SoftwareDevice) Render() error {
	for _, e := range d.list {
		if e.ddb == nil {
			if d.OnNullSprite == nil {
				return errNullSprite
			}
			d.OnNullSprite(e.x, e.y)
			continue
		}
		if e.ddb.bmp == nil {
			return ErrNilBitmap
		}
		d.draw(e)
	}
	d.list = d.list[:0]
	d.frames++
	if d.presenter != nil {
		return d.presenter.Present(d.back)
	}
	return nil
}

func (d *SoftwareDevice) draw(e softDrawEntry) {
	b := e.ddb
	if b.transparency >= 255 {
		return
	}
	img := b.bmp
	var tmp []*Bitmap
	if b.stretchW > 0 && b.stretchH > 0 && (b.stretchW != img.w || b.stretchH != img.h) {
		s := d.scratch.Acquire(b.stretchW, b.stretchH, img.depth)
		StretchBlit(s, img)
		img = s
		tmp = append(tmp, s)
	}
	if b.flipped {
		f := d.scratch.Acquire(img.w, img.h, img.depth)
		FlipBlit(f, img)
		img = f
		tmp = append(tmp, f)
	}

	opacity := 255 - b.transparency
	switch {
	case b.opaque && b.transparency == 0:
		Blit(d.back, img, 0, 0, e.x, e.y, img.w, img.h)
	case b.hasAlpha:
		DrawAlpha(d.back, img, e.x, e.y, opacity)
	default:
		DrawTranslucent(d.back, img, e.x, e.y, opacity)
	}
	for _, s := range tmp {
		d.scratch.Release(s)
	}
}
