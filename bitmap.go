package scenery

import (
	"encoding/binary"
	"image"
	"image/color"
)

// ColorDepth is the number of bits per pixel of a Bitmap.
type ColorDepth uint8

const (
	Depth8  ColorDepth = 8  // palette index, mask colour 0
	Depth16 ColorDepth = 16 // RGB565, mask colour 0xF81F
	Depth32 ColorDepth = 32 // ARGB, mask colour 0x00FF00FF
)

// BytesPerPixel returns the storage size of one pixel.
func (d ColorDepth) BytesPerPixel() int {
	return int(d) / 8
}

// Valid reports whether d is one of the supported depths.
func (d ColorDepth) Valid() bool {
	return d == Depth8 || d == Depth16 || d == Depth32
}

// MaskColor returns the raw pixel value treated as fully transparent.
func (d ColorDepth) MaskColor() uint32 {
	switch d {
	case Depth8:
		return 0
	case Depth16:
		return 0xF81F
	default:
		return 0x00FF00FF
	}
}

// Bitmap is a linearly addressable image in one of the supported colour
// depths. Pixels equal to the depth's mask colour are transparent when the
// bitmap is drawn as a sprite.
//
// Bitmap implements image.Image and draw.Image so it can be handed to the
// standard image encoders and to golang.org/x/image/draw.
type Bitmap struct {
	w, h   int
	depth  ColorDepth
	stride int
	pix    []byte

	// Palette maps 8-bit indices to colours. Ignored for other depths.
	Palette color.Palette
}

// NewBitmap allocates a bitmap cleared to zero. Non-positive dimensions are
// raised to 1 and an unsupported depth falls back to Depth32.
func NewBitmap(w, h int, depth ColorDepth) *Bitmap {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if !depth.Valid() {
		depth = Depth32
	}
	stride := w * depth.BytesPerPixel()
	return &Bitmap{
		w:      w,
		h:      h,
		depth:  depth,
		stride: stride,
		pix:    make([]byte, stride*h),
	}
}

// NewMaskedBitmap allocates a bitmap filled with the depth's mask colour.
func NewMaskedBitmap(w, h int, depth ColorDepth) *Bitmap {
	b := NewBitmap(w, h, depth)
	b.Clear(b.MaskColor())
	return b
}

// RecycleBitmap returns b unchanged when it already has the requested shape,
// otherwise a freshly allocated bitmap. The old bitmap is left to the garbage
// collector; callers must drop their reference to it.
func RecycleBitmap(b *Bitmap, w, h int, depth ColorDepth) *Bitmap {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if b != nil && b.w == w && b.h == h && b.depth == depth && b.IsLinear() {
		return b
	}
	nb := NewBitmap(w, h, depth)
	if b != nil {
		nb.Palette = b.Palette
	}
	return nb
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.w }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.h }

// Depth returns the colour depth.
func (b *Bitmap) Depth() ColorDepth { return b.depth }

// Stride returns the number of bytes between the starts of two rows.
func (b *Bitmap) Stride() int { return b.stride }

// MaskColor returns the transparent pixel value for this bitmap's depth.
func (b *Bitmap) MaskColor() uint32 { return b.depth.MaskColor() }

// IsLinear reports whether the pixel memory can be indexed by scanline.
// A zero Bitmap that did not come from a constructor is not linear.
func (b *Bitmap) IsLinear() bool {
	return b != nil && b.pix != nil && b.depth.Valid() &&
		b.stride >= b.w*b.depth.BytesPerPixel() && len(b.pix) >= b.stride*b.h
}

// ScanLine returns the bytes of row y. The slice aliases the bitmap memory.
func (b *Bitmap) ScanLine(y int) []byte {
	off := y * b.stride
	return b.pix[off : off+b.w*b.depth.BytesPerPixel()]
}

func (b *Bitmap) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.w && y < b.h
}

// Pixel returns the raw pixel value at (x, y). Out of range reads return
// the mask colour.
func (b *Bitmap) Pixel(x, y int) uint32 {
	if !b.inBounds(x, y) {
		return b.MaskColor()
	}
	return b.pixelAt(x, y)
}

func (b *Bitmap) pixelAt(x, y int) uint32 {
	i := y*b.stride + x*b.depth.BytesPerPixel()
	switch b.depth {
	case Depth8:
		return uint32(b.pix[i])
	case Depth16:
		return uint32(binary.LittleEndian.Uint16(b.pix[i:]))
	default:
		return binary.LittleEndian.Uint32(b.pix[i:])
	}
}

// SetPixel writes a raw pixel value. Out of range writes are ignored.
func (b *Bitmap) SetPixel(x, y int, v uint32) {
	if !b.inBounds(x, y) {
		return
	}
	b.setPixelAt(x, y, v)
}

func (b *Bitmap) setPixelAt(x, y int, v uint32) {
	i := y*b.stride + x*b.depth.BytesPerPixel()
	switch b.depth {
	case Depth8:
		b.pix[i] = uint8(v)
	case Depth16:
		binary.LittleEndian.PutUint16(b.pix[i:], uint16(v))
	default:
		binary.LittleEndian.PutUint32(b.pix[i:], v)
	}
}

// Clear fills the whole bitmap with a raw pixel value.
func (b *Bitmap) Clear(v uint32) {
	b.FillRect(0, 0, b.w, b.h, v)
}

// FillRect fills the clipped rectangle (x, y, w, h) with a raw pixel value.
func (b *Bitmap) FillRect(x, y, w, h int, v uint32) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.w), min(y+h, b.h)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	bpp := b.depth.BytesPerPixel()
	row := b.pix[y0*b.stride+x0*bpp : y0*b.stride+x1*bpp]
	for x := x0; x < x1; x++ {
		b.setPixelAt(x, y0, v)
	}
	for y := y0 + 1; y < y1; y++ {
		copy(b.pix[y*b.stride+x0*bpp:], row)
	}
}

// Clone returns a deep copy of b.
func (b *Bitmap) Clone() *Bitmap {
	c := &Bitmap{w: b.w, h: b.h, depth: b.depth, stride: b.stride, Palette: b.Palette}
	c.pix = make([]byte, len(b.pix))
	copy(c.pix, b.pix)
	return c
}

// Equal reports whether two bitmaps have the same shape and pixel values.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.w != o.w || b.h != o.h || b.depth != o.depth {
		return false
	}
	for y := 0; y < b.h; y++ {
		if string(b.ScanLine(y)) != string(o.ScanLine(y)) {
			return false
		}
	}
	return true
}

// --- colour conversion ---

// RGB returns an opaque 32-bit pixel value.
func RGB(r, g, b uint8) uint32 {
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// RGBA returns a 32-bit pixel value with an explicit alpha.
func RGBA(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// RGB16 returns a 16-bit RGB565 pixel value.
func RGB16(r, g, b uint8) uint32 {
	return uint32(r>>3)<<11 | uint32(g>>2)<<5 | uint32(b>>3)
}

// components splits a raw pixel into straight-alpha components. Mask pixels
// report ok=false.
func (b *Bitmap) components(v uint32) (r, g, bl, a uint8, ok bool) {
	if v == b.MaskColor() {
		return 0, 0, 0, 0, false
	}
	switch b.depth {
	case Depth8:
		if int(v) < len(b.Palette) {
			c := color.NRGBAModel.Convert(b.Palette[v]).(color.NRGBA)
			return c.R, c.G, c.B, 255, true
		}
		// No palette: treat the index as a grey level.
		return uint8(v), uint8(v), uint8(v), 255, true
	case Depth16:
		r5 := uint8(v>>11) & 0x1F
		g6 := uint8(v>>5) & 0x3F
		b5 := uint8(v) & 0x1F
		return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2, 255, true
	default:
		return uint8(v >> 16), uint8(v >> 8), uint8(v), uint8(v >> 24), true
	}
}

// pack converts straight-alpha components to a raw pixel. A colour that
// happens to pack to the mask value is nudged so it stays visible.
func (b *Bitmap) pack(r, g, bl, a uint8) uint32 {
	var v uint32
	switch b.depth {
	case Depth8:
		v = uint32(b.nearestIndex(r, g, bl))
	case Depth16:
		v = RGB16(r, g, bl)
	default:
		v = RGBA(r, g, bl, a)
	}
	if v == b.MaskColor() {
		switch b.depth {
		case Depth8:
			v = 1
		default:
			v ^= 1
		}
	}
	return v
}

// nearestIndex finds the closest non-transparent palette entry.
func (b *Bitmap) nearestIndex(r, g, bl uint8) uint8 {
	if len(b.Palette) < 2 {
		grey := (int(r) + int(g) + int(bl)) / 3
		return uint8(max(grey, 1))
	}
	best, bestDist := 1, -1
	for i := 1; i < len(b.Palette) && i < 256; i++ {
		c := color.NRGBAModel.Convert(b.Palette[i]).(color.NRGBA)
		dr, dg, db := int(c.R)-int(r), int(c.G)-int(g), int(c.B)-int(bl)
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return uint8(best)
}

// convertPixel maps a raw pixel of src into dst's depth, keeping the mask.
func convertPixel(v uint32, src, dst *Bitmap) uint32 {
	if src.depth == dst.depth && (src.depth != Depth8 || samePalette(src, dst)) {
		return v
	}
	r, g, bl, a, ok := src.components(v)
	if !ok {
		return dst.MaskColor()
	}
	return dst.pack(r, g, bl, a)
}

func samePalette(a, b *Bitmap) bool {
	if len(a.Palette) == 0 || len(b.Palette) == 0 {
		return true
	}
	return &a.Palette[0] == &b.Palette[0]
}

// --- image.Image / draw.Image ---

// ColorModel implements image.Image.
func (b *Bitmap) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.w, b.h) }

// At implements image.Image. Mask pixels are fully transparent.
func (b *Bitmap) At(x, y int) color.Color {
	if !b.inBounds(x, y) {
		return color.NRGBA{}
	}
	r, g, bl, a, ok := b.components(b.pixelAt(x, y))
	if !ok {
		return color.NRGBA{}
	}
	return color.NRGBA{R: r, G: g, B: bl, A: a}
}

// Set implements draw.Image. Fully transparent colours become the mask.
func (b *Bitmap) Set(x, y int, c color.Color) {
	if !b.inBounds(x, y) {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0 {
		b.setPixelAt(x, y, b.MaskColor())
		return
	}
	b.setPixelAt(x, y, b.pack(n.R, n.G, n.B, n.A))
}

// ToNRGBA copies the bitmap into a new straight-alpha image.
func (b *Bitmap) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	for y := 0; y < b.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.w; x++ {
			r, g, bl, a, ok := b.components(b.pixelAt(x, y))
			if !ok {
				continue
			}
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = r, g, bl, a
		}
	}
	return img
}
