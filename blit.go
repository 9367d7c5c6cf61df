package scenery

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// clipBlit clips a (w, h) copy from src (sx, sy) to dst (dx, dy) against both
// bitmaps. ok is false when nothing remains.
func clipBlit(dst, src *Bitmap, sx, sy, dx, dy, w, h int) (int, int, int, int, int, int, bool) {
	if sx < 0 {
		dx -= sx
		w += sx
		sx = 0
	}
	if sy < 0 {
		dy -= sy
		h += sy
		sy = 0
	}
	if dx < 0 {
		sx -= dx
		w += dx
		dx = 0
	}
	if dy < 0 {
		sy -= dy
		h += dy
		dy = 0
	}
	w = min(w, src.w-sx, dst.w-dx)
	h = min(h, src.h-sy, dst.h-dy)
	return sx, sy, dx, dy, w, h, w > 0 && h > 0
}

// Blit copies a rectangle from src to dst without masking. Pixels are
// converted when the depths differ.
func Blit(dst, src *Bitmap, sx, sy, dx, dy, w, h int) {
	sx, sy, dx, dy, w, h, ok := clipBlit(dst, src, sx, sy, dx, dy, w, h)
	if !ok {
		return
	}
	if src.depth == dst.depth && (src.depth != Depth8 || samePalette(src, dst)) {
		bpp := src.depth.BytesPerPixel()
		for y := 0; y < h; y++ {
			s := src.pix[(sy+y)*src.stride+sx*bpp:]
			d := dst.pix[(dy+y)*dst.stride+dx*bpp:]
			copy(d[:w*bpp], s[:w*bpp])
		}
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.setPixelAt(dx+x, dy+y, convertPixel(src.pixelAt(sx+x, sy+y), src, dst))
		}
	}
}

// DrawMasked draws src onto dst at (dx, dy), skipping mask pixels.
func DrawMasked(dst, src *Bitmap, dx, dy int) {
	sx, sy, dx, dy, w, h, ok := clipBlit(dst, src, 0, 0, dx, dy, src.w, src.h)
	if !ok {
		return
	}
	mask := src.MaskColor()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src.pixelAt(sx+x, sy+y)
			if v == mask {
				continue
			}
			dst.setPixelAt(dx+x, dy+y, convertPixel(v, src, dst))
		}
	}
}

// DrawTranslucent draws src onto dst at (dx, dy) with a uniform opacity in
// 0..255, skipping mask pixels.
func DrawTranslucent(dst, src *Bitmap, dx, dy int, opacity int) {
	if opacity >= 255 {
		DrawMasked(dst, src, dx, dy)
		return
	}
	if opacity <= 0 {
		return
	}
	sx, sy, dx, dy, w, h, ok := clipBlit(dst, src, 0, 0, dx, dy, src.w, src.h)
	if !ok {
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sr, sg, sb, _, ok := src.components(src.pixelAt(sx+x, sy+y))
			if !ok {
				continue
			}
			blendInto(dst, dx+x, dy+y, sr, sg, sb, opacity)
		}
	}
}

// DrawAlpha draws src onto dst at (dx, dy) using src's per-pixel alpha scaled
// by a uniform opacity in 0..255.
func DrawAlpha(dst, src *Bitmap, dx, dy int, opacity int) {
	if src.depth != Depth32 {
		DrawTranslucent(dst, src, dx, dy, opacity)
		return
	}
	if opacity <= 0 {
		return
	}
	opacity = min(opacity, 255)
	sx, sy, dx, dy, w, h, ok := clipBlit(dst, src, 0, 0, dx, dy, src.w, src.h)
	if !ok {
		return
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sr, sg, sb, sa, ok := src.components(src.pixelAt(sx+x, sy+y))
			if !ok || sa == 0 {
				continue
			}
			blendInto(dst, dx+x, dy+y, sr, sg, sb, int(sa)*opacity/255)
		}
	}
}

// blendInto mixes an RGB colour over the dst pixel with weight a/255. A mask
// destination pixel is treated as black.
func blendInto(dst *Bitmap, x, y int, r, g, b uint8, a int) {
	dr, dg, db, da, ok := dst.components(dst.pixelAt(x, y))
	if !ok {
		dr, dg, db, da = 0, 0, 0, 0
	}
	mix := func(s, d uint8) uint8 {
		return uint8((int(s)*a + int(d)*(255-a)) / 255)
	}
	outA := uint8(a + int(da)*(255-a)/255)
	if dst.depth == Depth32 && ok && da == 255 {
		outA = 255
	}
	dst.setPixelAt(x, y, dst.pack(mix(r, dr), mix(g, dg), mix(b, db), outA))
}

// FlipBlit copies src into dst mirrored left to right. dst must be at least
// as large as src.
func FlipBlit(dst, src *Bitmap) {
	w, h := min(src.w, dst.w), min(src.h, dst.h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.setPixelAt(x, y, convertPixel(src.pixelAt(src.w-1-x, y), src, dst))
		}
	}
}

// StretchBlit scales src to fill dst using nearest-neighbour sampling.
// Mask pixels stay mask pixels.
func StretchBlit(dst, src *Bitmap) {
	if src.w == 0 || src.h == 0 {
		return
	}
	for y := 0; y < dst.h; y++ {
		sy := y * src.h / dst.h
		for x := 0; x < dst.w; x++ {
			sx := x * src.w / dst.w
			dst.setPixelAt(x, y, convertPixel(src.pixelAt(sx, sy), src, dst))
		}
	}
}

// AAStretchBlit scales src to fill dst with bilinear filtering. Mask pixels
// are filtered as transparent and pixels that end up mostly transparent are
// written back as the mask colour.
func AAStretchBlit(dst, src *Bitmap) {
	in := src.ToNRGBA()
	tmp := image.NewNRGBA(dst.Bounds())
	draw.ApproxBiLinear.Scale(tmp, tmp.Bounds(), in, in.Bounds(), draw.Src, nil)
	for y := 0; y < dst.h; y++ {
		for x := 0; x < dst.w; x++ {
			c := tmp.NRGBAAt(x, y)
			if c.A < 128 {
				dst.setPixelAt(x, y, dst.MaskColor())
				continue
			}
			dst.Set(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
}

// ConvertImage copies any image into a new bitmap of the given depth.
// Transparent pixels become the mask colour.
func ConvertImage(img image.Image, depth ColorDepth) *Bitmap {
	r := img.Bounds()
	b := NewBitmap(r.Dx(), r.Dy(), depth)
	if p, ok := img.(*image.Paletted); ok && depth == Depth8 {
		b.Palette = p.Palette
		for y := 0; y < b.h; y++ {
			copy(b.ScanLine(y), p.Pix[y*p.Stride:y*p.Stride+b.w])
		}
		return b
	}
	draw.Draw(b, b.Bounds(), img, r.Min, draw.Src)
	return b
}
