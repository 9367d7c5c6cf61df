package scenery

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Tint is an RGB colourisation applied to an entity image.
type Tint struct {
	R, G, B uint8
	// Amount is the saturation of the tint, 0..100. Zero disables it.
	Amount int
	// Luminance is the brightness of the tinted image, 0..255. Values of
	// 250 and above keep the image brightness.
	Luminance int
}

// colorise returns the colour with the hue and saturation of (tr, tg, tb)
// and the value of (r, g, b). A luminance below 250 darkens the result.
func colorise(r, g, b, tr, tg, tb uint8, luminance int) (uint8, uint8, uint8) {
	th, ts, _ := colorful.Color{R: float64(tr) / 255, G: float64(tg) / 255, B: float64(tb) / 255}.Hsv()
	_, _, v := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsv()
	if luminance < 250 {
		v -= 1 - float64(luminance)/250
		if v < 0 {
			v = 0
		}
	}
	return colorful.Hsv(th, ts, v).Clamped().RGB255()
}

// tintImage writes a tinted copy of src into dst. Both bitmaps must share a
// hi-colour depth; otherwise src is copied unchanged and false is returned.
func tintImage(dst, src *Bitmap, t Tint) bool {
	if src.depth != dst.depth || src.depth == Depth8 {
		Blit(dst, src, 0, 0, 0, 0, src.w, src.h)
		return false
	}
	amount := t.Amount
	if amount < 100 {
		// 0..100 saturation maps to a 0..250 blend weight.
		amount = amount * 25 / 10
		Blit(dst, src, 0, 0, 0, 0, src.w, src.h)
	} else {
		dst.Clear(dst.MaskColor())
	}
	for y := 0; y < min(src.h, dst.h); y++ {
		for x := 0; x < min(src.w, dst.w); x++ {
			r, g, b, a, ok := src.components(src.pixelAt(x, y))
			if !ok {
				continue
			}
			cr, cg, cb := colorise(r, g, b, t.R, t.G, t.B, t.Luminance)
			if t.Amount >= 100 {
				dst.setPixelAt(x, y, dst.pack(cr, cg, cb, a))
				continue
			}
			mix := func(c, o uint8) uint8 {
				return uint8((int(c)*amount + int(o)*(255-amount)) / 255)
			}
			dst.setPixelAt(x, y, dst.pack(mix(cr, r), mix(cg, g), mix(cb, b), a))
		}
	}
	return true
}

// lightImage writes a lightened or darkened copy of src into dst. level is
// in -100..100. On 8-bit bitmaps only darkening is possible; a positive
// level returns false and leaves dst untouched.
func lightImage(dst, src *Bitmap, level int) bool {
	if src.depth == Depth8 || dst.depth == Depth8 {
		if level > 0 {
			return false
		}
		lit := 250 - (-level*5)/2
		dst.Clear(dst.MaskColor())
		for y := 0; y < min(src.h, dst.h); y++ {
			for x := 0; x < min(src.w, dst.w); x++ {
				r, g, b, a, ok := src.components(src.pixelAt(x, y))
				if !ok {
					continue
				}
				scale := func(c uint8) uint8 { return uint8(int(c) * lit / 255) }
				dst.setPixelAt(x, y, dst.pack(scale(r), scale(g), scale(b), a))
			}
		}
		return true
	}

	// Blend toward near-black to darken, near-white to lighten.
	target := uint8(248)
	if level < 0 {
		target = 8
	}
	amount := min(abs(level)*2, 255)
	dst.Clear(dst.MaskColor())
	for y := 0; y < min(src.h, dst.h); y++ {
		for x := 0; x < min(src.w, dst.w); x++ {
			r, g, b, a, ok := src.components(src.pixelAt(x, y))
			if !ok {
				continue
			}
			mix := func(c uint8) uint8 {
				return uint8((int(target)*amount + int(c)*(255-amount)) / 255)
			}
			dst.setPixelAt(x, y, dst.pack(mix(r), mix(g), mix(b), a))
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
