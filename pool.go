package scenery

// --- Scratch bitmap pool ---

// bitmapPool manages reusable scratch bitmaps keyed by exact size and depth.
// After warmup, Acquire/Release are zero-alloc.
type bitmapPool struct {
	buckets map[uint64][]*Bitmap
}

// poolKey packs width, height and depth into a single uint64.
func poolKey(w, h int, depth ColorDepth) uint64 {
	return uint64(w)<<36 | uint64(h)<<8 | uint64(depth)
}

// Acquire returns a bitmap of exactly (w, h) cleared to the mask colour.
func (p *bitmapPool) Acquire(w, h int, depth ColorDepth) *Bitmap {
	key := poolKey(w, h, depth)
	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			b := stack[len(stack)-1]
			p.buckets[key] = stack[:len(stack)-1]
			b.Clear(b.MaskColor())
			return b
		}
	}
	return NewMaskedBitmap(w, h, depth)
}

// Release returns a bitmap to the pool for reuse. It is cleared on the next
// Acquire, not here.
func (p *bitmapPool) Release(b *Bitmap) {
	if b == nil {
		return
	}
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*Bitmap)
	}
	key := poolKey(b.w, b.h, b.depth)
	p.buckets[key] = append(p.buckets[key], b)
}

// Len reports how many bitmaps are parked in the pool.
func (p *bitmapPool) Len() int {
	n := 0
	for _, s := range p.buckets {
		n += len(s)
	}
	return n
}
