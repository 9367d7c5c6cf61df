package scenery

import (
	"math/rand"
	"testing"
)

func spanCovers(d *DirtyTracker, y, x1, x2 int) bool {
	for x := x1; x <= x2; x++ {
		if !d.IsDirty(x, y) {
			return false
		}
	}
	return true
}

// --- Merging ---

func TestDirtyMergeOverlappingRects(t *testing.T) {
	d := NewDirtyTracker(100, 100, 0)
	d.Invalidate(10, 10, 20, 20)
	d.Invalidate(15, 15, 25, 25)

	for y := 15; y <= 20; y++ {
		spans := d.Spans(y)
		if len(spans) != 1 {
			t.Fatalf("row %d spans = %d, want 1", y, len(spans))
		}
		if spans[0].X1 > 10 || spans[0].X2 < 25 {
			t.Errorf("row %d span = %+v, want to cover [10,25]", y, spans[0])
		}
	}
	for y := 10; y <= 14; y++ {
		if !spanCovers(d, y, 10, 20) {
			t.Errorf("row %d does not cover [10,20]", y)
		}
	}
	for y := 21; y <= 25; y++ {
		if !spanCovers(d, y, 15, 25) {
			t.Errorf("row %d does not cover [15,25]", y)
		}
	}
	if d.IsDirty(5, 12) || d.IsDirty(12, 30) {
		t.Error("pixels outside both rects reported dirty")
	}
}

func TestDirtyTouchingSpansMerge(t *testing.T) {
	d := NewDirtyTracker(100, 10, 0)
	d.Invalidate(0, 0, 9, 0)
	d.Invalidate(10, 0, 19, 0)

	spans := d.Spans(0)
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0] != (Span{0, 19}) {
		t.Errorf("span = %+v, want {0 19}", spans[0])
	}
}

func TestDirtyBridgingSpanCoalesces(t *testing.T) {
	d := NewDirtyTracker(100, 10, 0)
	d.Invalidate(0, 0, 5, 0)
	d.Invalidate(20, 0, 25, 0)
	d.Invalidate(4, 0, 21, 0)

	spans := d.Spans(0)
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1 after bridge", len(spans))
	}
	if spans[0] != (Span{0, 25}) {
		t.Errorf("span = %+v, want {0 25}", spans[0])
	}
}

func TestDirtyFullRowExtendsNearestSpan(t *testing.T) {
	d := NewDirtyTracker(200, 1, 0)
	d.Invalidate(0, 0, 1, 0)
	d.Invalidate(20, 0, 21, 0)
	d.Invalidate(40, 0, 41, 0)
	d.Invalidate(60, 0, 61, 0)
	// Row is full; 70 is closest to the span ending at 61.
	d.Invalidate(70, 0, 72, 0)

	spans := d.Spans(0)
	if len(spans) != maxSpansPerRow {
		t.Fatalf("spans = %d, want %d", len(spans), maxSpansPerRow)
	}
	if spans[3] != (Span{60, 72}) {
		t.Errorf("extended span = %+v, want {60 72}", spans[3])
	}
	if !spanCovers(d, 0, 70, 72) {
		t.Error("new extent lost")
	}
}

func TestDirtyFullRowTieGoesToFirstSpan(t *testing.T) {
	d := NewDirtyTracker(200, 1, 0)
	d.Invalidate(0, 0, 9, 0)
	d.Invalidate(31, 0, 40, 0)
	d.Invalidate(100, 0, 101, 0)
	d.Invalidate(150, 0, 151, 0)
	// 20 is 11 away from both the first and second spans.
	d.Invalidate(20, 0, 20, 0)

	spans := d.Spans(0)
	if spans[0] != (Span{0, 20}) {
		t.Errorf("first span = %+v, want {0 20}", spans[0])
	}
	if spans[1] != (Span{31, 40}) {
		t.Errorf("second span = %+v, want unchanged {31 40}", spans[1])
	}
}

// --- Clamping and limits ---

func TestDirtyClampsToScreen(t *testing.T) {
	d := NewDirtyTracker(50, 40, 0)
	d.Invalidate(-10, -10, 100, 5)

	for y := 0; y <= 5; y++ {
		spans := d.Spans(y)
		if len(spans) != 1 || spans[0] != (Span{0, 49}) {
			t.Fatalf("row %d spans = %+v, want [{0 49}]", y, spans)
		}
	}
	if len(d.Spans(6)) != 0 {
		t.Error("row 6 should be clean")
	}
}

func TestDirtyOffscreenRectIgnored(t *testing.T) {
	d := NewDirtyTracker(50, 40, 0)
	d.Invalidate(60, 0, 70, 10)
	d.Invalidate(0, -20, 10, -1)

	if n := d.SpanCount(); n != 0 {
		t.Errorf("SpanCount = %d, want 0", n)
	}
}

func TestDirtyRegionLimitDegradesToWholeScreen(t *testing.T) {
	d := NewDirtyTracker(100, 100, 3)
	for i := 0; i < 3; i++ {
		d.Invalidate(i*10, 0, i*10+1, 0)
	}
	if d.WholeScreen() {
		t.Fatal("whole screen set before limit exceeded")
	}
	d.Invalidate(90, 90, 91, 91)
	if !d.WholeScreen() {
		t.Fatal("whole screen not set after limit exceeded")
	}
	if !d.IsDirty(50, 50) {
		t.Error("whole-screen tracker should report every pixel dirty")
	}
}

// --- Present ---

func TestDirtyPresentCopiesOnlySpans(t *testing.T) {
	src := NewBitmap(20, 20, Depth32)
	src.Clear(RGB(255, 0, 0))
	dst := NewBitmap(20, 20, Depth32)
	dst.Clear(RGB(0, 0, 255))

	d := NewDirtyTracker(20, 20, 0)
	d.Invalidate(2, 3, 5, 4)
	if copies := d.Present(0, 0, src, dst); copies != 1 {
		t.Errorf("copies = %d, want 1 (two identical rows grouped)", copies)
	}

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			want := RGB(0, 0, 255)
			if x >= 2 && x <= 5 && y >= 3 && y <= 4 {
				want = RGB(255, 0, 0)
			}
			if got := dst.Pixel(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %#x, want %#x", x, y, got, want)
			}
		}
	}
}

func TestDirtyPresentAppliesOffset(t *testing.T) {
	src := NewBitmap(40, 40, Depth32)
	src.SetPixel(15, 12, RGB(1, 2, 3))
	dst := NewBitmap(20, 20, Depth32)

	d := NewDirtyTracker(20, 20, 0)
	d.Invalidate(5, 2, 5, 2)
	d.Present(-10, -10, src, dst)

	if got := dst.Pixel(5, 2); got != RGB(1, 2, 3) {
		t.Errorf("pixel = %#x, want %#x", got, RGB(1, 2, 3))
	}
}

func TestDirtyPresentConvertsDepth(t *testing.T) {
	src := NewBitmap(10, 10, Depth32)
	src.Clear(RGB(255, 255, 255))
	dst := NewBitmap(10, 10, Depth16)

	d := NewDirtyTracker(10, 10, 0)
	d.Invalidate(0, 0, 0, 0)
	d.Present(0, 0, src, dst)

	if got := dst.Pixel(0, 0); got != RGB16(255, 255, 255) {
		t.Errorf("pixel = %#x, want %#x", got, RGB16(255, 255, 255))
	}
	if got := dst.Pixel(1, 0); got != 0 {
		t.Errorf("untouched pixel = %#x, want 0", got)
	}
}

func TestDirtyPresentIsIdempotentWithoutInvalidate(t *testing.T) {
	src := NewBitmap(10, 10, Depth32)
	dst := NewBitmap(10, 10, Depth32)
	d := NewDirtyTracker(10, 10, 0)
	d.Invalidate(1, 1, 3, 3)
	d.Present(0, 0, src, dst)

	if n := d.SpanCount(); n != 0 {
		t.Fatalf("SpanCount after Present = %d, want 0", n)
	}
	if copies := d.Present(0, 0, src, dst); copies != 0 {
		t.Errorf("second Present copies = %d, want 0", copies)
	}
}

func TestDirtyPresentWholeScreenResets(t *testing.T) {
	src := NewBitmap(10, 10, Depth32)
	src.Clear(RGB(9, 9, 9))
	dst := NewBitmap(10, 10, Depth32)
	d := NewDirtyTracker(10, 10, 0)
	d.InvalidateAll()

	if copies := d.Present(0, 0, src, dst); copies != 1 {
		t.Errorf("copies = %d, want 1", copies)
	}
	if d.WholeScreen() {
		t.Error("whole-screen flag survived Present")
	}
	if got := dst.Pixel(9, 9); got != RGB(9, 9, 9) {
		t.Errorf("pixel = %#x, want full copy", got)
	}
}

// Random invalidations must always be covered by what Present copies.
func TestDirtyOverApproximationRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 64, 48
	for iter := 0; iter < 200; iter++ {
		d := NewDirtyTracker(w, h, 30)
		var want [h][w]bool
		n := 1 + rng.Intn(40)
		for i := 0; i < n; i++ {
			x1, y1 := rng.Intn(w), rng.Intn(h)
			x2, y2 := x1+rng.Intn(12), y1+rng.Intn(6)
			d.Invalidate(x1, y1, x2, y2)
			for y := y1; y <= min(y2, h-1); y++ {
				for x := x1; x <= min(x2, w-1); x++ {
					want[y][x] = true
				}
			}
		}

		src := NewBitmap(w, h, Depth8)
		src.Clear(7)
		dst := NewBitmap(w, h, Depth8)
		d.Present(0, 0, src, dst)

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if want[y][x] && dst.Pixel(x, y) != 7 {
					t.Fatalf("iter %d: invalidated pixel (%d,%d) not copied", iter, x, y)
				}
			}
		}
	}
}

func BenchmarkDirtyInvalidatePresent(b *testing.B) {
	src := NewBitmap(320, 200, Depth32)
	dst := NewBitmap(320, 200, Depth32)
	d := NewDirtyTracker(320, 200, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := 0; j < 10; j++ {
			x := (j * 31) % 300
			d.Invalidate(x, j*15, x+20, j*15+30)
		}
		d.Present(0, 0, src, dst)
	}
}
