package scenery

// DefaultMaxDirtyRegions is the number of Invalidate calls tracked as spans
// before the tracker gives up and treats the whole screen as dirty.
const DefaultMaxDirtyRegions = 25

// maxSpansPerRow is the number of separate spans kept for one screen row.
// Further invalidations on a full row extend the nearest span.
const maxSpansPerRow = 4

// Span is an inclusive horizontal pixel range on one screen row.
type Span struct {
	X1, X2 int
}

type dirtyRow struct {
	spans [maxSpansPerRow]Span
	n     int
}

// DirtyTracker records which parts of the screen changed since the last
// Present. The recorded area is always a superset of what was invalidated.
type DirtyTracker struct {
	w, h    int
	rows    []dirtyRow
	limit   int
	regions int
	whole   bool
}

// NewDirtyTracker returns a tracker for a w x h screen. A limit <= 0 uses
// DefaultMaxDirtyRegions.
func NewDirtyTracker(w, h, limit int) *DirtyTracker {
	d := &DirtyTracker{limit: limit}
	if d.limit <= 0 {
		d.limit = DefaultMaxDirtyRegions
	}
	d.Init(w, h)
	return d
}

// Init resizes the tracker and clears all recorded spans. The row table is
// reused when the height is unchanged.
func (d *DirtyTracker) Init(w, h int) {
	d.w, d.h = max(w, 1), max(h, 1)
	if len(d.rows) != d.h {
		d.rows = make([]dirtyRow, d.h)
	}
	d.Reset()
}

// Size returns the tracked screen dimensions.
func (d *DirtyTracker) Size() (int, int) { return d.w, d.h }

// Reset forgets every recorded span and clears the whole-screen flag.
func (d *DirtyTracker) Reset() {
	for i := range d.rows {
		d.rows[i].n = 0
	}
	d.regions = 0
	d.whole = false
}

// InvalidateAll marks the whole screen dirty.
func (d *DirtyTracker) InvalidateAll() {
	d.whole = true
}

// WholeScreen reports whether the whole screen is dirty.
func (d *DirtyTracker) WholeScreen() bool { return d.whole }

// Invalidate marks the inclusive rectangle (x1, y1)-(x2, y2) dirty. The
// rectangle is clipped to the screen; a rectangle entirely off screen is
// ignored.
func (d *DirtyTracker) Invalidate(x1, y1, x2, y2 int) {
	if d.whole {
		return
	}
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	if x2 < 0 || y2 < 0 || x1 >= d.w || y1 >= d.h {
		return
	}
	x1, y1 = max(x1, 0), max(y1, 0)
	x2, y2 = min(x2, d.w-1), min(y2, d.h-1)

	d.regions++
	if d.regions > d.limit {
		d.whole = true
		return
	}
	for y := y1; y <= y2; y++ {
		d.rows[y].add(x1, x2)
	}
}

// add merges [x1, x2] into the row.
func (r *dirtyRow) add(x1, x2 int) {
	for i := 0; i < r.n; i++ {
		s := &r.spans[i]
		if x1 <= s.X2+1 && x2 >= s.X1-1 {
			s.X1 = min(s.X1, x1)
			s.X2 = max(s.X2, x2)
			r.coalesce()
			return
		}
	}
	if r.n < maxSpansPerRow {
		r.spans[r.n] = Span{X1: x1, X2: x2}
		r.n++
		return
	}
	// Row is full: grow the closest span. Ties go to the earliest span.
	best, bestDist := 0, -1
	for i := 0; i < r.n; i++ {
		s := r.spans[i]
		dist := x1 - s.X2
		if x2 < s.X1 {
			dist = s.X1 - x2
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	s := &r.spans[best]
	s.X1 = min(s.X1, x1)
	s.X2 = max(s.X2, x2)
	r.coalesce()
}

// coalesce merges spans that overlap or touch until none do.
func (r *dirtyRow) coalesce() {
	for merged := true; merged; {
		merged = false
		for i := 0; i < r.n && !merged; i++ {
			for j := i + 1; j < r.n; j++ {
				a, b := &r.spans[i], r.spans[j]
				if b.X1 <= a.X2+1 && b.X2 >= a.X1-1 {
					a.X1 = min(a.X1, b.X1)
					a.X2 = max(a.X2, b.X2)
					copy(r.spans[j:r.n], r.spans[j+1:r.n])
					r.n--
					merged = true
					break
				}
			}
		}
	}
}

// Spans returns a copy of the spans recorded for row y.
func (d *DirtyTracker) Spans(y int) []Span {
	if y < 0 || y >= d.h {
		return nil
	}
	r := d.rows[y]
	out := make([]Span, r.n)
	copy(out, r.spans[:r.n])
	return out
}

// SpanCount returns the total number of spans over all rows. A whole-screen
// dirty tracker reports one span per row.
func (d *DirtyTracker) SpanCount() int {
	if d.whole {
		return d.h
	}
	n := 0
	for i := range d.rows {
		n += d.rows[i].n
	}
	return n
}

// IsDirty reports whether pixel (x, y) is covered by the recorded area.
func (d *DirtyTracker) IsDirty(x, y int) bool {
	if x < 0 || y < 0 || x >= d.w || y >= d.h {
		return false
	}
	if d.whole {
		return true
	}
	r := &d.rows[y]
	for i := 0; i < r.n; i++ {
		if x >= r.spans[i].X1 && x <= r.spans[i].X2 {
			return true
		}
	}
	return false
}

// Present copies the dirty area from src to dst and resets the tracker.
// src is placed at (offX, offY) in dst coordinates, so dst pixel (x, y)
// takes src pixel (x-offX, y-offY). Consecutive rows with the same span
// layout are copied as one block. It returns the number of block copies.
func (d *DirtyTracker) Present(offX, offY int, src, dst *Bitmap) int {
	defer d.Reset()
	if d.whole {
		Blit(dst, src, -offX, -offY, 0, 0, d.w, d.h)
		return 1
	}
	copies := 0
	for y := 0; y < d.h; {
		r := &d.rows[y]
		if r.n == 0 {
			y++
			continue
		}
		run := 1
		for y+run < d.h && d.rows[y+run].sameLayout(r) {
			run++
		}
		for i := 0; i < r.n; i++ {
			s := r.spans[i]
			w := s.X2 - s.X1 + 1
			Blit(dst, src, s.X1-offX, y-offY, s.X1, y, w, run)
			copies++
		}
		y += run
	}
	return copies
}

func (r *dirtyRow) sameLayout(o *dirtyRow) bool {
	if r.n != o.n {
		return false
	}
	for i := 0; i < r.n; i++ {
		if r.spans[i] != o.spans[i] {
			return false
		}
	}
	return true
}
