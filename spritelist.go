package scenery

// DefaultMaxSprites is the default capacity of the per-frame sprite list.
const DefaultMaxSprites = 75

// SpriteListEntry is one visual queued for the current frame, before
// baseline sorting.
type SpriteListEntry struct {
	Image DeviceBitmap
	X, Y  int
	// Baseline is the sort key; lower baselines are drawn first.
	Baseline int
	// Transparency is 0 (opaque) to 255 (invisible).
	Transparency int
	HasAlpha     bool
	// WalkBehind marks occluder sprites produced by the walk-behind engine.
	WalkBehind bool
	// TakesPriority orders the entry after any other entry of equal
	// baseline that does not take priority.
	TakesPriority bool

	order int
}

// spriteList collects the frame's entries and sorts them by baseline.
type spriteList struct {
	entries []SpriteListEntry
	sortBuf []SpriteListEntry
	limit   int
}

func (l *spriteList) reset() {
	l.entries = l.entries[:0]
}

// add appends an entry. Fully transparent entries are dropped.
func (l *spriteList) add(e SpriteListEntry) error {
	if e.Image == nil {
		return ErrNilBitmap
	}
	if e.Transparency >= 255 {
		return nil
	}
	if l.limit > 0 && len(l.entries) >= l.limit {
		return &CapacityExceededError{What: "sprites on screen", Limit: l.limit}
	}
	e.order = len(l.entries)
	l.entries = append(l.entries, e)
	return nil
}

// spriteLessOrEqual orders by baseline, then non-priority before priority,
// then insertion order. The key is total, so the result does not depend on
// the sort algorithm.
func spriteLessOrEqual(a, b SpriteListEntry) bool {
	if a.Baseline != b.Baseline {
		return a.Baseline < b.Baseline
	}
	if a.TakesPriority != b.TakesPriority {
		return !a.TakesPriority
	}
	return a.order <= b.order
}

// sort sorts the entries in-place using sortBuf as scratch space.
// Bottom-up merge sort: zero allocations after the sort buffer reaches
// high-water mark.
func (l *spriteList) sort() {
	n := len(l.entries)
	if n <= 1 {
		return
	}
	if cap(l.sortBuf) < n {
		l.sortBuf = make([]SpriteListEntry, n)
	}
	l.sortBuf = l.sortBuf[:n]

	a := l.entries
	b := l.sortBuf
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(l.entries, l.sortBuf)
	}
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []SpriteListEntry, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if spriteLessOrEqual(src[i], src[j]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], src[i:mid])
	copy(dst[k:], src[j:hi])
}

// SortSprites returns entries sorted the way a frame's sprite list is
// sorted. The input slice is not modified.
func SortSprites(entries []SpriteListEntry) []SpriteListEntry {
	l := spriteList{entries: make([]SpriteListEntry, 0, len(entries))}
	for _, e := range entries {
		e.order = len(l.entries)
		l.entries = append(l.entries, e)
	}
	l.sort()
	return l.entries
}
