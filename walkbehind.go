package scenery

// MaxWalkBehinds is the number of distinct walk-behind area ids a mask can
// hold. Id 0 means "no area".
const MaxWalkBehinds = 256

// WalkBehindArea is the bounding box of one walk-behind area in room
// coordinates. Right and Bottom are inclusive.
type WalkBehindArea struct {
	ID                       int
	Left, Top, Right, Bottom int
}

// Width returns the box width in pixels.
func (a WalkBehindArea) Width() int { return a.Right - a.Left + 1 }

// Height returns the box height in pixels.
func (a WalkBehindArea) Height() int { return a.Bottom - a.Top + 1 }

// wbColumn is the vertical run of area pixels in one mask column.
// bottom is exclusive.
type wbColumn struct {
	exists      bool
	top, bottom int
}

// WalkBehindMap holds the per-column analysis of a room's 8-bit walk-behind
// mask together with the area baselines.
type WalkBehindMap struct {
	mask      *Bitmap
	columns   []wbColumn
	areas     [MaxWalkBehinds]WalkBehindArea
	present   [MaxWalkBehinds]bool
	baselines [MaxWalkBehinds]int
}

// NewWalkBehindMap analyses mask. See Rebuild.
func NewWalkBehindMap(mask *Bitmap) (*WalkBehindMap, error) {
	m := &WalkBehindMap{}
	if err := m.Rebuild(mask); err != nil {
		return nil, err
	}
	return m, nil
}

// Rebuild rescans the mask: for every column it records whether any area
// pixel exists and the first and last row holding one; for every area id it
// records a bounding box. A nil mask clears the map. The mask must be a
// linear 8-bit bitmap.
func (m *WalkBehindMap) Rebuild(mask *Bitmap) error {
	m.present = [MaxWalkBehinds]bool{}
	m.areas = [MaxWalkBehinds]WalkBehindArea{}
	m.mask = nil
	m.columns = m.columns[:0]
	if mask == nil {
		return nil
	}
	if !mask.IsLinear() || mask.Depth() != Depth8 {
		return ErrMaskNotLinear
	}
	m.mask = mask
	if cap(m.columns) >= mask.w {
		m.columns = m.columns[:mask.w]
		clear(m.columns)
	} else {
		m.columns = make([]wbColumn, mask.w)
	}

	for y := 0; y < mask.h; y++ {
		row := mask.ScanLine(y)
		for x, id := range row {
			if id == 0 {
				continue
			}
			col := &m.columns[x]
			if !col.exists {
				col.exists = true
				col.top = y
			}
			col.bottom = y + 1

			a := &m.areas[id]
			if !m.present[id] {
				m.present[id] = true
				*a = WalkBehindArea{ID: int(id), Left: x, Top: y, Right: x, Bottom: y}
				continue
			}
			a.Left = min(a.Left, x)
			a.Right = max(a.Right, x)
			a.Bottom = max(a.Bottom, y)
		}
	}
	return nil
}

// Mask returns the analysed mask, or nil.
func (m *WalkBehindMap) Mask() *Bitmap { return m.mask }

// Areas returns the bounding boxes of every area present in the mask in
// ascending id order.
func (m *WalkBehindMap) Areas() []WalkBehindArea {
	var out []WalkBehindArea
	for id := 1; id < MaxWalkBehinds; id++ {
		if m.present[id] {
			out = append(out, m.areas[id])
		}
	}
	return out
}

// Area returns the bounding box of one area id.
func (m *WalkBehindMap) Area(id int) (WalkBehindArea, bool) {
	if id <= 0 || id >= MaxWalkBehinds || !m.present[id] {
		return WalkBehindArea{}, false
	}
	return m.areas[id], true
}

// SetBaseline sets the baseline of an area. Entities whose baseline is
// lower than or equal to it are drawn behind the area.
func (m *WalkBehindMap) SetBaseline(id, baseline int) {
	if id > 0 && id < MaxWalkBehinds {
		m.baselines[id] = baseline
	}
}

// Baseline returns the baseline of an area.
func (m *WalkBehindMap) Baseline(id int) int {
	if id <= 0 || id >= MaxWalkBehinds {
		return 0
	}
	return m.baselines[id]
}

// ColumnRun reports the vertical run of area pixels in mask column x.
// bottom is exclusive.
func (m *WalkBehindMap) ColumnRun(x int) (top, bottom int, ok bool) {
	if x < 0 || x >= len(m.columns) || !m.columns[x].exists {
		return 0, 0, false
	}
	c := m.columns[x]
	return c.top, c.bottom, true
}

// Occlude hides the parts of dst that lie behind walk-behind areas. dst is
// placed with its top-left corner at room position (x, y). Every dst pixel
// over an area whose baseline is greater than baseline is set to the mask
// colour, or, when copyFrom is given, replaced by the copyFrom pixel at the
// same room position. In copy mode only pixels where checkFrom is not
// transparent are written; checkFrom may be smaller or larger than dst and
// is sampled proportionally.
//
// It returns the number of pixels changed.
func (m *WalkBehindMap) Occlude(dst *Bitmap, x, y, baseline int, copyFrom, checkFrom *Bitmap) (int, error) {
	if m.mask == nil {
		return 0, nil
	}
	if !dst.IsLinear() {
		return 0, ErrMaskNotLinear
	}
	if copyFrom != nil {
		if checkFrom == nil {
			checkFrom = dst
		}
		if checkFrom.depth != dst.depth {
			return 0, ErrColorDepthMismatch
		}
	}

	maskW, maskH := m.mask.w, m.mask.h
	changed := 0
	for ee := max(0, -x); ee < dst.w; ee++ {
		col := ee + x
		if col >= maskW {
			break
		}
		c := m.columns[col]
		if !c.exists || c.bottom <= y || c.top >= y+dst.h {
			continue
		}
		rStart := max(c.top-y, 0)
		rEnd := min(dst.h, maskH-y, c.bottom-y)
		for rr := rStart; rr < rEnd; rr++ {
			id := m.mask.pix[(rr+y)*m.mask.stride+col]
			if id < 1 || m.baselines[id] <= baseline {
				continue
			}
			if copyFrom == nil {
				dst.setPixelAt(ee, rr, dst.MaskColor())
				changed++
				continue
			}
			cx := ee * checkFrom.w / dst.w
			cy := rr * checkFrom.h / dst.h
			if checkFrom.pixelAt(cx, cy) == checkFrom.MaskColor() {
				continue
			}
			dst.setPixelAt(ee, rr, convertPixel(copyFrom.Pixel(col, rr+y), copyFrom, dst))
			changed++
		}
	}
	return changed, nil
}
