package scenery

import "fmt"

// RegionLight is the lighting applied to entities standing on a region.
type RegionLight struct {
	// LightLevel is -100..100.
	LightLevel int
	// Tint overrides LightLevel when Tint.Amount > 0.
	Tint Tint
}

// Room is the static content of the current location.
type Room struct {
	Name string
	// Backgrounds are the animation frames of the room background. All
	// frames share the size of the first.
	Backgrounds []*Bitmap
	// WalkBehinds is an 8-bit mask of walk-behind area ids, 0 for none.
	WalkBehinds *Bitmap
	// Baselines maps walk-behind area ids to their baselines.
	Baselines map[int]int
	// Regions is an optional 8-bit mask of lighting region ids.
	Regions *Bitmap
	// RegionLights maps region ids to lighting. Id 0 applies off-region.
	RegionLights map[int]RegionLight
	// Ambient is a room-wide tint that overrides region tints when
	// Ambient.Amount > 0.
	Ambient Tint
}

// Size returns the room size, taken from the first background.
func (r *Room) Size() (int, int) {
	if len(r.Backgrounds) == 0 || r.Backgrounds[0] == nil {
		return 0, 0
	}
	return r.Backgrounds[0].w, r.Backgrounds[0].h
}

func (r *Room) validate() error {
	if len(r.Backgrounds) == 0 {
		return fmt.Errorf("room %q: no background frames", r.Name)
	}
	w, h := r.Size()
	for i, bg := range r.Backgrounds {
		if bg == nil {
			return fmt.Errorf("room %q: background %d: %w", r.Name, i, ErrNilBitmap)
		}
		if bg.w != w || bg.h != h {
			return fmt.Errorf("room %q: background %d is %dx%d, want %dx%d", r.Name, i, bg.w, bg.h, w, h)
		}
	}
	if r.WalkBehinds != nil && (!r.WalkBehinds.IsLinear() || r.WalkBehinds.depth != Depth8) {
		return fmt.Errorf("room %q: walk-behind mask: %w", r.Name, ErrMaskNotLinear)
	}
	if r.Regions != nil && (!r.Regions.IsLinear() || r.Regions.depth != Depth8) {
		return fmt.Errorf("room %q: region mask: %w", r.Name, ErrMaskNotLinear)
	}
	return nil
}

// regionAt returns the region id under (x, y), probing 3 pixels around the
// point when it is off-region.
func (r *Room) regionAt(x, y int) int {
	if r.Regions == nil {
		return 0
	}
	probes := [...][2]int{{0, 0}, {-3, 0}, {3, 0}, {0, -3}, {0, 3}}
	for _, p := range probes {
		if id := int(r.Regions.Pixel(x+p[0], y+p[1])); id > 0 {
			return id
		}
	}
	return 0
}

// localLighting returns the tint and light level at room position (x, y).
// Hi-colour is required for tints.
func (r *Room) localLighting(x, y int, depth ColorDepth) (Tint, int) {
	light := r.RegionLights[r.regionAt(x, y)]
	tint := light.Tint
	level := light.LightLevel
	if depth == Depth8 || tint.Amount < 1 {
		tint = Tint{}
	}
	if tint.Amount > 0 {
		level = 0
	}
	if r.Ambient.Amount > 0 && depth != Depth8 {
		tint = r.Ambient
		level = 0
	}
	return tint, level
}
