package scenery

// DefaultMaxDrawList is the default capacity of the per-frame draw list.
const DefaultMaxDrawList = 125

// DrawKind tags a draw list entry.
type DrawKind uint8

const (
	// DrawKindSprite draws an image.
	DrawKindSprite DrawKind = iota + 1
	// DrawKindHook marks the point where a hook callback runs.
	DrawKindHook
)

// Hook identifies a callback point in the draw list.
type Hook int

const (
	// HookPreScreenDraw runs after the background, before any sprite.
	HookPreScreenDraw Hook = iota + 1
	// HookPreGUIDraw runs after room sprites, before overlays.
	HookPreGUIDraw
)

func (h Hook) String() string {
	switch h {
	case HookPreScreenDraw:
		return "pre-screen-draw"
	case HookPreGUIDraw:
		return "pre-gui-draw"
	}
	return "hook"
}

// DrawListEntry is one step of the frame handed to the device.
type DrawListEntry struct {
	Kind  DrawKind
	Hook  Hook
	Image DeviceBitmap
	X, Y  int
	// Transparency is 0 (opaque) to 255 (invisible).
	Transparency int
}

// addDraw appends to the frame's draw list.
func (c *Compositor) addDraw(e DrawListEntry) error {
	if len(c.drawList) >= c.opts.MaxDrawList {
		return &CapacityExceededError{What: "things to draw", Limit: c.opts.MaxDrawList}
	}
	c.drawList = append(c.drawList, e)
	return nil
}

func (c *Compositor) addHook(h Hook) error {
	return c.addDraw(DrawListEntry{Kind: DrawKindHook, Hook: h})
}

// submitDrawList hands the draw list to the device. Every drawn image
// invalidates its screen rectangle so the background is restored there on
// the next frame.
func (c *Compositor) submitDrawList() error {
	track := !c.fullRedraw()
	for _, e := range c.drawList {
		switch e.Kind {
		case DrawKindHook:
			c.dev.DrawSprite(int(e.Hook), 0, nil)
		case DrawKindSprite:
			if e.Image == nil {
				return ErrNilBitmap
			}
			if track {
				c.dirty.Invalidate(e.X, e.Y, e.X+e.Image.Width(), e.Y+e.Image.Height())
			}
			e.Image.SetTransparency(e.Transparency)
			c.dev.DrawSprite(e.X, e.Y, e.Image)
		default:
			return &UnknownDrawEntryError{Kind: e.Kind}
		}
	}
	return nil
}
