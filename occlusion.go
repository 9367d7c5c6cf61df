package scenery

import (
	"fmt"
	"strings"
)

// WalkBehindMethod selects how walk-behind areas are made to cover
// entities.
type WalkBehindMethod uint8

const (
	// WalkBehindAuto picks WalkBehindRoomSprite on devices with accelerated
	// stretch and flip, WalkBehindOverwrite otherwise.
	WalkBehindAuto WalkBehindMethod = iota
	// WalkBehindOverwrite erases occluded pixels from each entity image.
	WalkBehindOverwrite
	// WalkBehindRoomSprite draws each area as a separate sprite sorted with
	// the entities.
	WalkBehindRoomSprite
	// WalkBehindCharSprite builds an occluding overlay per entity.
	WalkBehindCharSprite
)

func (m WalkBehindMethod) String() string {
	switch m {
	case WalkBehindAuto:
		return "auto"
	case WalkBehindOverwrite:
		return "overwrite"
	case WalkBehindRoomSprite:
		return "room-sprite"
	case WalkBehindCharSprite:
		return "char-sprite"
	}
	return fmt.Sprintf("WalkBehindMethod(%d)", uint8(m))
}

// ParseWalkBehindMethod parses the names returned by String.
func ParseWalkBehindMethod(s string) (WalkBehindMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return WalkBehindAuto, nil
	case "overwrite":
		return WalkBehindOverwrite, nil
	case "room-sprite", "roomsprite":
		return WalkBehindRoomSprite, nil
	case "char-sprite", "charsprite":
		return WalkBehindCharSprite, nil
	}
	return WalkBehindAuto, fmt.Errorf("unknown walk-behind method %q", s)
}

// occlusionStrategy is one way of putting entities behind scenery.
type occlusionStrategy interface {
	Method() WalkBehindMethod
	// PrecomputeForRoom runs when the room, its background frame or the
	// area baselines change.
	PrecomputeForRoom(c *Compositor) error
	// AddRoomSprites queues per-room occluders into the frame's sprite list.
	AddRoomSprites(c *Compositor) error
	// ComposeForEntity applies occlusion to one prepared entity. It may
	// change the entity's baseline and queue extra sprites.
	ComposeForEntity(c *Compositor, d *entityDraw) error
	// TakesPriority returns the tie-break flag of a sprite list entry.
	TakesPriority(walkBehind bool) bool
	// Release destroys device bitmaps owned by the strategy.
	Release(dev GraphicsDevice)
}

func newOcclusionStrategy(m WalkBehindMethod) occlusionStrategy {
	switch m {
	case WalkBehindRoomSprite:
		return &roomSpriteStrategy{}
	case WalkBehindCharSprite:
		return charSpriteStrategy{}
	default:
		return overwriteStrategy{}
	}
}

// --- Direct overwrite ---

type overwriteStrategy struct{}

func (overwriteStrategy) Method() WalkBehindMethod            { return WalkBehindOverwrite }
func (overwriteStrategy) PrecomputeForRoom(*Compositor) error { return nil }
func (overwriteStrategy) AddRoomSprites(*Compositor) error    { return nil }
func (overwriteStrategy) TakesPriority(walkBehind bool) bool  { return walkBehind }
func (overwriteStrategy) Release(GraphicsDevice)              {}

// ComposeForEntity erases occluded pixels. An intact image still carries
// last frame's occlusion, so it is left alone.
func (overwriteStrategy) ComposeForEntity(c *Compositor, d *entityDraw) error {
	if d.ignoreWalkBehinds || d.intact {
		return nil
	}
	c.stats.OcclusionPasses++
	if _, err := c.wb.Occlude(d.image, d.roomX, d.roomY, d.baseline, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	return nil
}

// --- Separate sprite per area ---

type roomSpriteStrategy struct {
	areas  []WalkBehindArea
	images [MaxWalkBehinds]*Bitmap
	ddbs   [MaxWalkBehinds]DeviceBitmap
}

func (*roomSpriteStrategy) Method() WalkBehindMethod           { return WalkBehindRoomSprite }
func (*roomSpriteStrategy) TakesPriority(walkBehind bool) bool { return !walkBehind }

// PrecomputeForRoom copies the background pixels of every area into an
// image the size of the area's bounding box.
func (s *roomSpriteStrategy) PrecomputeForRoom(c *Compositor) error {
	s.areas = c.wb.Areas()
	mask := c.wb.Mask()
	bg := c.background()
	if mask == nil || bg == nil {
		return nil
	}
	for _, a := range s.areas {
		img := RecycleBitmap(s.images[a.ID], a.Width(), a.Height(), c.depth)
		img.Clear(img.MaskColor())
		for y := a.Top; y <= a.Bottom; y++ {
			row := mask.ScanLine(y)
			for x := a.Left; x <= a.Right; x++ {
				if int(row[x]) == a.ID {
					img.setPixelAt(x-a.Left, y-a.Top, convertPixel(bg.Pixel(x, y), bg, img))
				}
			}
		}
		s.images[a.ID] = img
		s.ddbs[a.ID] = c.recycleDDB(s.ddbs[a.ID], img, false, false)
	}
	return nil
}

func (s *roomSpriteStrategy) AddRoomSprites(c *Compositor) error {
	offX, offY := c.viewport.Offset()
	for _, a := range s.areas {
		err := c.addSprite(SpriteListEntry{
			Image:         s.ddbs[a.ID],
			X:             a.Left - offX,
			Y:             a.Top - offY,
			Baseline:      c.wb.Baseline(a.ID),
			WalkBehind:    true,
			TakesPriority: s.TakesPriority(true),
		})
		if err != nil {
			return fmt.Errorf("walk-behind area %d: %w", a.ID, err)
		}
	}
	return nil
}

// ComposeForEntity pushes entities that ignore walk-behinds past every
// area baseline.
func (s *roomSpriteStrategy) ComposeForEntity(c *Compositor, d *entityDraw) error {
	if d.ignoreWalkBehinds {
		_, h := c.room.Size()
		d.baseline += h
	}
	return nil
}

func (s *roomSpriteStrategy) Release(dev GraphicsDevice) {
	for i, ddb := range s.ddbs {
		if ddb != nil {
			dev.DestroyBitmap(ddb)
			s.ddbs[i] = nil
		}
		s.images[i] = nil
	}
	s.areas = nil
}

// --- Separate sprite per entity ---

type charSpriteStrategy struct{}

func (charSpriteStrategy) Method() WalkBehindMethod            { return WalkBehindCharSprite }
func (charSpriteStrategy) PrecomputeForRoom(*Compositor) error { return nil }
func (charSpriteStrategy) AddRoomSprites(*Compositor) error    { return nil }
func (charSpriteStrategy) TakesPriority(walkBehind bool) bool  { return walkBehind }
func (charSpriteStrategy) Release(GraphicsDevice)              {}

// ComposeForEntity builds an overlay holding the background pixels that
// should cover the entity and queues it with the entity's baseline. The
// overlay is cached on the entity slot until the entity moves, changes
// image or baseline, or the background changes.
func (charSpriteStrategy) ComposeForEntity(c *Compositor, d *entityDraw) error {
	if d.ignoreWalkBehinds {
		return nil
	}
	o := &d.slot.occ
	stale := !o.valid || !d.intact || c.baselinesChanged || c.bgChanged ||
		o.x != d.roomX || o.y != d.roomY || o.baseline != d.baseline
	if stale {
		img := RecycleBitmap(o.image, d.w, d.h, c.depth)
		img.Clear(img.MaskColor())
		c.stats.OcclusionPasses++
		n, err := c.wb.Occlude(img, d.roomX, d.roomY, d.baseline, c.background(), d.image)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		o.image = img
		o.valid = true
		o.present = n > 0
		o.x, o.y, o.baseline = d.roomX, d.roomY, d.baseline
		if o.present {
			o.ddb = c.recycleDDB(o.ddb, img, false, false)
		}
	}
	if !o.present {
		return nil
	}
	return c.addSprite(SpriteListEntry{
		Image:         o.ddb,
		X:             d.screenX,
		Y:             d.screenY,
		Baseline:      d.baseline,
		WalkBehind:    true,
		TakesPriority: true,
	})
}
