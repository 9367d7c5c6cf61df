package scenery

// Entity is the drawable state of a room object or a character, supplied by
// the game each frame.
//
// Objects are positioned by their bottom-left corner. Characters are
// positioned by the centre of their feet and can be raised by Z.
type Entity struct {
	Name    string
	Visible bool
	X, Y, Z int

	// Sprite is drawn when View is 0. Only objects use it.
	Sprite int
	// View is a 1-based index into the view table; 0 means none.
	View, Loop, Frame int

	// Baseline overrides the sort key when greater than zero; otherwise Y
	// is used.
	Baseline int
	// Zoom is the scale in percent. Zero means 100.
	Zoom int
	// Tint is an explicit colourisation when Tint.Amount > 0.
	Tint Tint
	// LightLevel is an explicit light adjustment in -100..100, used when no
	// explicit tint is set.
	LightLevel int
	// NoLighting ignores region and ambient lighting.
	NoLighting bool
	// Transparency is in percent; 100 hides the entity.
	Transparency int
	// IgnoreWalkBehinds draws the entity in front of every walk-behind area.
	IgnoreWalkBehinds bool

	// PicOffsetX and PicOffsetY shift a character's image, scaled by Zoom.
	PicOffsetX, PicOffsetY int
}

// EffectiveBaseline returns the baseline used for sorting.
func (e *Entity) EffectiveBaseline() int {
	if e.Baseline > 0 {
		return e.Baseline
	}
	return e.Y
}

func (e *Entity) zoom() int {
	if e.Zoom <= 0 {
		return 100
	}
	return e.Zoom
}

// transparency converts the percentage to the 0..255 sprite scale.
func (e *Entity) transparency() int {
	switch {
	case e.Transparency <= 0:
		return 0
	case e.Transparency >= 100:
		return 255
	}
	return e.Transparency * 255 / 100
}

// --- Sprites and views ---

// SpriteSource resolves sprite ids to images.
type SpriteSource interface {
	// Sprite returns nil for an id that was never assigned or was removed.
	Sprite(id int) *Bitmap
	SpriteHasAlpha(id int) bool
}

type spriteEntry struct {
	bmp      *Bitmap
	hasAlpha bool
}

// SpriteTable is an in-memory SpriteSource.
type SpriteTable struct {
	entries []spriteEntry
}

// Add stores a sprite and returns its id.
func (t *SpriteTable) Add(b *Bitmap, hasAlpha bool) int {
	t.entries = append(t.entries, spriteEntry{bmp: b, hasAlpha: hasAlpha})
	return len(t.entries) - 1
}

// Set stores a sprite under a specific id, growing the table as needed.
func (t *SpriteTable) Set(id int, b *Bitmap, hasAlpha bool) {
	if id < 0 {
		return
	}
	for len(t.entries) <= id {
		t.entries = append(t.entries, spriteEntry{})
	}
	t.entries[id] = spriteEntry{bmp: b, hasAlpha: hasAlpha}
}

// Remove forgets a sprite. Entities still using it fail to draw.
func (t *SpriteTable) Remove(id int) {
	if id >= 0 && id < len(t.entries) {
		t.entries[id] = spriteEntry{}
	}
}

// Len returns one past the highest assigned id.
func (t *SpriteTable) Len() int { return len(t.entries) }

func (t *SpriteTable) Sprite(id int) *Bitmap {
	if id < 0 || id >= len(t.entries) {
		return nil
	}
	return t.entries[id].bmp
}

func (t *SpriteTable) SpriteHasAlpha(id int) bool {
	if id < 0 || id >= len(t.entries) {
		return false
	}
	return t.entries[id].hasAlpha
}

// ViewFrame is one animation frame.
type ViewFrame struct {
	Sprite   int
	Mirrored bool
}

// ViewLoop is a sequence of frames, typically one walking direction.
type ViewLoop struct {
	Frames []ViewFrame
}

// View groups the loops of one animation set.
type View struct {
	Loops []ViewLoop
}

// resolved is an entity's sprite after view lookup.
type resolved struct {
	sprite   int
	mirrored bool
	frame    int
}

// resolveFrame looks up the sprite of a view frame. A frame index past the
// end of the loop wraps to 0.
func resolveFrame(views []View, e *Entity, name string) (resolved, error) {
	fail := func(reason string) (resolved, error) {
		return resolved{}, &InvalidSpriteError{
			Entity: name, Sprite: -1,
			View: e.View, Loop: e.Loop, Frame: e.Frame, Reason: reason,
		}
	}
	if e.View <= 0 {
		return fail("it has not been assigned a view number")
	}
	if e.View > len(views) {
		return fail("view does not exist")
	}
	v := views[e.View-1]
	if e.Loop < 0 || e.Loop >= len(v.Loops) {
		return fail("loop does not exist")
	}
	frames := v.Loops[e.Loop].Frames
	if len(frames) == 0 {
		return fail("loop has no frames")
	}
	frame := e.Frame
	if frame < 0 || frame >= len(frames) {
		frame = 0
	}
	f := frames[frame]
	return resolved{sprite: f.Sprite, mirrored: f.Mirrored, frame: frame}, nil
}
