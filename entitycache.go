package scenery

import "fmt"

// VisualState is the fingerprint of everything that shapes an entity's
// transformed image. Two states are equal iff every field matches.
type VisualState struct {
	Sprite     int
	Zoom       int
	Tint       Tint
	LightLevel int
	Mirrored   bool
}

// occluderCache is the per-entity overlay of the char-sprite strategy.
type occluderCache struct {
	image    *Bitmap
	ddb      DeviceBitmap
	valid    bool
	present  bool
	x, y     int
	baseline int
}

// entitySlot caches the transformed image of one object or character.
type entitySlot struct {
	// image is drawn this frame and may carry occlusion.
	image *Bitmap
	// clean is the transformed image before occlusion.
	clean *Bitmap
	state VisualState
	valid bool
	// at is where the image was last occluded for.
	at  placement
	ddb DeviceBitmap
	occ occluderCache
}

// placement is the part of an entity's pose that decides its occlusion.
type placement struct {
	x, y              int
	baseline          int
	ignoreWalkBehinds bool
}

// release destroys the slot's device bitmaps and forgets its images.
func (s *entitySlot) release(dev GraphicsDevice) {
	if s.ddb != nil {
		dev.DestroyBitmap(s.ddb)
	}
	if s.occ.ddb != nil {
		dev.DestroyBitmap(s.occ.ddb)
	}
	*s = entitySlot{}
}

// entityDraw is one entity being prepared for the current frame.
type entityDraw struct {
	name  string
	slot  *entitySlot
	image *Bitmap
	// intact means image is unchanged since the previous frame.
	intact bool

	w, h             int
	roomX, roomY     int
	screenX, screenY int
	baseline         int

	ignoreWalkBehinds bool
}

// hardwareScaling reports whether entity images are scaled, flipped and
// tinted by the device. Direct overwrite needs the final pixels in memory,
// so it always transforms on the CPU.
func (c *Compositor) hardwareScaling() bool {
	return c.dev.HasAcceleratedStretchAndFlip() && c.strategy.Method() != WalkBehindOverwrite
}

// lighting returns the tint and light level for an entity.
func (c *Compositor) lighting(e *Entity) (Tint, int) {
	if e.Tint.Amount > 0 {
		return e.Tint, 0
	}
	if e.LightLevel != 0 {
		return Tint{}, e.LightLevel
	}
	if e.NoLighting || c.room == nil {
		return Tint{}, 0
	}
	return c.room.localLighting(e.X, e.Y, c.depth)
}

// prepareEntity brings the entity's cached image up to date, applies
// occlusion and queues it in the sprite list.
func (c *Compositor) prepareEntity(e *Entity, slot *entitySlot, character bool, index int) error {
	if e.transparency() >= 255 {
		return nil
	}
	kind := "object"
	if character {
		kind = "character"
	}
	name := fmt.Sprintf("%s %d", kind, index)
	if e.Name != "" {
		name = fmt.Sprintf("%s %d (%s)", kind, index, e.Name)
	}

	r := resolved{sprite: e.Sprite}
	if character || e.View > 0 {
		var err error
		if r, err = resolveFrame(c.views, e, name); err != nil {
			return err
		}
	}
	var src *Bitmap
	if c.sprites != nil {
		src = c.sprites.Sprite(r.sprite)
	}
	if src == nil {
		view := e.View
		if !character && view == 0 {
			view = -1
		}
		return &InvalidSpriteError{
			Entity: name, Sprite: r.sprite,
			View: view, Loop: e.Loop, Frame: r.frame,
			Reason: "sprite is not loaded",
		}
	}
	hasAlpha := c.sprites.SpriteHasAlpha(r.sprite)

	zoom := e.zoom()
	w, h := src.w, src.h
	if zoom != 100 {
		w = max(src.w*zoom/100, 1)
		h = max(src.h*zoom/100, 1)
	}
	tint, light := c.lighting(e)
	state := VisualState{Sprite: r.sprite, Zoom: zoom, Tint: tint, LightLevel: light, Mirrored: r.mirrored}
	hw := c.hardwareScaling()
	at := placement{x: e.X, y: e.Y, baseline: e.EffectiveBaseline(), ignoreWalkBehinds: e.IgnoreWalkBehinds}

	intact := c.constructImage(slot, src, hasAlpha, state, w, h, hw, character, at)

	offX, offY := c.viewport.Offset()
	var atX, atY int
	if character {
		atX = e.X - offX - w/2 + e.PicOffsetX*zoom/100
		atY = e.Y - h - offY - e.Z + e.PicOffsetY*zoom/100
	} else {
		atX = e.X - offX
		atY = e.Y - h - offY
	}

	d := entityDraw{
		name:              name,
		slot:              slot,
		image:             slot.image,
		intact:            intact,
		w:                 w,
		h:                 h,
		roomX:             atX + offX,
		roomY:             atY + offY,
		screenX:           atX,
		screenY:           atY,
		baseline:          at.baseline,
		ignoreWalkBehinds: at.ignoreWalkBehinds,
	}
	if err := c.strategy.ComposeForEntity(c, &d); err != nil {
		return err
	}

	if !intact || slot.ddb == nil {
		slot.ddb = c.recycleDDB(slot.ddb, slot.image, hasAlpha, false)
	}
	if hw {
		slot.ddb.SetFlippedLeftRight(r.mirrored)
		slot.ddb.SetStretch(w, h)
		sat, level := lightParams(tint, light)
		slot.ddb.SetTint(tint.R, tint.G, tint.B, sat)
		slot.ddb.SetLightLevel(level)
	}
	slot.at = at

	err := c.addSprite(SpriteListEntry{
		Image:         slot.ddb,
		X:             atX,
		Y:             atY,
		Baseline:      d.baseline,
		Transparency:  e.transparency(),
		HasAlpha:      hasAlpha,
		TakesPriority: c.strategy.TakesPriority(false),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// constructImage makes slot.image hold the entity's transformed image. It
// reports true when the image was left exactly as it was last frame.
func (c *Compositor) constructImage(slot *entitySlot, src *Bitmap, hasAlpha bool, state VisualState, w, h int, hw, character bool, at placement) bool {
	if hw {
		// The device scales, flips and tints; only the sprite matters.
		if slot.valid && slot.image != nil && slot.state.Sprite == state.Sprite {
			slot.state = state
			c.stats.CacheHits++
			return true
		}
		img := RecycleBitmap(slot.image, src.w, src.h, c.depth)
		Blit(img, src, 0, 0, 0, 0, src.w, src.h)
		slot.image = img
		slot.clean = nil
		slot.state = state
		slot.valid = true
		c.stats.Regenerations++
		return false
	}

	if slot.valid && slot.clean != nil && slot.image != nil && slot.state == state {
		overwrite := c.strategy.Method() == WalkBehindOverwrite
		switch {
		case !overwrite:
			c.stats.CacheHits++
			return true
		case !character && slot.at == at && !c.baselinesChanged:
			// Same position and baseline: last frame's occlusion still holds.
			c.stats.CacheHits++
			return true
		}
		// Occlusion is about to be reapplied; start from the clean copy.
		slot.image = RecycleBitmap(slot.image, w, h, c.depth)
		Blit(slot.image, slot.clean, 0, 0, 0, 0, w, h)
		c.stats.Recopies++
		return false
	}

	c.regenerate(slot, src, hasAlpha, state, w, h)
	return false
}

// regenerate rebuilds the entity image from its source sprite: scale and
// flip, then tint or light, then keep a clean copy.
func (c *Compositor) regenerate(slot *entitySlot, src *Bitmap, hasAlpha bool, state VisualState, w, h int) {
	img := RecycleBitmap(slot.image, w, h, c.depth)
	img.Clear(img.MaskColor())

	switch {
	case state.Zoom != 100 && state.Mirrored:
		tmp := c.scratch.Acquire(w, h, c.depth)
		c.stretch(tmp, src, hasAlpha)
		FlipBlit(img, tmp)
		c.scratch.Release(tmp)
	case state.Zoom != 100:
		c.stretch(img, src, hasAlpha)
	case state.Mirrored:
		FlipBlit(img, src)
	default:
		Blit(img, src, 0, 0, 0, 0, src.w, src.h)
	}

	if state.Tint.Amount > 0 || state.LightLevel != 0 {
		c.applyTintOrLight(img, state)
	}

	clean := RecycleBitmap(slot.clean, w, h, c.depth)
	Blit(clean, img, 0, 0, 0, 0, w, h)

	slot.image = img
	slot.clean = clean
	slot.state = state
	slot.valid = true
	c.stats.Regenerations++
}

func (c *Compositor) stretch(dst, src *Bitmap, hasAlpha bool) {
	if c.opts.AntiAliasSprites && !hasAlpha {
		AAStretchBlit(dst, src)
		return
	}
	StretchBlit(dst, src)
}

// applyTintOrLight tints or lights img in place. 256-colour images can only
// be darkened.
func (c *Compositor) applyTintOrLight(img *Bitmap, state VisualState) {
	if img.depth == Depth8 && (state.LightLevel > 0 || state.Tint.Amount > 0) {
		c.warnf("tint and lightening are not supported on 8-bit images (sprite %d)", state.Sprite)
		return
	}
	scratch := c.scratch.Acquire(img.w, img.h, img.depth)
	Blit(scratch, img, 0, 0, 0, 0, img.w, img.h)
	if state.Tint.Amount > 0 {
		tintImage(img, scratch, state.Tint)
	} else {
		lightImage(img, scratch, state.LightLevel)
	}
	c.scratch.Release(scratch)
}

// recycleDDB updates ddb from img when the shapes match, otherwise destroys
// it and creates a new one.
func (c *Compositor) recycleDDB(ddb DeviceBitmap, img *Bitmap, hasAlpha, opaque bool) DeviceBitmap {
	if ddb != nil && ddb.Width() == img.w && ddb.Height() == img.h && ddb.ColorDepth() == img.depth {
		c.dev.UpdateBitmapFromImage(ddb, img, hasAlpha)
		c.stats.DDBUpdates++
		return ddb
	}
	if ddb != nil {
		c.dev.DestroyBitmap(ddb)
	}
	c.stats.DDBCreations++
	return c.dev.CreateBitmapFromImage(img, hasAlpha, opaque)
}
