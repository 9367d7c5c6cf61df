package scenery

import (
	"fmt"
	"time"
)

// Options configures a Compositor. Zero values select the defaults.
type Options struct {
	// Width and Height are the screen size. Zero takes the size of the
	// device back buffer, or 320x200.
	Width, Height int
	// Depth is the display colour depth. Zero takes the device depth.
	Depth ColorDepth

	// MaxDirtyRegions is the number of invalidations per frame after which
	// the whole screen is redrawn. Default DefaultMaxDirtyRegions.
	MaxDirtyRegions int
	// MaxSprites caps the sprite list. Default DefaultMaxSprites.
	MaxSprites int
	// MaxDrawList caps the draw list. Default DefaultMaxDrawList.
	MaxDrawList int

	// WalkBehindMethod forces an occlusion strategy. WalkBehindAuto picks
	// one from the device capabilities.
	WalkBehindMethod WalkBehindMethod
	// AntiAliasSprites smooths scaled sprites that have no alpha channel.
	AntiAliasSprites bool

	// OnHook runs when the device reaches a hook marker of the draw list.
	// Only devices that report null sprites call it.
	OnHook func(h Hook)

	// Debug enables per-frame timing output and misuse checks.
	Debug bool
	// ScreenshotDir is where Screenshot writes. Default "screenshots".
	ScreenshotDir string
}

func (o Options) withDefaults(dev GraphicsDevice) Options {
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = 320, 200
		if bb, ok := dev.(BackBufferDevice); ok && bb.BackBuffer() != nil {
			o.Width, o.Height = bb.BackBuffer().Width(), bb.BackBuffer().Height()
		}
	}
	if !o.Depth.Valid() {
		o.Depth = dev.ColorDepth()
		if !o.Depth.Valid() {
			o.Depth = Depth32
		}
	}
	if o.MaxDirtyRegions <= 0 {
		o.MaxDirtyRegions = DefaultMaxDirtyRegions
	}
	if o.MaxSprites <= 0 {
		o.MaxSprites = DefaultMaxSprites
	}
	if o.MaxDrawList <= 0 {
		o.MaxDrawList = DefaultMaxDrawList
	}
	if o.ScreenshotDir == "" {
		o.ScreenshotDir = "screenshots"
	}
	return o
}

// Stats counts the work done by the most recent frame.
type Stats struct {
	Frame int

	// Regenerations is the number of entity images rebuilt from their
	// source sprite.
	Regenerations int
	// Recopies is the number of entity images restored from their clean
	// copy before re-occlusion.
	Recopies int
	// CacheHits is the number of entity images reused unchanged.
	CacheHits int
	// OcclusionPasses is the number of per-entity occlusion computations.
	OcclusionPasses int

	DDBCreations int
	DDBUpdates   int

	Sprites      int
	DrawListSize int

	// DirtySpans is the number of dirty rows restored from the background,
	// or the screen height when the whole screen was restored.
	DirtySpans int
	// DirtyCopies is the number of block copies that restoration took.
	DirtyCopies int
}

// Overlay is a screen-space image drawn above the room, such as GUI or
// text. A Complete overlay covers the whole screen and suppresses room
// drawing while it is shown.
type Overlay struct {
	Image *Bitmap
	X, Y  int
	// Transparency is in percent.
	Transparency int
	HasAlpha     bool
	Complete     bool

	ddb     DeviceBitmap
	changed bool
}

// Invalidate marks the overlay image as changed so it is uploaded again.
func (o *Overlay) Invalidate() { o.changed = true }

func (o *Overlay) transparency() int {
	return (&Entity{Transparency: o.Transparency}).transparency()
}

// Compositor builds and presents the frames of one screen. It owns every
// per-room cache; none of its methods are safe for concurrent use.
type Compositor struct {
	opts    Options
	dev     GraphicsDevice
	backDev BackBufferDevice
	depth   ColorDepth
	w, h    int

	dirty    *DirtyTracker
	viewport *Viewport
	lastOffX int
	lastOffY int
	offKnown bool

	sprites SpriteSource
	views   []View

	room        *Room
	backgrounds []*Bitmap
	bgFrame     int
	bgChanged   bool
	bgDDB       DeviceBitmap

	wb               WalkBehindMap
	strategy         occlusionStrategy
	baselinesChanged bool
	precomputed      bool

	objects    []*Entity
	characters []*Entity
	objSlots   []entitySlot
	charSlots  []entitySlot
	overlays   []*Overlay
	tweens     []*TweenGroup

	sprList  spriteList
	drawList []DrawListEntry

	scratch bitmapPool
	stats   Stats
	timing  frameTiming

	fastForward bool
	debug       bool
	torn        bool
	frame       int

	screenshotQueue []string
}

type nullSpriteReporter interface {
	SetNullSpriteCallback(fn func(x, y int))
}

// NewCompositor returns a compositor drawing to dev.
func NewCompositor(dev GraphicsDevice, opts Options) *Compositor {
	opts = opts.withDefaults(dev)
	c := &Compositor{
		opts:     opts,
		dev:      dev,
		depth:    opts.Depth,
		w:        opts.Width,
		h:        opts.Height,
		dirty:    NewDirtyTracker(opts.Width, opts.Height, opts.MaxDirtyRegions),
		viewport: newViewport(opts.Width, opts.Height),
		sprList:  spriteList{limit: opts.MaxSprites},
		debug:    opts.Debug,
	}
	if bb, ok := dev.(BackBufferDevice); ok {
		c.backDev = bb
	}
	method := opts.WalkBehindMethod
	if method == WalkBehindAuto {
		method = WalkBehindOverwrite
		if dev.HasAcceleratedStretchAndFlip() {
			method = WalkBehindRoomSprite
		}
	}
	c.strategy = newOcclusionStrategy(method)
	if r, ok := dev.(nullSpriteReporter); ok {
		r.SetNullSpriteCallback(func(x, _ int) {
			if opts.OnHook != nil {
				opts.OnHook(Hook(x))
			}
		})
	}
	c.dirty.InvalidateAll()
	return c
}

// Method returns the active walk-behind strategy.
func (c *Compositor) Method() WalkBehindMethod { return c.strategy.Method() }

// Viewport returns the screen's view into the room.
func (c *Compositor) Viewport() *Viewport { return c.viewport }

// Dirty returns the dirty region tracker of the screen.
func (c *Compositor) Dirty() *DirtyTracker { return c.dirty }

// Stats returns the counters of the most recent frame.
func (c *Compositor) Stats() Stats { return c.stats }

// Options returns the options in effect, with defaults filled in.
func (c *Compositor) Options() Options { return c.opts }

// Room returns the loaded room, or nil.
func (c *Compositor) Room() *Room { return c.room }

// SetAssets sets the sprite source and view table used to resolve entity
// images.
func (c *Compositor) SetAssets(sprites SpriteSource, views []View) {
	c.sprites = sprites
	c.views = views
}

// LoadRoom makes room current. Every cache of the previous room is
// released, the walk-behind mask is analysed and the whole screen is
// invalidated.
func (c *Compositor) LoadRoom(room *Room) error {
	c.checkTorn("LoadRoom")
	if room == nil {
		return ErrNoRoom
	}
	if err := room.validate(); err != nil {
		return err
	}
	if err := c.wb.Rebuild(room.WalkBehinds); err != nil {
		return fmt.Errorf("room %q: walk-behind mask: %w", room.Name, err)
	}
	c.releaseRoom()

	c.room = room
	c.backgrounds = c.backgrounds[:0]
	for _, bg := range room.Backgrounds {
		c.backgrounds = append(c.backgrounds, c.toDisplay(bg))
	}
	c.bgFrame = 0
	for id := 1; id < MaxWalkBehinds; id++ {
		c.wb.SetBaseline(id, 0)
	}
	for id, b := range room.Baselines {
		c.wb.SetBaseline(id, b)
	}
	w, h := room.Size()
	c.viewport.roomW, c.viewport.roomH = w, h
	c.viewport.clamp()
	c.bgChanged = true
	c.precomputed = false
	c.offKnown = false
	c.dirty.InvalidateAll()
	return nil
}

// UnloadRoom releases the room and every cache built for it.
func (c *Compositor) UnloadRoom() {
	c.releaseRoom()
	_ = c.wb.Rebuild(nil)
	c.room = nil
	c.backgrounds = c.backgrounds[:0]
}

func (c *Compositor) releaseRoom() {
	for i := range c.objSlots {
		c.objSlots[i].release(c.dev)
	}
	for i := range c.charSlots {
		c.charSlots[i].release(c.dev)
	}
	c.strategy.Release(c.dev)
	if c.bgDDB != nil {
		c.dev.DestroyBitmap(c.bgDDB)
		c.bgDDB = nil
	}
	c.precomputed = false
}

// Teardown releases everything the compositor holds. The compositor must
// not be used afterwards.
func (c *Compositor) Teardown() {
	c.UnloadRoom()
	for _, o := range c.overlays {
		if o.ddb != nil {
			c.dev.DestroyBitmap(o.ddb)
			o.ddb = nil
		}
	}
	c.overlays = nil
	c.tweens = nil
	c.dev.ClearDrawList()
	c.torn = true
}

func (c *Compositor) checkTorn(op string) {
	if c.debug && c.torn {
		panic(fmt.Sprintf("scenery debug: %s on torn-down compositor", op))
	}
}

// toDisplay converts bmp to the display depth, or returns it unchanged.
func (c *Compositor) toDisplay(bmp *Bitmap) *Bitmap {
	if bmp.depth == c.depth {
		return bmp
	}
	out := NewBitmap(bmp.w, bmp.h, c.depth)
	Blit(out, bmp, 0, 0, 0, 0, bmp.w, bmp.h)
	return out
}

// background returns the current background frame in display depth.
func (c *Compositor) background() *Bitmap {
	if c.bgFrame < 0 || c.bgFrame >= len(c.backgrounds) {
		return nil
	}
	return c.backgrounds[c.bgFrame]
}

// SetBackgroundFrame switches the room background animation frame.
func (c *Compositor) SetBackgroundFrame(i int) error {
	if c.room == nil {
		return ErrNoRoom
	}
	if i < 0 || i >= len(c.backgrounds) {
		return fmt.Errorf("room %q: background frame %d out of range [0,%d)", c.room.Name, i, len(c.backgrounds))
	}
	if i != c.bgFrame {
		c.bgFrame = i
		c.bgChanged = true
		c.dirty.InvalidateAll()
	}
	return nil
}

// BackgroundFrame returns the current background frame index.
func (c *Compositor) BackgroundFrame() int { return c.bgFrame }

// MarkBackgroundDirty reports that the pixels of the room backgrounds were
// changed by the caller.
func (c *Compositor) MarkBackgroundDirty() {
	if c.room == nil {
		return
	}
	for i, bg := range c.room.Backgrounds {
		if bg.depth == c.depth {
			c.backgrounds[i] = bg
			continue
		}
		c.backgrounds[i] = RecycleBitmap(c.backgrounds[i], bg.w, bg.h, c.depth)
		Blit(c.backgrounds[i], bg, 0, 0, 0, 0, bg.w, bg.h)
	}
	c.bgChanged = true
	c.dirty.InvalidateAll()
}

// SetWalkBehindBaseline changes the baseline of a walk-behind area.
func (c *Compositor) SetWalkBehindBaseline(id, baseline int) {
	if c.wb.Baseline(id) == baseline {
		return
	}
	c.wb.SetBaseline(id, baseline)
	c.baselinesChanged = true
}

// WalkBehinds returns the analysed walk-behind map of the room.
func (c *Compositor) WalkBehinds() *WalkBehindMap { return &c.wb }

// SetObjects sets the room objects drawn each frame. Slots of a shrinking
// list are released.
func (c *Compositor) SetObjects(objs []*Entity) {
	c.objects = objs
	c.objSlots = c.resizeSlots(c.objSlots, len(objs))
}

// SetCharacters sets the characters drawn each frame.
func (c *Compositor) SetCharacters(chars []*Entity) {
	c.characters = chars
	c.charSlots = c.resizeSlots(c.charSlots, len(chars))
}

func (c *Compositor) resizeSlots(slots []entitySlot, n int) []entitySlot {
	for i := n; i < len(slots); i++ {
		slots[i].release(c.dev)
	}
	if n <= len(slots) {
		return slots[:n]
	}
	return append(slots, make([]entitySlot, n-len(slots))...)
}

// ObjectState returns the visual state the cached image of object i was
// built for.
func (c *Compositor) ObjectState(i int) (VisualState, bool) {
	if i < 0 || i >= len(c.objSlots) || !c.objSlots[i].valid {
		return VisualState{}, false
	}
	return c.objSlots[i].state, true
}

// CharacterState returns the visual state the cached image of character i
// was built for.
func (c *Compositor) CharacterState(i int) (VisualState, bool) {
	if i < 0 || i >= len(c.charSlots) || !c.charSlots[i].valid {
		return VisualState{}, false
	}
	return c.charSlots[i].state, true
}

// Invalidate marks a screen rectangle for redrawing. Coordinates are
// inclusive.
func (c *Compositor) Invalidate(x1, y1, x2, y2 int) { c.dirty.Invalidate(x1, y1, x2, y2) }

// InvalidateScreen marks the whole screen for redrawing.
func (c *Compositor) InvalidateScreen() { c.dirty.InvalidateAll() }

// SetFastForward makes Render skip composing while skipping a cutscene.
func (c *Compositor) SetFastForward(on bool) {
	if c.fastForward && !on {
		c.dirty.InvalidateAll()
	}
	c.fastForward = on
}

// AddOverlay adds an overlay above the room.
func (c *Compositor) AddOverlay(o *Overlay) {
	o.changed = true
	c.overlays = append(c.overlays, o)
}

// RemoveOverlay removes an overlay and invalidates the area it covered.
func (c *Compositor) RemoveOverlay(o *Overlay) {
	for i, ov := range c.overlays {
		if ov != o {
			continue
		}
		c.overlays = append(c.overlays[:i], c.overlays[i+1:]...)
		if o.ddb != nil {
			c.dev.DestroyBitmap(o.ddb)
			o.ddb = nil
		}
		if o.Complete {
			c.dirty.InvalidateAll()
		} else if o.Image != nil {
			c.dirty.Invalidate(o.X, o.Y, o.X+o.Image.w, o.Y+o.Image.h)
		}
		return
	}
}

// ClearOverlays removes every overlay.
func (c *Compositor) ClearOverlays() {
	for len(c.overlays) > 0 {
		c.RemoveOverlay(c.overlays[len(c.overlays)-1])
	}
}

// Update advances the viewport and entity tweens by dt seconds.
func (c *Compositor) Update(dt float32) {
	c.checkTorn("Update")
	c.updateTweens(dt)
	c.viewport.update(dt)
}

// SpriteList returns the sorted sprite list of the last built frame.
func (c *Compositor) SpriteList() []SpriteListEntry { return c.sprList.entries }

// DrawList returns the draw list of the last rendered frame.
func (c *Compositor) DrawList() []DrawListEntry { return c.drawList }

func (c *Compositor) addSprite(e SpriteListEntry) error { return c.sprList.add(e) }

// fullRedraw reports whether every frame is drawn from scratch.
func (c *Compositor) fullRedraw() bool {
	return c.backDev == nil || c.dev.RequiresFullRedrawEachFrame()
}

func (c *Compositor) completeOverlay() bool {
	for _, o := range c.overlays {
		if o.Complete && o.Image != nil {
			return true
		}
	}
	return false
}

// BuildFrame fills the sprite list with room occluders, objects and
// characters, sorts it by baseline and turns it into the draw list.
func (c *Compositor) BuildFrame() error {
	c.checkTorn("BuildFrame")
	if c.room == nil {
		return ErrNoRoom
	}
	start := time.Now()
	c.sprList.reset()
	c.drawList = c.drawList[:0]

	if c.bgChanged || c.baselinesChanged || !c.precomputed {
		if err := c.strategy.PrecomputeForRoom(c); err != nil {
			return c.frameErr(err)
		}
		c.precomputed = true
	}
	if err := c.strategy.AddRoomSprites(c); err != nil {
		return c.frameErr(err)
	}

	roomW, _ := c.room.Size()
	for i, o := range c.objects {
		if o == nil || !o.Visible || o.X >= roomW || o.Y < 1 {
			continue
		}
		if err := c.prepareEntity(o, &c.objSlots[i], false, i); err != nil {
			return c.frameErr(err)
		}
	}
	for i, ch := range c.characters {
		if ch == nil || !ch.Visible {
			continue
		}
		if err := c.prepareEntity(ch, &c.charSlots[i], true, i); err != nil {
			return c.frameErr(err)
		}
	}
	c.timing.build = time.Since(start)

	start = time.Now()
	c.sprList.sort()
	c.timing.sort = time.Since(start)

	if err := c.addHook(HookPreScreenDraw); err != nil {
		return c.frameErr(err)
	}
	for _, e := range c.sprList.entries {
		err := c.addDraw(DrawListEntry{
			Kind:         DrawKindSprite,
			Image:        e.Image,
			X:            e.X,
			Y:            e.Y,
			Transparency: e.Transparency,
		})
		if err != nil {
			return c.frameErr(err)
		}
	}
	c.stats.Sprites = len(c.sprList.entries)
	return nil
}

func (c *Compositor) frameErr(err error) error {
	return fmt.Errorf("room %q, frame %d: %w", c.room.Name, c.frame, err)
}

// Render composes and presents one frame. fullRedraw invalidates the whole
// screen first.
func (c *Compositor) Render(fullRedraw bool) error {
	c.checkTorn("Render")
	if c.room == nil {
		return ErrNoRoom
	}
	c.stats = Stats{Frame: c.frame}
	c.timing = frameTiming{}
	c.dev.ClearDrawList()
	if c.fastForward {
		return nil
	}
	if fullRedraw {
		c.dirty.InvalidateAll()
	}

	start := time.Now()
	complete := c.completeOverlay()
	if complete {
		c.drawList = c.drawList[:0]
		c.sprList.reset()
	} else {
		if err := c.drawBackground(); err != nil {
			return c.frameErr(err)
		}
		if err := c.BuildFrame(); err != nil {
			return err
		}
		if err := c.addHook(HookPreGUIDraw); err != nil {
			return c.frameErr(err)
		}
	}
	if err := c.addOverlays(complete); err != nil {
		return c.frameErr(err)
	}
	c.stats.DrawListSize = len(c.drawList)

	if err := c.submitDrawList(); err != nil {
		return c.frameErr(err)
	}
	c.timing.compose = time.Since(start) - c.timing.build - c.timing.sort

	start = time.Now()
	if err := c.dev.Render(); err != nil {
		return c.frameErr(err)
	}
	c.timing.present = time.Since(start)
	if complete {
		// Whatever the overlay covered comes back when it goes away.
		c.dirty.InvalidateAll()
	}

	c.bgChanged = false
	c.baselinesChanged = false
	c.flushScreenshots()
	c.debugLog()
	c.frame++
	return nil
}

// drawBackground puts the room background under the frame. Full-redraw
// devices get it as the first draw; back buffer devices have only the dirty
// spans restored.
func (c *Compositor) drawBackground() error {
	bg := c.background()
	if bg == nil {
		return ErrNilBitmap
	}
	offX, offY := c.viewport.Offset()
	if !c.offKnown || offX != c.lastOffX || offY != c.lastOffY {
		c.dirty.InvalidateAll()
		c.lastOffX, c.lastOffY, c.offKnown = offX, offY, true
	}

	if c.fullRedraw() {
		if c.bgChanged || c.bgDDB == nil {
			c.bgDDB = c.recycleDDB(c.bgDDB, bg, false, true)
		}
		c.dirty.Reset()
		return c.addDraw(DrawListEntry{Kind: DrawKindSprite, Image: c.bgDDB, X: -offX, Y: -offY})
	}

	back := c.backDev.BackBuffer()
	c.stats.DirtySpans = c.dirty.SpanCount()
	c.stats.DirtyCopies = c.dirty.Present(-offX, -offY, bg, back)
	return nil
}

// addOverlays uploads changed overlay images and queues them. Only
// complete overlays are drawn when one is active.
func (c *Compositor) addOverlays(completeOnly bool) error {
	for _, o := range c.overlays {
		if o.Image == nil || (completeOnly && !o.Complete) {
			continue
		}
		if o.changed || o.ddb == nil {
			o.ddb = c.recycleDDB(o.ddb, c.toDisplay(o.Image), o.HasAlpha, o.Complete)
			o.changed = false
		}
		t := o.transparency()
		if t >= 255 {
			continue
		}
		err := c.addDraw(DrawListEntry{Kind: DrawKindSprite, Image: o.ddb, X: o.X, Y: o.Y, Transparency: t})
		if err != nil {
			return err
		}
	}
	return nil
}
