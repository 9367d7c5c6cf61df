// Package scenery is the per-frame screen compositor of a 2D adventure-game
// runtime. It decides what to redraw, in what order, and how much of the
// screen actually needs updating.
//
// # Quick start
//
//	dev := scenery.NewSoftwareDevice(320, 200, scenery.Depth32)
//	c := scenery.NewCompositor(dev, scenery.Options{})
//	c.SetAssets(sprites, views)
//	if err := c.LoadRoom(room); err != nil { ... }
//	c.SetCharacters(chars)
//
//	for running {
//		c.Update(dt)
//		if err := c.Render(false); err != nil { ... }
//	}
//
// # Frame pipeline
//
// Each call to [Compositor.Render] runs, in order:
//
//   - the background: devices that redraw every frame get it as the first
//     draw; devices with a persistent back buffer get only the rows and
//     spans recorded by the [DirtyTracker] restored from the room
//     background;
//   - [Compositor.BuildFrame]: every visible object and character has its
//     transformed image brought up to date in a per-entity cache, walk-behind
//     occlusion is applied, and the resulting sprites are sorted by baseline;
//   - overlays, after a [HookPreGUIDraw] marker;
//   - [GraphicsDevice.Render].
//
// # Walk-behinds
//
// A room's walk-behind mask is an 8-bit bitmap of area ids. Each area has a
// baseline; an entity whose baseline is lower is drawn behind the area.
// Three strategies are available, see [WalkBehindMethod]:
//
//   - overwrite erases the hidden pixels from each entity image;
//   - room-sprite draws each area as its own sprite, sorted with entities;
//   - char-sprite builds an occluding overlay per entity.
//
// When two sprites share a baseline the sort is decided by
// [SpriteListEntry.TakesPriority]. Under room-sprite, entities win over
// areas; under the other strategies, walk-behind sprites win.
//
// # Image cache
//
// Entity images are cached per object and per character slot, keyed on a
// [VisualState]. The cache is reused verbatim while the state is unchanged
// and regenerated otherwise. [Compositor.Stats] reports how much work the
// last frame took.
//
// # Devices
//
// [SoftwareDevice] composes in memory and hands frames to a [Presenter].
// Package ebitendevice draws through Ebitengine, package termdevice presents
// frames on a terminal.
package scenery
