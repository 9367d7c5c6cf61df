package scenery

import (
	"errors"
	"strings"
	"testing"
)

var (
	colBackground = RGB(10, 20, 30)
	colScenery    = RGB(0, 100, 0)
	colActor      = RGB(200, 0, 0)
)

// newTestRoom returns a 40x30 room with walk-behind area 1 covering columns
// 10..19 at baseline 50. The area is painted colScenery on the background.
func newTestRoom() *Room {
	bg := NewBitmap(40, 30, Depth32)
	bg.Clear(colBackground)
	bg.FillRect(10, 0, 10, 30, colScenery)
	mask := NewBitmap(40, 30, Depth8)
	mask.FillRect(10, 0, 10, 30, 1)
	return &Room{
		Name:        "test",
		Backgrounds: []*Bitmap{bg},
		WalkBehinds: mask,
		Baselines:   map[int]int{1: 50},
	}
}

func newTestAssets() (*SpriteTable, []View) {
	sprites := &SpriteTable{}
	spr := NewBitmap(8, 10, Depth32)
	spr.Clear(colActor)
	sprites.Add(spr, false)
	views := []View{{Loops: []ViewLoop{{Frames: []ViewFrame{{Sprite: 0}}}}}}
	return sprites, views
}

// newTestScene loads the test room with one character whose 8x10 image
// covers screen x 6..13, y 10..19 at baseline 40.
func newTestScene(t *testing.T, opts Options) (*Compositor, *SoftwareDevice, *Entity) {
	t.Helper()
	dev := NewSoftwareDevice(40, 30, Depth32)
	c := NewCompositor(dev, opts)
	sprites, views := newTestAssets()
	c.SetAssets(sprites, views)
	if err := c.LoadRoom(newTestRoom()); err != nil {
		t.Fatalf("LoadRoom: %v", err)
	}
	ego := &Entity{Name: "ego", Visible: true, X: 10, Y: 20, Baseline: 40, View: 1}
	c.SetCharacters([]*Entity{ego})
	return c, dev, ego
}

func render(t *testing.T, c *Compositor) {
	t.Helper()
	if err := c.Render(false); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

// expectedScene is the test room with the character's unoccluded part
// painted on top.
func expectedScene() *Bitmap {
	exp := newTestRoom().Backgrounds[0]
	exp.FillRect(6, 10, 4, 10, colActor)
	return exp
}

func TestCompositorWalkBehindScenario(t *testing.T) {
	for _, m := range []WalkBehindMethod{WalkBehindOverwrite, WalkBehindRoomSprite, WalkBehindCharSprite} {
		t.Run(m.String(), func(t *testing.T) {
			c, dev, _ := newTestScene(t, Options{WalkBehindMethod: m})
			if c.Method() != m {
				t.Fatalf("Method = %v, want %v", c.Method(), m)
			}
			render(t, c)
			if !dev.BackBuffer().Equal(expectedScene()) {
				t.Fatal("frame 1 does not match expected scene")
			}
			if got := dev.BackBuffer().Pixel(11, 15); got != colScenery {
				t.Errorf("occluded pixel = %#x, want %#x", got, colScenery)
			}
			if got := dev.BackBuffer().Pixel(7, 15); got != colActor {
				t.Errorf("visible pixel = %#x, want %#x", got, colActor)
			}

			// Nothing changed: the restored frame must be identical.
			render(t, c)
			if !dev.BackBuffer().Equal(expectedScene()) {
				t.Fatal("frame 2 does not match expected scene")
			}
		})
	}
}

func TestCompositorRoomSpriteOrdering(t *testing.T) {
	c, _, _ := newTestScene(t, Options{WalkBehindMethod: WalkBehindRoomSprite})
	render(t, c)
	list := c.SpriteList()
	if len(list) != 2 {
		t.Fatalf("sprites = %d, want 2", len(list))
	}
	if list[0].WalkBehind || !list[1].WalkBehind {
		t.Fatal("character must be drawn before the area with the higher baseline")
	}
	if list[1].Baseline != 50 {
		t.Errorf("area baseline = %d, want 50", list[1].Baseline)
	}
}

func TestCompositorRoomSpriteEqualBaseline(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindRoomSprite})
	ego.Baseline = 50
	render(t, c)
	list := c.SpriteList()
	if !list[0].WalkBehind {
		t.Fatal("on equal baselines the character must be drawn over the area")
	}
}

func TestCompositorIgnoreWalkBehinds(t *testing.T) {
	for _, m := range []WalkBehindMethod{WalkBehindOverwrite, WalkBehindRoomSprite, WalkBehindCharSprite} {
		t.Run(m.String(), func(t *testing.T) {
			c, dev, ego := newTestScene(t, Options{WalkBehindMethod: m})
			ego.IgnoreWalkBehinds = true
			render(t, c)
			if got := dev.BackBuffer().Pixel(11, 15); got != colActor {
				t.Errorf("pixel = %#x, want actor colour %#x", got, colActor)
			}
		})
	}
}

func TestCompositorBaselineAboveArea(t *testing.T) {
	c, dev, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindOverwrite})
	ego.Baseline = 60
	render(t, c)
	if got := dev.BackBuffer().Pixel(11, 15); got != colActor {
		t.Errorf("pixel = %#x, want actor colour %#x", got, colActor)
	}
}

func TestCompositorCacheStability(t *testing.T) {
	tests := []struct {
		method    WalkBehindMethod
		hits      int
		recopies  int
		occlusion int
	}{
		{WalkBehindOverwrite, 0, 1, 1},
		{WalkBehindRoomSprite, 1, 0, 0},
		{WalkBehindCharSprite, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			c, _, _ := newTestScene(t, Options{WalkBehindMethod: tt.method})
			render(t, c)
			if s := c.Stats(); s.Regenerations != 1 {
				t.Fatalf("frame 1 Regenerations = %d, want 1", s.Regenerations)
			}
			render(t, c)
			s := c.Stats()
			if s.Regenerations != 0 {
				t.Errorf("Regenerations = %d, want 0", s.Regenerations)
			}
			if s.CacheHits != tt.hits {
				t.Errorf("CacheHits = %d, want %d", s.CacheHits, tt.hits)
			}
			if s.Recopies != tt.recopies {
				t.Errorf("Recopies = %d, want %d", s.Recopies, tt.recopies)
			}
			if s.OcclusionPasses != tt.occlusion {
				t.Errorf("OcclusionPasses = %d, want %d", s.OcclusionPasses, tt.occlusion)
			}
		})
	}
}

func TestCompositorCacheSensitivity(t *testing.T) {
	tests := []struct {
		name   string
		change func(e *Entity)
		check  func(s VisualState) bool
	}{
		{"zoom", func(e *Entity) { e.Zoom = 110 }, func(s VisualState) bool { return s.Zoom == 110 }},
		{"tint", func(e *Entity) { e.Tint = Tint{R: 0, G: 0, B: 255, Amount: 50, Luminance: 255} },
			func(s VisualState) bool { return s.Tint.Amount == 50 && s.Tint.B == 255 }},
		{"light", func(e *Entity) { e.LightLevel = -40 }, func(s VisualState) bool { return s.LightLevel == -40 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindRoomSprite})
			render(t, c)
			tt.change(ego)
			render(t, c)
			if got := c.Stats().Regenerations; got != 1 {
				t.Fatalf("Regenerations = %d, want 1", got)
			}
			st, ok := c.CharacterState(0)
			if !ok || !tt.check(st) {
				t.Fatalf("CharacterState = %+v, %v", st, ok)
			}
			render(t, c)
			if got := c.Stats().Regenerations; got != 0 {
				t.Errorf("Regenerations after settling = %d, want 0", got)
			}
		})
	}
}

func TestCompositorZoomedSize(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindRoomSprite})
	ego.Zoom = 200
	render(t, c)
	for _, e := range c.SpriteList() {
		if e.WalkBehind {
			continue
		}
		if e.Image.Width() != 16 || e.Image.Height() != 20 {
			t.Fatalf("size = %dx%d, want 16x20", e.Image.Width(), e.Image.Height())
		}
		if e.X != 2 || e.Y != 0 {
			t.Errorf("position = (%d,%d), want (2,0)", e.X, e.Y)
		}
		return
	}
	t.Fatal("character not in sprite list")
}

func TestCompositorObjectOverwriteRecopy(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindOverwrite})
	ego.Visible = false
	obj := &Entity{Name: "crate", Visible: true, Y: 25, X: 25}
	c.SetObjects([]*Entity{obj})

	render(t, c)
	if got := c.Stats().Regenerations; got != 1 {
		t.Fatalf("frame 1 Regenerations = %d, want 1", got)
	}
	render(t, c)
	if s := c.Stats(); s.CacheHits != 1 || s.Recopies != 0 {
		t.Fatalf("stationary: CacheHits = %d, Recopies = %d, want 1, 0", s.CacheHits, s.Recopies)
	}

	obj.X = 26
	render(t, c)
	if s := c.Stats(); s.Recopies != 1 || s.Regenerations != 0 {
		t.Fatalf("moved: Recopies = %d, Regenerations = %d, want 1, 0", s.Recopies, s.Regenerations)
	}

	c.SetWalkBehindBaseline(1, 60)
	render(t, c)
	if s := c.Stats(); s.Recopies != 1 {
		t.Fatalf("baseline change: Recopies = %d, want 1", s.Recopies)
	}
}

func TestCompositorEntityBaselineChange(t *testing.T) {
	methods := []WalkBehindMethod{WalkBehindOverwrite, WalkBehindRoomSprite, WalkBehindCharSprite}
	for _, m := range methods {
		for _, kind := range []string{"object", "character"} {
			t.Run(m.String()+"/"+kind, func(t *testing.T) {
				c, dev, e := newTestScene(t, Options{WalkBehindMethod: m})
				if kind == "object" {
					e.Visible = false
					e = &Entity{Name: "crate", Visible: true, X: 8, Y: 20, Baseline: 40}
					c.SetObjects([]*Entity{e})
				}

				want := []struct {
					baseline int
					pixel    uint32
				}{
					{40, colScenery},
					{60, colActor},
					{60, colActor},
					{40, colScenery},
				}
				for i, w := range want {
					e.Baseline = w.baseline
					render(t, c)
					if got := dev.BackBuffer().Pixel(11, 15); got != w.pixel {
						t.Fatalf("frame %d, baseline %d: pixel = %#x, want %#x",
							i+1, w.baseline, got, w.pixel)
					}
				}
			})
		}
	}
}

func TestCompositorObjectBaselineReoccludes(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindOverwrite})
	ego.Visible = false
	obj := &Entity{Name: "crate", Visible: true, X: 8, Y: 20, Baseline: 40}
	c.SetObjects([]*Entity{obj})
	render(t, c)

	obj.Baseline = 60
	render(t, c)
	if s := c.Stats(); s.CacheHits != 0 || s.Recopies != 1 || s.OcclusionPasses != 1 {
		t.Fatalf("CacheHits = %d, Recopies = %d, OcclusionPasses = %d; want 0, 1, 1",
			s.CacheHits, s.Recopies, s.OcclusionPasses)
	}
}

func TestCompositorAntiAliasedZoom(t *testing.T) {
	c, dev, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindOverwrite, AntiAliasSprites: true})
	ego.Zoom = 200
	render(t, c)
	// The 16x20 image covers x 2..17, y 0..19; columns 10.. are behind the area.
	r, g, b, _, ok := dev.BackBuffer().components(dev.BackBuffer().Pixel(5, 10))
	if !ok || r < 190 || g > 10 || b > 10 {
		t.Errorf("zoomed pixel = (%d,%d,%d), want actor red", r, g, b)
	}
	if got := dev.BackBuffer().Pixel(11, 10); got != colScenery {
		t.Errorf("occluded pixel = %#x, want %#x", got, colScenery)
	}
}

func TestCompositorObjectAnchor(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindCharSprite})
	ego.Visible = false
	c.SetObjects([]*Entity{
		{Name: "a", Visible: true, X: 25, Y: 25},
		{Name: "offroom", Visible: true, X: 40, Y: 25},
		{Name: "top", Visible: true, X: 5, Y: 0},
	})
	render(t, c)
	list := c.SpriteList()
	if len(list) != 1 {
		t.Fatalf("sprites = %d, want 1", len(list))
	}
	if list[0].X != 25 || list[0].Y != 15 || list[0].Baseline != 25 {
		t.Errorf("entry = (%d,%d) baseline %d, want (25,15) baseline 25", list[0].X, list[0].Y, list[0].Baseline)
	}
}

func TestCompositorTransparency(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindCharSprite})
	ego.Transparency = 100
	render(t, c)
	if n := len(c.SpriteList()); n != 0 {
		t.Fatalf("sprites = %d, want 0 for a fully transparent character", n)
	}
	ego.Transparency = 50
	render(t, c)
	list := c.SpriteList()
	if len(list) == 0 || list[0].Transparency != 127 {
		t.Fatalf("sprite list = %+v, want transparency 127", list)
	}
}

func TestCompositorHooks(t *testing.T) {
	var got []Hook
	c, _, _ := newTestScene(t, Options{OnHook: func(h Hook) { got = append(got, h) }})
	render(t, c)
	if len(got) != 2 || got[0] != HookPreScreenDraw || got[1] != HookPreGUIDraw {
		t.Fatalf("hooks = %v, want [pre-screen-draw pre-gui-draw]", got)
	}
	list := c.DrawList()
	if list[0].Kind != DrawKindHook || list[0].Hook != HookPreScreenDraw {
		t.Errorf("first draw entry = %+v, want pre-screen-draw hook", list[0])
	}
}

func TestCompositorFastForward(t *testing.T) {
	c, dev, _ := newTestScene(t, Options{})
	render(t, c)
	c.SetFastForward(true)
	render(t, c)
	if dev.Frames() != 1 {
		t.Fatalf("device frames = %d, want 1", dev.Frames())
	}
	c.SetFastForward(false)
	render(t, c)
	if dev.Frames() != 2 {
		t.Fatalf("device frames = %d, want 2", dev.Frames())
	}
	if c.Stats().DirtySpans != 30 {
		t.Errorf("DirtySpans = %d, want whole screen after fast-forward", c.Stats().DirtySpans)
	}
}

func TestCompositorCompleteOverlay(t *testing.T) {
	c, dev, _ := newTestScene(t, Options{})
	render(t, c)

	blue := NewBitmap(40, 30, Depth32)
	blue.Clear(RGB(0, 0, 255))
	o := &Overlay{Image: blue, Complete: true}
	c.AddOverlay(o)
	render(t, c)
	if !dev.BackBuffer().Equal(blue) {
		t.Fatal("complete overlay does not cover the screen")
	}
	if n := len(c.DrawList()); n != 1 {
		t.Fatalf("draw list = %d entries, want 1", n)
	}
	if c.Stats().Sprites != 0 {
		t.Errorf("Sprites = %d, want 0", c.Stats().Sprites)
	}

	c.RemoveOverlay(o)
	render(t, c)
	if !dev.BackBuffer().Equal(expectedScene()) {
		t.Fatal("scene not restored after removing overlay")
	}
}

func TestCompositorOverlayAfterSprites(t *testing.T) {
	c, dev, _ := newTestScene(t, Options{})
	img := NewBitmap(4, 4, Depth32)
	img.Clear(RGB(255, 255, 0))
	c.AddOverlay(&Overlay{Image: img, X: 6, Y: 10})
	render(t, c)
	if got := dev.BackBuffer().Pixel(7, 11); got != RGB(255, 255, 0) {
		t.Errorf("pixel = %#x, want overlay colour", got)
	}
	list := c.DrawList()
	if list[len(list)-2].Kind != DrawKindHook || list[len(list)-2].Hook != HookPreGUIDraw {
		t.Error("overlay must follow the pre-gui-draw hook")
	}
}

func TestCompositorDirtySteadyState(t *testing.T) {
	c, _, ego := newTestScene(t, Options{WalkBehindMethod: WalkBehindOverwrite})
	ego.Visible = false
	render(t, c)
	if got := c.Stats().DirtySpans; got != 30 {
		t.Fatalf("frame 1 DirtySpans = %d, want 30", got)
	}
	render(t, c)
	if s := c.Stats(); s.DirtySpans != 0 || s.DirtyCopies != 0 {
		t.Fatalf("idle frame: DirtySpans = %d, DirtyCopies = %d, want 0", s.DirtySpans, s.DirtyCopies)
	}
	c.Invalidate(0, 0, 3, 3)
	render(t, c)
	if got := c.Stats().DirtySpans; got != 4 {
		t.Errorf("DirtySpans = %d, want 4", got)
	}
}

func TestCompositorViewportOffset(t *testing.T) {
	bg := NewBitmap(80, 30, Depth32)
	for x := 0; x < 80; x++ {
		bg.FillRect(x, 0, 1, 30, RGB(uint8(x), 0, 0))
	}
	dev := NewSoftwareDevice(40, 30, Depth32)
	c := NewCompositor(dev, Options{})
	if err := c.LoadRoom(&Room{Name: "wide", Backgrounds: []*Bitmap{bg}}); err != nil {
		t.Fatal(err)
	}
	c.Viewport().SetPosition(20, 0)
	render(t, c)
	if got := dev.BackBuffer().Pixel(0, 5); got != RGB(20, 0, 0) {
		t.Fatalf("pixel = %#x, want %#x", got, RGB(20, 0, 0))
	}
	render(t, c)
	if got := c.Stats().DirtySpans; got != 0 {
		t.Fatalf("DirtySpans = %d, want 0", got)
	}

	c.Viewport().SetPosition(100, 0)
	render(t, c)
	if got := c.Stats().DirtySpans; got != 30 {
		t.Fatalf("DirtySpans after scroll = %d, want 30", got)
	}
	if got := dev.BackBuffer().Pixel(39, 5); got != RGB(79, 0, 0) {
		t.Errorf("clamped pixel = %#x, want %#x", got, RGB(79, 0, 0))
	}
}

func TestCompositorBackgroundFrame(t *testing.T) {
	room := newTestRoom()
	alt := NewBitmap(40, 30, Depth32)
	alt.Clear(RGB(1, 2, 3))
	room.Backgrounds = append(room.Backgrounds, alt)

	dev := NewSoftwareDevice(40, 30, Depth32)
	c := NewCompositor(dev, Options{WalkBehindMethod: WalkBehindRoomSprite})
	if err := c.LoadRoom(room); err != nil {
		t.Fatal(err)
	}
	render(t, c)
	if err := c.SetBackgroundFrame(1); err != nil {
		t.Fatal(err)
	}
	render(t, c)
	if got := dev.BackBuffer().Pixel(12, 3); got != RGB(1, 2, 3) {
		t.Fatalf("area pixel = %#x, want occluder rebuilt from frame 1", got)
	}
	if err := c.SetBackgroundFrame(2); err == nil {
		t.Error("SetBackgroundFrame(2) = nil, want error")
	}
}

func TestCompositorErrors(t *testing.T) {
	t.Run("no room", func(t *testing.T) {
		c := NewCompositor(NewSoftwareDevice(10, 10, Depth32), Options{})
		if err := c.Render(false); !errors.Is(err, ErrNoRoom) {
			t.Fatalf("err = %v, want ErrNoRoom", err)
		}
	})
	t.Run("invalid view", func(t *testing.T) {
		c, _, ego := newTestScene(t, Options{})
		ego.View = 7
		err := c.Render(false)
		var ise *InvalidSpriteError
		if !errors.As(err, &ise) {
			t.Fatalf("err = %v, want InvalidSpriteError", err)
		}
		if !strings.Contains(ise.Entity, "ego") || ise.View != 7 {
			t.Errorf("error context = %+v", ise)
		}
		if !strings.Contains(err.Error(), `room "test"`) {
			t.Errorf("error %q does not name the room", err)
		}
	})
	t.Run("removed sprite", func(t *testing.T) {
		c, _, _ := newTestScene(t, Options{})
		sprites, views := newTestAssets()
		sprites.Remove(0)
		c.SetAssets(sprites, views)
		var ise *InvalidSpriteError
		if err := c.Render(false); !errors.As(err, &ise) {
			t.Fatalf("err = %v, want InvalidSpriteError", err)
		}
	})
	t.Run("too many sprites", func(t *testing.T) {
		c, _, _ := newTestScene(t, Options{WalkBehindMethod: WalkBehindRoomSprite, MaxSprites: 1})
		var ce *CapacityExceededError
		if err := c.Render(false); !errors.As(err, &ce) || ce.Limit != 1 {
			t.Fatalf("err = %v, want CapacityExceededError limit 1", err)
		}
	})
	t.Run("mask depth", func(t *testing.T) {
		room := newTestRoom()
		room.WalkBehinds = NewBitmap(40, 30, Depth16)
		c := NewCompositor(NewSoftwareDevice(40, 30, Depth32), Options{})
		if err := c.LoadRoom(room); !errors.Is(err, ErrMaskNotLinear) {
			t.Fatalf("err = %v, want ErrMaskNotLinear", err)
		}
	})
	t.Run("torn down", func(t *testing.T) {
		c, _, _ := newTestScene(t, Options{Debug: true})
		c.Teardown()
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic on Render after Teardown")
			}
		}()
		_ = c.Render(false)
	})
}

func TestCompositorCharacterFrameWraps(t *testing.T) {
	c, _, ego := newTestScene(t, Options{})
	ego.Frame = 5
	render(t, c)
	if ego.Frame != 5 {
		t.Errorf("Frame = %d, entity state must not be modified", ego.Frame)
	}
	if st, ok := c.CharacterState(0); !ok || st.Sprite != 0 {
		t.Fatalf("CharacterState = %+v, %v, want sprite 0", st, ok)
	}
}

func TestCompositorLoadRoomResetsCaches(t *testing.T) {
	c, _, _ := newTestScene(t, Options{})
	render(t, c)
	if _, ok := c.CharacterState(0); !ok {
		t.Fatal("cache empty after first frame")
	}
	if err := c.LoadRoom(newTestRoom()); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.CharacterState(0); ok {
		t.Fatal("cache survived room change")
	}
	render(t, c)
	if got := c.Stats().Regenerations; got != 1 {
		t.Errorf("Regenerations = %d, want 1", got)
	}
}

func BenchmarkCompositorRender(b *testing.B) {
	dev := NewSoftwareDevice(40, 30, Depth32)
	c := NewCompositor(dev, Options{WalkBehindMethod: WalkBehindOverwrite})
	sprites, views := newTestAssets()
	c.SetAssets(sprites, views)
	if err := c.LoadRoom(newTestRoom()); err != nil {
		b.Fatal(err)
	}
	ego := &Entity{Visible: true, X: 10, Y: 20, View: 1}
	c.SetCharacters([]*Entity{ego})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ego.X = 5 + i%20
		if err := c.Render(false); err != nil {
			b.Fatal(err)
		}
	}
}
