package scenery

import "testing"

func newTestViewport() *Viewport {
	v := newViewport(40, 30)
	v.roomW, v.roomH = 100, 30
	return v
}

func TestViewportClamp(t *testing.T) {
	v := newTestViewport()
	v.SetPosition(-5, 10)
	if x, y := v.Offset(); x != 0 || y != 0 {
		t.Errorf("Offset = (%d,%d), want (0,0)", x, y)
	}
	v.SetPosition(500, 0)
	if x, _ := v.Offset(); x != 60 {
		t.Errorf("Offset x = %d, want 60", x)
	}
}

func TestViewportSmallRoom(t *testing.T) {
	v := newViewport(40, 30)
	v.roomW, v.roomH = 20, 10
	v.SetPosition(5, 5)
	if x, y := v.Offset(); x != 0 || y != 0 {
		t.Errorf("Offset = (%d,%d), want (0,0)", x, y)
	}
}

func TestViewportScrollTo(t *testing.T) {
	v := newTestViewport()
	v.ScrollTo(60, 0, 1, nil)
	if !v.Scrolling() {
		t.Fatal("Scrolling = false after ScrollTo")
	}
	if !v.update(0.5) {
		t.Error("update reported no offset change mid-scroll")
	}
	if x, _ := v.Offset(); x != 30 {
		t.Errorf("mid-scroll x = %d, want 30", x)
	}
	v.update(0.5)
	if x, _ := v.Offset(); x != 60 {
		t.Errorf("final x = %d, want 60", x)
	}
	if v.Scrolling() {
		t.Error("Scrolling = true after the scroll finished")
	}
	if v.update(0.5) {
		t.Error("idle update reported an offset change")
	}
}

func TestViewportFollow(t *testing.T) {
	v := newTestViewport()
	e := &Entity{X: 50, Y: 15}
	v.Follow(e, 1)
	v.update(1.0 / 60)
	if x, _ := v.Offset(); x != 30 {
		t.Errorf("x = %d, want 30", x)
	}
	e.X = 95
	v.update(1.0 / 60)
	if x, _ := v.Offset(); x != 60 {
		t.Errorf("clamped x = %d, want 60", x)
	}
	v.Unfollow()
	e.X = 0
	v.update(1.0 / 60)
	if x, _ := v.Offset(); x != 60 {
		t.Errorf("x after Unfollow = %d, want 60", x)
	}
}

func TestViewportConversions(t *testing.T) {
	v := newTestViewport()
	v.SetPosition(25, 0)
	if x, y := v.RoomToScreen(30, 7); x != 5 || y != 7 {
		t.Errorf("RoomToScreen = (%d,%d), want (5,7)", x, y)
	}
	if x, y := v.ScreenToRoom(5, 7); x != 30 || y != 7 {
		t.Errorf("ScreenToRoom = (%d,%d), want (30,7)", x, y)
	}
}
