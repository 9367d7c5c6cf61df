package scenery

import (
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Scenario is a JSON description of a room, its entities and a script of
// steps advanced once per frame. It drives the command-line player and
// end-to-end tests.
type Scenario struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	Room       ScenarioRoom     `json:"room"`
	Sprites    []ScenarioSprite `json:"sprites"`
	Views      [][][]int        `json:"views,omitempty"`
	Objects    []ScenarioEntity `json:"objects,omitempty"`
	Characters []ScenarioEntity `json:"characters,omitempty"`
	Steps      []ScenarioStep   `json:"steps,omitempty"`
}

// ScenarioRoom describes the background as horizontal colour bands and the
// walk-behind areas as rectangles.
type ScenarioRoom struct {
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Color       string         `json:"color"`
	Bands       []ScenarioBand `json:"bands,omitempty"`
	WalkBehinds []ScenarioArea `json:"walkbehinds,omitempty"`
}

type ScenarioBand struct {
	Y      int    `json:"y"`
	Height int    `json:"height"`
	Color  string `json:"color"`
}

type ScenarioArea struct {
	ID       int    `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	Baseline int    `json:"baseline"`
	Color    string `json:"color,omitempty"`
}

// ScenarioSprite is a solid rectangle, or an ellipse inside that rectangle
// with masked corners.
type ScenarioSprite struct {
	W     int    `json:"w"`
	H     int    `json:"h"`
	Color string `json:"color"`
	Shape string `json:"shape,omitempty"`
}

type ScenarioTint struct {
	Color     string `json:"color"`
	Amount    int    `json:"amount"`
	Luminance *int   `json:"luminance,omitempty"`
}

type ScenarioEntity struct {
	Name              string        `json:"name"`
	Hidden            bool          `json:"hidden,omitempty"`
	X                 int           `json:"x"`
	Y                 int           `json:"y"`
	Z                 int           `json:"z,omitempty"`
	Sprite            int           `json:"sprite,omitempty"`
	View              int           `json:"view,omitempty"`
	Loop              int           `json:"loop,omitempty"`
	Frame             int           `json:"frame,omitempty"`
	Baseline          int           `json:"baseline,omitempty"`
	Zoom              int           `json:"zoom,omitempty"`
	Transparency      int           `json:"transparency,omitempty"`
	LightLevel        int           `json:"light,omitempty"`
	IgnoreWalkBehinds bool          `json:"ignoreWalkBehinds,omitempty"`
	Tint              *ScenarioTint `json:"tint,omitempty"`
}

// ScenarioStep is one scripted action. Target names an entity.
type ScenarioStep struct {
	Action  string        `json:"action"`
	Target  string        `json:"target,omitempty"`
	Label   string        `json:"label,omitempty"`
	X       int           `json:"x,omitempty"`
	Y       int           `json:"y,omitempty"`
	Value   int           `json:"value,omitempty"`
	Area    int           `json:"area,omitempty"`
	Loop    int           `json:"loop,omitempty"`
	Frame   int           `json:"frame,omitempty"`
	Frames  int           `json:"frames,omitempty"`
	Seconds float32       `json:"seconds,omitempty"`
	Tint    *ScenarioTint `json:"tint,omitempty"`
}

// LoadScenario parses a JSON scenario.
func LoadScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Room.Width <= 0 || s.Room.Height <= 0 {
		return nil, fmt.Errorf("parse scenario: room size %dx%d", s.Room.Width, s.Room.Height)
	}
	if s.Width <= 0 || s.Height <= 0 {
		s.Width, s.Height = s.Room.Width, s.Room.Height
	}
	return &s, nil
}

// World is the content built from a Scenario.
type World struct {
	Room       *Room
	Sprites    *SpriteTable
	Views      []View
	Objects    []*Entity
	Characters []*Entity
}

func parseColor(s string, depth ColorDepth) (uint32, error) {
	if s == "" {
		s = "#000000"
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return 0, fmt.Errorf("colour %q: %w", s, err)
	}
	r, g, b := col.RGB255()
	switch depth {
	case Depth16:
		return RGB16(r, g, b), nil
	case Depth8:
		// Scenario rooms use a grey ramp palette.
		return uint32(max(1, (int(r)+int(g)+int(b))/3)), nil
	}
	return RGB(r, g, b), nil
}

func greyPalette() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.NRGBA{uint8(i), uint8(i), uint8(i), 0xff}
	}
	return p
}

// Build creates the room, sprites, views and entities in the given depth.
func (s *Scenario) Build(depth ColorDepth) (*World, error) {
	if !depth.Valid() {
		depth = Depth32
	}
	w := &World{Sprites: &SpriteTable{}}
	var pal color.Palette
	if depth == Depth8 {
		pal = greyPalette()
	}
	newBitmap := func(bw, bh int) *Bitmap {
		b := NewBitmap(bw, bh, depth)
		b.Palette = pal
		return b
	}

	bg := newBitmap(s.Room.Width, s.Room.Height)
	fill, err := parseColor(s.Room.Color, depth)
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}
	bg.Clear(fill)
	for i, band := range s.Room.Bands {
		v, err := parseColor(band.Color, depth)
		if err != nil {
			return nil, fmt.Errorf("room band %d: %w", i, err)
		}
		bg.FillRect(0, band.Y, bg.w, band.Height, v)
	}

	room := &Room{Name: s.Name, Backgrounds: []*Bitmap{bg}, Baselines: map[int]int{}}
	if len(s.Room.WalkBehinds) > 0 {
		mask := NewBitmap(s.Room.Width, s.Room.Height, Depth8)
		for _, a := range s.Room.WalkBehinds {
			if a.ID <= 0 || a.ID >= MaxWalkBehinds {
				return nil, fmt.Errorf("walk-behind area id %d out of range [1,%d)", a.ID, MaxWalkBehinds)
			}
			mask.FillRect(a.X, a.Y, a.W, a.H, uint32(a.ID))
			room.Baselines[a.ID] = a.Baseline
			if a.Color != "" {
				v, err := parseColor(a.Color, depth)
				if err != nil {
					return nil, fmt.Errorf("walk-behind area %d: %w", a.ID, err)
				}
				bg.FillRect(a.X, a.Y, a.W, a.H, v)
			}
		}
		room.WalkBehinds = mask
	}
	w.Room = room

	for i, sp := range s.Sprites {
		v, err := parseColor(sp.Color, depth)
		if err != nil {
			return nil, fmt.Errorf("sprite %d: %w", i, err)
		}
		b := newBitmap(sp.W, sp.H)
		b.Clear(v)
		if sp.Shape == "ellipse" {
			maskEllipse(b)
		}
		w.Sprites.Add(b, false)
	}

	for _, view := range s.Views {
		var v View
		for _, loop := range view {
			var l ViewLoop
			for _, id := range loop {
				l.Frames = append(l.Frames, ViewFrame{Sprite: abs(id), Mirrored: id < 0})
			}
			v.Loops = append(v.Loops, l)
		}
		w.Views = append(w.Views, v)
	}

	for _, se := range s.Objects {
		e, err := se.entity()
		if err != nil {
			return nil, err
		}
		w.Objects = append(w.Objects, e)
	}
	for _, se := range s.Characters {
		e, err := se.entity()
		if err != nil {
			return nil, err
		}
		w.Characters = append(w.Characters, e)
	}
	return w, nil
}

// maskEllipse clears the pixels of b outside the inscribed ellipse.
func maskEllipse(b *Bitmap) {
	rx, ry := float64(b.w)/2, float64(b.h)/2
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			dx := (float64(x) + 0.5 - rx) / rx
			dy := (float64(y) + 0.5 - ry) / ry
			if dx*dx+dy*dy > 1 {
				b.setPixelAt(x, y, b.MaskColor())
			}
		}
	}
}

func (t *ScenarioTint) tint() (Tint, error) {
	if t == nil {
		return Tint{}, nil
	}
	col, err := colorful.Hex(t.Color)
	if err != nil {
		return Tint{}, fmt.Errorf("tint colour %q: %w", t.Color, err)
	}
	r, g, b := col.RGB255()
	lum := 255
	if t.Luminance != nil {
		lum = *t.Luminance
	}
	return Tint{R: r, G: g, B: b, Amount: t.Amount, Luminance: lum}, nil
}

func (se ScenarioEntity) entity() (*Entity, error) {
	tint, err := se.Tint.tint()
	if err != nil {
		return nil, fmt.Errorf("entity %q: %w", se.Name, err)
	}
	return &Entity{
		Name:              se.Name,
		Visible:           !se.Hidden,
		X:                 se.X,
		Y:                 se.Y,
		Z:                 se.Z,
		Sprite:            se.Sprite,
		View:              se.View,
		Loop:              se.Loop,
		Frame:             se.Frame,
		Baseline:          se.Baseline,
		Zoom:              se.Zoom,
		Transparency:      se.Transparency,
		LightLevel:        se.LightLevel,
		IgnoreWalkBehinds: se.IgnoreWalkBehinds,
		Tint:              tint,
	}, nil
}

// Attach loads the world into c.
func (w *World) Attach(c *Compositor) error {
	c.SetAssets(w.Sprites, w.Views)
	if err := c.LoadRoom(w.Room); err != nil {
		return err
	}
	c.SetObjects(w.Objects)
	c.SetCharacters(w.Characters)
	return nil
}

// Entity finds a character, then an object, by name.
func (w *World) Entity(name string) *Entity {
	for _, e := range w.Characters {
		if e.Name == name {
			return e
		}
	}
	for _, e := range w.Objects {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ScenarioRunner advances a scenario's steps, one per frame.
type ScenarioRunner struct {
	steps     []ScenarioStep
	world     *World
	cursor    int
	waitCount int
	walking   *TweenGroup
	done      bool
}

// Runner returns a runner for the scenario's steps acting on w.
func (s *Scenario) Runner(w *World) *ScenarioRunner {
	return &ScenarioRunner{steps: s.Steps, world: w, done: len(s.Steps) == 0}
}

// Done reports whether every step has been executed.
func (r *ScenarioRunner) Done() bool { return r.done }

// Step runs the next step unless a wait or a walk is still in progress.
func (r *ScenarioRunner) Step(c *Compositor) error {
	if r.done {
		return nil
	}
	if r.walking != nil && !r.walking.Done {
		return nil
	}
	r.walking = nil
	if r.waitCount > 0 {
		r.waitCount--
		return nil
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return nil
	}

	st := r.steps[r.cursor]
	r.cursor++
	if err := r.exec(c, st); err != nil {
		return fmt.Errorf("step %d (%s): %w", r.cursor-1, st.Action, err)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && r.walking == nil {
		r.done = true
	}
	return nil
}

func (r *ScenarioRunner) target(st ScenarioStep) (*Entity, error) {
	e := r.world.Entity(st.Target)
	if e == nil {
		return nil, fmt.Errorf("no entity named %q", st.Target)
	}
	return e, nil
}

func (r *ScenarioRunner) exec(c *Compositor, st ScenarioStep) error {
	switch st.Action {
	case "screenshot":
		c.Screenshot(st.Label)
		return nil
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
		return nil
	case "scroll":
		c.Viewport().ScrollTo(st.X, st.Y, st.Seconds, nil)
		return nil
	case "baseline":
		if st.Area > 0 {
			c.SetWalkBehindBaseline(st.Area, st.Value)
			return nil
		}
	}

	e, err := r.target(st)
	if err != nil {
		return err
	}
	switch st.Action {
	case "walk":
		r.walking = TweenPosition(e, st.X, st.Y, st.Seconds, nil)
		c.Animate(r.walking)
	case "move":
		e.X, e.Y = st.X, st.Y
	case "baseline":
		e.Baseline = st.Value
	case "zoom":
		e.Zoom = st.Value
	case "tint":
		t, err := st.Tint.tint()
		if err != nil {
			return err
		}
		e.Tint = t
	case "view":
		e.View, e.Loop, e.Frame = st.Value, st.Loop, st.Frame
	case "show":
		e.Visible = true
	case "hide":
		e.Visible = false
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}
