package ebitendevice

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/phanxgames/scenery"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title string
	// Width and Height are the logical screen size. Zero uses the
	// compositor's screen size.
	Width, Height int
	// Scale multiplies the window size. Zero means 2.
	Scale   int
	ShowFPS bool
	// Smooth selects linear filtering for stretched sprites.
	Smooth bool
}

// UpdateFunc runs once per tick before the compositor advances its tweens
// and viewport. Returning ebiten.Termination ends the game.
type UpdateFunc func(dt float32) error

// Game adapts a Compositor and Device to ebiten.Game.
type Game struct {
	comp   *scenery.Compositor
	dev    *Device
	cfg    RunConfig
	update UpdateFunc
	err    error
}

// NewGame returns a game that renders comp through dev.
func NewGame(comp *scenery.Compositor, dev *Device, cfg RunConfig, update UpdateFunc) *Game {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		vp := comp.Viewport()
		cfg.Width, cfg.Height = vp.Width, vp.Height
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	dev.SetSmoothScaling(cfg.Smooth)
	return &Game{comp: comp, dev: dev, cfg: cfg, update: update}
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.err != nil {
		return g.err
	}
	dt := float32(1.0 / float64(ebiten.TPS()))
	if g.update != nil {
		if err := g.update(dt); err != nil {
			return err
		}
	}
	g.comp.Update(dt)
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.dev.SetTarget(screen)
	if err := g.comp.Render(false); err != nil && !errors.Is(err, scenery.ErrNoRoom) {
		g.err = err
	}
	if g.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

// Layout implements ebiten.Game.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// Run opens a window and runs the game until it is closed or update
// returns an error. ebiten.Termination is not reported.
func Run(comp *scenery.Compositor, dev *Device, cfg RunConfig, update UpdateFunc) error {
	g := NewGame(comp, dev, cfg, update)
	title := g.cfg.Title
	if title == "" {
		title = "scenery"
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(g.cfg.Width*g.cfg.Scale, g.cfg.Height*g.cfg.Scale)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
