// Package termdevice shows composed frames in a terminal using tcell. Each
// cell draws two vertically stacked pixels with an upper half block, the
// foreground colour for the top pixel and the background for the bottom.
package termdevice

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/phanxgames/scenery"
)

const halfBlock = '▀'

// Config configures a Presenter.
type Config struct {
	// Step samples every Step-th pixel in both directions. Zero means 1.
	Step int
}

// Presenter implements scenery.Presenter on a tcell screen.
type Presenter struct {
	screen tcell.Screen
	step   int

	quit     chan struct{}
	quitOnce sync.Once
}

// Open initialises the terminal and returns a presenter for it.
func Open(cfg Config) (*Presenter, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return New(screen, cfg), nil
}

// New returns a presenter for an initialised screen and starts reading its
// events.
func New(screen tcell.Screen, cfg Config) *Presenter {
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	p := &Presenter{screen: screen, step: cfg.Step, quit: make(chan struct{})}
	go p.handleInput()
	return p
}

// Quit is closed when the user presses q, Escape or Ctrl-C.
func (p *Presenter) Quit() <-chan struct{} { return p.quit }

// Close restores the terminal.
func (p *Presenter) Close() {
	p.screen.Fini()
}

func (p *Presenter) handleInput() {
	for {
		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				p.quitOnce.Do(func() { close(p.quit) })
			}
		case *tcell.EventResize:
			p.screen.Sync()
		}
	}
}

// Present draws frame from the top-left corner of the terminal, clipped to
// its size.
func (p *Presenter) Present(frame *scenery.Bitmap) error {
	cols, rows := p.screen.Size()
	for cy := 0; cy < rows; cy++ {
		top := 2 * cy * p.step
		if top >= frame.Height() {
			break
		}
		for cx := 0; cx < cols; cx++ {
			x := cx * p.step
			if x >= frame.Width() {
				break
			}
			style := tcell.StyleDefault.
				Foreground(pixelColor(frame, x, top)).
				Background(pixelColor(frame, x, top+p.step))
			p.screen.SetContent(cx, cy, halfBlock, nil, style)
		}
	}
	p.screen.Show()
	return nil
}

// pixelColor returns the colour of a pixel, black for transparent or
// out-of-range pixels.
func pixelColor(frame *scenery.Bitmap, x, y int) tcell.Color {
	if y >= frame.Height() {
		return tcell.ColorBlack
	}
	r, g, b, a := frame.At(x, y).RGBA()
	if a == 0 {
		return tcell.ColorBlack
	}
	return tcell.NewRGBColor(int32(r>>8), int32(g>>8), int32(b>>8))
}
