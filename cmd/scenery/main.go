// Command scenery plays a JSON scenario through the compositor, headless
// with PNG snapshots, in a terminal, or in a window.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/phanxgames/scenery"
	"github.com/phanxgames/scenery/ebitendevice"
	"github.com/phanxgames/scenery/termdevice"
)

const frameRate = 60

func main() {
	app := cli.NewApp()
	app.Name = "scenery"
	app.Description = "Plays a scenario through the walk-behind compositor"
	app.Usage = "scenery [options] <scenario.json>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "scenario",
			Usage: "Path to the scenario JSON file",
		},
		cli.StringFlag{
			Name:  "mode",
			Usage: "Output: headless, terminal or window",
			Value: "headless",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode",
			Value: 60,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save a PNG every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory for snapshots and scripted screenshots (default: temp directory)",
		},
		cli.StringFlag{
			Name:  "strategy",
			Usage: "Walk-behind method: auto, overwrite, room-sprite or char-sprite",
			Value: "auto",
		},
		cli.IntFlag{
			Name:  "depth",
			Usage: "Display colour depth for software modes: 8, 16 or 32",
			Value: 32,
		},
		cli.IntFlag{
			Name:  "step",
			Usage: "Terminal mode: sample every Nth pixel",
			Value: 1,
		},
		cli.BoolFlag{
			Name:  "fps",
			Usage: "Window mode: show the frame rate",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Print per-frame timing and enable misuse checks",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running scenario", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	path := c.String("scenario")
	if path == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no scenario path provided")
		}
		path = c.Args().Get(0)
	}
	method, err := scenery.ParseWalkBehindMethod(c.String("strategy"))
	if err != nil {
		return err
	}
	depth := scenery.ColorDepth(c.Int("depth"))
	if !depth.Valid() {
		return fmt.Errorf("unsupported depth %d", c.Int("depth"))
	}

	snapshotDir := c.String("snapshot-dir")
	if snapshotDir == "" {
		if snapshotDir, err = os.MkdirTemp("", "scenery-snapshots-*"); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	cfg := playerConfig{
		method:      method,
		depth:       depth,
		snapshotDir: snapshotDir,
		debug:       c.Bool("debug"),
	}
	switch mode := c.String("mode"); mode {
	case "headless":
		p, err := newPlayer(path, nil, cfg)
		if err != nil {
			return err
		}
		return p.runHeadless(c.Int("frames"), c.Int("snapshot-interval"))
	case "terminal":
		return runTerminal(path, cfg, c.Int("step"))
	case "window":
		return runWindow(path, cfg, c.Bool("fps"))
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

type playerConfig struct {
	method      scenery.WalkBehindMethod
	depth       scenery.ColorDepth
	snapshotDir string
	debug       bool
}

// player owns a compositor, the world built from a scenario, and the
// runner stepping its script.
type player struct {
	name   string
	comp   *scenery.Compositor
	runner *scenery.ScenarioRunner
	soft   *scenery.SoftwareDevice
}

// newPlayer loads the scenario at path. A nil device selects a software
// device sized to the scenario screen.
func newPlayer(path string, dev scenery.GraphicsDevice, cfg playerConfig) (*player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := scenery.LoadScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	depth := cfg.depth
	if dev != nil {
		depth = dev.ColorDepth()
	}
	world, err := s.Build(depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := &player{name: s.Name}
	if p.name == "" {
		base := filepath.Base(path)
		p.name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if dev == nil {
		p.soft = scenery.NewSoftwareDevice(s.Width, s.Height, depth)
		dev = p.soft
	}
	p.comp = scenery.NewCompositor(dev, scenery.Options{
		Width:            s.Width,
		Height:           s.Height,
		Depth:            depth,
		WalkBehindMethod: cfg.method,
		Debug:            cfg.debug,
		ScreenshotDir:    cfg.snapshotDir,
	})
	if err := world.Attach(p.comp); err != nil {
		return nil, err
	}
	p.runner = s.Runner(world)
	slog.Debug("Loaded scenario", "name", p.name, "method", p.comp.Method(), "depth", depth)
	return p, nil
}

// tick advances the script and animations by one frame and renders it.
func (p *player) tick(dt float32) error {
	if err := p.runner.Step(p.comp); err != nil {
		return err
	}
	p.comp.Update(dt)
	return p.comp.Render(false)
}

func (p *player) runHeadless(frames, snapshotInterval int) error {
	if frames <= 0 {
		return errors.New("headless mode requires --frames with a positive value")
	}
	dir := p.snapshotDir()
	slog.Info("Running headless mode", "frames", frames, "snapshot_interval", snapshotInterval, "snapshot_dir", dir)

	for i := 0; i < frames; i++ {
		if err := p.tick(1.0 / frameRate); err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		if snapshotInterval > 0 && (i+1)%snapshotInterval == 0 {
			path := filepath.Join(dir, fmt.Sprintf("%s_frame_%d.png", p.name, i+1))
			if err := scenery.WritePNG(path, p.comp.Frame()); err != nil {
				slog.Error("Failed to save snapshot", "frame", i+1, "path", path, "error", err)
			} else {
				slog.Info("Saved frame snapshot", "frame", i+1, "path", path)
			}
		}
		if i%30 == 0 {
			st := p.comp.Stats()
			slog.Debug("Frame progress", "completed", i+1, "total", frames,
				"sprites", st.Sprites, "regenerations", st.Regenerations, "dirty_spans", st.DirtySpans)
		}
	}
	slog.Info("Headless execution completed", "frames", frames, "script_done", p.runner.Done())
	return nil
}

func (p *player) snapshotDir() string {
	dir := p.comp.Options().ScreenshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create snapshot directory", "dir", dir, "error", err)
	}
	return dir
}

func runTerminal(path string, cfg playerConfig, step int) error {
	p, err := newPlayer(path, nil, cfg)
	if err != nil {
		return err
	}
	term, err := termdevice.Open(termdevice.Config{Step: step})
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("Finishing terminal")
		term.Close()
	}()
	p.soft.SetPresenter(term)

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := p.tick(1.0 / frameRate); err != nil {
				return err
			}
		case <-term.Quit():
			return nil
		case <-signals:
			slog.Info("Received signal to stop")
			return nil
		}
	}
}

func runWindow(path string, cfg playerConfig, showFPS bool) error {
	dev := ebitendevice.New()
	p, err := newPlayer(path, dev, cfg)
	if err != nil {
		return err
	}
	vp := p.comp.Viewport()
	return ebitendevice.Run(p.comp, dev, ebitendevice.RunConfig{
		Title:   "scenery: " + p.name,
		Width:   vp.Width,
		Height:  vp.Height,
		ShowFPS: showFPS,
	}, func(float32) error {
		return p.runner.Step(p.comp)
	})
}
