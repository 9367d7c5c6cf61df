package scenery

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
)

// Snapshotter is implemented by devices without a memory back buffer that
// can still read back the last presented frame.
type Snapshotter interface {
	Snapshot() image.Image
}

// Screenshot queues a labeled screenshot of the next presented frame. The
// PNG is written to Options.ScreenshotDir with a timestamped filename.
func (c *Compositor) Screenshot(label string) {
	c.screenshotQueue = append(c.screenshotQueue, label)
}

// Frame returns the last presented frame, or nil when the device cannot
// provide one.
func (c *Compositor) Frame() *image.NRGBA {
	if c.backDev != nil {
		return c.backDev.BackBuffer().ToNRGBA()
	}
	if s, ok := c.dev.(Snapshotter); ok {
		src := s.Snapshot()
		if src == nil {
			return nil
		}
		if img, ok := src.(*image.NRGBA); ok {
			return img
		}
		img := image.NewNRGBA(src.Bounds())
		draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
		return img
	}
	return nil
}

// flushScreenshots writes a PNG for every queued label. Called after the
// device presented the frame.
func (c *Compositor) flushScreenshots() {
	if len(c.screenshotQueue) == 0 {
		return
	}
	defer func() { c.screenshotQueue = c.screenshotQueue[:0] }()

	img := c.Frame()
	if img == nil {
		c.warnf("screenshot: device cannot read back frames")
		return
	}
	dir := c.opts.ScreenshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.warnf("screenshot: mkdir %s: %v", dir, err)
		return
	}

	stamp := time.Now().Format("20060102_150405")
	for _, label := range c.screenshotQueue {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := WritePNG(path, img); err != nil {
			c.warnf("screenshot: %v", err)
		}
	}
}

// WritePNG encodes img to a PNG file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
