package scenery

import (
	"fmt"
	"os"
	"time"
)

// frameTiming holds the durations of the phases of one frame. Only printed
// when debug mode is on.
type frameTiming struct {
	build   time.Duration
	sort    time.Duration
	compose time.Duration
	present time.Duration
}

// SetDebugMode enables per-frame timing output on stderr and panics on use
// of a torn-down compositor.
func (c *Compositor) SetDebugMode(on bool) { c.debug = on }

// debugLog prints timing and counters of the finished frame to stderr.
func (c *Compositor) debugLog() {
	if !c.debug {
		return
	}
	t := c.timing
	total := t.build + t.sort + t.compose + t.present
	_, _ = fmt.Fprintf(os.Stderr,
		"[scenery] frame %d | build: %v | sort: %v | compose: %v | present: %v | total: %v\n",
		c.frame, t.build, t.sort, t.compose, t.present, total)
	s := c.stats
	_, _ = fmt.Fprintf(os.Stderr,
		"[scenery] sprites: %d | draw list: %d | regenerated: %d | recopied: %d | dirty rows: %d\n",
		s.Sprites, s.DrawListSize, s.Regenerations, s.Recopies, s.DirtySpans)
}

// warnf reports a condition that is recorded and continued past.
func (c *Compositor) warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[scenery] warning: "+format+"\n", args...)
}
