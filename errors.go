package scenery

import (
	"errors"
	"fmt"
)

var (
	// ErrMaskNotLinear is returned when a walk-behind mask or an occlusion
	// target is not a linearly addressable bitmap of the expected depth.
	ErrMaskNotLinear = errors.New("scenery: bitmap is not a linear memory bitmap")

	// ErrNilBitmap is returned when a sprite or draw entry carries no image.
	ErrNilBitmap = errors.New("scenery: nil bitmap added to list")

	// ErrColorDepthMismatch is returned when the check image used while
	// copying background pixels has a different depth from the target.
	ErrColorDepthMismatch = errors.New("scenery: colour depth mismatch")

	// ErrNoRoom is returned by frame operations before a room is loaded.
	ErrNoRoom = errors.New("scenery: no room loaded")
)

// CapacityExceededError reports that a bounded per-frame list overflowed.
type CapacityExceededError struct {
	What  string
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("scenery: too many %s (limit %d)", e.What, e.Limit)
}

// UnknownDrawEntryError reports a draw-list entry of an unrecognised kind.
type UnknownDrawEntryError struct {
	Kind DrawKind
}

func (e *UnknownDrawEntryError) Error() string {
	return fmt.Sprintf("scenery: unknown draw list entry kind %d", e.Kind)
}

// InvalidSpriteError reports an entity whose sprite, view, loop or frame
// cannot be resolved to an image.
type InvalidSpriteError struct {
	Entity string
	Sprite int
	View   int
	Loop   int
	Frame  int
	Reason string
}

func (e *InvalidSpriteError) Error() string {
	if e.View < 0 && e.Sprite >= 0 {
		return fmt.Sprintf("scenery: error drawing %s: its current sprite, %d, is invalid: %s",
			e.Entity, e.Sprite, e.Reason)
	}
	return fmt.Sprintf("scenery: error drawing %s (view %d, loop %d, frame %d): %s",
		e.Entity, e.View, e.Loop, e.Frame, e.Reason)
}
