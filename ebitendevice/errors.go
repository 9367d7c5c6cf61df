package ebitendevice

import "errors"

var (
	// ErrNullSprite is returned by Render for a hook entry when no null
	// sprite callback is set.
	ErrNullSprite = errors.New("ebitendevice: unhandled attempt to draw null sprite")
	// ErrNoTarget is returned by Render when sprites are queued before
	// SetTarget.
	ErrNoTarget = errors.New("ebitendevice: no render target")
)
