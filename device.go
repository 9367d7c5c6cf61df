package scenery

// DeviceBitmap is a device-owned handle for an image prepared for drawing.
type DeviceBitmap interface {
	Width() int
	Height() int
	ColorDepth() ColorDepth

	// SetTransparency sets 0 (opaque) to 255 (invisible).
	SetTransparency(transparency int)
	SetFlippedLeftRight(flipped bool)
	// SetStretch sets the on-screen size the image is scaled to.
	SetStretch(w, h int)
	// SetTint sets a colourisation; saturation is 0..256.
	SetTint(r, g, b uint8, saturation int)
	// SetLightLevel sets 0 for none, 1..255 for a tint luminance, or
	// 256 +/- an adjustment for a light level.
	SetLightLevel(level int)
}

// GraphicsDevice receives the composed frame. Drawing is deferred: DrawSprite
// queues onto a draw list that Render applies in order.
type GraphicsDevice interface {
	// ColorDepth is the depth of the display surface.
	ColorDepth() ColorDepth
	CreateBitmapFromImage(img *Bitmap, hasAlpha, opaque bool) DeviceBitmap
	UpdateBitmapFromImage(ddb DeviceBitmap, img *Bitmap, hasAlpha bool)
	DestroyBitmap(ddb DeviceBitmap)
	// DrawSprite queues ddb at screen position (x, y). A nil ddb queues a
	// hook callback at that point of the list.
	DrawSprite(x, y int, ddb DeviceBitmap)
	ClearDrawList()
	Render() error

	HasAcceleratedStretchAndFlip() bool
	RequiresFullRedrawEachFrame() bool
}

// BackBufferDevice is implemented by devices that compose into a persistent
// memory buffer. Only the dirty parts of that buffer are restored from the
// room background each frame.
type BackBufferDevice interface {
	GraphicsDevice
	BackBuffer() *Bitmap
}

// lightParams maps tint and light settings to the SetTint/SetLightLevel
// arguments of an accelerated device.
func lightParams(t Tint, lightLevel int) (saturation, level int) {
	if t.Amount > 0 {
		saturation = t.Amount * 256 / 100
		switch {
		case t.Luminance == 0:
			level = 1
		case t.Luminance < 250:
			level = t.Luminance
		}
		return saturation, level
	}
	if lightLevel != 0 {
		level = lightLevel*25/10 + 256
	}
	return 0, level
}
