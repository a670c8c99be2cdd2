// Package camera maps normalized view space onto a square screen panel,
// with pan and zoom for inspecting parts of the phosphene field.
package camera

// Camera controls which part of the unit view square a panel shows.
type Camera struct {
	// Position is the panel center in normalized view coordinates
	X, Y float32

	// Zoom level (1.0 = whole view fits the panel)
	Zoom float32

	// Panel placement in screen pixels
	PanelX, PanelY, PanelSize float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera showing the whole view in a square panel whose top
// left corner is at (x, y).
func New(x, y, size float32) *Camera {
	return &Camera{
		X:         0.5,
		Y:         0.5,
		Zoom:      1.0,
		PanelX:    x,
		PanelY:    y,
		PanelSize: size,
		MinZoom:   1.0,
		MaxZoom:   8.0,
	}
}

// scale returns screen pixels per normalized view unit.
func (c *Camera) scale() float32 {
	return c.PanelSize * c.Zoom
}

// ViewToScreen converts normalized view coordinates to screen coordinates.
func (c *Camera) ViewToScreen(u, v float32) (sx, sy float32) {
	s := c.scale()
	sx = c.PanelX + c.PanelSize/2 + (u-c.X)*s
	sy = c.PanelY + c.PanelSize/2 + (v-c.Y)*s
	return sx, sy
}

// ScreenToView converts screen coordinates to normalized view coordinates.
// Points outside the panel map outside the visible range.
func (c *Camera) ScreenToView(sx, sy float32) (u, v float32) {
	s := c.scale()
	u = c.X + (sx-c.PanelX-c.PanelSize/2)/s
	v = c.Y + (sy-c.PanelY-c.PanelSize/2)/s
	return u, v
}

// Contains reports whether a screen point lies inside the panel.
func (c *Camera) Contains(sx, sy float32) bool {
	return sx >= c.PanelX && sx < c.PanelX+c.PanelSize &&
		sy >= c.PanelY && sy < c.PanelY+c.PanelSize
}

// IsVisible returns true if a circle at (u, v) with the given view radius
// could be visible in the panel (conservative check for culling).
func (c *Camera) IsVisible(u, v, radius float32) bool {
	half := 0.5/c.Zoom + radius
	return absf(u-c.X) <= half && absf(v-c.Y) <= half
}

// Resize moves the panel and keeps the visible view region.
func (c *Camera) Resize(x, y, size float32) {
	c.PanelX = x
	c.PanelY = y
	c.PanelSize = size
}

// Pan moves the camera by the given delta in screen pixels. The visible
// region never leaves the unit square.
func (c *Camera) Pan(dx, dy float32) {
	s := c.scale()
	c.X += dx / s
	c.Y += dy / s
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the whole view.
func (c *Camera) Reset() {
	c.X = 0.5
	c.Y = 0.5
	c.Zoom = 1.0
}

// VisibleViewBounds returns the normalized bounds of the visible area.
func (c *Camera) VisibleViewBounds() (minU, minV, maxU, maxV float32) {
	half := 0.5 / c.Zoom
	return c.X - half, c.Y - half, c.X + half, c.Y + half
}

// clampCenter keeps the visible region inside [0,1]².
func (c *Camera) clampCenter() {
	half := 0.5 / c.Zoom
	c.X = clamp(c.X, half, 1-half)
	c.Y = clamp(c.Y, half, 1-half)
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
