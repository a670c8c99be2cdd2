package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
)

// KeyBinding is a fixed viewer shortcut listed in the help panel.
type KeyBinding struct {
	Label  string
	Action string
}

// DefaultBindings lists the viewer shortcuts that are not overlay toggles.
var DefaultBindings = []KeyBinding{
	{"1/2/3", "gaze ignored / locked / assisted"},
	{"Space", "pause"},
	{"R", "reset phosphene state"},
	{"S", "save snapshot"},
	{"P", "save rendered PNG"},
	{"Tab", "next input source"},
	{"M", "toggle gaze smoothing"},
	{"Wheel", "zoom output"},
	{"Arrows", "pan output"},
	{"Home", "reset zoom"},
	{"Mouse", "gaze (hold right button to freeze)"},
}

// HelpPanel lists overlays and key bindings.
type HelpPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHelpPanel creates a new help panel.
func NewHelpPanel(x, y, width int32) *HelpPanel {
	return &HelpPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *HelpPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the help panel.
func (c *HelpPanel) Draw(overlays *OverlayRegistry) int32 {
	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := len(DefaultBindings) + 1
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1 // +1 for category header
	}
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	y := c.y + padding
	rl.DrawText("Overlays", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}
		y += 4
	}

	rl.DrawText("Keys", c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	y += lineHeight
	for _, b := range DefaultBindings {
		rl.DrawText(fmt.Sprintf("%-7s %s", b.Label, b.Action), c.x+padding, y, r.Theme.FontSize, r.Theme.LabelColor)
		y += lineHeight
	}

	return y
}

// drawToggle draws a single overlay toggle line.
func (c *HelpPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case CategoryView:
		return "View"
	case CategoryPanels:
		return "Panels"
	default:
		return cat
	}
}

// TemporalPanel edits the temporal constants with sliders.
type TemporalPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewTemporalPanel creates a new temporal controls panel.
func NewTemporalPanel(x, y, width int32) *TemporalPanel {
	return &TemporalPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (t *TemporalPanel) SetPosition(x, y int32) {
	t.x = x
	t.y = y
}

// Draw renders sliders for p and returns the edited params and whether any
// slider moved. Decays stay strictly inside (0,1).
func (t *TemporalPanel) Draw(p dynamics.Params) (dynamics.Params, bool) {
	r := t.renderer
	padding := r.Theme.Padding
	rowHeight := int32(38)
	panelHeight := rowHeight*4 + padding*2 + 24

	r.DrawPanel(t.x, t.y, t.width, panelHeight)

	x := float32(t.x + padding)
	y := float32(t.y + padding)
	rl.DrawText("Temporal Dynamics", int32(x), int32(y), 16, rl.White)
	y += 24

	sliderW := float32(t.width-padding*2) - 60
	changed := false
	slider := func(label string, v *float32, lo, hi float32) {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		nv := gui.SliderBar(rl.Rectangle{X: x, Y: y + 14, Width: sliderW, Height: 16}, "", "", *v, lo, hi)
		rl.DrawText(fmt.Sprintf("%.3f", *v), int32(x+sliderW+8), int32(y+14), r.Theme.FontSize, r.Theme.ValueColor)
		if nv != *v {
			*v = nv
			changed = true
		}
		y += float32(rowHeight)
	}

	slider("Intensity decay", &p.IntensityDecay, 0.01, 0.99)
	slider("Input effect", &p.InputEffect, 0, 2)
	slider("Trace decay", &p.TraceDecay, 0.01, 0.999)
	slider("Trace increase", &p.TraceIncrease, 0, 1)

	return p, changed
}
