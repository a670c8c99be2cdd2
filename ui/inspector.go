package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
)

// InspectorData holds the state of one selected phosphene.
type InspectorData struct {
	Index        int
	X, Y         float32
	Eccentricity float32
	Size         float32
	Activity     components.Activity
	Stimulus     [components.NumEyes]float32
	// History of left-eye activation, oldest first
	History []float32
}

// Drive is the stimulus minus the habituation trace for eye e. Activation
// only grows while it is positive.
func (d InspectorData) Drive(e components.Eye) float32 {
	return d.Stimulus[e] - d.Activity.Trace[e]
}

// Inspector renders the phosphene inspection panel.
type Inspector struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(x, y, width int32) *Inspector {
	return &Inspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the inspector position.
func (ins *Inspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// Draw renders the inspector panel for the given data.
func (ins *Inspector) Draw(data InspectorData) int32 {
	r := ins.renderer
	padding := r.Theme.Padding
	contentWidth := ins.width - padding*2
	graphHeight := int32(60)

	panelHeight := r.Theme.LineHeight*14 + graphHeight + padding*3
	r.DrawPanel(ins.x, ins.y, ins.width, panelHeight)

	x := ins.x + padding
	y := ins.y + padding

	rl.DrawText(fmt.Sprintf("Phosphene #%d", data.Index), x, y, 16, rl.White)
	y += r.Theme.LineHeight + 4

	y = r.DrawLabelValue(x, y, "Position", fmt.Sprintf("(%.3f, %.3f)", data.X, data.Y))
	y = r.DrawLabelValue(x, y, "Ecc", fmt.Sprintf("%.2f deg", data.Eccentricity))
	y = r.DrawLabelValue(x, y, "Size", fmt.Sprintf("%.4f", data.Size))
	y = r.DrawSpacer(y, 4)

	for e := components.Eye(0); e < components.NumEyes; e++ {
		y = r.DrawSectionHeader(x, y, e.String())
		y = r.DrawBar(x, y, "Stimulus", data.Stimulus[e], contentWidth, r.Theme.BarFillPositive)
		y = r.DrawBar(x, y, "Activation", data.Activity.Activation[e], contentWidth, r.Theme.BarFill)
		y = r.DrawBar(x, y, "Trace", data.Activity.Trace[e], contentWidth, r.Theme.BarFillTrace)
		y = r.DrawCenteredBar(x, y, "Drive", data.Drive(e), 1, contentWidth)
	}

	y = r.DrawSpacer(y, 4)
	ins.drawHistory(x, y, contentWidth, graphHeight, data.History)
	return y + graphHeight
}

// drawHistory plots recent activation as a line graph scaled to its peak.
func (ins *Inspector) drawHistory(x, y, width, height int32, history []float32) {
	rl.DrawRectangle(x, y, width, height, rl.Color{R: 25, G: 30, B: 35, A: 255})
	rl.DrawRectangleLines(x, y, width, height, rl.Color{R: 50, G: 60, B: 70, A: 255})
	if len(history) < 2 {
		return
	}

	peak := float32(1e-6)
	for _, v := range history {
		peak = max(peak, v)
	}
	step := float32(width) / float32(len(history)-1)
	prev := rl.Vector2{X: float32(x), Y: float32(y+height) - history[0]/peak*float32(height)}
	for i := 1; i < len(history); i++ {
		cur := rl.Vector2{
			X: float32(x) + float32(i)*step,
			Y: float32(y+height) - history[i]/peak*float32(height),
		}
		rl.DrawLineV(prev, cur, ins.renderer.Theme.BarFill)
		prev = cur
	}
	rl.DrawText(fmt.Sprintf("peak %.3f", peak), x+4, y+4, 10, ins.renderer.Theme.LabelColor)
}
