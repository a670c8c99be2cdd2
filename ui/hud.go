package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title      string
	Phosphenes int
	Tick       int32
	SimTime    time.Duration
	FPS        int32
	Mode       string
	Source     string
	GazeX      float32
	GazeY      float32
	GazeValid  bool
	Smoothing  bool
	MeanLeft   float32
	MeanRight  float32
	Paused     bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Phosphenes: %d | Mode: %s | Input: %s", data.Phosphenes, data.Mode, data.Source),
		10, 35, 16, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | Time: %.1fs | FPS: %d", data.Tick, data.SimTime.Seconds(), data.FPS),
		10, 55, 16, rl.LightGray,
	)

	gazeText := fmt.Sprintf("Gaze: (%.3f, %.3f)", data.GazeX, data.GazeY)
	gazeColor := rl.LightGray
	if !data.GazeValid {
		gazeText = "Gaze: lost (center)"
		gazeColor = rl.Orange
	}
	if data.Smoothing && data.GazeValid {
		gazeText += " smoothed"
	}
	rl.DrawText(gazeText, 10, 75, 16, gazeColor)
	rl.DrawText(
		fmt.Sprintf("Mean activation L/R: %.3f / %.3f", data.MeanLeft, data.MeanRight),
		320, 75, 16, rl.LightGray,
	)

	if data.Paused {
		rl.DrawText("PAUSED", 10, 95, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase tick timing panel.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	p.renderer.DrawPanel(x-6, y-6, 260, int32(len(telemetry.Phases))*14+64)

	rl.DrawText("Tick Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg: %s  (%.0f ticks/s)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("p95: %s  max: %s", stats.P95TickDuration.Round(time.Microsecond), stats.MaxTickDuration.Round(time.Microsecond)), x, y, 12, rl.LightGray)
	y += 14

	for _, ph := range telemetry.Phases {
		avg := stats.PhaseAvg[ph]
		pct := stats.PhasePct[ph]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", ph, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
