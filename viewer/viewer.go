// Package viewer is the interactive raylib front end: it drives a simulator
// runner once per frame, feeds mouse position in as gaze, and shows the
// input next to the rendered phosphenes of each eye.
package viewer

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/camera"
	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
	"github.com/neuralcodinglab/SPVGaze-sub000/simulator"
	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
	"github.com/neuralcodinglab/SPVGaze-sub000/ui"
)

const (
	inputPreviewSize = 256
	historyLength    = 180
	margin           = 10
	hudHeight        = 120
	pickRadius       = 0.03
)

var (
	phospheneTint = color.RGBA{R: 255, G: 250, B: 220, A: 255}
	inputTint     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Options configures a Viewer.
type Options struct {
	Title string
	// Sources are cycled with Tab; the first must be the runner's current one
	Sources     []NamedSource
	SnapshotDir string
	// ImageDir receives PNGs saved with the P key; empty uses the working directory
	ImageDir string
}

// Viewer owns the window contents. rl.InitWindow must be called first.
type Viewer struct {
	runner *simulator.Runner
	sim    *simulator.Simulator
	mouse  *gaze.ManualProvider
	opts   Options

	screenW, screenH int32
	panelSize        float32

	// Cameras for the input, left-eye and right-eye panels
	cameras [3]*camera.Camera

	inputGrid *sampler.Grid
	inputTex  *panelTexture
	outputTex [components.NumEyes]*panelTexture

	overlays  *ui.OverlayRegistry
	hud       *ui.HUD
	help      *ui.HelpPanel
	temporal  *ui.TemporalPanel
	inspector *ui.Inspector
	perfPanel *ui.PerfPanel

	sources   sourceCycle
	smoother  *gaze.Smoother
	smoothing bool

	paused   bool
	selected int
	hist     *history
}

// New creates a viewer for a runner whose gaze comes from mouse. The runner's
// gaze provider is replaced with mouse, smoothed when cfg enables it.
func New(runner *simulator.Runner, mouse *gaze.ManualProvider, cfg *config.Config, opts Options) *Viewer {
	v := &Viewer{
		runner:    runner,
		sim:       runner.Sim(),
		mouse:     mouse,
		opts:      opts,
		screenW:   int32(cfg.Screen.Width),
		screenH:   int32(cfg.Screen.Height),
		inputGrid: sampler.NewGrid(inputPreviewSize, inputPreviewSize),
		inputTex:  newPanelTexture(inputPreviewSize),
		overlays:  ui.NewOverlayRegistry(),
		hud:       ui.NewHUD(),
		help:      ui.NewHelpPanel(0, 0, 300),
		temporal:  ui.NewTemporalPanel(0, 0, 300),
		inspector: ui.NewInspector(0, 0, 300),
		perfPanel: ui.NewPerfPanel(0, 0),
		sources:   sourceCycle{sources: opts.Sources},
		smoother:  gaze.NewSmoother(mouse, gaze.SmootherParamsFromConfig(cfg.Gaze)),
		smoothing: cfg.Gaze.Smoothing,
		selected:  -1,
		hist:      newHistory(historyLength),
	}
	v.applyGaze()
	for e := range v.outputTex {
		if out := v.sim.Output(components.Eye(e)); out != nil {
			v.outputTex[e] = newPanelTexture(out.W)
		}
	}
	for i := range v.cameras {
		v.cameras[i] = camera.New(0, 0, 1)
	}
	v.layoutPanels()
	return v
}

// layoutPanels places the three view panels side by side under the HUD.
func (v *Viewer) layoutPanels() {
	size := min(
		float32(v.screenW-4*margin)/3,
		float32(v.screenH-hudHeight-2*margin-30),
	)
	v.panelSize = size
	for i, cam := range v.cameras {
		cam.Resize(float32(margin)+float32(i)*(size+margin), hudHeight, size)
	}

	right := v.screenW - 300 - margin
	v.help.SetPosition(right, margin)
	v.temporal.SetPosition(right, margin)
	v.inspector.SetPosition(right, hudHeight+240)
	v.perfPanel.SetPosition(margin+6, v.screenH-140)
}

// Update handles input and advances the simulation by one tick unless paused.
func (v *Viewer) Update() {
	v.handleResize()
	v.handleInput()

	if !v.paused {
		v.runner.Step()
		if v.selected >= 0 {
			v.hist.push(v.sim.Activity(v.selected).Activation[components.EyeLeft])
		}
	}
	v.runner.Perf().RecordFrame()
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	v.screenW = int32(rl.GetScreenWidth())
	v.screenH = int32(rl.GetScreenHeight())
	v.layoutPanels()
}

func (v *Viewer) handleInput() {
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}

	switch {
	case rl.IsKeyPressed(rl.KeyOne):
		v.sim.SetMode(config.ModeGazeIgnored)
	case rl.IsKeyPressed(rl.KeyTwo):
		v.sim.SetMode(config.ModeGazeLocked)
	case rl.IsKeyPressed(rl.KeyThree):
		v.sim.SetMode(config.ModeGazeAssisted)
	}

	if rl.IsKeyPressed(rl.KeyR) {
		v.sim.Reset()
		v.hist.reset()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		v.saveSnapshot()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.savePNG()
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		if s, ok := v.sources.next(); ok {
			v.runner.SetSource(s.Source)
			slog.Info("input switched", "input", s.Name)
		}
	}
	if rl.IsKeyPressed(rl.KeyM) {
		v.smoothing = !v.smoothing
		v.applyGaze()
	}

	for _, key := range v.overlays.Keys() {
		if rl.IsKeyPressed(key) {
			v.overlays.HandleKeyPress(key)
		}
	}

	v.handleCameraInput()
	v.handleMouse()
}

// applyGaze hands the runner the raw or smoothed mouse gaze.
func (v *Viewer) applyGaze() {
	if v.smoothing {
		v.smoother.Reset()
		v.runner.SetGaze(v.smoother)
		return
	}
	v.runner.SetGaze(v.mouse)
}

// handleCameraInput applies zoom and pan to both output panels together.
func (v *Viewer) handleCameraInput() {
	outputs := v.cameras[1:]
	panSpeed := float32(8.0)

	var dx, dy float32
	if rl.IsKeyDown(rl.KeyRight) {
		dx += panSpeed
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		dx -= panSpeed
	}
	if rl.IsKeyDown(rl.KeyDown) {
		dy += panSpeed
	}
	if rl.IsKeyDown(rl.KeyUp) {
		dy -= panSpeed
	}

	wheel := rl.GetMouseWheelMove()
	for _, cam := range outputs {
		if wheel != 0 {
			cam.ZoomBy(1 + wheel*0.1)
		}
		if dx != 0 || dy != 0 {
			cam.Pan(dx, dy)
		}
		if rl.IsKeyPressed(rl.KeyHome) {
			cam.Reset()
		}
	}
}

// handleMouse turns the cursor into gaze and selects phosphenes on click.
func (v *Viewer) handleMouse() {
	m := rl.GetMousePosition()

	for i, cam := range v.cameras {
		if !cam.Contains(m.X, m.Y) {
			continue
		}
		u, w := cam.ScreenToView(m.X, m.Y)

		if !rl.IsMouseButtonDown(rl.MouseButtonRight) {
			v.mouse.Set(gaze.Vec2{X: u, Y: w})
		}

		if i > 0 && rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			dx, dy := displayOffset(v.sim.Mode(), v.sim.Gaze(), i-1)
			v.selected = v.sim.Nearest(u-dx, w-dy, pickRadius)
			v.hist.reset()
		}
		return
	}
}

func (v *Viewer) saveSnapshot() {
	dir := v.opts.SnapshotDir
	if dir == "" {
		dir = "snapshots"
	}
	path, err := telemetry.SaveSnapshot(v.sim.Snapshot(v.runner.RunID()), dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path)
}

func (v *Viewer) savePNG() {
	for e := components.Eye(0); e < components.NumEyes; e++ {
		r := v.sim.Renderer(e)
		if r == nil {
			continue
		}
		path := filepath.Join(v.opts.ImageDir, fmt.Sprintf("render_%d_%s.png", v.sim.TickCount(), e))
		if err := r.WritePNG(path); err != nil {
			slog.Error("failed to write png", "path", path, "error", err)
			continue
		}
		slog.Info("render saved", "path", path)
	}
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 14, B: 18, A: 255})

	if v.overlays.IsEnabled(ui.OverlayInput) {
		rasterize(v.inputGrid, v.runner.Frames()[components.EyeLeft])
		v.inputTex.update(v.inputGrid, inputTint)
		v.drawPanel(v.cameras[0], v.inputTex, "input")
	}

	for e := components.Eye(0); e < components.NumEyes; e++ {
		tex := v.outputTex[e]
		if tex == nil {
			continue
		}
		tex.update(v.sim.Output(e), phospheneTint)
		cam := v.cameras[1+int(e)]
		v.drawPanel(cam, tex, e.String()+" eye")

		if v.overlays.IsEnabled(ui.OverlayLayout) {
			v.drawCenters(cam, int(e))
		}
	}

	if v.overlays.IsEnabled(ui.OverlayGaze) {
		v.drawGaze()
	}

	v.drawHUD()

	if v.overlays.IsEnabled(ui.OverlayHelp) {
		v.help.Draw(v.overlays)
	}
	if v.overlays.IsEnabled(ui.OverlayControls) {
		if p, changed := v.temporal.Draw(v.sim.Params()); changed {
			if err := v.sim.SetParams(p); err != nil {
				slog.Warn("rejected temporal params", "error", err)
			}
		}
	}
	if v.overlays.IsEnabled(ui.OverlayInspector) && v.selected >= 0 {
		v.inspector.Draw(v.inspectorData())
	}
	if v.overlays.IsEnabled(ui.OverlayPerf) {
		v.perfPanel.Draw(v.runner.Perf().Stats())
	}

	v.hud.DrawControls(v.screenW, v.screenH, "[1/2/3] Mode  [Space] Pause  [Tab] Input  [M] Smoothing  [R] Reset  [S] Snapshot  [P] PNG  [H] Help")

	rl.EndDrawing()
}

// drawPanel draws the visible part of tex in cam's panel.
func (v *Viewer) drawPanel(cam *camera.Camera, tex *panelTexture, label string) {
	minU, minV, maxU, maxV := cam.VisibleViewBounds()
	size := float32(tex.size)
	src := rl.Rectangle{X: minU * size, Y: minV * size, Width: (maxU - minU) * size, Height: (maxV - minV) * size}
	dst := rl.Rectangle{X: cam.PanelX, Y: cam.PanelY, Width: cam.PanelSize, Height: cam.PanelSize}
	rl.DrawTexturePro(tex.tex, src, dst, rl.Vector2{}, 0, rl.White)
	rl.DrawRectangleLines(int32(cam.PanelX), int32(cam.PanelY), int32(cam.PanelSize), int32(cam.PanelSize), rl.DarkGray)

	text := label
	if cam.Zoom > 1 {
		text = fmt.Sprintf("%s  x%.1f", label, cam.Zoom)
	}
	rl.DrawText(text, int32(cam.PanelX), int32(cam.PanelY+cam.PanelSize)+4, 14, rl.Gray)
}

// drawCenters marks each phosphene where it is rendered for an eye.
func (v *Viewer) drawCenters(cam *camera.Camera, eye int) {
	dx, dy := displayOffset(v.sim.Mode(), v.sim.Gaze(), eye)
	for i, p := range v.sim.Layout().Phosphenes {
		u, w := float32(p.X)+dx, float32(p.Y)+dy
		if !cam.IsVisible(u, w, 0) {
			continue
		}
		sx, sy := cam.ViewToScreen(u, w)
		c := rl.Color{R: 80, G: 160, B: 255, A: 140}
		if i == v.selected {
			c = rl.Red
		}
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, 1.5, c)
	}
}

// drawGaze marks the gaze on the input panel and each eye panel.
func (v *Viewer) drawGaze() {
	g := v.sim.Gaze()
	for i, cam := range v.cameras {
		p := g.Center
		if i > 0 {
			p = g.Eye(i - 1)
		}
		if !cam.IsVisible(p.X, p.Y, 0) {
			continue
		}
		sx, sy := cam.ViewToScreen(p.X, p.Y)
		rl.DrawCircleLines(int32(sx), int32(sy), 6, rl.Green)
		rl.DrawLine(int32(sx)-9, int32(sy), int32(sx)+9, int32(sy), rl.Green)
		rl.DrawLine(int32(sx), int32(sy)-9, int32(sx), int32(sy)+9, rl.Green)
	}
}

func (v *Viewer) drawHUD() {
	raw := v.runner.RawGaze()
	g := v.sim.Gaze()
	in := v.sim.Intensities()
	v.hud.Draw(ui.HUDData{
		Title:      v.opts.Title,
		Phosphenes: v.sim.Len(),
		Tick:       v.sim.TickCount(),
		SimTime:    v.sim.SimTime(),
		FPS:        rl.GetFPS(),
		Mode:       v.sim.Mode().String(),
		Source:     v.sources.current().Name,
		Smoothing:  v.smoothing,
		GazeX:      g.Center.X,
		GazeY:      g.Center.Y,
		GazeValid:  raw.Valid,
		MeanLeft:   meanOf(in[components.EyeLeft]),
		MeanRight:  meanOf(in[components.EyeRight]),
		Paused:     v.paused,
	})
}

func (v *Viewer) inspectorData() ui.InspectorData {
	p := v.sim.Layout().Phosphenes[v.selected]
	stim := v.sim.Stimuli()[v.selected]
	return ui.InspectorData{
		Index:        v.selected,
		X:            float32(p.X),
		Y:            float32(p.Y),
		Eccentricity: float32(p.Eccentricity),
		Size:         float32(p.Size),
		Activity:     v.sim.Activity(v.selected),
		Stimulus:     stim,
		History:      v.hist.values(),
	}
}

// Run loops until the window closes or maxTicks ticks have run (0 = no limit).
func (v *Viewer) Run(maxTicks int) {
	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()

		if maxTicks > 0 && int(v.sim.TickCount()) >= maxTicks {
			slog.Info("max ticks reached", "tick", v.sim.TickCount())
			return
		}
	}
}

// Unload releases GPU resources.
func (v *Viewer) Unload() {
	v.inputTex.unload()
	for _, t := range v.outputTex {
		if t != nil {
			t.unload()
		}
	}
}

func meanOf(xs []float32) float32 {
	if len(xs) == 0 {
		return 0
	}
	var sum float32
	for _, x := range xs {
		sum += x
	}
	return sum / float32(len(xs))
}
