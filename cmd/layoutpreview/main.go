// Layout preview tool - interactive phosphene layout generation with sliders.
//
// Usage: go run ./cmd/layoutpreview
package main

import (
	"fmt"
	"image/color"
	"math/rand"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/render"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	renderSize   = 512
)

// LayoutParams holds the generator knobs exposed as sliders.
type LayoutParams struct {
	Count     int
	MaxEcc    float32
	Dipole    bool
	Seed      int64
	Gain      float32
	SigmaMult float32
}

func (p LayoutParams) model() cortex.Params {
	if p.Dipole {
		return cortex.Dipole
	}
	return cortex.Monopole
}

func (p LayoutParams) maxEccDeg() float64 {
	return float64(p.MaxEcc) * layout.DefaultTotalFOV
}

// corticalExtent is the length of cortex mapped by the sampled field, in mm.
func (p LayoutParams) corticalExtent() float64 {
	return p.model().CorticalDistance(p.maxEccDeg())
}

func main() {
	rl.InitWindow(windowWidth, windowHeight, "Phosphene Layout Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := LayoutParams{
		Count:     1000,
		MaxEcc:    0.15,
		Seed:      42,
		Gain:      1,
		SigmaMult: 1,
	}

	img := rl.GenImageColor(renderSize, renderSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	r := render.New(renderSize, renderSize, 1, 1, 0)
	pixels := make([]color.RGBA, renderSize*renderSize)

	var current *layout.Layout
	var genErr error
	needsRegen := true
	status := ""

	for !rl.WindowShouldClose() {
		if needsRegen {
			current, genErr = generate(params)
			if genErr == nil {
				r.SigmaScale = params.SigmaMult
				r.Gain = params.Gain
				r.Render(spots(current))
				updateTexture(texture, r.Output(), pixels)
			}
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: renderSize, Height: renderSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		if genErr != nil {
			rl.DrawText(genErr.Error(), 15, statsY, 14, rl.Red)
		} else {
			rl.DrawText(current.Record.Description, 15, statsY, 14, rl.DarkGray)
		}
		if status != "" {
			rl.DrawText(status, 15, statsY+20, 14, rl.DarkGreen)
		}

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Layout Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		slider := func(label string, value, lo, hi float32, format string) float32 {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			nv := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "", value, lo, hi,
			)
			rl.DrawText(fmt.Sprintf(format, value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			panelY += 35
			return nv
		}

		if n := int(slider("Phosphenes", float32(params.Count), 10, 3000, "%.0f")); n != params.Count {
			params.Count = n
			needsRegen = true
		}
		if v := slider("Max eccentricity (fraction of FOV)", params.MaxEcc, 0.01, 0.49, "%.3f"); v != params.MaxEcc {
			params.MaxEcc = v
			needsRegen = true
		}
		if v := slider("Render gain", params.Gain, 0.1, 4, "%.2f"); v != params.Gain {
			params.Gain = v
			needsRegen = true
		}
		if v := slider("Spread multiplier", params.SigmaMult, 0.1, 3, "%.2f"); v != params.SigmaMult {
			params.SigmaMult = v
			needsRegen = true
		}

		rl.DrawText(fmt.Sprintf("Seed: %d   Model: %s", params.Seed, params.model().Name), int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 22
		rl.DrawText(fmt.Sprintf("Cortex: %.1f mm to %.1f deg", params.corticalExtent(), params.maxEccDeg()), int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 26

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(params.Dipole, "Monopole", "Dipole")) {
			params.Dipole = !params.Dipole
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = rand.Int63n(1 << 31)
			needsRegen = true
		}
		panelY += 40

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Save Layout") && current != nil {
			if err := current.Save("layout.json"); err != nil {
				status = "save failed: " + err.Error()
			} else {
				status = "saved layout.json"
			}
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Save PNG") {
			if err := r.WritePNG("layout_preview.png"); err != nil {
				status = "png failed: " + err.Error()
			} else {
				status = "saved layout_preview.png"
			}
		}
		panelY += 50

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			text := ""
			for _, line := range yamlLines(params) {
				text += line + "\n"
			}
			rl.SetClipboardText(text)
		}

		rl.EndDrawing()
	}
}

func generate(p LayoutParams) (*layout.Layout, error) {
	opts := layout.DefaultOptions(p.Count, float64(p.MaxEcc), p.model())
	return layout.GenerateProbabilistic(opts, rand.New(rand.NewSource(p.Seed)))
}

func spots(l *layout.Layout) []render.Spot {
	out := make([]render.Spot, l.Len())
	for i, p := range l.Phosphenes {
		out[i] = render.Spot{X: float32(p.X), Y: float32(p.Y), Size: float32(p.Size), Activation: 1}
	}
	return out
}

func yamlLines(p LayoutParams) []string {
	return []string{
		"layout:",
		fmt.Sprintf("  count: %d", p.Count),
		fmt.Sprintf("  max_eccentricity_fraction: %.3f", p.MaxEcc),
		fmt.Sprintf("  model: %s", p.model().Name),
		fmt.Sprintf("  seed: %d", p.Seed),
		"render:",
		fmt.Sprintf("  gain: %.2f", p.Gain),
		fmt.Sprintf("  sigma_scale: %.2f", p.SigmaMult),
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// updateTexture uploads rendered brightness as a warm gray ramp.
func updateTexture(texture rl.Texture2D, g *sampler.Grid, pixels []color.RGBA) {
	for i, v := range g.Pix {
		if v > 1 {
			v = 1
		}
		pixels[i] = color.RGBA{R: uint8(v * 255), G: uint8(v * 245), B: uint8(v * 210), A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}
