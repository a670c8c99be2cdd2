// Package render is the CPU reference for the phosphene spread pass: every
// phosphene paints a gaussian blob scaled by its activation into a
// per-frame buffer.
package render

import (
	"fmt"
	"image/png"
	"math"
	"os"
	"runtime"
	"sync"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// parallelRows is the minimum image height to split across workers.
const parallelRows = 128

// kernelExtent truncates the gaussian at this many sigmas.
const kernelExtent = 3

// Spot is what the renderer consumes per phosphene.
type Spot struct {
	X, Y       float32 // Center, normalized screen space
	Size       float32 // Receptive field radius, normalized
	Activation float32
}

// Renderer accumulates spots into a square-or-rectangular float buffer.
type Renderer struct {
	W, H       int
	SigmaScale float32 // sigma = Size * SigmaScale
	Gain       float32
	Threshold  float32 // Spots with Activation*Gain below this are skipped

	buf        *sampler.Grid
	numWorkers int
}

// New creates a renderer with a w×h output buffer.
func New(w, h int, sigmaScale, gain, threshold float32) *Renderer {
	return &Renderer{
		W:          w,
		H:          h,
		SigmaScale: sigmaScale,
		Gain:       gain,
		Threshold:  threshold,
		buf:        sampler.NewGrid(w, h),
		numWorkers: runtime.GOMAXPROCS(0),
	}
}

// NewFromConfig creates a square renderer from the render config section.
func NewFromConfig(cfg *config.Config) *Renderer {
	res := cfg.Render.Resolution
	return New(res, res, cfg.Derived.SigmaScale, cfg.Derived.Gain, cfg.Derived.Threshold)
}

// Output returns the buffer written by the last Render call. It is reused
// across frames.
func (r *Renderer) Output() *sampler.Grid { return r.buf }

// Render clears the buffer and paints spots into it. Values are not clipped;
// clipping to display range happens on export.
func (r *Renderer) Render(spots []Spot) *sampler.Grid {
	r.buf.Clear()

	if r.H < parallelRows || r.numWorkers <= 1 {
		r.renderRows(spots, 0, r.H)
		return r.buf
	}

	// Row bands never overlap, so workers write disjoint pixels
	band := (r.H + r.numWorkers - 1) / r.numWorkers
	var wg sync.WaitGroup
	for y0 := 0; y0 < r.H; y0 += band {
		y1 := min(y0+band, r.H)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			r.renderRows(spots, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
	return r.buf
}

// renderRows paints the part of every spot that falls in rows [y0, y1).
func (r *Renderer) renderRows(spots []Spot, y0, y1 int) {
	w, h := float32(r.W), float32(r.H)
	minSigma := 0.5 / max(w, h)

	for _, s := range spots {
		amp := s.Activation * r.Gain
		if amp <= 0 || amp < r.Threshold {
			continue
		}
		sigma := max(s.Size*r.SigmaScale, minSigma)
		inv2s2 := 1 / (2 * sigma * sigma)
		reach := kernelExtent * sigma

		px0 := max(int((s.X-reach)*w), 0)
		px1 := min(int((s.X+reach)*w)+1, r.W)
		py0 := max(int((s.Y-reach)*h), y0)
		py1 := min(int((s.Y+reach)*h)+1, y1)

		for py := py0; py < py1; py++ {
			dy := (float32(py)+0.5)/h - s.Y
			row := r.buf.Pix[py*r.W:]
			for px := px0; px < px1; px++ {
				dx := (float32(px)+0.5)/w - s.X
				d2 := dx*dx + dy*dy
				row[px] += amp * float32(math.Exp(float64(-d2*inv2s2)))
			}
		}
	}
}

// WritePNG saves the current buffer as an 8-bit grayscale PNG.
func (r *Renderer) WritePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, r.buf.Gray()); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
