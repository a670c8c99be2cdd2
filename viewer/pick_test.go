package viewer

import (
	"image/color"
	"testing"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

func TestDisplayOffset(t *testing.T) {
	g := gaze.Sample{Left: gaze.Vec2{X: 0.7, Y: 0.4}, Right: gaze.Vec2{X: 0.6, Y: 0.4}, Valid: true}

	if dx, dy := displayOffset(config.ModeGazeIgnored, g, 0); dx != 0 || dy != 0 {
		t.Errorf("gaze ignored should not shift, got (%v, %v)", dx, dy)
	}
	dx, dy := displayOffset(config.ModeGazeLocked, g, 1)
	if abs(dx-0.1) > 1e-6 || abs(dy+0.1) > 1e-6 {
		t.Errorf("expected right-eye shift (0.1, -0.1), got (%v, %v)", dx, dy)
	}

	// Lost gaze falls back to the center
	if dx, dy := displayOffset(config.ModeGazeAssisted, gaze.Sample{Left: gaze.Vec2{X: 1}}, 0); dx != 0 || dy != 0 {
		t.Errorf("invalid gaze should not shift, got (%v, %v)", dx, dy)
	}
}

func TestHistoryOrder(t *testing.T) {
	h := newHistory(3)
	h.push(1)
	h.push(2)
	if got := h.values(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("partial history %v", got)
	}
	h.push(3)
	h.push(4)
	got := h.values()
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Errorf("wrapped history %v, want [2 3 4]", got)
	}
	h.reset()
	if len(h.values()) != 0 {
		t.Error("expected empty history after reset")
	}
}

func TestGridToRGBA(t *testing.T) {
	g := sampler.NewGrid(3, 1)
	g.Pix = []float32{-1, 0.5, 2}
	dst := make([]color.RGBA, 3)
	gridToRGBA(dst, g, color.RGBA{R: 200, G: 100, B: 0, A: 255})

	if dst[0].R != 0 || dst[2].R != 200 || dst[2].G != 100 {
		t.Errorf("expected clamping, got %v and %v", dst[0], dst[2])
	}
	if dst[1].R != 100 || dst[1].G != 50 || dst[1].A != 255 {
		t.Errorf("expected half tint, got %v", dst[1])
	}
}

type ramp struct{}

func (ramp) Bilinear(u, _ float32) float32 { return u }

func TestRasterize(t *testing.T) {
	g := sampler.NewGrid(4, 2)
	rasterize(g, ramp{})
	if g.At(0, 0) != 0.125 || g.At(3, 1) != 0.875 {
		t.Errorf("unexpected samples %v", g.Pix)
	}

	rasterize(g, nil)
	for _, v := range g.Pix {
		if v != 0 {
			t.Fatal("nil image should clear the grid")
		}
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
