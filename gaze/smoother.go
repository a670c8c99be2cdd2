package gaze

import (
	"math"
	"time"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
)

// SmootherParams configures the Olsson filter.
type SmootherParams struct {
	Tau           time.Duration // Exponential smoothing time constant; 0 disables smoothing
	Window        int           // Samples in each half of the jump-detection window
	JumpThreshold float32       // Distance between half-window means that counts as a saccade
}

// SmootherParamsFromConfig converts the gaze config section.
func SmootherParamsFromConfig(cfg config.GazeConfig) SmootherParams {
	return SmootherParams{
		Tau:           time.Duration(cfg.Tau * float64(time.Second)),
		Window:        cfg.Window,
		JumpThreshold: float32(cfg.JumpThreshold),
	}
}

// Smoother wraps a Provider with saccade-aware exponential smoothing
// (Olsson 2007): within a fixation the estimate follows the raw signal with
// time constant Tau; when the mean of the newest Window samples differs from
// the mean of the Window before them by more than JumpThreshold, the estimate
// jumps to the new mean instead of gliding there.
type Smoother struct {
	src    Provider
	params SmootherParams

	left, right, center channelFilter
	lastTS              time.Duration
	started             bool
}

// NewSmoother creates a smoother over src.
func NewSmoother(src Provider, params SmootherParams) *Smoother {
	if params.Window < 1 {
		params.Window = 1
	}
	s := &Smoother{src: src, params: params}
	for _, f := range []*channelFilter{&s.left, &s.right, &s.center} {
		f.buf = make([]Vec2, 0, 2*params.Window)
	}
	return s
}

// Gaze implements Provider. Invalid raw samples hold the last estimate; before
// the first valid sample the view center is reported.
func (s *Smoother) Gaze(ts time.Duration) Sample {
	raw := s.src.Gaze(ts)
	if !raw.Valid {
		if !s.left.has {
			return Centered(ts)
		}
		return Sample{Left: s.left.est, Right: s.right.est, Center: s.center.est, Timestamp: ts, Valid: true}
	}

	alpha := float32(1)
	if s.started && s.params.Tau > 0 {
		dt := raw.Timestamp - s.lastTS
		if dt < 0 {
			dt = 0
		}
		alpha = float32(1 - math.Exp(-float64(dt)/float64(s.params.Tau)))
	}
	s.lastTS = raw.Timestamp
	s.started = true

	return Sample{
		Left:      s.left.update(raw.Left, alpha, s.params),
		Right:     s.right.update(raw.Right, alpha, s.params),
		Center:    s.center.update(raw.Center, alpha, s.params),
		Timestamp: raw.Timestamp,
		Valid:     true,
	}
}

// Reset forgets all history.
func (s *Smoother) Reset() {
	for _, f := range []*channelFilter{&s.left, &s.right, &s.center} {
		f.buf = f.buf[:0]
		f.has = false
	}
	s.started = false
}

// channelFilter smooths one 2D gaze channel.
type channelFilter struct {
	buf []Vec2 // Last 2*Window raw samples, oldest first
	est Vec2
	has bool
}

func (f *channelFilter) update(p Vec2, alpha float32, params SmootherParams) Vec2 {
	if len(f.buf) == cap(f.buf) {
		copy(f.buf, f.buf[1:])
		f.buf = f.buf[:len(f.buf)-1]
	}
	f.buf = append(f.buf, p)

	if !f.has {
		f.est = p
		f.has = true
		return f.est
	}

	w := params.Window
	if len(f.buf) == 2*w {
		before := mean(f.buf[:w])
		after := mean(f.buf[w:])
		if dist(before, after) > params.JumpThreshold {
			f.est = after
			// Keep only the new fixation so the same jump is not detected twice
			n := copy(f.buf, f.buf[w:])
			f.buf = f.buf[:n]
			return f.est
		}
	}

	f.est.X += (p.X - f.est.X) * alpha
	f.est.Y += (p.Y - f.est.Y) * alpha
	return f.est
}

func mean(ps []Vec2) Vec2 {
	var m Vec2
	for _, p := range ps {
		m.X += p.X
		m.Y += p.Y
	}
	n := float32(len(ps))
	return Vec2{X: m.X / n, Y: m.Y / n}
}

func dist(a, b Vec2) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}
