package viewer

import (
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// displayOffset returns how far rendered phosphenes are shifted from their
// nominal positions for one eye.
func displayOffset(mode config.Mode, g gaze.Sample, eye int) (dx, dy float32) {
	if !mode.RendersShifted() {
		return 0, 0
	}
	p := gaze.OrCenter(g).Eye(eye)
	return p.X - sampler.Center, p.Y - sampler.Center
}

// history is a fixed-size ring of recent values.
type history struct {
	buf  []float32
	next int
	full bool
}

func newHistory(size int) *history {
	return &history{buf: make([]float32, size)}
}

func (h *history) push(v float32) {
	h.buf[h.next] = v
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

func (h *history) reset() {
	h.next = 0
	h.full = false
}

// values returns the recorded values, oldest first.
func (h *history) values() []float32 {
	if !h.full {
		return append([]float32(nil), h.buf[:h.next]...)
	}
	out := make([]float32, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}
