package simulator

import "github.com/neuralcodinglab/SPVGaze-sub000/components"

// Sink consumes per-eye phosphene intensities after each tick, e.g. to
// drive a GPU renderer or a stimulator. The slices are indexed like the
// layout and are only valid for the duration of the call.
type Sink interface {
	Consume(tick int32, intensities [components.NumEyes][]float32)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tick int32, intensities [components.NumEyes][]float32)

// Consume implements Sink.
func (f SinkFunc) Consume(tick int32, intensities [components.NumEyes][]float32) {
	f(tick, intensities)
}
