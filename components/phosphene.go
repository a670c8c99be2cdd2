// Package components defines ECS components for the phosphene simulation.
package components

// Eye indexes the per-eye channels of activation and trace.
type Eye int

const (
	EyeLeft Eye = iota
	EyeRight
	NumEyes
)

// String returns the eye name.
func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	default:
		return "unknown"
	}
}

// Position is a phosphene's nominal location in normalized screen space.
type Position struct {
	X, Y float32
}

// Phosphene holds the immutable layout of one phosphene.
type Phosphene struct {
	Index        int32   // Index into the layout
	Size         float32 // Receptive field radius, normalized screen units
	Eccentricity float32 // Degrees
}

// Activity is the mutable per-frame state: the only thing a tick writes.
type Activity struct {
	Activation [NumEyes]float32
	Trace      [NumEyes]float32
}
