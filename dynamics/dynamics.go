// Package dynamics implements the phosphene temporal model: a leaky
// integrator driven by the novel part of the stimulus, with a habituation
// trace that makes sustained input fade.
package dynamics

import (
	"fmt"
	"math"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
)

// Params are the four temporal constants shared by all phosphenes.
type Params struct {
	IntensityDecay float32 // in (0,1): afterglow
	InputEffect    float32 // >= 0: gain on stimulus above the trace
	TraceDecay     float32 // in (0,1)
	TraceIncrease  float32 // >= 0

	// ReferenceDT is the frame duration the constants were tuned at.
	// 0 means the constants apply per tick regardless of dt.
	ReferenceDT float32
}

// ParamsFromConfig converts the temporal config section.
func ParamsFromConfig(cfg config.TemporalConfig) Params {
	return Params{
		IntensityDecay: float32(cfg.IntensityDecay),
		InputEffect:    float32(cfg.InputEffect),
		TraceDecay:     float32(cfg.TraceDecay),
		TraceIncrease:  float32(cfg.TraceIncrease),
		ReferenceDT:    float32(cfg.ReferenceDT),
	}
}

// ToConfig converts back to the temporal config section.
func (p Params) ToConfig() config.TemporalConfig {
	return config.TemporalConfig{
		IntensityDecay: float64(p.IntensityDecay),
		InputEffect:    float64(p.InputEffect),
		TraceDecay:     float64(p.TraceDecay),
		TraceIncrease:  float64(p.TraceIncrease),
		ReferenceDT:    float64(p.ReferenceDT),
	}
}

// Validate checks the constants lie in their documented ranges.
func (p Params) Validate() error {
	if p.IntensityDecay <= 0 || p.IntensityDecay >= 1 {
		return fmt.Errorf("intensity decay must be in (0,1), got %v", p.IntensityDecay)
	}
	if p.TraceDecay <= 0 || p.TraceDecay >= 1 {
		return fmt.Errorf("trace decay must be in (0,1), got %v", p.TraceDecay)
	}
	if p.InputEffect < 0 {
		return fmt.Errorf("input effect must be >= 0, got %v", p.InputEffect)
	}
	if p.TraceIncrease < 0 {
		return fmt.Errorf("trace increase must be >= 0, got %v", p.TraceIncrease)
	}
	if p.ReferenceDT < 0 {
		return fmt.Errorf("reference dt must be >= 0, got %v", p.ReferenceDT)
	}
	return nil
}

// ForStep returns the constants to use for a tick of length dt. With no
// reference dt the constants are returned unchanged, so the recurrence stays
// exactly per-tick. Otherwise the decays are rescaled to dt.
func (p Params) ForStep(dt float32) Params {
	if p.ReferenceDT <= 0 || dt <= 0 || dt == p.ReferenceDT {
		return p
	}
	ratio := float64(dt) / float64(p.ReferenceDT)
	q := p
	q.IntensityDecay = float32(math.Pow(float64(p.IntensityDecay), ratio))
	q.TraceDecay = float32(math.Pow(float64(p.TraceDecay), ratio))
	q.InputEffect = p.InputEffect * float32(ratio)
	q.TraceIncrease = p.TraceIncrease * float32(ratio)
	return q
}

// StepChannel advances one activation/trace channel by one tick.
//
//	activation' = activation*IntensityDecay + max(0, InputEffect*(stimulus-trace))
//	trace'      = trace*TraceDecay + TraceIncrease*stimulus
func (p Params) StepChannel(activation, trace, stimulus float32) (float32, float32) {
	novel := p.InputEffect * (stimulus - trace)
	if novel < 0 {
		novel = 0
	}
	return activation*p.IntensityDecay + novel, trace*p.TraceDecay + p.TraceIncrease*stimulus
}

// Step advances every eye channel of one phosphene. It is a pure function of
// the current state and this tick's stimulus.
func (p Params) Step(a components.Activity, stimulus [components.NumEyes]float32) components.Activity {
	var out components.Activity
	for e := range stimulus {
		out.Activation[e], out.Trace[e] = p.StepChannel(a.Activation[e], a.Trace[e], stimulus[e])
	}
	return out
}

// StepAll advances a population. dst may alias states; it must be at least
// as long as states. Returns dst[:len(states)].
func (p Params) StepAll(dst, states []components.Activity, stimuli [][components.NumEyes]float32) []components.Activity {
	dst = dst[:len(states)]
	for i := range states {
		dst[i] = p.Step(states[i], stimuli[i])
	}
	return dst
}

// SteadyState returns the fixed point of the recurrence under a constant stimulus s.
func (p Params) SteadyState(s float32) (activation, trace float32) {
	trace = p.TraceIncrease * s / (1 - p.TraceDecay)
	novel := p.InputEffect * (s - trace)
	if novel < 0 {
		novel = 0
	}
	return novel / (1 - p.IntensityDecay), trace
}
