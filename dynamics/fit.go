package dynamics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Observation pairs a per-tick stimulus with the brightness a participant
// (or a reference simulator) reported for that tick.
type Observation struct {
	Tick       int     `csv:"tick"`
	Stimulus   float64 `csv:"stimulus"`
	Brightness float64 `csv:"brightness"`
}

// ParamSpec defines a single fitted constant and its allowed range.
type ParamSpec struct {
	Name string
	Min  float64
	Max  float64
}

// FitSpecs are the four fitted constants, in Vector order.
var FitSpecs = []ParamSpec{
	{Name: "intensity_decay", Min: 0.01, Max: 0.999},
	{Name: "input_effect", Min: 0, Max: 5},
	{Name: "trace_decay", Min: 0.01, Max: 0.999},
	{Name: "trace_increase", Min: 0, Max: 1},
}

// Vector returns the constants as a raw parameter vector.
func (p Params) Vector() []float64 {
	return []float64{
		float64(p.IntensityDecay),
		float64(p.InputEffect),
		float64(p.TraceDecay),
		float64(p.TraceIncrease),
	}
}

// ParamsFromVector is the inverse of Vector. Values are clamped to FitSpecs.
func ParamsFromVector(v []float64) Params {
	c := clampVector(v)
	return Params{
		IntensityDecay: float32(c[0]),
		InputEffect:    float32(c[1]),
		TraceDecay:     float32(c[2]),
		TraceIncrease:  float32(c[3]),
	}
}

func clampVector(v []float64) []float64 {
	out := make([]float64, len(FitSpecs))
	for i, spec := range FitSpecs {
		out[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return out
}

func normalize(raw []float64) []float64 {
	n := make([]float64, len(FitSpecs))
	for i, spec := range FitSpecs {
		n[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return n
}

func denormalize(n []float64) []float64 {
	raw := make([]float64, len(FitSpecs))
	for i, spec := range FitSpecs {
		raw[i] = spec.Min + n[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Simulate replays a stimulus sequence through a single channel starting
// from rest and returns the activation after each tick.
func (p Params) Simulate(stimuli []float64) []float64 {
	out := make([]float64, len(stimuli))
	var act, trace float32
	for i, s := range stimuli {
		act, trace = p.StepChannel(act, trace, float32(s))
		out[i] = float64(act)
	}
	return out
}

// MSE returns the mean squared error between simulated activation and the
// observed brightness.
func (p Params) MSE(obs []Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	stimuli := make([]float64, len(obs))
	for i, o := range obs {
		stimuli[i] = o.Stimulus
	}
	sim := p.Simulate(stimuli)
	var sum float64
	for i, o := range obs {
		d := sim[i] - o.Brightness
		sum += d * d
	}
	return sum / float64(len(obs))
}

// FitResult holds the outcome of Fit.
type FitResult struct {
	Params      Params
	MSE         float64
	Evaluations int
	Status      optimize.Status
}

// Fit searches for the temporal constants that best reproduce obs, starting
// from initial. Parameters are optimized in a normalized space and clamped
// to FitSpecs, so the result always satisfies Validate for in-range specs.
func Fit(obs []Observation, initial Params, maxEvals int) (FitResult, error) {
	if len(obs) == 0 {
		return FitResult{}, errors.New("fit: no observations")
	}
	if maxEvals <= 0 {
		maxEvals = 2000
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return ParamsFromVector(denormalize(x)).MSE(obs)
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
	}

	x0 := normalize(clampVector(initial.Vector()))
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil {
		return FitResult{}, fmt.Errorf("fit: %w", err)
	}

	best := ParamsFromVector(denormalize(result.X))
	best.ReferenceDT = initial.ReferenceDT
	return FitResult{
		Params:      best,
		MSE:         best.MSE(obs),
		Evaluations: result.Stats.FuncEvaluations,
		Status:      result.Status,
	}, nil
}
