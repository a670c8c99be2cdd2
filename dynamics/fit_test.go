package dynamics

import (
	"math"
	"testing"
)

// flashSequence alternates on/off blocks of varying intensity.
func flashSequence(n int) []Observation {
	obs := make([]Observation, n)
	for i := range obs {
		var s float64
		if (i/15)%2 == 0 {
			s = 0.4 + 0.6*math.Abs(math.Sin(float64(i/30)))
		}
		obs[i] = Observation{Tick: i, Stimulus: s}
	}
	return obs
}

func TestVectorRoundTrip(t *testing.T) {
	got := ParamsFromVector(testParams.Vector())
	if got != testParams {
		t.Errorf("round trip = %+v, want %+v", got, testParams)
	}
}

func TestParamsFromVectorClamps(t *testing.T) {
	p := ParamsFromVector([]float64{2, -1, 0, 5})
	if err := p.Validate(); err != nil {
		t.Errorf("clamped params should validate, got %v", err)
	}
}

func TestMSEZeroForTruth(t *testing.T) {
	obs := flashSequence(200)
	sim := testParams.Simulate(stimuliOf(obs))
	for i := range obs {
		obs[i].Brightness = sim[i]
	}
	if mse := testParams.MSE(obs); mse != 0 {
		t.Errorf("expected zero error for generating params, got %v", mse)
	}
}

func TestFitImproves(t *testing.T) {
	obs := flashSequence(300)
	sim := testParams.Simulate(stimuliOf(obs))
	for i := range obs {
		obs[i].Brightness = sim[i]
	}

	initial := Params{IntensityDecay: 0.5, InputEffect: 1.5, TraceDecay: 0.7, TraceIncrease: 0.3}
	initialMSE := initial.MSE(obs)

	res, err := Fit(obs, initial, 3000)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if res.MSE >= initialMSE*0.5 {
		t.Errorf("expected fit to halve error: initial %v, fitted %v", initialMSE, res.MSE)
	}
	if err := res.Params.Validate(); err != nil {
		t.Errorf("fitted params invalid: %v", err)
	}
	if res.Evaluations == 0 {
		t.Error("expected evaluations to be counted")
	}
}

func TestFitNoObservations(t *testing.T) {
	if _, err := Fit(nil, testParams, 10); err == nil {
		t.Error("expected error without observations")
	}
}

func stimuliOf(obs []Observation) []float64 {
	s := make([]float64, len(obs))
	for i, o := range obs {
		s[i] = o.Stimulus
	}
	return s
}
