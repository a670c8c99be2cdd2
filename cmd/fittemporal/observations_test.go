package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
)

func TestSynthesizeFlashTrain(t *testing.T) {
	p := dynamics.Params{IntensityDecay: 0.8, InputEffect: 0.7, TraceDecay: 0.9, TraceIncrease: 0.1}
	obs := synthesize(p, 40, 5, 5, 0, 1)
	if len(obs) != 40 {
		t.Fatalf("expected 40 observations, got %d", len(obs))
	}
	if obs[0].Stimulus != 1 || obs[5].Stimulus != 0 || obs[10].Stimulus != 1 {
		t.Error("unexpected flash pattern")
	}
	if p.MSE(obs) != 0 {
		t.Error("noise-free synthesis should match the generating params exactly")
	}
}

func TestObservationsRoundTrip(t *testing.T) {
	p := dynamics.Params{IntensityDecay: 0.8, InputEffect: 0.7, TraceDecay: 0.9, TraceIncrease: 0.1}
	obs := synthesize(p, 12, 3, 3, 0, 1)

	path := filepath.Join(t.TempDir(), "fit.csv")
	if err := writeFitted(path, obs, p); err != nil {
		t.Fatal(err)
	}

	// Extra predicted column is ignored when reading back
	got, err := loadObservations(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(obs) || got[4].Tick != 4 || got[4].Stimulus != obs[4].Stimulus {
		t.Errorf("round trip mismatch: %+v", got[4])
	}
}

func TestLoadObservationsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("tick,stimulus,brightness\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadObservations(path); err == nil {
		t.Error("expected error for empty recording")
	}
}
