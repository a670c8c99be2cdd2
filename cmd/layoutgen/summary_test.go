package main

import (
	"math/rand"
	"testing"

	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
)

func TestSummarizeFavorsFovea(t *testing.T) {
	l, err := layout.GenerateProbabilistic(layout.DefaultOptions(2000, 0.15, cortex.Monopole), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	s := summarize(l, cortex.Monopole)

	// Uniform placement over the disc would give 1/16 in the central quarter
	if s.CentralFraction <= 1.0/16 {
		t.Errorf("expected magnification to crowd the center, got %.3f", s.CentralFraction)
	}
	if s.EccMax > 0.15*layout.DefaultTotalFOV+1e-9 {
		t.Errorf("eccentricity %v exceeds the limit", s.EccMax)
	}
	if s.SizeMin <= 0 || s.SizeMax <= s.SizeMin {
		t.Errorf("expected sizes to grow with eccentricity, got %v..%v", s.SizeMin, s.SizeMax)
	}
}

func TestAllOn(t *testing.T) {
	l, err := layout.GenerateProbabilistic(layout.DefaultOptions(10, 0.1, cortex.Dipole), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	spots := allOn(l)
	if len(spots) != 10 {
		t.Fatalf("expected 10 spots, got %d", len(spots))
	}
	for i, s := range spots {
		if s.Activation != 1 || s.X != float32(l.Phosphenes[i].X) {
			t.Fatalf("spot %d = %+v", i, s)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if s := summarize(&layout.Layout{}, cortex.Monopole); s != (summary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestSummarizeCorticalExtent(t *testing.T) {
	for _, model := range []cortex.Params{cortex.Monopole, cortex.Dipole} {
		t.Run(model.Name, func(t *testing.T) {
			l, err := layout.GenerateProbabilistic(layout.DefaultOptions(500, 0.15, model), rand.New(rand.NewSource(5)))
			if err != nil {
				t.Fatal(err)
			}
			s := summarize(l, model)

			if want := model.CorticalDistance(s.EccMax); s.CorticalExtent != want {
				t.Errorf("extent %v, want %v", s.CorticalExtent, want)
			}
			if s.CorticalMean <= 0 || s.CorticalMean >= s.CorticalExtent {
				t.Errorf("mean depth %v outside (0, %v)", s.CorticalMean, s.CorticalExtent)
			}
			// Magnification-weighted placement spreads phosphenes evenly over
			// cortex, so the mean depth sits near half the extent.
			if r := s.CorticalMean / s.CorticalExtent; r < 0.35 || r > 0.65 {
				t.Errorf("mean depth is %.2f of the extent, expected about half", r)
			}
			if want := 500 / s.CorticalExtent; s.CorticalDensity != want {
				t.Errorf("density %v, want %v", s.CorticalDensity, want)
			}
		})
	}
}
