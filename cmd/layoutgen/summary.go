package main

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/render"
)

// summary describes how a layout is spread over the visual field.
type summary struct {
	EccMean, EccMax  float64
	SizeMin, SizeMax float64
	// Fraction of phosphenes within the central quarter of the max eccentricity
	CentralFraction float64

	// Cortex covered from the fovea out to EccMax, in mm, and the mean
	// cortical depth of the phosphenes under model.
	CorticalExtent float64
	CorticalMean   float64
	// Phosphenes per mm of CorticalExtent
	CorticalDensity float64
}

func summarize(l *layout.Layout, model cortex.Params) summary {
	n := l.Len()
	if n == 0 {
		return summary{}
	}
	ecc := make([]float64, n)
	size := make([]float64, n)
	depth := make([]float64, n)
	for i, p := range l.Phosphenes {
		ecc[i] = p.Eccentricity
		size[i] = p.Size
		depth[i] = model.CorticalDistance(p.Eccentricity)
	}

	s := summary{
		EccMean: stat.Mean(ecc, nil),
		EccMax:  floats.Max(ecc),
		SizeMin: floats.Min(size),
		SizeMax: floats.Max(size),

		CorticalExtent: model.CorticalDistance(floats.Max(ecc)),
		CorticalMean:   stat.Mean(depth, nil),
	}
	if s.CorticalExtent > 0 {
		s.CorticalDensity = float64(n) / s.CorticalExtent
	}
	central := 0
	for _, e := range ecc {
		if e <= s.EccMax/4 {
			central++
		}
	}
	s.CentralFraction = float64(central) / float64(n)
	return s
}

// allOn returns one fully lit spot per phosphene.
func allOn(l *layout.Layout) []render.Spot {
	spots := make([]render.Spot, l.Len())
	for i, p := range l.Phosphenes {
		spots[i] = render.Spot{X: float32(p.X), Y: float32(p.Y), Size: float32(p.Size), Activation: 1}
	}
	return spots
}
