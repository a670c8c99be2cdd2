package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
)

// loadObservations reads a tick,stimulus,brightness CSV.
func loadObservations(path string) ([]dynamics.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening observations: %w", err)
	}
	defer f.Close()

	var obs []dynamics.Observation
	if err := gocsv.UnmarshalFile(f, &obs); err != nil {
		return nil, fmt.Errorf("parsing observations: %w", err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: no observations", path)
	}
	return obs, nil
}

// synthesize builds a flash-train recording from known params, with optional
// gaussian brightness noise. Useful for checking that a fit recovers them.
func synthesize(p dynamics.Params, ticks, onTicks, offTicks int, noise float64, seed int64) []dynamics.Observation {
	rng := rand.New(rand.NewSource(seed))
	stimuli := make([]float64, ticks)
	period := onTicks + offTicks
	for i := range stimuli {
		if period > 0 && i%period < onTicks {
			stimuli[i] = 1
		}
	}

	brightness := p.Simulate(stimuli)
	obs := make([]dynamics.Observation, ticks)
	for i := range obs {
		obs[i] = dynamics.Observation{
			Tick:       i,
			Stimulus:   stimuli[i],
			Brightness: brightness[i] + noise*rng.NormFloat64(),
		}
	}
	return obs
}

// writeFitted writes observations alongside the fitted model's prediction.
func writeFitted(path string, obs []dynamics.Observation, p dynamics.Params) error {
	type row struct {
		Tick       int     `csv:"tick"`
		Stimulus   float64 `csv:"stimulus"`
		Brightness float64 `csv:"brightness"`
		Predicted  float64 `csv:"predicted"`
	}

	stimuli := make([]float64, len(obs))
	for i, o := range obs {
		stimuli[i] = o.Stimulus
	}
	pred := p.Simulate(stimuli)

	rows := make([]row, len(obs))
	for i, o := range obs {
		rows[i] = row{Tick: o.Tick, Stimulus: o.Stimulus, Brightness: o.Brightness, Predicted: pred[i]}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}
