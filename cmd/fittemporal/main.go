// Package main fits the four temporal constants to a brightness recording
// with Nelder-Mead and writes the result as a config file.
//
// Usage: go run ./cmd/fittemporal --observations obs.csv --output out/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/dynamics"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	d -= m * time.Minute
	s := d.Seconds()
	if m > 0 {
		return fmt.Sprintf("%dm%06.3fs", m, s)
	}
	return fmt.Sprintf("%.3fs", s)
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	obsPath := flag.String("observations", "", "CSV with tick,stimulus,brightness columns")
	synth := flag.Int("synth", 0, "Generate N ticks of flash-train observations from the base config instead")
	onTicks := flag.Int("on", 30, "Flash on ticks for --synth")
	offTicks := flag.Int("off", 30, "Flash off ticks for --synth")
	noise := flag.Float64("noise", 0, "Brightness noise stddev for --synth")
	seed := flag.Int64("seed", 1, "Noise seed for --synth")
	maxEvals := flag.Int("max-evals", 2000, "Maximum number of evaluations")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if (*obsPath == "") == (*synth == 0) {
		log.Fatal("exactly one of --observations or --synth is required")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	base := dynamics.ParamsFromConfig(baseCfg.Temporal)

	var obs []dynamics.Observation
	if *synth > 0 {
		obs = synthesize(base, *synth, *onTicks, *offTicks, *noise, *seed)
		fmt.Printf("Synthesized %d ticks from base config (noise=%.3f)\n", len(obs), *noise)
		// Start the search away from the truth
		base = dynamics.Params{IntensityDecay: 0.5, InputEffect: 1, TraceDecay: 0.5, TraceIncrease: 0.5, ReferenceDT: base.ReferenceDT}
	} else {
		var err error
		obs, err = loadObservations(*obsPath)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Loaded %d observations from %s\n", len(obs), *obsPath)
	}

	fmt.Printf("Starting Nelder-Mead fit of %d parameters, max_evals=%d, initial MSE=%.6f\n",
		len(dynamics.FitSpecs), *maxEvals, base.MSE(obs))

	startTime := time.Now()
	result, err := dynamics.Fit(obs, base, *maxEvals)
	if err != nil {
		log.Fatalf("fit failed: %v", err)
	}

	fmt.Printf("\nFit complete after %d evaluations in %s (status: %v)\n",
		result.Evaluations, formatDuration(time.Since(startTime)), result.Status)
	fmt.Printf("Best MSE: %.6f\n", result.MSE)

	fmt.Println("\nBest parameters:")
	vec := result.Params.Vector()
	for i, spec := range dynamics.FitSpecs {
		fmt.Printf("  %s: %.6f\n", spec.Name, vec[i])
	}

	if err := result.Params.Validate(); err != nil {
		log.Printf("warning: fitted params do not validate: %v", err)
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	bestCfg.Temporal = result.Params.ToConfig()

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	fitPath := filepath.Join(*outputDir, "fit.csv")
	if err := writeFitted(fitPath, obs, result.Params); err != nil {
		log.Printf("failed to write fit: %v", err)
	} else {
		fmt.Printf("Observed vs predicted saved to: %s\n", fitPath)
	}
}
