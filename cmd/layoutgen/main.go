// Layout generator - writes a phosphene layout record and a preview render.
//
// Usage: go run ./cmd/layoutgen --output layouts/ [--count 1000 --seed 7]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/render"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	count := flag.Int("count", 0, "Number of phosphenes (0 = use config)")
	maxEcc := flag.Float64("max-ecc", 0, "Max eccentricity as a fraction of the field of view (0 = use config)")
	model := flag.String("model", "", "Magnification model: monopole or dipole (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config)")
	seedPhrase := flag.String("seed-phrase", "", "String hashed into the seed, overrides --seed")
	outputDir := flag.String("output", ".", "Output directory")
	preview := flag.Bool("preview", true, "Also render preview.png with every phosphene lit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	lc := cfg.Layout
	lc.File = ""
	if *count > 0 {
		lc.Count = *count
	}
	if *maxEcc > 0 {
		lc.MaxEccentricityFraction = *maxEcc
	}
	if *model != "" {
		lc.Model = *model
	}
	if *seed != 0 {
		if phrase := layout.SetSeed(&lc, *seed); phrase != "" {
			slog.Warn("--seed overrides layout.seed_phrase", "seed", *seed, "seed_phrase", phrase)
		}
	}
	if *seedPhrase != "" {
		lc.SeedPhrase = *seedPhrase
	}

	l, err := layout.Generate(lc, logger)
	if err != nil {
		slog.Error("failed to generate layout", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	jsonPath := filepath.Join(*outputDir, "layout.json")
	if err := l.Save(jsonPath); err != nil {
		slog.Error("failed to save layout", "error", err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, "layout.csv")
	if err := writeCSV(l, csvPath); err != nil {
		slog.Error("failed to write layout csv", "error", err)
		os.Exit(1)
	}

	cm, err := cortex.ParseModel(lc.Model)
	if err != nil {
		slog.Error("invalid model", "error", err)
		os.Exit(1)
	}
	s := summarize(l, cm)
	slog.Info("layout written",
		"path", jsonPath,
		"phosphenes", l.Len(),
		"seed", layout.Seed(lc),
		"ecc_mean", s.EccMean,
		"ecc_max", s.EccMax,
		"size_min", s.SizeMin,
		"size_max", s.SizeMax,
		"central_fraction", s.CentralFraction,
		"cortex_extent_mm", s.CorticalExtent,
		"cortex_mean_mm", s.CorticalMean,
		"phosphenes_per_mm", s.CorticalDensity,
	)

	if *preview {
		r := render.NewFromConfig(cfg)
		r.Render(allOn(l))
		pngPath := filepath.Join(*outputDir, "preview.png")
		if err := r.WritePNG(pngPath); err != nil {
			slog.Error("failed to write preview", "error", err)
			os.Exit(1)
		}
		fmt.Println(pngPath)
	}
}

func writeCSV(l *layout.Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return l.WriteCSV(f)
}
