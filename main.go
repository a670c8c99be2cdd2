package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/preprocess"
	"github.com/neuralcodinglab/SPVGaze-sub000/simulator"
	"github.com/neuralcodinglab/SPVGaze-sub000/stimulus"
	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
	"github.com/neuralcodinglab/SPVGaze-sub000/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Layout seed (0 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	layoutPath := flag.String("layout", "", "Layout JSON file (overrides config)")
	mode := flag.String("mode", "", "gaze_ignored, gaze_locked or gaze_assisted (empty = use config)")
	input := flag.String("input", "noise", "Input: constant:L, flash:L:PERIOD[:DUTY], noise[:SCALE[:SPEED]] or an image glob")
	frameDuration := flag.Duration("frame-duration", 100*time.Millisecond, "Display time per image for image sequences")
	gazeSource := flag.String("gaze", "center", "Headless gaze: center, point:X:Y, fixation:X:Y:Z or orbit:R:PERIOD[:Z]")
	renderHeadless := flag.Bool("render", false, "Run the spread renderer in headless mode and save the final frame")
	resume := flag.String("resume", "", "Snapshot JSON to restore phosphene state from")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *layoutPath != "" {
		cfg.Layout.File = *layoutPath
	}
	if *seed != 0 {
		if phrase := layout.SetSeed(&cfg.Layout, *seed); phrase != "" {
			slog.Warn("--seed overrides layout.seed_phrase", "seed", *seed, "seed_phrase", phrase)
		}
	}
	if *mode != "" {
		m, err := config.ParseMode(*mode)
		if err != nil {
			slog.Error("invalid mode", "error", err)
			os.Exit(1)
		}
		cfg.Simulation.Mode = m.String()
		cfg.Derived.Mode = m
	}

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	l, err := layout.Generate(cfg.Layout, logger)
	if err != nil {
		slog.Error("failed to build layout", "error", err)
		os.Exit(1)
	}

	popts, err := preprocess.OptionsFromConfig(cfg)
	if err != nil {
		slog.Error("invalid preprocess config", "error", err)
		os.Exit(1)
	}
	pipeline, err := preprocess.New(popts)
	if err != nil {
		slog.Error("invalid preprocess config", "error", err)
		os.Exit(1)
	}
	source, err := stimulus.Parse(*input, pipeline, layout.Seed(cfg.Layout), *frameDuration)
	if err != nil {
		slog.Error("failed to open input", "input", *input, "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}
	if err := om.WriteLayout(l); err != nil {
		slog.Error("failed to write layout", "error", err)
	}
	if err := om.WriteRunInfo(telemetry.RunInfo{
		Started:    time.Now().UTC(),
		Seed:       layout.Seed(cfg.Layout),
		Phosphenes: l.Len(),
		Mode:       cfg.Derived.Mode.String(),
		Input:      *input,
	}); err != nil {
		slog.Error("failed to write run info", "error", err)
	}

	sim, err := simulator.New(cfg, l, simulator.Options{
		Render: !*headless || *renderHeadless,
		Logger: logger,
	})
	if err != nil {
		slog.Error("failed to create simulator", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	if *resume != "" {
		snap, err := telemetry.LoadSnapshot(*resume)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		if err := sim.Restore(snap); err != nil {
			slog.Error("failed to restore snapshot", "error", err)
			os.Exit(1)
		}
	}

	// The viewer installs its own smoothing over the mouse so it can be toggled
	var provider gaze.Provider
	var mouse *gaze.ManualProvider
	if *headless {
		provider, err = gaze.Parse(*gazeSource, gaze.CameraFromConfig(cfg.Gaze))
		if err != nil {
			slog.Error("invalid gaze source", "error", err)
			os.Exit(1)
		}
		if cfg.Gaze.Smoothing {
			provider = gaze.NewSmoother(provider, gaze.SmootherParamsFromConfig(cfg.Gaze))
		}
	} else {
		mouse = gaze.NewManualProvider()
		provider = mouse
	}

	runner := simulator.NewRunner(sim, source, provider, simulator.RunnerOptions{
		DT:              cfg.Derived.DT32,
		StatsWindowSec:  statsWindowSec,
		PerfWindow:      cfg.Telemetry.PerfCollectorWindow,
		LogStats:        *logStats,
		SnapshotDir:     *snapshotDir,
		TrajectoryCount: cfg.Telemetry.TrajectoryPhosphenes,
		Output:          om,
	})

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		slog.Info("starting headless simulation",
			"run_id", om.RunID(),
			"input", *input,
			"gaze", *gazeSource,
			"stats_window", statsWindowSec,
			"max_ticks", *maxTicks,
		)

		stop := make(chan struct{})
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			close(stop)
		}()

		runner.Run(*maxTicks, stop)

		if *renderHeadless && om != nil {
			for e := components.Eye(0); e < components.NumEyes; e++ {
				path := filepath.Join(om.Dir(), "final_"+e.String()+".png")
				if err := sim.Renderer(e).WritePNG(path); err != nil {
					slog.Error("failed to write final render", "error", err)
				}
			}
		}
		if *snapshotDir != "" {
			if path, err := runner.SaveSnapshot(); err != nil {
				slog.Error("failed to save final snapshot", "error", err)
			} else {
				slog.Info("final snapshot saved", "path", path)
			}
		}
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Phosphene Simulator")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := viewer.New(runner, mouse, cfg, viewer.Options{
		Title:       "Phosphene Simulator",
		Sources:     viewerSources(*input, source, pipeline, layout.Seed(cfg.Layout)),
		SnapshotDir: *snapshotDir,
		ImageDir:    *outputDir,
	})
	defer v.Unload()

	v.Run(*maxTicks)
}

// viewerSources lists the inputs the viewer cycles through: the one given on
// the command line first, then the built-in generators it does not already use.
func viewerSources(input string, src stimulus.Source, p *preprocess.Pipeline, seed int64) []viewer.NamedSource {
	sources := []viewer.NamedSource{{Name: input, Source: src}}
	kind, _, _ := strings.Cut(input, ":")
	for _, desc := range []string{"noise", "flash:1:1s:0.5", "constant:0.5"} {
		if k, _, _ := strings.Cut(desc, ":"); k == kind {
			continue
		}
		s, err := stimulus.Parse(desc, p, seed, 0)
		if err != nil {
			slog.Error("invalid built-in input", "input", desc, "error", err)
			continue
		}
		sources = append(sources, viewer.NamedSource{Name: desc, Source: s})
	}
	return sources
}
