package simulator

import (
	"log/slog"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/stimulus"
	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
)

// RunnerOptions configures the telemetry side of a Runner.
type RunnerOptions struct {
	DT              float32
	StatsWindowSec  float64
	PerfWindow      int
	LogStats        bool
	SnapshotDir     string
	TrajectoryCount int // Phosphenes written to trajectory.csv each tick; 0 disables
	Output          *telemetry.OutputManager
	StatsCallback   func(telemetry.WindowStats)
}

// Runner drives a Simulator from a stimulus source and a gaze provider, and
// handles windowed telemetry.
type Runner struct {
	sim    *Simulator
	source stimulus.Source
	gaze   gaze.Provider
	opts   RunnerOptions

	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	perf      *telemetry.PerfCollector

	trajectory []telemetry.TrajectoryRow
	rawGaze    gaze.Sample
	frames     stimulus.Frames
}

// NewRunner wires a runner around sim. If sim was built without a perf
// collector, one is attached so every phase lands in the same sample.
func NewRunner(sim *Simulator, source stimulus.Source, provider gaze.Provider, opts RunnerOptions) *Runner {
	if provider == nil {
		provider = gaze.FixedProvider{}
	}
	perf := sim.perf
	if perf == nil {
		perf = telemetry.NewPerfCollector(opts.PerfWindow)
		sim.perf = perf
	}
	return &Runner{
		sim:       sim,
		source:    source,
		gaze:      provider,
		opts:      opts,
		collector: telemetry.NewCollector(opts.StatsWindowSec, opts.DT),
		bookmarks: telemetry.NewBookmarkDetector(10),
		perf:      perf,
	}
}

// Sim returns the driven simulator.
func (r *Runner) Sim() *Simulator { return r.sim }

// Perf returns the performance collector.
func (r *Runner) Perf() *telemetry.PerfCollector { return r.perf }

// SetSource swaps the stimulus source.
func (r *Runner) SetSource(src stimulus.Source) { r.source = src }

// SetGaze swaps the gaze provider.
func (r *Runner) SetGaze(p gaze.Provider) { r.gaze = p }

// RunID returns the output run id, or "" when output is disabled.
func (r *Runner) RunID() string { return r.opts.Output.RunID() }

// Frames returns the input images of the last step.
func (r *Runner) Frames() stimulus.Frames { return r.frames }

// RawGaze returns the provider output of the last step.
func (r *Runner) RawGaze() gaze.Sample { return r.rawGaze }

// Step runs one simulation tick.
func (r *Runner) Step() {
	r.perf.StartTick()

	r.perf.StartPhase(telemetry.PhasePreprocess)
	now := r.sim.SimTime()
	r.frames = stimulus.Frames{}
	if r.source != nil {
		r.frames = r.source.Frame(now)
	}
	r.rawGaze = r.gaze.Gaze(now)

	r.sim.Tick(r.opts.DT, r.rawGaze, r.frames)

	r.perf.StartPhase(telemetry.PhaseTelemetry)
	r.collector.RecordTick(r.meanStimulus(), r.rawGaze)
	r.writeTrajectory()
	r.flushTelemetry()

	r.perf.EndTick()
}

// Run steps until maxTicks ticks have completed (0 = forever) or stop is closed.
func (r *Runner) Run(maxTicks int, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		r.Step()
		if maxTicks > 0 && int(r.sim.TickCount()) >= maxTicks {
			slog.Info("max ticks reached", "tick", r.sim.TickCount())
			return
		}
	}
}

func (r *Runner) meanStimulus() float64 {
	stim := r.sim.Stimuli()
	if len(stim) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stim {
		for _, v := range s {
			sum += float64(v)
		}
	}
	return sum / float64(len(stim)*int(components.NumEyes))
}

func (r *Runner) writeTrajectory() {
	n := min(r.opts.TrajectoryCount, r.sim.Len())
	if n <= 0 || r.opts.Output == nil {
		return
	}
	tick := r.sim.TickCount()
	stim := r.sim.Stimuli()
	r.trajectory = r.trajectory[:0]
	for i := 0; i < n; i++ {
		act := r.sim.Activity(i)
		r.trajectory = append(r.trajectory, telemetry.TrajectoryRow{
			Tick:            tick,
			Index:           int32(i),
			LeftStimulus:    stim[i][components.EyeLeft],
			LeftActivation:  act.Activation[components.EyeLeft],
			LeftTrace:       act.Trace[components.EyeLeft],
			RightStimulus:   stim[i][components.EyeRight],
			RightActivation: act.Activation[components.EyeRight],
			RightTrace:      act.Trace[components.EyeRight],
		})
	}
	if err := r.opts.Output.WriteTrajectory(r.trajectory); err != nil {
		slog.Error("failed to write trajectory", "error", err)
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (r *Runner) flushTelemetry() {
	tick := r.sim.TickCount()
	if !r.collector.ShouldFlush(tick) {
		return
	}

	activation, trace := r.sim.Samples()
	stats := r.collector.Flush(tick, r.sim.Mode().String(), activation, trace)
	perfStats := r.perf.Stats()

	if r.opts.StatsCallback != nil {
		r.opts.StatsCallback(stats)
	}

	// Log stats if enabled (console output)
	if r.opts.LogStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := r.opts.Output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := r.opts.Output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range r.bookmarks.Check(stats) {
		if r.opts.LogStats {
			bm.LogBookmark()
		}
		if err := r.opts.Output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if r.opts.SnapshotDir != "" {
			r.saveSnapshot(&bm)
		}
	}
}

// SaveSnapshot writes the current phosphene state to the snapshot directory.
func (r *Runner) SaveSnapshot() (string, error) {
	snap := r.sim.Snapshot(r.RunID())
	return telemetry.SaveSnapshot(snap, r.opts.SnapshotDir)
}

func (r *Runner) saveSnapshot(bm *telemetry.Bookmark) {
	snap := r.sim.Snapshot(r.RunID())
	snap.Bookmark = bm
	path, err := telemetry.SaveSnapshot(snap, r.opts.SnapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "bookmark", string(bm.Type))
}
