package simulator

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
	"github.com/neuralcodinglab/SPVGaze-sub000/stimulus"
	"github.com/neuralcodinglab/SPVGaze-sub000/telemetry"
)

func init() {
	config.MustInit("")
}

// gradient reads u at every point.
type gradient struct{}

func (gradient) Bilinear(u, _ float32) float32 { return u }

func testLayout(t testing.TB, n int) *layout.Layout {
	t.Helper()
	l, err := layout.GenerateProbabilistic(layout.DefaultOptions(n, 0.15, cortex.Monopole), rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("generating layout: %v", err)
	}
	return l
}

func singleLayout(t *testing.T, sizeDeg float64) *layout.Layout {
	t.Helper()
	l, err := layout.FromRecord(layout.Record{
		Eccentricities: []float64{0},
		AzimuthAngles:  []float64{0},
		Sizes:          []float64{sizeDeg},
	}, layout.DefaultTotalFOV)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func newSim(t testing.TB, l *layout.Layout, mode config.Mode, renderOn bool) *Simulator {
	t.Helper()
	cfg := config.Default()
	cfg.Render.Resolution = 64
	s, err := New(cfg, l, Options{Render: renderOn})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.SetMode(mode)
	t.Cleanup(s.Close)
	return s
}

func uniform(v float32) [components.NumEyes]sampler.Image {
	return stimulus.Constant{Level: v}.Frame(0)
}

func TestTickMatchesRecurrence(t *testing.T) {
	s := newSim(t, testLayout(t, 50), config.ModeGazeIgnored, false)
	p := s.Params()

	var want components.Activity
	for _, stim := range []float32{1, 1, 0, 0.5} {
		s.Tick(1.0/60, gaze.Centered(0), uniform(stim))
		want = p.Step(want, [components.NumEyes]float32{stim, stim})
	}

	for i := 0; i < s.Len(); i++ {
		if got := s.Activity(i); got != want {
			t.Fatalf("phosphene %d: got %+v, want %+v", i, got, want)
		}
	}
	in := s.Intensities()
	if in[components.EyeLeft][7] != want.Activation[0] || in[components.EyeRight][7] != want.Activation[1] {
		t.Error("intensities do not match activity")
	}
	if s.TickCount() != 4 {
		t.Errorf("expected 4 ticks, got %d", s.TickCount())
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	l := testLayout(t, 1000)
	serial := newSim(t, l, config.ModeGazeAssisted, false)
	serial.parallel.numWorkers = 1
	par := newSim(t, l, config.ModeGazeAssisted, false)
	par.parallel.numWorkers = 4

	noise := stimulus.NewDriftingNoise(5, 6, 1)
	g := gaze.Sample{Left: gaze.Vec2{X: 0.55, Y: 0.45}, Right: gaze.Vec2{X: 0.52, Y: 0.45}, Valid: true}
	for tick := 0; tick < 20; tick++ {
		frames := noise.Frame(time.Duration(tick) * 16 * time.Millisecond)
		serial.Tick(1.0/60, g, frames)
		par.Tick(1.0/60, g, frames)
	}

	for i := 0; i < l.Len(); i++ {
		if serial.Activity(i) != par.Activity(i) {
			t.Fatalf("phosphene %d differs: %+v vs %+v", i, serial.Activity(i), par.Activity(i))
		}
	}
}

func TestGazeAssistedSamplesShifted(t *testing.T) {
	l := testLayout(t, 300)
	s := newSim(t, l, config.ModeGazeAssisted, false)

	g := gaze.Sample{Left: gaze.Vec2{X: 1, Y: 0.5}, Right: gaze.Vec2{X: 1, Y: 0.5}, Valid: true}
	s.Tick(1.0/60, g, [components.NumEyes]sampler.Image{gradient{}, gradient{}})

	stim := s.Stimuli()
	var zeros, inside int
	for i, p := range l.Phosphenes {
		x := float32(p.X)
		switch {
		case x > 0.5+1e-6:
			if stim[i][0] != 0 {
				t.Fatalf("phosphene %d at x=%v sampled outside the image, want 0, got %v", i, x, stim[i][0])
			}
			zeros++
		case x < 0.5-1e-6:
			if math.Abs(float64(stim[i][0]-(x+0.5))) > 1e-5 {
				t.Fatalf("phosphene %d: stimulus %v, want %v", i, stim[i][0], x+0.5)
			}
			inside++
		}
	}
	if zeros == 0 || inside == 0 {
		t.Errorf("expected phosphenes on both sides, got %d out / %d in", zeros, inside)
	}
}

func TestGazeLockedSamplesNominal(t *testing.T) {
	l := testLayout(t, 100)
	s := newSim(t, l, config.ModeGazeLocked, false)

	g := gaze.Sample{Left: gaze.Vec2{X: 0.9, Y: 0.1}, Right: gaze.Vec2{X: 0.9, Y: 0.1}, Valid: true}
	s.Tick(1.0/60, g, [components.NumEyes]sampler.Image{gradient{}, gradient{}})

	for i, p := range l.Phosphenes {
		if got := s.Stimuli()[i][1]; got != float32(p.X) {
			t.Fatalf("phosphene %d: stimulus %v, want nominal %v", i, got, float32(p.X))
		}
	}
}

func peakColumn(g *sampler.Grid) int {
	best, col := float32(-1), -1
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			if v := g.At(x, y); v > best {
				best, col = v, x
			}
		}
	}
	return col
}

func TestRenderFollowsGaze(t *testing.T) {
	g := gaze.Sample{Left: gaze.Vec2{X: 0.75, Y: 0.5}, Right: gaze.Vec2{X: 0.75, Y: 0.5}, Valid: true}

	tests := []struct {
		mode config.Mode
		want float64 // Expected peak column center
	}{
		{config.ModeGazeIgnored, 31.5},
		{config.ModeGazeLocked, 47.5},
		{config.ModeGazeAssisted, 47.5},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			s := newSim(t, singleLayout(t, 12), tt.mode, true)
			s.Tick(1.0/60, g, uniform(1))
			out := s.Output(components.EyeLeft)
			if out == nil {
				t.Fatal("expected rendered output")
			}
			if col := peakColumn(out); math.Abs(float64(col)-tt.want) > 1 {
				t.Errorf("peak at column %d, want ~%v", col, tt.want)
			}
		})
	}
}

func TestInvalidGazeUsesCenter(t *testing.T) {
	l := testLayout(t, 40)
	a := newSim(t, l, config.ModeGazeAssisted, false)
	b := newSim(t, l, config.ModeGazeAssisted, false)

	img := [components.NumEyes]sampler.Image{gradient{}, gradient{}}
	a.Tick(1.0/60, gaze.Sample{Left: gaze.Vec2{X: 0.9, Y: 0.9}}, img)
	b.Tick(1.0/60, gaze.Centered(0), img)
	for i := 0; i < l.Len(); i++ {
		if a.Activity(i) != b.Activity(i) {
			t.Fatalf("phosphene %d: invalid gaze should behave like center", i)
		}
	}
}

func TestNilInputIsZeroStimulus(t *testing.T) {
	s := newSim(t, testLayout(t, 10), config.ModeGazeIgnored, false)
	s.Tick(1.0/60, gaze.Centered(0), [components.NumEyes]sampler.Image{})
	for i := 0; i < s.Len(); i++ {
		if s.Activity(i) != (components.Activity{}) {
			t.Fatalf("phosphene %d should stay dark", i)
		}
	}
}

func TestSinkReceivesIntensities(t *testing.T) {
	s := newSim(t, testLayout(t, 20), config.ModeGazeIgnored, false)

	var calls int
	var lastTick int32
	var lastLen int
	s.AddSink(SinkFunc(func(tick int32, in [components.NumEyes][]float32) {
		calls++
		lastTick = tick
		lastLen = len(in[components.EyeRight])
	}))

	s.Tick(1.0/60, gaze.Centered(0), uniform(1))
	s.Tick(1.0/60, gaze.Centered(0), uniform(1))
	if calls != 2 || lastTick != 2 || lastLen != 20 {
		t.Errorf("sink calls=%d tick=%d len=%d", calls, lastTick, lastLen)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Temporal.IntensityDecay = 1.5
	if _, err := New(cfg, testLayout(t, 5), Options{}); err == nil {
		t.Error("expected error for intensity decay >= 1")
	}
	if _, err := New(config.Default(), nil, Options{}); !errors.Is(err, layout.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for nil layout, got %v", err)
	}
}

func TestSetParamsKeepsOldOnError(t *testing.T) {
	s := newSim(t, testLayout(t, 5), config.ModeGazeIgnored, false)
	old := s.Params()
	bad := old
	bad.TraceDecay = 0
	if err := s.SetParams(bad); err == nil {
		t.Error("expected validation error")
	}
	if s.Params() != old {
		t.Error("params changed despite error")
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := testLayout(t, 30)
	a := newSim(t, l, config.ModeGazeIgnored, false)
	for i := 0; i < 5; i++ {
		a.Tick(1.0/60, gaze.Centered(0), uniform(0.8))
	}

	path, err := telemetry.SaveSnapshot(a.Snapshot("run"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}

	b := newSim(t, l, config.ModeGazeIgnored, false)
	if err := b.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if b.TickCount() != 5 {
		t.Errorf("tick = %d, want 5", b.TickCount())
	}

	// Both continue identically
	a.Tick(1.0/60, gaze.Centered(0), uniform(0.3))
	b.Tick(1.0/60, gaze.Centered(0), uniform(0.3))
	for i := 0; i < l.Len(); i++ {
		if a.Activity(i) != b.Activity(i) {
			t.Fatalf("phosphene %d diverged after restore", i)
		}
	}

	other := newSim(t, testLayout(t, 10), config.ModeGazeIgnored, false)
	if err := other.Restore(snap); !errors.Is(err, layout.ErrInvalidConfiguration) {
		t.Errorf("expected mismatch error, got %v", err)
	}
}

func TestReset(t *testing.T) {
	s := newSim(t, testLayout(t, 10), config.ModeGazeIgnored, false)
	s.Tick(1.0/60, gaze.Centered(0), uniform(1))
	s.Reset()
	act, trace := s.Samples()
	for e := range act {
		for i := range act[e] {
			if act[e][i] != 0 || trace[e][i] != 0 {
				t.Fatal("expected zero state after reset")
			}
		}
	}
}

func TestRunnerWritesTelemetry(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	s := newSim(t, testLayout(t, 50), config.ModeGazeAssisted, false)
	var windows []telemetry.WindowStats
	r := NewRunner(s, stimulus.Flash{Level: 1, Period: time.Second, Duty: 0.5}, gaze.FixedProvider{}, RunnerOptions{
		DT:              0.1,
		StatsWindowSec:  0.5,
		PerfWindow:      10,
		TrajectoryCount: 3,
		Output:          om,
		SnapshotDir:     filepath.Join(dir, "snapshots"),
		StatsCallback:   func(ws telemetry.WindowStats) { windows = append(windows, ws) },
	})
	r.Run(20, nil)
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	if s.TickCount() != 20 {
		t.Errorf("expected 20 ticks, got %d", s.TickCount())
	}
	if len(windows) != 4 {
		t.Fatalf("expected 4 stats windows, got %d", len(windows))
	}
	if windows[0].StimulusMean <= windows[1].StimulusMean {
		t.Errorf("flash on window should have more stimulus than off window: %v vs %v",
			windows[0].StimulusMean, windows[1].StimulusMean)
	}
	if windows[0].LeftMean <= 0 {
		t.Error("expected activation during the flash")
	}
	for _, name := range []string{"telemetry.csv", "perf.csv", "trajectory.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.Size() == 0 {
			t.Errorf("expected non-empty %s", name)
		}
	}
	if r.Perf().Stats().AvgTickDuration <= 0 {
		t.Error("expected perf samples")
	}
}

func TestRunnerSwapsSourceAndGaze(t *testing.T) {
	s := newSim(t, testLayout(t, 30), config.ModeGazeAssisted, false)
	r := NewRunner(s, stimulus.Constant{Level: 0}, gaze.FixedProvider{}, RunnerOptions{DT: 0.1, StatsWindowSec: 1})

	r.Step()
	for i, st := range s.Stimuli() {
		if st[components.EyeLeft] != 0 {
			t.Fatalf("phosphene %d sampled %v from a dark source", i, st[components.EyeLeft])
		}
	}

	r.SetSource(stimulus.Constant{Level: 0.6})
	mouse := gaze.NewManualProvider()
	mouse.Set(gaze.Vec2{X: 0.3, Y: 0.7})
	r.SetGaze(mouse)
	r.Step()

	if g := r.RawGaze(); !g.Valid || g.Center.X != 0.3 || g.Center.Y != 0.7 {
		t.Errorf("expected gaze from the new provider, got %+v", g)
	}
	lit := 0
	for _, st := range s.Stimuli() {
		if st[components.EyeLeft] == 0.6 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("expected phosphenes to sample the new source")
	}
}

func BenchmarkTick(b *testing.B) {
	l := testLayout(b, 1000)
	s := newSim(b, l, config.ModeGazeAssisted, false)
	frames := stimulus.NewDriftingNoise(1, 4, 1).Frame(0)
	g := gaze.Centered(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Tick(1.0/60, g, frames)
	}
}

func BenchmarkTickWithRender(b *testing.B) {
	l := testLayout(b, 1000)
	s := newSim(b, l, config.ModeGazeAssisted, true)
	frames := stimulus.NewDriftingNoise(1, 4, 1).Frame(0)
	g := gaze.Centered(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Tick(1.0/60, g, frames)
	}
}

func TestNearestMatchesLinearScan(t *testing.T) {
	l := testLayout(t, 300)
	s := newSim(t, l, config.ModeGazeIgnored, false)

	if got := s.Nearest(float32(l.Phosphenes[17].X), float32(l.Phosphenes[17].Y), 0.01); got != 17 {
		t.Errorf("expected phosphene 17 at its own center, got %d", got)
	}
	if got := s.Nearest(-0.5, -0.5, 0.01); got != -1 {
		t.Errorf("expected no phosphene outside the view, got %d", got)
	}

	rng := rand.New(rand.NewSource(3))
	const radius = 0.05
	for i := 0; i < 200; i++ {
		u, v := rng.Float32(), rng.Float32()
		want, wantD := -1, float32(radius*radius)
		for j, p := range l.Phosphenes {
			dx, dy := float32(p.X)-u, float32(p.Y)-v
			if d := dx*dx + dy*dy; d <= wantD {
				want, wantD = j, d
			}
		}
		got := s.Nearest(u, v, radius)
		if want == -1 {
			if got != -1 {
				t.Fatalf("query (%v, %v): expected none, got %d", u, v, got)
			}
			continue
		}
		if got == -1 {
			t.Fatalf("query (%v, %v): expected %d, got none", u, v, want)
		}
		p := l.Phosphenes[got]
		dx, dy := float32(p.X)-u, float32(p.Y)-v
		if d := dx*dx + dy*dy; d > wantD+1e-7 {
			t.Fatalf("query (%v, %v): got %d at %v, nearest is %d at %v", u, v, got, d, want, wantD)
		}
	}
}

func TestSpatialGridClampsOutOfRange(t *testing.T) {
	g := NewSpatialGrid(0.1)
	if g.cellIndex(-1, -1) != 0 {
		t.Error("negative positions should land in the first cell")
	}
	if g.cellIndex(5, 5) != len(g.cells)-1 {
		t.Error("positions past the edge should land in the last cell")
	}
}
