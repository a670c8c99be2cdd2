package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`
	Mode            string  `csv:"mode"`
	Phosphenes      int     `csv:"phosphenes"`

	// Activation distribution per eye (sampled at window end)
	LeftMean   float64 `csv:"left_mean"`
	LeftStd    float64 `csv:"left_std"`
	LeftP50    float64 `csv:"left_p50"`
	LeftP90    float64 `csv:"left_p90"`
	LeftMax    float64 `csv:"left_max"`
	LeftActive int     `csv:"left_active"`
	LeftTrace  float64 `csv:"left_trace"`

	RightMean   float64 `csv:"right_mean"`
	RightStd    float64 `csv:"right_std"`
	RightP50    float64 `csv:"right_p50"`
	RightP90    float64 `csv:"right_p90"`
	RightMax    float64 `csv:"right_max"`
	RightActive int     `csv:"right_active"`
	RightTrace  float64 `csv:"right_trace"`

	// Input over the window
	StimulusMean float64 `csv:"stimulus_mean"`

	// Gaze over the window
	GazeX         float64 `csv:"gaze_x"`
	GazeY         float64 `csv:"gaze_y"`
	GazeLost      float64 `csv:"gaze_lost"` // Fraction of ticks without a valid sample
	GazeShifts    int     `csv:"gaze_shifts"`
	TicksInWindow int     `csv:"ticks"`
}

// ActivationStats summarizes one eye's activation values.
type ActivationStats struct {
	Mean, Std, P50, P90, Max float64
	Active                   int // Values at or above the active threshold
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeActivationStats summarizes values. Std is the sample standard
// deviation; it is zero for fewer than two values.
func ComputeActivationStats(values []float64, activeThreshold float64) ActivationStats {
	n := len(values)
	if n == 0 {
		return ActivationStats{}
	}

	var s ActivationStats
	if n == 1 {
		s.Mean = values[0]
	} else {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	}
	s.Max = floats.Max(values)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)

	// sorted is ascending, so the active values are a suffix
	s.Active = n - sort.SearchFloat64s(sorted, activeThreshold)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("mode", s.Mode),
		slog.Int("phosphenes", s.Phosphenes),
		slog.Float64("left_mean", s.LeftMean),
		slog.Float64("left_std", s.LeftStd),
		slog.Float64("left_p50", s.LeftP50),
		slog.Float64("left_p90", s.LeftP90),
		slog.Float64("left_max", s.LeftMax),
		slog.Int("left_active", s.LeftActive),
		slog.Float64("left_trace", s.LeftTrace),
		slog.Float64("right_mean", s.RightMean),
		slog.Float64("right_std", s.RightStd),
		slog.Float64("right_p50", s.RightP50),
		slog.Float64("right_p90", s.RightP90),
		slog.Float64("right_max", s.RightMax),
		slog.Int("right_active", s.RightActive),
		slog.Float64("right_trace", s.RightTrace),
		slog.Float64("stimulus_mean", s.StimulusMean),
		slog.Float64("gaze_x", s.GazeX),
		slog.Float64("gaze_y", s.GazeY),
		slog.Float64("gaze_lost", s.GazeLost),
		slog.Int("gaze_shifts", s.GazeShifts),
		slog.Int("ticks", s.TicksInWindow),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"mode", s.Mode,
		"left_mean", s.LeftMean,
		"left_p90", s.LeftP90,
		"left_active", s.LeftActive,
		"right_mean", s.RightMean,
		"right_p90", s.RightP90,
		"right_active", s.RightActive,
		"stimulus_mean", s.StimulusMean,
		"gaze_x", s.GazeX,
		"gaze_y", s.GazeY,
		"gaze_lost", s.GazeLost,
		"gaze_shifts", s.GazeShifts,
	)
}
