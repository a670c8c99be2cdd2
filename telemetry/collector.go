package telemetry

import (
	"math"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/gaze"
)

// Collector accumulates per-tick input within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// ActiveThreshold is the activation counted as a visible phosphene.
	ActiveThreshold float64
	// ShiftThreshold is the gaze displacement between ticks counted as a shift.
	ShiftThreshold float32

	// Current window tracking
	windowStartTick int32

	// Accumulators for current window
	ticks        int
	stimulusSum  float64
	gazeSumX     float64
	gazeSumY     float64
	gazeValid    int
	gazeLost     int
	gazeShifts   int
	lastGaze     gaze.Vec2
	haveLastGaze bool
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// dt is float32, so the quotient lands just below whole tick counts
	ticksPerWindow := int32(math.Round(windowDurationSec / float64(dt)))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		ActiveThreshold:     0.01,
		ShiftThreshold:      0.05,
	}
}

// RecordTick records one tick's mean sampled stimulus and gaze.
func (c *Collector) RecordTick(stimulusMean float64, g gaze.Sample) {
	c.ticks++
	c.stimulusSum += stimulusMean

	if !g.Valid {
		c.gazeLost++
		return
	}
	c.gazeValid++
	c.gazeSumX += float64(g.Center.X)
	c.gazeSumY += float64(g.Center.Y)

	if c.haveLastGaze {
		dx := float64(g.Center.X - c.lastGaze.X)
		dy := float64(g.Center.Y - c.lastGaze.Y)
		if math.Hypot(dx, dy) > float64(c.ShiftThreshold) {
			c.gazeShifts++
		}
	}
	c.lastGaze = g.Center
	c.haveLastGaze = true
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// activation and trace hold the per-eye values of every phosphene at
// currentTick.
func (c *Collector) Flush(
	currentTick int32,
	mode string,
	activation, trace [components.NumEyes][]float64,
) WindowStats {
	left := ComputeActivationStats(activation[components.EyeLeft], c.ActiveThreshold)
	right := ComputeActivationStats(activation[components.EyeRight], c.ActiveThreshold)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),
		Mode:            mode,
		Phosphenes:      len(activation[components.EyeLeft]),

		LeftMean:   left.Mean,
		LeftStd:    left.Std,
		LeftP50:    left.P50,
		LeftP90:    left.P90,
		LeftMax:    left.Max,
		LeftActive: left.Active,
		LeftTrace:  mean(trace[components.EyeLeft]),

		RightMean:   right.Mean,
		RightStd:    right.Std,
		RightP50:    right.P50,
		RightP90:    right.P90,
		RightMax:    right.Max,
		RightActive: right.Active,
		RightTrace:  mean(trace[components.EyeRight]),

		GazeShifts:    c.gazeShifts,
		TicksInWindow: c.ticks,
	}
	if c.ticks > 0 {
		stats.StimulusMean = c.stimulusSum / float64(c.ticks)
		stats.GazeLost = float64(c.gazeLost) / float64(c.ticks)
	}
	if c.gazeValid > 0 {
		stats.GazeX = c.gazeSumX / float64(c.gazeValid)
		stats.GazeY = c.gazeSumY / float64(c.gazeValid)
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.ticks = 0
	c.stimulusSum = 0
	c.gazeSumX = 0
	c.gazeSumY = 0
	c.gazeValid = 0
	c.gazeLost = 0
	c.gazeShifts = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
