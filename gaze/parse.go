package gaze

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse builds a provider from a command-line description:
//
//	center
//	point:X:Y                 fixed screen position for both eyes
//	fixation:X:Y:Z            fixed 3D point in meters, projected per eye
//	orbit:RADIUS:PERIOD[:Z]   fixation circling the view axis, e.g. orbit:0.2:4s
func Parse(desc string, cam Camera) (Provider, error) {
	parts := strings.Split(desc, ":")
	switch parts[0] {
	case "", "center":
		return FixedProvider{}, nil

	case "point":
		v, err := floatArgs(parts, 2)
		if err != nil {
			return nil, err
		}
		m := NewManualProvider()
		m.Set(Vec2{X: float32(v[0]), Y: float32(v[1])})
		return m, nil

	case "fixation":
		v, err := floatArgs(parts, 3)
		if err != nil {
			return nil, err
		}
		p := Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}
		return FixationProvider{
			Camera:   cam,
			Fixation: func(time.Duration) (Vec3, bool) { return p, true },
		}, nil

	case "orbit":
		if len(parts) < 3 {
			return nil, fmt.Errorf("orbit needs RADIUS:PERIOD, got %q", desc)
		}
		radius, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("orbit radius: %w", err)
		}
		period, err := time.ParseDuration(parts[2])
		if err != nil || period <= 0 {
			return nil, fmt.Errorf("orbit period %q must be a positive duration", parts[2])
		}
		z := 1.0
		if len(parts) > 3 {
			if z, err = strconv.ParseFloat(parts[3], 64); err != nil {
				return nil, fmt.Errorf("orbit depth: %w", err)
			}
		}
		return FixationProvider{
			Camera: cam,
			Fixation: func(ts time.Duration) (Vec3, bool) {
				phase := 2 * math.Pi * float64(ts%period) / float64(period)
				return Vec3{
					X: float32(radius * math.Cos(phase)),
					Y: float32(radius * math.Sin(phase)),
					Z: float32(z),
				}, true
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown gaze source %q", desc)
}

// floatArgs parses exactly n numeric arguments after the keyword.
func floatArgs(parts []string, n int) ([]float64, error) {
	if len(parts) != n+1 {
		return nil, fmt.Errorf("%s needs %d arguments, got %d", parts[0], n, len(parts)-1)
	}
	out := make([]float64, n)
	for i := range out {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %s argument %d: %w", parts[0], i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
