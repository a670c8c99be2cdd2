package gaze

import (
	"math"
	"time"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
)

// Vec3 is a point in head space, meters: x right, y up, z forward.
type Vec3 struct {
	X, Y, Z float32
}

// Camera describes the per-eye pinhole projection of the headset.
type Camera struct {
	FOV float32 // Full field of view in degrees, square viewport
	IPD float32 // Interpupillary distance in meters
}

// CameraFromConfig converts the gaze config section.
func CameraFromConfig(cfg config.GazeConfig) Camera {
	return Camera{FOV: float32(cfg.FOV), IPD: float32(cfg.IPD)}
}

// ViewportPoint projects p for an eye displaced eyeX meters along x.
// v grows downward to match image rows. The result is clamped to [0,1]²;
// ok is false for points behind the eye.
func (c Camera) ViewportPoint(p Vec3, eyeX float32) (pos Vec2, ok bool) {
	dz := p.Z
	if dz <= 0 {
		return CenterVec, false
	}
	halfTan := float32(math.Tan(float64(c.FOV) * math.Pi / 360))
	if halfTan <= 0 {
		return CenterVec, false
	}
	u := 0.5 + 0.5*((p.X-eyeX)/dz)/halfTan
	v := 0.5 - 0.5*(p.Y/dz)/halfTan
	return Vec2{X: clamp01(u), Y: clamp01(v)}, true
}

// Project converts a 3D fixation point into a per-eye gaze sample.
func (c Camera) Project(fixation Vec3, ts time.Duration) Sample {
	half := c.IPD / 2
	left, okL := c.ViewportPoint(fixation, -half)
	right, okR := c.ViewportPoint(fixation, half)
	center, okC := c.ViewportPoint(fixation, 0)
	return Sample{
		Left:      left,
		Right:     right,
		Center:    center,
		Timestamp: ts,
		Valid:     okL && okR && okC,
	}
}

// FixationProvider reports the projection of a fixation point supplied by
// fn, typically an eye tracker's combined gaze ray hit.
type FixationProvider struct {
	Camera   Camera
	Fixation func(ts time.Duration) (Vec3, bool)
}

// Gaze implements Provider.
func (f FixationProvider) Gaze(ts time.Duration) Sample {
	p, ok := f.Fixation(ts)
	if !ok {
		return Sample{Timestamp: ts}
	}
	return f.Camera.Project(p, ts)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
