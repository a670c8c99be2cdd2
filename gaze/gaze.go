// Package gaze supplies per-frame gaze positions in normalized view space:
// providers, an Olsson-style smoothing filter, and the projection from a 3D
// fixation point to per-eye screen coordinates.
package gaze

import (
	"sync"
	"time"
)

// Vec2 is a normalized screen-space point; (0.5, 0.5) is the view center.
type Vec2 struct {
	X, Y float32
}

// CenterVec is the default gaze when tracking is unavailable.
var CenterVec = Vec2{X: 0.5, Y: 0.5}

// Sample is one frame of gaze input. Timestamp is used only for smoothing.
type Sample struct {
	Left      Vec2
	Right     Vec2
	Center    Vec2
	Timestamp time.Duration
	Valid     bool
}

// Eye returns the position for an eye index (0 = left, 1 = right).
func (s Sample) Eye(i int) Vec2 {
	if i == 1 {
		return s.Right
	}
	return s.Left
}

// Centered returns a valid sample with every eye at the view center.
func Centered(ts time.Duration) Sample {
	return Sample{Left: CenterVec, Right: CenterVec, Center: CenterVec, Timestamp: ts, Valid: true}
}

// Provider supplies the gaze for the current frame.
type Provider interface {
	Gaze(ts time.Duration) Sample
}

// FixedProvider always reports the view center.
type FixedProvider struct{}

// Gaze implements Provider.
func (FixedProvider) Gaze(ts time.Duration) Sample { return Centered(ts) }

// ManualProvider reports a position set from another goroutine, such as a
// mouse handler or a test harness.
type ManualProvider struct {
	mu  sync.Mutex
	pos Vec2
	set bool
}

// NewManualProvider creates a provider starting at the view center.
func NewManualProvider() *ManualProvider {
	return &ManualProvider{pos: CenterVec, set: true}
}

// Set moves the gaze for both eyes.
func (m *ManualProvider) Set(p Vec2) {
	m.mu.Lock()
	m.pos = p
	m.set = true
	m.mu.Unlock()
}

// Lose marks tracking as unavailable until the next Set.
func (m *ManualProvider) Lose() {
	m.mu.Lock()
	m.set = false
	m.mu.Unlock()
}

// Gaze implements Provider.
func (m *ManualProvider) Gaze(ts time.Duration) Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return Sample{Timestamp: ts}
	}
	return Sample{Left: m.pos, Right: m.pos, Center: m.pos, Timestamp: ts, Valid: true}
}

// OrCenter returns s, or a centered sample when s is invalid.
func OrCenter(s Sample) Sample {
	if s.Valid {
		return s
	}
	return Centered(s.Timestamp)
}
