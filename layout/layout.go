// Package layout places phosphenes across the visual field, either from a
// layout file or by sampling eccentricities in proportion to cortical
// magnification.
package layout

import (
	"fmt"
	"math"
)

// DefaultTotalFOV is the canonical field of view in degrees.
const DefaultTotalFOV = 120.0

// Phosphene is one simulated light-percept unit. Position and Size are in
// normalized screen units; they never change after generation.
type Phosphene struct {
	X, Y         float64
	Size         float64
	Eccentricity float64 // Degrees of visual angle
	Azimuth      float64 // Radians
}

// Layout is a phosphene population plus the record it was built from.
type Layout struct {
	Record     Record
	Phosphenes []Phosphene
	TotalFOV   float64
}

// Len returns the number of phosphenes.
func (l *Layout) Len() int { return len(l.Phosphenes) }

// Position maps an (eccentricity, azimuth) pair to normalized screen space.
// Eccentricity 0 maps to (0.5, 0.5).
func Position(ecc, azimuth, totalFOV float64) (x, y float64) {
	half := totalFOV / 2
	x = (ecc/2*math.Cos(azimuth) + half) / totalFOV
	y = (ecc/2*math.Sin(azimuth) + half) / totalFOV
	return x, y
}

// NormalizedSize converts a size in degrees of visual angle to normalized screen units.
func NormalizedSize(sizeDeg, totalFOV float64) float64 {
	return sizeDeg / (2 * totalFOV)
}

// EccentricityAt inverts Position: the eccentricity in degrees of a normalized point.
func EccentricityAt(x, y, totalFOV float64) float64 {
	dx := x - 0.5
	dy := y - 0.5
	return 2 * totalFOV * math.Sqrt(dx*dx+dy*dy)
}

// FromRecord builds phosphenes from a layout record. The record's arrays must
// all have the same, positive length.
func FromRecord(rec Record, totalFOV float64) (*Layout, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if totalFOV <= 0 {
		return nil, fmt.Errorf("%w: total field of view must be positive, got %v", ErrInvalidConfiguration, totalFOV)
	}

	n := len(rec.Eccentricities)
	phosphenes := make([]Phosphene, n)
	for i := 0; i < n; i++ {
		ecc := rec.Eccentricities[i]
		az := rec.AzimuthAngles[i]
		x, y := Position(ecc, az, totalFOV)
		phosphenes[i] = Phosphene{
			X:            x,
			Y:            y,
			Size:         NormalizedSize(rec.Sizes[i], totalFOV),
			Eccentricity: ecc,
			Azimuth:      az,
		}
	}

	return &Layout{Record: rec, Phosphenes: phosphenes, TotalFOV: totalFOV}, nil
}
