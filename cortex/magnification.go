// Package cortex models cortical magnification: how much primary visual cortex
// is devoted to each retinal eccentricity.
package cortex

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the magnification formula.
type Kind uint8

const (
	KindMonopole Kind = iota // M(r) = k / (r + a)
	KindDipole               // M(r) = k * (1/(r+a) - 1/(r+b))
)

// Params is a named, immutable magnification parameter set.
// Magnification is in mm of cortex per degree of visual angle.
type Params struct {
	Name string
	Kind Kind
	K    float64
	A    float64
	B    float64 // Dipole only
}

// Parameter sets from the literature (Horton & Hoyt 1991; Polimeni et al. 2006).
var (
	Monopole = Params{Name: "monopole", Kind: KindMonopole, K: 17.3, A: 0.75}
	Dipole   = Params{Name: "dipole", Kind: KindDipole, K: 20.13, A: 1.717, B: 7.5e5}
)

// ParseModel returns the parameter set with the given name.
func ParseModel(name string) (Params, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "monopole", "":
		return Monopole, nil
	case "dipole":
		return Dipole, nil
	default:
		return Params{}, fmt.Errorf("unknown cortex model %q", name)
	}
}

// Magnify returns the cortical magnification factor at eccentricity r (degrees).
// Defined for r >= 0; monotonically decreasing in r.
func (p Params) Magnify(r float64) float64 {
	switch p.Kind {
	case KindDipole:
		return p.K * (1/(r+p.A) - 1/(r+p.B))
	default:
		return p.K / (r + p.A)
	}
}

// InverseMagnify returns degrees of visual angle per mm of cortex at eccentricity r.
func (p Params) InverseMagnify(r float64) float64 {
	return 1 / p.Magnify(r)
}

// CorticalDistance returns the distance along cortex (mm) from the foveal
// representation to eccentricity r, the integral of Magnify over [0, r].
func (p Params) CorticalDistance(r float64) float64 {
	switch p.Kind {
	case KindDipole:
		return p.K * math.Log(((r+p.A)*p.B)/((r+p.B)*p.A))
	default:
		return p.K * math.Log((r+p.A)/p.A)
	}
}

// String returns the parameter set name.
func (p Params) String() string { return p.Name }
