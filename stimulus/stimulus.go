// Package stimulus provides input frame sources for headless and scripted runs.
package stimulus

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ojrac/opensimplex-go"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
	"github.com/neuralcodinglab/SPVGaze-sub000/preprocess"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// Frames is one input image per eye.
type Frames [components.NumEyes]sampler.Image

// Source yields the input frames shown at simulation time t.
type Source interface {
	Frame(t time.Duration) Frames
}

// Uniform is an image with the same value everywhere.
type Uniform float32

// Bilinear implements sampler.Image.
func (u Uniform) Bilinear(_, _ float32) float32 { return float32(u) }

func both(img sampler.Image) Frames {
	return Frames{img, img}
}

// Constant shows a uniform field.
type Constant struct {
	Level float32
}

// Frame implements Source.
func (c Constant) Frame(time.Duration) Frames { return both(Uniform(c.Level)) }

// Flash alternates between Level and darkness. The field is lit for the
// first Duty fraction of each Period.
type Flash struct {
	Level  float32
	Period time.Duration
	Duty   float64
}

// Frame implements Source.
func (f Flash) Frame(t time.Duration) Frames {
	if f.Period <= 0 {
		return both(Uniform(f.Level))
	}
	phase := float64(t%f.Period) / float64(f.Period)
	if phase < f.Duty {
		return both(Uniform(f.Level))
	}
	return both(Uniform(0))
}

// DriftingNoise is smooth simplex noise that evolves over time.
type DriftingNoise struct {
	noise opensimplex.Noise
	Scale float64 // Spatial frequency, features per unit field
	Speed float64 // Drift through the time axis per second
}

// NewDriftingNoise creates a reproducible noise source.
func NewDriftingNoise(seed int64, scale, speed float64) *DriftingNoise {
	return &DriftingNoise{
		noise: opensimplex.NewNormalized(seed),
		Scale: scale,
		Speed: speed,
	}
}

// Frame implements Source.
func (d *DriftingNoise) Frame(t time.Duration) Frames {
	return both(noiseImage{src: d, z: t.Seconds() * d.Speed})
}

type noiseImage struct {
	src *DriftingNoise
	z   float64
}

func (n noiseImage) Bilinear(u, v float32) float32 {
	s := n.src.Scale
	return float32(n.src.noise.Eval3(float64(u)*s, float64(v)*s, n.z))
}

// Sequence loops over preprocessed frames, each held for FrameDuration.
type Sequence struct {
	Frames        []*sampler.Grid
	FrameDuration time.Duration
}

// LoadSequence decodes and preprocesses the images at paths, in order.
func LoadSequence(paths []string, p *preprocess.Pipeline, frameDuration time.Duration) (*Sequence, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("image sequence is empty")
	}
	seq := &Sequence{FrameDuration: frameDuration}
	for _, path := range paths {
		img, err := preprocess.LoadFile(path)
		if err != nil {
			return nil, err
		}
		seq.Frames = append(seq.Frames, p.Process(img))
	}
	return seq, nil
}

// Frame implements Source.
func (s *Sequence) Frame(t time.Duration) Frames {
	if len(s.Frames) == 0 {
		return both(Uniform(0))
	}
	i := 0
	if s.FrameDuration > 0 {
		i = int(t/s.FrameDuration) % len(s.Frames)
	}
	return both(s.Frames[i])
}

// Parse builds a source from a command-line description:
//
//	constant:LEVEL
//	flash:LEVEL:PERIOD[:DUTY]   e.g. flash:1:500ms:0.5
//	noise[:SCALE[:SPEED]]
//	a file path or glob of images, played at frameDuration
func Parse(desc string, p *preprocess.Pipeline, seed int64, frameDuration time.Duration) (Source, error) {
	parts := strings.Split(desc, ":")
	switch parts[0] {
	case "constant":
		level, err := floatArg(parts, 1, 1)
		if err != nil {
			return nil, err
		}
		return Constant{Level: float32(level)}, nil

	case "flash":
		level, err := floatArg(parts, 1, 1)
		if err != nil {
			return nil, err
		}
		period := time.Second
		if len(parts) > 2 {
			if period, err = time.ParseDuration(parts[2]); err != nil {
				return nil, fmt.Errorf("flash period: %w", err)
			}
		}
		duty, err := floatArg(parts, 3, 0.5)
		if err != nil {
			return nil, err
		}
		return Flash{Level: float32(level), Period: period, Duty: duty}, nil

	case "noise":
		scale, err := floatArg(parts, 1, 4)
		if err != nil {
			return nil, err
		}
		speed, err := floatArg(parts, 2, 0.5)
		if err != nil {
			return nil, err
		}
		return NewDriftingNoise(seed, scale, speed), nil
	}

	paths, err := filepath.Glob(desc)
	if err != nil {
		return nil, fmt.Errorf("bad input pattern %q: %w", desc, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input images match %q", desc)
	}
	sort.Strings(paths)
	return LoadSequence(paths, p, frameDuration)
}

func floatArg(parts []string, i int, def float64) (float64, error) {
	if len(parts) <= i || parts[i] == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(parts[i], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s argument %d: %w", parts[0], i, err)
	}
	return v, nil
}
