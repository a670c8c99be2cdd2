// Package preprocess turns camera or file frames into the square activation
// grid the sampler reads.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/sampler"
)

// Mode selects what the activation grid encodes.
type Mode uint8

const (
	ModeIntensity Mode = iota // Luminance
	ModeEdges                 // Sobel gradient magnitude
)

// ParseMode parses a preprocessing mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "intensity", "":
		return ModeIntensity, nil
	case "edges":
		return ModeEdges, nil
	}
	return 0, fmt.Errorf("unknown preprocess mode %q", s)
}

func (m Mode) String() string {
	if m == ModeEdges {
		return "edges"
	}
	return "intensity"
}

// Options configures a Pipeline.
type Options struct {
	Mode       Mode
	Size       int     // Output side length
	BlurRadius float64 // Gaussian blur radius in output pixels; 0 disables
	Threshold  float32 // Values below this are zeroed
	Letterbox  bool    // Pad to square instead of stretching
}

// OptionsFromConfig builds options for the simulation's input resolution.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := ParseMode(cfg.Preprocess.Mode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Mode:       mode,
		Size:       cfg.Simulation.Resolution,
		BlurRadius: cfg.Preprocess.BlurRadius,
		Threshold:  float32(cfg.Preprocess.Threshold),
		Letterbox:  cfg.Preprocess.Letterbox,
	}, nil
}

// Pipeline converts frames with fixed options.
type Pipeline struct {
	opts Options
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("preprocess size must be positive, got %d", opts.Size)
	}
	if opts.BlurRadius < 0 {
		return nil, fmt.Errorf("blur radius must be non-negative, got %g", opts.BlurRadius)
	}
	return &Pipeline{opts: opts}, nil
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

// Process converts img into a Size×Size activation grid in [0,1].
func (p *Pipeline) Process(img image.Image) *sampler.Grid {
	src := img
	if p.opts.Letterbox {
		src = letterbox(src)
	}
	n := uint(p.opts.Size)
	scaled := resize.Resize(n, n, src, resize.Bilinear)

	gray := effect.Grayscale(scaled)
	if p.opts.BlurRadius > 0 {
		gray = blur.Gaussian(gray, p.opts.BlurRadius)
	}

	var g *sampler.Grid
	switch p.opts.Mode {
	case ModeEdges:
		g = sampler.GridFromRGBA(effect.Grayscale(effect.Sobel(gray)))
		normalizeMax(g)
	default:
		g = sampler.GridFromRGBA(gray)
	}

	if p.opts.Threshold > 0 {
		for i, v := range g.Pix {
			if v < p.opts.Threshold {
				g.Pix[i] = 0
			}
		}
	}
	return g
}

// Decode reads a PNG, JPEG or WebP image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// LoadFile decodes the image at path.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// letterbox centers img on a black square canvas.
func letterbox(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}
	side := max(w, h)
	square := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(square, square.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	x0 := (side - w) / 2
	y0 := (side - h) / 2
	draw.Draw(square, image.Rect(x0, y0, x0+w, y0+h), img, b.Min, draw.Src)
	return square
}

// normalizeMax rescales g so its maximum is 1. Flat grids are left alone.
func normalizeMax(g *sampler.Grid) {
	var peak float32
	for _, v := range g.Pix {
		peak = max(peak, v)
	}
	if peak <= 0 {
		return
	}
	for i := range g.Pix {
		g.Pix[i] /= peak
	}
}
