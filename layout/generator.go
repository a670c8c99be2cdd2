package layout

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/cortex"
)

// Empirical current-spread constants (Tehovnik et al. 2006).
const (
	DefaultStimulationCurrent = 30.0  // μA
	DefaultCurrentSpread      = 675.0 // μA/mm²
	DefaultGridPoints         = 10000
)

// Options is the probabilistic generation recipe.
type Options struct {
	Count                   int
	MaxEccentricityFraction float64 // Fraction of TotalFOV, must be in (0, 0.5)
	Model                   cortex.Params
	TotalFOV                float64
	GridPoints              int
	StimulationCurrent      float64
	CurrentSpread           float64
}

// DefaultOptions returns options with the literature constants filled in.
func DefaultOptions(count int, maxEccentricityFraction float64, model cortex.Params) Options {
	return Options{
		Count:                   count,
		MaxEccentricityFraction: maxEccentricityFraction,
		Model:                   model,
		TotalFOV:                DefaultTotalFOV,
		GridPoints:              DefaultGridPoints,
		StimulationCurrent:      DefaultStimulationCurrent,
		CurrentSpread:           DefaultCurrentSpread,
	}
}

// OptionsFromConfig builds generation options from the layout config section.
func OptionsFromConfig(cfg config.LayoutConfig) (Options, error) {
	model, err := cortex.ParseModel(cfg.Model)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	opts := DefaultOptions(cfg.Count, cfg.MaxEccentricityFraction, model)
	if cfg.TotalFOV > 0 {
		opts.TotalFOV = cfg.TotalFOV
	}
	if cfg.GridPoints > 0 {
		opts.GridPoints = cfg.GridPoints
	}
	if cfg.StimulationCurrent > 0 {
		opts.StimulationCurrent = cfg.StimulationCurrent
	}
	if cfg.CurrentSpread > 0 {
		opts.CurrentSpread = cfg.CurrentSpread
	}
	return opts, nil
}

// Validate rejects nonsensical generator parameters.
func (o Options) Validate() error {
	if o.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidConfiguration, o.Count)
	}
	if o.MaxEccentricityFraction <= 0 || o.MaxEccentricityFraction >= 0.5 {
		return fmt.Errorf("%w: max eccentricity fraction must be in (0, 0.5), got %v",
			ErrInvalidConfiguration, o.MaxEccentricityFraction)
	}
	if o.TotalFOV <= 0 {
		return fmt.Errorf("%w: total field of view must be positive, got %v", ErrInvalidConfiguration, o.TotalFOV)
	}
	if o.GridPoints < 2 {
		return fmt.Errorf("%w: eccentricity grid needs at least 2 points, got %d", ErrInvalidConfiguration, o.GridPoints)
	}
	if o.StimulationCurrent <= 0 || o.CurrentSpread <= 0 {
		return fmt.Errorf("%w: stimulation current and current spread must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// SpreadRadius returns the approximate radius (mm) of activated cortex for the
// configured stimulation current.
func (o Options) SpreadRadius() float64 {
	return math.Sqrt(o.StimulationCurrent / o.CurrentSpread)
}

// SizeDegrees returns the phosphene size in degrees of visual angle at eccentricity ecc.
func (o Options) SizeDegrees(ecc float64) float64 {
	return o.SpreadRadius() * o.Model.InverseMagnify(ecc)
}

// EccentricityCDF returns the candidate eccentricity grid over
// (max/GridPoints, max] and its cumulative placement probability, with each
// candidate weighted by cortical magnification.
func (o Options) EccentricityCDF() (grid, cdf []float64) {
	n := o.GridPoints
	maxEcc := o.MaxEccentricityFraction * o.TotalFOV
	grid = floats.Span(make([]float64, n), maxEcc/float64(n), maxEcc)

	weights := make([]float64, n)
	for i, r := range grid {
		weights[i] = o.Model.Magnify(r)
	}
	if total := floats.Sum(weights); total > 0 {
		floats.Scale(1/total, weights)
	}
	cdf = floats.CumSum(make([]float64, n), weights)
	return grid, cdf
}

// invertCDF returns the first index whose cumulative probability is >= u.
// Rounding can leave the last entry slightly below 1 (or the whole CDF at 0
// when every weight vanished); such draws clamp to the last index.
func invertCDF(cdf []float64, u float64) int {
	idx := sort.SearchFloat64s(cdf, u)
	if idx >= len(cdf) {
		idx = len(cdf) - 1
	}
	return idx
}

// GenerateProbabilistic places opts.Count phosphenes. Each phosphene draws one
// uniform value for its eccentricity, then one for its azimuth, from rng.
// The same seed and options always give the same layout.
func GenerateProbabilistic(opts Options, rng *rand.Rand) (*Layout, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	grid, cdf := opts.EccentricityCDF()

	rec := Record{
		Description: fmt.Sprintf("probabilistic %s layout: %d phosphenes, max eccentricity %.4g deg",
			opts.Model.Name, opts.Count, opts.MaxEccentricityFraction*opts.TotalFOV),
		NPhosphenes:    opts.Count,
		Eccentricities: make([]float64, opts.Count),
		AzimuthAngles:  make([]float64, opts.Count),
		Sizes:          make([]float64, opts.Count),
	}

	for i := 0; i < opts.Count; i++ {
		ecc := grid[invertCDF(cdf, rng.Float64())]
		az := rng.Float64() * 2 * math.Pi

		rec.Eccentricities[i] = ecc
		rec.AzimuthAngles[i] = az
		rec.Sizes[i] = opts.SizeDegrees(ecc)
	}

	return FromRecord(rec, opts.TotalFOV)
}

// Seed returns the RNG seed for a layout config. A non-empty seed phrase is
// hashed (FNV-64a) so experiments can name their layouts with a string.
func Seed(cfg config.LayoutConfig) int64 {
	if cfg.SeedPhrase == "" {
		return cfg.Seed
	}
	h := fnv.New64a()
	h.Write([]byte(cfg.SeedPhrase))
	return int64(h.Sum64())
}

// SetSeed makes seed the layout seed. Seed prefers a phrase, so any phrase in
// cfg is dropped and returned for logging.
func SetSeed(cfg *config.LayoutConfig, seed int64) (dropped string) {
	dropped = cfg.SeedPhrase
	cfg.Seed = seed
	cfg.SeedPhrase = ""
	return dropped
}

// Generate builds the session layout: from cfg.File when it is set and
// readable, otherwise probabilistically. A missing file is logged and
// recovered; invalid parameters are returned as ErrInvalidConfiguration.
func Generate(cfg config.LayoutConfig, logger *slog.Logger) (*Layout, error) {
	if logger == nil {
		logger = slog.Default()
	}

	totalFOV := cfg.TotalFOV
	if totalFOV <= 0 {
		totalFOV = DefaultTotalFOV
	}

	if cfg.File != "" {
		l, err := Load(cfg.File, totalFOV)
		if err == nil {
			logger.Info("loaded phosphene layout", "path", cfg.File, "phosphenes", l.Len())
			return l, nil
		}
		if !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		logger.Warn("layout file unavailable, falling back to probabilistic layout",
			"path", cfg.File, "error", err)
	}

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	seed := Seed(cfg)
	l, err := GenerateProbabilistic(opts, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	logger.Info("generated phosphene layout",
		"phosphenes", l.Len(),
		"model", opts.Model.Name,
		"max_eccentricity_fraction", opts.MaxEccentricityFraction,
		"seed", seed,
	)
	return l, nil
}
