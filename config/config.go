// Package config provides configuration loading and access for the phosphene simulator.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Layout     LayoutConfig     `yaml:"layout"`
	Temporal   TemporalConfig   `yaml:"temporal"`
	Render     RenderConfig     `yaml:"render"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Gaze       GazeConfig       `yaml:"gaze"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds tick-level settings.
type SimulationConfig struct {
	DT         float64 `yaml:"dt"`
	Mode       string  `yaml:"mode"`       // gaze_ignored, gaze_locked, gaze_assisted
	Resolution int     `yaml:"resolution"` // Side length of the square activation input
}

// LayoutConfig holds the phosphene layout recipe.
type LayoutConfig struct {
	File                    string  `yaml:"file"` // Layout JSON; empty or missing = probabilistic
	Count                   int     `yaml:"count"`
	MaxEccentricityFraction float64 `yaml:"max_eccentricity_fraction"` // Fraction of total_fov, in (0, 0.5)
	Model                   string  `yaml:"model"`                     // monopole or dipole
	TotalFOV                float64 `yaml:"total_fov"`                 // Degrees
	Seed                    int64   `yaml:"seed"`
	SeedPhrase              string  `yaml:"seed_phrase"` // Overrides seed when set
	GridPoints              int     `yaml:"grid_points"`
	StimulationCurrent      float64 `yaml:"stimulation_current"` // μA
	CurrentSpread           float64 `yaml:"current_spread"`      // μA/mm²
}

// TemporalConfig holds the leaky-integrator/habituation constants.
type TemporalConfig struct {
	IntensityDecay float64 `yaml:"intensity_decay"`
	InputEffect    float64 `yaml:"input_effect"`
	TraceDecay     float64 `yaml:"trace_decay"`
	TraceIncrease  float64 `yaml:"trace_increase"`
	ReferenceDT    float64 `yaml:"reference_dt"` // 0 = constants are per tick
}

// RenderConfig holds spread renderer parameters.
type RenderConfig struct {
	Resolution int     `yaml:"resolution"`
	SigmaScale float64 `yaml:"sigma_scale"` // sigma = size * sigma_scale
	Gain       float64 `yaml:"gain"`
	Threshold  float64 `yaml:"threshold"` // Activations below this are not drawn
}

// PreprocessConfig holds input image conversion parameters.
type PreprocessConfig struct {
	Mode       string  `yaml:"mode"` // intensity or edges
	BlurRadius float64 `yaml:"blur_radius"`
	Threshold  float64 `yaml:"threshold"`
	Letterbox  bool    `yaml:"letterbox"`
}

// GazeConfig holds gaze smoothing and projection parameters.
type GazeConfig struct {
	Smoothing     bool    `yaml:"smoothing"`
	Tau           float64 `yaml:"tau"`            // Smoothing time constant in seconds
	Window        int     `yaml:"window"`         // Samples per half-window for jump detection
	JumpThreshold float64 `yaml:"jump_threshold"` // Normalized screen units
	IPD           float64 `yaml:"ipd"`            // Meters
	FOV           float64 `yaml:"fov"`            // Camera field of view in degrees
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow          float64 `yaml:"stats_window"`
	PerfCollectorWindow  int     `yaml:"perf_collector_window"`
	TrajectoryPhosphenes int     `yaml:"trajectory_phosphenes"` // Phosphenes logged per tick (0 disables)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32       float32 // Simulation.DT as float32
	Mode       Mode
	SigmaScale float32
	Gain       float32
	Threshold  float32
}

// Mode selects how gaze moves sampling and rendering positions.
type Mode uint8

const (
	ModeGazeIgnored  Mode = iota // Head-fixed: no shift
	ModeGazeLocked               // Rendered position rides the eye, sampling stays head-centered
	ModeGazeAssisted             // Sampling and rendering both follow gaze
)

var modeNames = map[string]Mode{
	"gaze_ignored":  ModeGazeIgnored,
	"gaze_locked":   ModeGazeLocked,
	"gaze_assisted": ModeGazeAssisted,
}

// ParseMode parses a simulation mode name.
func ParseMode(s string) (Mode, error) {
	m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown simulation mode %q", s)
	}
	return m, nil
}

// String returns the config name of the mode.
func (m Mode) String() string {
	for name, v := range modeNames {
		if v == m {
			return name
		}
	}
	return fmt.Sprintf("mode(%d)", m)
}

// SamplesShifted reports whether sampling positions follow gaze.
func (m Mode) SamplesShifted() bool { return m == ModeGazeAssisted }

// RendersShifted reports whether rendered positions follow gaze.
func (m Mode) RendersShifted() bool { return m != ModeGazeIgnored }

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	mode, err := ParseMode(c.Simulation.Mode)
	if err != nil {
		return err
	}
	c.Derived.Mode = mode
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.SigmaScale = float32(c.Render.SigmaScale)
	c.Derived.Gain = float32(c.Render.Gain)
	c.Derived.Threshold = float32(c.Render.Threshold)

	if c.Simulation.Resolution <= 0 {
		c.Simulation.Resolution = 256
	}
	if c.Render.Resolution <= 0 {
		c.Render.Resolution = c.Simulation.Resolution
	}
	if c.Layout.TotalFOV <= 0 {
		c.Layout.TotalFOV = 120
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
