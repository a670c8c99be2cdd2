package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/neuralcodinglab/SPVGaze-sub000/config"
	"github.com/neuralcodinglab/SPVGaze-sub000/layout"
)

// TrajectoryRow is one phosphene's state at one tick.
type TrajectoryRow struct {
	Tick            int32   `csv:"tick"`
	Index           int32   `csv:"index"`
	LeftStimulus    float32 `csv:"left_stimulus"`
	LeftActivation  float32 `csv:"left_activation"`
	LeftTrace       float32 `csv:"left_trace"`
	RightStimulus   float32 `csv:"right_stimulus"`
	RightActivation float32 `csv:"right_activation"`
	RightTrace      float32 `csv:"right_trace"`
}

// RunInfo identifies a run in run.yaml.
type RunInfo struct {
	RunID      string    `yaml:"run_id"`
	Started    time.Time `yaml:"started"`
	Seed       int64     `yaml:"seed"`
	Phosphenes int       `yaml:"phosphenes"`
	Mode       string    `yaml:"mode"`
	Input      string    `yaml:"input,omitempty"`
}

// csvStream appends records to a CSV file, writing the header once.
type csvStream struct {
	file          *os.File
	headerWritten bool
}

func (s *csvStream) write(records any) error {
	if !s.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, s.file); err != nil {
			return err
		}
		s.headerWritten = true
		return nil
	}
	// Subsequent writes skip headers
	return gocsv.MarshalWithoutHeaders(records, s.file)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir   string
	runID string

	telemetry  csvStream
	perf       csvStream
	bookmarks  csvStream
	trajectory csvStream
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, runID: uuid.NewString()}

	files := []struct {
		name   string
		stream *csvStream
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
	}
	for _, f := range files {
		file, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		f.stream.file = file
	}

	return om, nil
}

// RunID returns the unique id of this run. Empty when output is disabled.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteRunInfo saves run.yaml. RunID is filled in from the manager.
func (om *OutputManager) WriteRunInfo(info RunInfo) error {
	if om == nil {
		return nil
	}
	info.RunID = om.runID
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling run info: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "run.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing run.yaml: %w", err)
	}
	return nil
}

// WriteLayout saves the phosphene layout as layout.json (reloadable) and
// layout.csv (for analysis).
func (om *OutputManager) WriteLayout(l *layout.Layout) error {
	if om == nil || l == nil {
		return nil
	}
	if err := l.Save(filepath.Join(om.dir, "layout.json")); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(om.dir, "layout.csv"))
	if err != nil {
		return fmt.Errorf("creating layout.csv: %w", err)
	}
	defer f.Close()
	return l.WriteCSV(f)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := om.bookmarks.write([]Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteTrajectory appends per-phosphene rows to trajectory.csv. The file is
// created on first use.
func (om *OutputManager) WriteTrajectory(rows []TrajectoryRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	if om.trajectory.file == nil {
		f, err := os.Create(filepath.Join(om.dir, "trajectory.csv"))
		if err != nil {
			return fmt.Errorf("creating trajectory.csv: %w", err)
		}
		om.trajectory.file = f
	}
	if err := om.trajectory.write(rows); err != nil {
		return fmt.Errorf("writing trajectory: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, s := range []*csvStream{&om.telemetry, &om.perf, &om.bookmarks, &om.trajectory} {
		if s.file == nil {
			continue
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}

	return firstErr
}
