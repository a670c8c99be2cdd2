package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Record is the persisted layout file. Field names are part of the
// interchange format shared with external test harnesses.
type Record struct {
	Description    string    `json:"description"`
	NPhosphenes    int       `json:"nPhosphenes"`
	PhospheneCount int       `json:"phospheneCount,omitempty"` // Older files use this name
	Eccentricities []float64 `json:"eccentricities"`
	AzimuthAngles  []float64 `json:"azimuth_angles"` // Radians
	Sizes          []float64 `json:"sizes"`          // Degrees of visual angle
}

// Count returns the declared phosphene count, whichever field carried it.
func (r Record) Count() int {
	if r.NPhosphenes > 0 {
		return r.NPhosphenes
	}
	return r.PhospheneCount
}

// Validate checks the record's arrays against each other and the declared count.
func (r Record) Validate() error {
	n := len(r.Eccentricities)
	if n == 0 {
		return fmt.Errorf("%w: layout has no phosphenes", ErrInvalidConfiguration)
	}
	if len(r.AzimuthAngles) != n || len(r.Sizes) != n {
		return fmt.Errorf("%w: array lengths differ (eccentricities=%d azimuth_angles=%d sizes=%d)",
			ErrInvalidConfiguration, n, len(r.AzimuthAngles), len(r.Sizes))
	}
	if r.NPhosphenes > 0 && r.PhospheneCount > 0 && r.NPhosphenes != r.PhospheneCount {
		return fmt.Errorf("%w: nPhosphenes=%d conflicts with phospheneCount=%d",
			ErrInvalidConfiguration, r.NPhosphenes, r.PhospheneCount)
	}
	if c := r.Count(); c != 0 && c != n {
		return fmt.Errorf("%w: declared %d phosphenes but arrays hold %d", ErrInvalidConfiguration, c, n)
	}
	return nil
}

// Load reads a layout file and builds its phosphenes.
// A missing or undecodable file yields ErrConfigNotFound; a decoded but
// inconsistent record yields ErrInvalidConfiguration.
func Load(path string, totalFOV float64) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}

	l, err := FromRecord(rec, totalFOV)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return l, nil
}

// Save writes the layout's record as JSON.
func (l *Layout) Save(path string) error {
	rec := l.Record
	rec.NPhosphenes = len(rec.Eccentricities)
	rec.PhospheneCount = 0

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling layout: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing layout file: %w", err)
	}
	return nil
}
