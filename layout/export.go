package layout

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// PhospheneCSV is one row of a layout CSV export.
type PhospheneCSV struct {
	Index        int     `csv:"index"`
	Eccentricity float64 `csv:"eccentricity"`
	Azimuth      float64 `csv:"azimuth"`
	SizeDeg      float64 `csv:"size_deg"`
	X            float64 `csv:"x"`
	Y            float64 `csv:"y"`
	Size         float64 `csv:"size"`
}

// Rows flattens the layout for CSV export.
func (l *Layout) Rows() []PhospheneCSV {
	rows := make([]PhospheneCSV, len(l.Phosphenes))
	for i, p := range l.Phosphenes {
		rows[i] = PhospheneCSV{
			Index:        i,
			Eccentricity: p.Eccentricity,
			Azimuth:      p.Azimuth,
			SizeDeg:      l.Record.Sizes[i],
			X:            p.X,
			Y:            p.Y,
			Size:         p.Size,
		}
	}
	return rows
}

// WriteCSV writes one row per phosphene, with headers.
func (l *Layout) WriteCSV(w io.Writer) error {
	if err := gocsv.Marshal(l.Rows(), w); err != nil {
		return fmt.Errorf("writing layout csv: %w", err)
	}
	return nil
}
