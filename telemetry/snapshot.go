package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neuralcodinglab/SPVGaze-sub000/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the phosphene state of a run at one tick, enough to resume
// the temporal dynamics from that point.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    int32  `json:"tick"`
	Mode    string `json:"mode"`

	Phosphenes []PhospheneState `json:"phosphenes"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// PhospheneState holds one phosphene's dynamic state. Layout fields are
// informational; restoring matches on Index.
type PhospheneState struct {
	Index      int32                       `json:"index"`
	X          float32                     `json:"x"`
	Y          float32                     `json:"y"`
	Activation [components.NumEyes]float32 `json:"activation"`
	Trace      [components.NumEyes]float32 `json:"trace"`
}

// Activity returns the state as an ECS component.
func (p PhospheneState) Activity() components.Activity {
	return components.Activity{Activation: p.Activation, Trace: p.Trace}
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
