package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when loading a snapshot written by another format version.
var ErrSnapshotVersion = errors.New("telemetry: unsupported snapshot version")

// GridState is the persisted form of the environment grid.
type GridState struct {
	X     int                   `json:"x"`
	Y     int                   `json:"y"`
	Z     int                   `json:"z"`
	Cells []components.GridCell `json:"cells"`
}

// TunablesState records the control-surface scalars in effect.
type TunablesState struct {
	Sunlight   float32 `json:"sunlight"`
	Gravity    float32 `json:"gravity"`
	Moisture   float32 `json:"moisture"`
	Nitrogen   float32 `json:"nitrogen"`
	Potassium  float32 `json:"potassium"`
	Phosphorus float32 `json:"phosphorus"`
}

// Snapshot holds one stable generation of the simulation, record for record.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	RNGSeed int64  `json:"rng_seed"`
	Tick    int64  `json:"tick"`

	Tunables TunablesState `json:"tunables"`

	Nodes  arena.State[components.Node]  `json:"nodes"`
	Plants arena.State[components.Plant] `json:"plants"`
	Grid   GridState                     `json:"grid"`
}

// Validate checks the snapshot is internally consistent before restore.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, s.Version)
	}
	if want := s.Grid.X * s.Grid.Y * s.Grid.Z; len(s.Grid.Cells) != want {
		return fmt.Errorf("snapshot grid has %d cells, want %d", len(s.Grid.Cells), want)
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d.json", snapshot.Tick)
	path := filepath.Join(dir, name)

	data, err := json.Marshal(snapshot)
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
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return &snapshot, nil
}
