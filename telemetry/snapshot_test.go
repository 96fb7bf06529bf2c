package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	nodes, err := arena.New[components.Node](4)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := nodes.Alloc()
	n := components.NewNode()
	n.Status = components.StatusAlive
	n.Archetype = components.ArchetypeGrowingBud
	n.Visible = true
	n.Length = 0.05
	n.Radius = 0.01
	n.Transform = components.RotZ(0.3)
	nodes.Set(idx, n)

	plants, err := arena.New[components.Plant](2)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := plants.Alloc()
	plants.Set(p, components.Plant{Status: components.StatusAlive, Root: idx, Location: [3]float32{0, 1, 0}})

	cells := make([]components.GridCell, 8)
	cells[3] = components.GridCell{Material: components.MaterialSoil, Temperature: 5}

	return &Snapshot{
		Version: SnapshotVersion,
		RNGSeed: 42,
		Tick:    1000,
		Tunables: TunablesState{
			Sunlight: 1, Gravity: 1, Moisture: 0.5,
		},
		Nodes:  nodes.Export(),
		Plants: plants.Export(),
		Grid:   GridState{X: 2, Y: 2, Z: 2, Cells: cells},
	}
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	snapshot := testSnapshot(t)

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("snapshot file not created at %s", path)
	}
	if filepath.Base(path) != "snapshot_1000.json" {
		t.Errorf("unexpected filename %s", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.RNGSeed != snapshot.RNGSeed {
		t.Errorf("RNGSeed = %d, want %d", loaded.RNGSeed, snapshot.RNGSeed)
	}
	if loaded.Tunables.Moisture != 0.5 {
		t.Errorf("Moisture = %v, want 0.5", loaded.Tunables.Moisture)
	}
	if loaded.Nodes.FreePtr != snapshot.Nodes.FreePtr {
		t.Errorf("node FreePtr = %d, want %d", loaded.Nodes.FreePtr, snapshot.Nodes.FreePtr)
	}
	for i := range snapshot.Nodes.Records {
		if loaded.Nodes.Records[i] != snapshot.Nodes.Records[i] {
			t.Errorf("node %d = %+v, want %+v", i, loaded.Nodes.Records[i], snapshot.Nodes.Records[i])
		}
	}
	for i := range snapshot.Plants.Records {
		if loaded.Plants.Records[i] != snapshot.Plants.Records[i] {
			t.Errorf("plant %d = %+v, want %+v", i, loaded.Plants.Records[i], snapshot.Plants.Records[i])
		}
	}
	if loaded.Grid.Cells[3].Material != components.MaterialSoil {
		t.Errorf("cell 3 material = %v, want soil", loaded.Grid.Cells[3].Material)
	}

	if _, err := arena.Restore(loaded.Nodes); err != nil {
		t.Errorf("restoring loaded nodes: %v", err)
	}
}

func TestLoadSnapshot_VersionMismatch(t *testing.T) {
	snapshot := testSnapshot(t)
	snapshot.Version = SnapshotVersion + 1

	path, err := SaveSnapshot(snapshot, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); !errors.Is(err, ErrSnapshotVersion) {
		t.Errorf("LoadSnapshot error = %v, want ErrSnapshotVersion", err)
	}
}

func TestLoadSnapshot_BadGrid(t *testing.T) {
	snapshot := testSnapshot(t)
	snapshot.Grid.Cells = snapshot.Grid.Cells[:5]

	path, err := SaveSnapshot(snapshot, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for truncated grid")
	}
}
