package storage

import (
	"errors"
	"testing"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/telemetry"
)

func testSnapshot(t *testing.T, runID string, tick int64) *telemetry.Snapshot {
	t.Helper()

	nodes, err := arena.New[components.Node](4)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := nodes.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	n := components.NewNode()
	n.Status = components.StatusAlive
	n.Archetype = components.ArchetypeGrowingBud
	n.Length = 0.05
	nodes.Set(idx, n)

	plants, err := arena.New[components.Plant](2)
	if err != nil {
		t.Fatal(err)
	}

	return &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		RunID:   runID,
		RNGSeed: 7,
		Tick:    tick,
		Nodes:   nodes.Export(),
		Plants:  plants.Export(),
		Grid:    telemetry.GridState{X: 1, Y: 2, Z: 1, Cells: make([]components.GridCell, 2)},
	}
}

// liveNode returns the single allocated node of a snapshot built by testSnapshot.
func liveNode(t *testing.T, snap *telemetry.Snapshot) *components.Node {
	t.Helper()
	for i := range snap.Nodes.Records {
		if snap.Nodes.Records[i].Live() {
			return &snap.Nodes.Records[i]
		}
	}
	t.Fatal("snapshot has no live node")
	return nil
}

// exerciseStore runs the shared round-trip contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := t.Context()

	first := NewSnapshotRecord(testSnapshot(t, "run-1", 100))
	second := NewSnapshotRecord(testSnapshot(t, "run-1", 200))
	other := NewSnapshotRecord(testSnapshot(t, "run-2", 300))
	for _, r := range []SnapshotRecord{second, first, other} {
		if err := store.SaveSnapshot(ctx, r); err != nil {
			t.Fatalf("save snapshot: %v", err)
		}
	}

	got, ok, err := store.GetSnapshot(ctx, first.ID)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot %s", first.ID)
	}
	if got.Tick != 100 || got.RunID != "run-1" || liveNode(t, got.Snapshot).Length != 0.05 {
		t.Fatalf("unexpected snapshot loaded: %+v", got.Summary())
	}

	if _, ok, err := store.GetSnapshot(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing snapshot: ok=%v err=%v", ok, err)
	}

	list, err := store.ListSnapshots(ctx, "run-1")
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(list) != 2 || list[0].Tick != 100 || list[1].Tick != 200 {
		t.Fatalf("unexpected list: %+v", list)
	}

	all, err := store.ListSnapshots(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(all))
	}

	latest, ok, err := store.LatestSnapshot(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("latest snapshot: ok=%v err=%v", ok, err)
	}
	if latest.ID != second.ID {
		t.Fatalf("latest = %s, want %s", latest.ID, second.ID)
	}

	if err := store.DeleteSnapshot(ctx, second.ID); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	latest, _, err = store.LatestSnapshot(ctx, "run-1")
	if err != nil {
		t.Fatalf("latest after delete: %v", err)
	}
	if latest.ID != first.ID {
		t.Fatalf("latest after delete = %s, want %s", latest.ID, first.ID)
	}

	if err := store.DeleteSnapshot(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	if _, ok, err := store.LatestSnapshot(ctx, "run-none"); err != nil || ok {
		t.Fatalf("latest for unknown run: ok=%v err=%v", ok, err)
	}
}
