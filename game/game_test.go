package game

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pthm-cable/sprout/arena"
	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/storage"
	"github.com/pthm-cable/sprout/systems"
	"github.com/pthm-cable/sprout/telemetry"
)

func TestNewSimulation_Seeds(t *testing.T) {
	cfg := testConfig(t)
	sim, err := NewSimulation(Options{Config: cfg, Seed: 3})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	defer sim.Unload()

	cur := sim.Current()
	if got := cur.Nodes.CurrentSize(); got != uint32(cfg.Seed.Plants) {
		t.Errorf("nodes = %d, want %d", got, cfg.Seed.Plants)
	}
	if got := cur.Plants.CurrentSize(); got != uint32(cfg.Seed.Plants) {
		t.Errorf("plants = %d, want %d", got, cfg.Seed.Plants)
	}
	for _, r := range cur.Nodes.Roots() {
		n := cur.Nodes.Get(r)
		if n.Archetype != components.ArchetypeGrowingBud {
			t.Errorf("root %d archetype = %v, want growing bud", r, n.Archetype)
		}
		p := cur.Plants.Get(n.PlantID)
		if p.Root != r || p.Location != n.Position {
			t.Errorf("plant %d does not own root %d at its location", n.PlantID, r)
		}
	}
	if cur.Grid.CountMaterial(components.MaterialSoil) == 0 {
		t.Error("terrain produced no soil")
	}
	if sim.RunID() == "" {
		t.Error("expected generated run id")
	}

	want := 36 * (cfg.Seed.Plants + cur.Grid.CountMaterial(components.MaterialSoil))
	if got := len(sim.Vertices()); got != want {
		t.Errorf("vertices = %d, want %d", got, want)
	}
}

func TestSimulation_RunWritesTelemetry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.StatsWindow = 10
	cfg.Recompute()

	dir := filepath.Join(t.TempDir(), "out")
	var windows int
	sim, err := NewSimulation(Options{
		Config:        cfg,
		Seed:          5,
		OutputDir:     dir,
		StatsCallback: func(telemetry.WindowStats) { windows++ },
	})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}

	if err := sim.Run(context.Background(), 50); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sim.Unload()

	if sim.Tick() != 50 {
		t.Errorf("tick = %d, want 50", sim.Tick())
	}
	if sim.Control().CycleCount() != 50 {
		t.Errorf("cycle count = %d, want 50", sim.Control().CycleCount())
	}
	if windows != 5 {
		t.Errorf("stats windows = %d, want 5", windows)
	}
	for _, name := range []string{"telemetry.csv", "perf.csv", "plants.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if err := sim.Current().Nodes.Validate(); err != nil {
		t.Errorf("tree invalid after run: %v", err)
	}
}

func TestSimulation_StepErrorKeepsGeneration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Arena.NodeCapacity = cfg.Seed.Plants
	cfg.Growth.Bud.ActivationThreshold = 0 // every bud tries to branch
	cfg.Recompute()

	sim, err := NewSimulation(Options{Config: cfg, Seed: 1})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	defer sim.Unload()

	before := sim.Current().Clone()
	err = sim.Step()
	if !errors.Is(err, arena.ErrCapacityExhausted) {
		t.Fatalf("expected ErrCapacityExhausted, got %v", err)
	}
	if sim.Tick() != 0 {
		t.Errorf("tick = %d, want 0 after failed step", sim.Tick())
	}
	if !sim.Control().Paused() {
		t.Error("control not paused after failed step")
	}
	if !reflect.DeepEqual(before.Nodes.Nodes(), sim.Current().Nodes.Nodes()) {
		t.Error("current generation modified by failed step")
	}
}

func TestSimulation_ResumeFromSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Growth.Bud.ActivationThreshold = 0.9
	cfg.Recompute()

	sim, err := NewSimulation(Options{Config: cfg, Seed: 11})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	defer sim.Unload()
	for i := 0; i < 20; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	sim.SetTunables(systems.Tunables{Sunlight: 0.5, Gravity: 1, Moisture: 1, Nitrogen: 2})

	resumed, err := NewSimulation(Options{Config: cfg, Resume: sim.Snapshot()})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	defer resumed.Unload()

	if resumed.Tick() != 20 || resumed.Seed() != 11 || resumed.RunID() != sim.RunID() {
		t.Fatalf("resumed tick/seed/run = %d/%d/%s", resumed.Tick(), resumed.Seed(), resumed.RunID())
	}
	if resumed.Tunables() != sim.Tunables() {
		t.Errorf("tunables = %+v, want %+v", resumed.Tunables(), sim.Tunables())
	}

	for i := 0; i < 10; i++ {
		if err := sim.Step(); err != nil {
			t.Fatal(err)
		}
		if err := resumed.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(sim.Current().Nodes.Nodes(), resumed.Current().Nodes.Nodes()) {
		t.Error("resumed run diverged from original")
	}
}

func TestSimulation_SnapshotsToStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.SnapshotEvery = 5
	cfg.Recompute()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}

	sim, err := NewSimulation(Options{Config: cfg, Seed: 2, Store: store, SnapshotDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	if err := sim.Run(ctx, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sim.Unload()

	list, err := store.ListSnapshots(ctx, sim.RunID())
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("snapshots = %d, want 3 (ticks 5, 10 and unload)", len(list))
	}
	if list[0].Tick != 5 || list[2].Tick != 10 {
		t.Errorf("ticks = %d..%d", list[0].Tick, list[2].Tick)
	}

	latest, ok, err := store.LatestSnapshot(ctx, sim.RunID())
	if err != nil || !ok {
		t.Fatalf("LatestSnapshot: ok=%v err=%v", ok, err)
	}
	if _, err := StateFromSnapshot(latest.Snapshot); err != nil {
		t.Errorf("stored snapshot does not restore: %v", err)
	}
}

func TestSimulation_RunHonorsControl(t *testing.T) {
	cfg := testConfig(t)
	cfg.Control.StartPaused = true
	cfg.Recompute()

	sim, err := NewSimulation(Options{Config: cfg, Seed: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Unload()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sim.Run(ctx, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("paused Run: expected deadline exceeded, got %v", err)
	}
	if sim.Tick() != 0 {
		t.Errorf("paused sim stepped to %d", sim.Tick())
	}

	sim.Control().Resume()
	sim.Control().Terminate()
	if err := sim.Run(context.Background(), 0); err != nil {
		t.Fatalf("terminated Run: %v", err)
	}
	if sim.Tick() != 0 {
		t.Errorf("terminated sim stepped to %d", sim.Tick())
	}
}

func TestControl_Counters(t *testing.T) {
	c := NewControl(30, false)
	if c.TargetFPS() != 30 || c.frameInterval() != time.Second/30 {
		t.Errorf("fps = %d, interval = %v", c.TargetFPS(), c.frameInterval())
	}
	c.SetTargetFPS(-1)
	if c.frameInterval() != 0 {
		t.Error("negative fps should uncap")
	}
	c.recordStep(12, 7)
	if c.NodeCount() != 12 || c.CycleCount() != 7 {
		t.Errorf("counters = %d/%d", c.NodeCount(), c.CycleCount())
	}
	c.Pause()
	c.Pause()
	if !c.Paused() {
		t.Error("expected paused")
	}
	c.Resume()
	if c.Paused() {
		t.Error("expected running")
	}
}

func TestSetTunables_Clamps(t *testing.T) {
	sim, err := NewSimulation(Options{Config: testConfig(t), Seed: 1})
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	defer sim.Unload()

	sim.SetTunables(systems.Tunables{Sunlight: 1e6, Moisture: 1e6, Gravity: float32(math.NaN()), Nitrogen: 2})
	got := sim.Tunables()
	want := systems.Tunables{Sunlight: float32(config.MaxTunable), Moisture: float32(config.MaxTunable), Nitrogen: 2}
	if got != want {
		t.Fatalf("tunables = %+v, want %+v", got, want)
	}
	for i := 0; i < 50; i++ {
		if err := sim.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	for i, n := range sim.Current().Nodes.Nodes() {
		if n.Live() && (math.IsNaN(float64(n.Length)) || math.IsNaN(float64(n.Radius))) {
			t.Fatalf("node %d has NaN geometry", i)
		}
	}
}

func TestSpawnPlant_ReleasesPlantWhenNodesFull(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewState(2, 2, 2, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := spawnPlant(s, [3]float32{}, cfg.Seed); err != nil {
		t.Fatalf("first spawn: %v", err)
	}

	_, err = spawnPlant(s, [3]float32{1, 0, 0}, cfg.Seed)
	if !errors.Is(err, arena.ErrCapacityExhausted) {
		t.Fatalf("second spawn error = %v, want ErrCapacityExhausted", err)
	}
	if got := s.Plants.CurrentSize(); got != 1 {
		t.Errorf("plants allocated = %d, want 1 after rollback", got)
	}
}
