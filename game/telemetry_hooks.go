package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/pthm-cable/sprout/components"
	"github.com/pthm-cable/sprout/storage"
	"github.com/pthm-cable/sprout/telemetry"
)

// storeTimeout bounds a single snapshot write to the store.
const storeTimeout = 30 * time.Second

// flushTelemetry checks if the stats window should be flushed.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	census, plants := s.takeCensus()

	stats := s.collector.Flush(s.tick, census)
	perfStats := s.perfCollector.Stats()

	// Call stats callback if provided
	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if s.outputManager != nil {
		if err := s.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
		if err := s.outputManager.WritePlants(plants); err != nil {
			slog.Error("failed to write plants", "error", err)
		}
	}
}

// takeCensus samples the stable generation for window stats and per-plant rows.
func (s *Simulation) takeCensus() (telemetry.Census, []telemetry.PlantRow) {
	cur := s.cur
	census := telemetry.Census{NodeCapacity: int(cur.Nodes.Size())}

	plantRecs := cur.Plants.Records()
	perPlant := make([]struct{ nodes, leaves int }, len(plantRecs))

	for _, n := range cur.Nodes.Nodes() {
		if !n.Live() {
			continue
		}
		census.NodesLive++
		census.Lengths = append(census.Lengths, float64(n.Length))
		census.Radii = append(census.Radii, float64(n.Radius))
		switch n.Archetype {
		case components.ArchetypeStem:
			census.Stems++
		case components.ArchetypeLeaf:
			census.Leaves++
		case components.ArchetypeGrowingBud:
			census.Buds++
		case components.ArchetypeRoot:
			census.Roots++
		}
		if int(n.PlantID) < len(perPlant) {
			perPlant[n.PlantID].nodes++
			if n.Archetype == components.ArchetypeLeaf {
				perPlant[n.PlantID].leaves++
			}
		}
	}

	for _, c := range cur.Grid.Cells() {
		if c.PlantDensity > 0 {
			census.TotalDensity += float64(c.PlantDensity)
			census.OccupiedCells++
		}
	}

	var rows []telemetry.PlantRow
	for i, p := range plantRecs {
		if p.Status == components.StatusGarbage {
			continue
		}
		if p.Status == components.StatusAlive {
			census.PlantsAlive++
		}
		rows = append(rows, telemetry.PlantRow{
			Tick:   s.tick,
			Plant:  uint32(i),
			Status: p.Status.String(),
			Age:    p.Age,
			X:      p.Location[0],
			Y:      p.Location[1],
			Z:      p.Location[2],
			Nodes:  perPlant[i].nodes,
			Leaves: perPlant[i].leaves,
		})
	}
	return census, rows
}

// maybeSnapshot saves on the configured cadence.
func (s *Simulation) maybeSnapshot() {
	every := int64(s.cfg.Telemetry.SnapshotEvery)
	if every <= 0 || s.tick%every != 0 {
		return
	}
	if s.snapshotDir == "" && s.store == nil {
		return
	}
	s.saveSnapshot()
}

// Snapshot builds a snapshot of the stable generation.
func (s *Simulation) Snapshot() *telemetry.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, plants, grid := s.cur.Snapshot()
	return &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		RunID:    s.runID,
		RNGSeed:  s.seed,
		Tick:     s.tick,
		Tunables: tunablesState(s.tunables),
		Nodes:    nodes,
		Plants:   plants,
		Grid:     grid,
	}
}

// saveSnapshot writes the current generation to the snapshot dir and store.
func (s *Simulation) saveSnapshot() {
	snapshot := s.Snapshot()

	if s.snapshotDir != "" {
		path, err := telemetry.SaveSnapshot(snapshot, s.snapshotDir)
		if err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else {
			slog.Info("snapshot saved", "path", path, "tick", snapshot.Tick)
		}
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		record := storage.NewSnapshotRecord(snapshot)
		if err := s.store.SaveSnapshot(ctx, record); err != nil {
			slog.Error("failed to store snapshot", "error", err)
			return
		}
		slog.Info("snapshot stored", "id", record.ID, "run_id", record.RunID, "tick", record.Tick)
	}
}
