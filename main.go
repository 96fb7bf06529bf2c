package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/sprout/config"
	"github.com/pthm-cable/sprout/game"
	"github.com/pthm-cable/sprout/storage"
	"github.com/pthm-cable/sprout/telemetry"
)

// openStore returns the snapshot store for a CLI run. Only sqlite outlives
// the process, so other kinds give a nil store and cannot serve --load-run.
func openStore(ctx context.Context, kind, path, loadRun string) (storage.Store, error) {
	switch kind {
	case "sqlite":
	case "", "memory":
		if loadRun != "" {
			return nil, fmt.Errorf("--load-run needs storage kind sqlite, got %q", kind)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", kind, err)
	}
	return store, nil
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in steps (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	loadPath := flag.String("load", "", "Resume from a snapshot file")
	loadRun := flag.String("load-run", "", "Resume from the latest stored snapshot of this run ID")
	storeKind := flag.String("store", "", "Snapshot store backend: memory | sqlite (empty = use config)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Use config stats window if not overridden by CLI
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *storeKind != "" {
		cfg.Storage.Kind = *storeKind
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage.Kind, cfg.Storage.Path, *loadRun)
	if err != nil {
		slog.Error("failed to open store", "kind", cfg.Storage.Kind, "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer func() {
			if err := storage.CloseIfSupported(store); err != nil {
				slog.Error("failed to close store", "error", err)
			}
		}()
	}

	var resume *telemetry.Snapshot
	switch {
	case *loadPath != "":
		resume, err = telemetry.LoadSnapshot(*loadPath)
		if err != nil {
			slog.Error("failed to load snapshot", "path", *loadPath, "error", err)
			os.Exit(1)
		}
	case *loadRun != "":
		record, ok, err := store.LatestSnapshot(ctx, *loadRun)
		if err != nil || !ok {
			slog.Error("failed to load stored snapshot", "run_id", *loadRun, "found", ok, "error", err)
			os.Exit(1)
		}
		resume = record.Snapshot
	}

	// Build simulation options
	opts := game.Options{
		Seed:        rngSeed,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		Store:       store,
		Resume:      resume,
	}

	sim, err := game.NewSimulation(opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"run_id", sim.RunID(),
		"seed", sim.Seed(),
		"tick", sim.Tick(),
		"max_ticks", *maxTicks,
		"store", cfg.Storage.Kind,
	)

	runErr := sim.Run(ctx, *maxTicks)
	sim.Unload()

	if runErr != nil && ctx.Err() == nil {
		slog.Error("simulation stopped", "tick", sim.Tick(), "error", runErr)
		os.Exit(1)
	}
	slog.Info("simulation finished", "tick", sim.Tick(), "nodes", sim.Control().NodeCount())
}
