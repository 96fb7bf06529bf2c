// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Arena       ArenaConfig       `yaml:"arena"`
	Seed        SeedConfig        `yaml:"seed"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Growth      GrowthConfig      `yaml:"growth"`
	Tunables    TunablesConfig    `yaml:"tunables"`
	Environment EnvironmentConfig `yaml:"environment"`
	Parallel    ParallelConfig    `yaml:"parallel"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Storage     StorageConfig     `yaml:"storage"`
	Control     ControlConfig     `yaml:"control"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds environment grid dimensions in cells.
type GridConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// ArenaConfig holds fixed arena capacities.
type ArenaConfig struct {
	NodeCapacity  int `yaml:"node_capacity"`
	PlantCapacity int `yaml:"plant_capacity"`
}

// SeedConfig describes the plants placed at startup.
type SeedConfig struct {
	Plants     int     `yaml:"plants"`
	RootLength float64 `yaml:"root_length"`
	RootRadius float64 `yaml:"root_radius"`
	RootVolume float64 `yaml:"root_volume"`
	OnSurface  bool    `yaml:"on_surface"` // lift seeds onto the terrain column they sit in
}

// TerrainConfig holds heightmap parameters for the soil fill.
type TerrainConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Scale      float64 `yaml:"scale"`      // noise frequency per cell
	Octaves    int     `yaml:"octaves"`    // fbm octaves
	Lacunarity float64 `yaml:"lacunarity"` // frequency multiplier per octave
	Gain       float64 `yaml:"gain"`       // amplitude multiplier per octave
	FillRatio  float64 `yaml:"fill_ratio"` // max soil height as fraction of grid Y
}

// LogisticConfig bounds a logistic growth update.
type LogisticConfig struct {
	Max  float64 `yaml:"max"`
	Rate float64 `yaml:"rate"`
}

// SegmentGrowthConfig holds logistic parameters for length and radius.
type SegmentGrowthConfig struct {
	Length LogisticConfig `yaml:"length"`
	Radius LogisticConfig `yaml:"radius"`
}

// BudConfig controls growing bud activation.
type BudConfig struct {
	ActivationThreshold float64 `yaml:"activation_threshold"` // activate when draw > this
	MaxAge              int     `yaml:"max_age"`              // buds at or past this age stay dormant
	LeafThreshold       float64 `yaml:"leaf_threshold"`       // spawn a leaf when draw > this
	StemSeedLength      float64 `yaml:"stem_seed_length"`     // length the bud restarts at as a stem
	LeafSeedLength      float64 `yaml:"leaf_seed_length"`
	LeafSeedRadius      float64 `yaml:"leaf_seed_radius"`
	LeafTilt            float64 `yaml:"leaf_tilt"`     // max leaf rotation per axis in radians
	CloneAsStem         bool    `yaml:"clone_as_stem"` // retype the cloned tip as a stem
}

// GrowthConfig holds growth rule parameters per archetype.
type GrowthConfig struct {
	Bud  BudConfig           `yaml:"bud"`
	Stem SegmentGrowthConfig `yaml:"stem"`
	Leaf SegmentGrowthConfig `yaml:"leaf"`
	Root SegmentGrowthConfig `yaml:"root"`
}

// TunablesConfig holds the control surface scalars read by growth rules.
type TunablesConfig struct {
	Sunlight   float64 `yaml:"sunlight"`
	Gravity    float64 `yaml:"gravity"`
	Moisture   float64 `yaml:"moisture"`
	Nitrogen   float64 `yaml:"nitrogen"`
	Potassium  float64 `yaml:"potassium"`
	Phosphorus float64 `yaml:"phosphorus"`
}

// EnvironmentConfig holds placeholder ambient values written by the grid pass.
type EnvironmentConfig struct {
	Temperature  float64 `yaml:"temperature"`
	DensityScale float64 `yaml:"density_scale"` // volume to density unit conversion
}

// ParallelConfig holds worker pool settings.
type ParallelConfig struct {
	Threshold int `yaml:"threshold"` // slot count below which passes run single-threaded
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
}

// TelemetryConfig holds telemetry and logging parameters.
type TelemetryConfig struct {
	StatsWindow   int `yaml:"stats_window"`   // steps per stats window
	PerfWindow    int `yaml:"perf_window"`    // steps averaged by the perf collector
	SnapshotEvery int `yaml:"snapshot_every"` // steps between snapshots (0 = only at exit)
}

// StorageConfig selects the snapshot persistence backend.
type StorageConfig struct {
	Kind string `yaml:"kind"` // memory | sqlite
	Path string `yaml:"path"` // sqlite database file
}

// ControlConfig holds run loop settings.
type ControlConfig struct {
	TargetFPS   int  `yaml:"target_fps"` // 0 = unthrottled
	StartPaused bool `yaml:"start_paused"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GridCells      int // X*Y*Z
	NodeCapacity32 uint32
	PlantCapacity  uint32
}

// MaxTunable bounds every tunable scalar.
const MaxTunable = 10.0

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.X <= 0 || c.Grid.Y <= 0 || c.Grid.Z <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%dx%d", c.Grid.X, c.Grid.Y, c.Grid.Z)
	}
	if c.Arena.NodeCapacity <= 0 || c.Arena.PlantCapacity <= 0 {
		return fmt.Errorf("arena capacities must be positive")
	}
	if c.Seed.Plants > c.Arena.PlantCapacity || c.Seed.Plants > c.Arena.NodeCapacity {
		return fmt.Errorf("seed.plants (%d) exceeds arena capacity", c.Seed.Plants)
	}
	t := c.Tunables
	for name, v := range map[string]float64{
		"sunlight": t.Sunlight, "gravity": t.Gravity, "moisture": t.Moisture,
		"nitrogen": t.Nitrogen, "potassium": t.Potassium, "phosphorus": t.Phosphorus,
	} {
		if !(v >= 0 && v <= MaxTunable) {
			return fmt.Errorf("tunables.%s must be in [0,%v], got %v", name, MaxTunable, v)
		}
	}
	switch c.Storage.Kind {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage.Kind)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GridCells = c.Grid.X * c.Grid.Y * c.Grid.Z
	c.Derived.NodeCapacity32 = uint32(c.Arena.NodeCapacity)
	c.Derived.PlantCapacity = uint32(c.Arena.PlantCapacity)

	if c.Telemetry.StatsWindow < 1 {
		c.Telemetry.StatsWindow = 100
	}
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
	}
	if c.Terrain.Octaves < 1 {
		c.Terrain.Octaves = 1
	}
}

// Recompute refreshes derived values after fields were edited in place.
func (c *Config) Recompute() {
	c.computeDerived()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
