// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all application configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Bookmarks  BookmarksConfig  `yaml:"bookmarks"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Biome      Biome            `yaml:"biome"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds stepping parameters.
type SimulationConfig struct {
	HoursPerStep   float64 `yaml:"hours_per_step"`   // Simulated hours per step at 1x speed
	StepsPerSecond float64 `yaml:"steps_per_second"` // Frame rate of the realtime loop
	MaxSpeed       float64 `yaml:"max_speed"`        // Upper bound of the speed multiplier
	Seed           int64   `yaml:"seed"`             // 0 = time-based
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Steps per stats window and perf averaging
	BookmarkHistorySize int `yaml:"bookmark_history_size"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	PopulationCrash  PopulationCrashConfig  `yaml:"population_crash"`
	PredatorRecovery PredatorRecoveryConfig `yaml:"predator_recovery"`
	StableEcosystem  StableEcosystemConfig  `yaml:"stable_ecosystem"`
}

// PopulationCrashConfig holds population crash detection parameters.
type PopulationCrashConfig struct {
	DropPercent float64 `yaml:"drop_percent"`
	MinDrop     int     `yaml:"min_drop"`
}

// PredatorRecoveryConfig holds predator recovery detection parameters.
type PredatorRecoveryConfig struct {
	MaxLow             int `yaml:"max_low"`
	RecoveryMultiplier int `yaml:"recovery_multiplier"`
	MinFinal           int `yaml:"min_final"`
}

// StableEcosystemConfig holds stable ecosystem detection parameters.
type StableEcosystemConfig struct {
	MinPopulation int     `yaml:"min_population"`
	CVThreshold   float64 `yaml:"cv_threshold"`
	StableWindows int     `yaml:"stable_windows"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string  `yaml:"addr"`
	BroadcastInterval float64 `yaml:"broadcast_interval"` // Seconds between websocket state pushes
}

// StoreConfig holds save slot storage settings.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables slots
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FrameInterval time.Duration // Wall time between realtime frames
}

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
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Biome.Validate(); err != nil {
		return nil, fmt.Errorf("default biome: %w", err)
	}

	cfg.computeDerived()

	return cfg, nil
}

// DefaultBiome returns a copy of the biome embedded in the defaults.
func DefaultBiome() Biome {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg.Biome
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Simulation.HoursPerStep <= 0 {
		c.Simulation.HoursPerStep = 1
	}
	if c.Simulation.StepsPerSecond <= 0 {
		c.Simulation.StepsPerSecond = 60
	}
	if c.Simulation.MaxSpeed <= 0 {
		c.Simulation.MaxSpeed = 10
	}
	if c.Telemetry.StatsWindow < 1 {
		c.Telemetry.StatsWindow = 1
	}
	c.Derived.FrameInterval = time.Duration(float64(time.Second) / c.Simulation.StepsPerSecond)
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
