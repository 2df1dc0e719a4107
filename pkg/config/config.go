// Package config provides the unified configuration system for phasegen.
// It defines a single ReplayConfig structure that the generator engine,
// batch sources and the runner all consume, ensuring one place where a
// replay run is described and validated.
//
// The configuration is organized into logical sections:
//   - Generator: event budget, frame selection, particle type resolution
//   - Grouping: the "until next primary" grouping rules
//   - Runtime: workers, batch sizing, start time
//   - Observability: metrics, tracing, logging
//
// Example usage:
//
//	cfg := config.NewReplayConfig()
//	cfg.Generator.MaxEvents = 10000
//	cfg.Generator.Particle = "gamma"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"

	"github.com/phasegen/phasegen/pkg/errors"
)

// ReplayConfig is the single configuration structure for a replay run.
// It is set once before generation starts and is immutable afterward;
// it may be shared read-only across worker threads.
type ReplayConfig struct {
	// Name identifies the replay run
	Name string `yaml:"name" json:"name"`
	// Source selects the batch producer by registered name (e.g. "arrow", "memory")
	Source string `yaml:"source" json:"source"`
	// Input is the input path for file-backed sources; ignored by sources
	// that do not read files
	Input string `yaml:"input" json:"input"`

	// Generator settings control per-event emission
	Generator GeneratorConfig `yaml:"generator" json:"generator"`

	// Grouping settings control "until next primary" event grouping
	Grouping GroupingConfig `yaml:"grouping" json:"grouping"`

	// Runtime settings control workers and batch sizing
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// GeneratorConfig contains the per-event generation settings.
type GeneratorConfig struct {
	// MaxEvents stops generation once this many events were produced per worker
	MaxEvents int64 `yaml:"max_events" json:"max_events"`
	// GlobalFrame emits records as-is; when false, positions and directions
	// are transformed by the owning geometry node's current placement
	GlobalFrame bool `yaml:"global_frame" json:"global_frame"`
	// Particle fixes the emitted particle type for the whole run.
	// Empty or "None" means the type is resolved per record from the
	// PDG code column.
	Particle string `yaml:"particle" json:"particle"`
	// StartTime is the simulation time stamped on every emitted vertex
	StartTime float64 `yaml:"start_time" json:"start_time"`
}

// GroupingConfig contains the "generate until next primary" settings.
// When enabled, consecutive records up to (but excluding) the next primary
// marker are emitted as one simulation event.
type GroupingConfig struct {
	// UntilNextPrimary enables grouped mode
	UntilNextPrimary bool `yaml:"until_next_primary" json:"until_next_primary"`
	// EnergyThreshold is the lower kinetic energy bound for a record to
	// count as a primary marker
	EnergyThreshold float64 `yaml:"energy_threshold" json:"energy_threshold"`
	// PrimaryPDGCode matches primaries by PDG code (0 = unset)
	PrimaryPDGCode int32 `yaml:"primary_pdg_code" json:"primary_pdg_code"`
	// PrimaryName matches primaries by particle name (empty = unset)
	PrimaryName string `yaml:"primary_name" json:"primary_name"`
}

// RuntimeConfig contains worker and batch sizing settings.
type RuntimeConfig struct {
	// Workers is the number of parallel replay workers
	Workers int `yaml:"workers" json:"workers"`
	// BatchSize is the preferred number of records per producer refill
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry span emission
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewReplayConfig creates a ReplayConfig with sensible defaults.
// Callers override what they need and then call Validate.
func NewReplayConfig() *ReplayConfig {
	return &ReplayConfig{
		Name:   "replay",
		Source: "memory",
		Generator: GeneratorConfig{
			MaxEvents:   0,
			GlobalFrame: false,
			Particle:    "",
			StartTime:   0,
		},
		Grouping: GroupingConfig{
			UntilNextPrimary: false,
			EnergyThreshold:  0,
		},
		Runtime: RuntimeConfig{
			Workers:   runtime.NumCPU(),
			BatchSize: 10000,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
			LogLevel:      "info",
		},
	}
}

// UseParticleTypeFromFile reports whether the particle type must be
// resolved per record from the PDG code column. An empty particle name or
// the literal "None" selects per-record resolution.
func (g *GeneratorConfig) UseParticleTypeFromFile() bool {
	return g.Particle == "" || g.Particle == "None"
}

// Validate validates the configuration for correctness. It catches
// structurally invalid setups before any worker starts pulling records.
func (c *ReplayConfig) Validate() error {
	if c.Generator.MaxEvents < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_events cannot be negative")
	}
	if c.Runtime.Workers <= 0 {
		return errors.New(errors.ErrorTypeConfig, "workers must be positive")
	}
	if c.Runtime.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "batch_size must be positive")
	}
	if c.Grouping.UntilNextPrimary {
		if c.Grouping.PrimaryPDGCode == 0 && c.Grouping.PrimaryName == "" {
			return errors.New(errors.ErrorTypeConfig,
				"grouping requires primary_pdg_code or primary_name")
		}
		if c.Grouping.EnergyThreshold < 0 {
			return errors.New(errors.ErrorTypeConfig, "energy_threshold cannot be negative")
		}
	}
	return nil
}
