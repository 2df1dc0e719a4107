package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phasegen/phasegen/internal/runner"
	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/geometry"
	"github.com/phasegen/phasegen/pkg/logger"
	"github.com/phasegen/phasegen/pkg/observability"
	"github.com/phasegen/phasegen/pkg/particle"
	"github.com/phasegen/phasegen/pkg/source"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "phasegen",
		Short: "Phasegen - phase-space primary replay engine",
		Long: `Phasegen replays recorded phase-space particles as simulation primaries.
It reads columnar phase-space files in batches and reconstructs events,
optionally grouping all records belonging to one original primary.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Phasegen v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "sources",
		Short: "List available phase-space sources",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available sources:")
			for _, name := range source.List() {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "particles",
		Short: "List the known particle types",
		Run: func(cmd *cobra.Command, args []string) {
			table := particle.DefaultTable()
			fmt.Println("Known particle types:")
			for _, name := range table.Names() {
				t, _ := table.FindByName(name)
				fmt.Printf("  %-12s PDG %-12d mass %g MeV\n", t.Name, t.PDG, t.Mass)
			}
		},
	})

	var configFile, input, particleName, logLevel string
	var maxEvents int64
	var workers, batchSize int
	var timeout time.Duration
	var globalFrame, enableMetrics, enableTracing bool

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Run a phase-space replay",
		Long: `Run a phase-space replay from a configuration file, with command line
overrides for the most common settings.

Example:
  phasegen replay --config replay.yaml --input beam.arrow --max-events 100000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadReplayConfig(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("input") {
				cfg.Source = "arrow"
				cfg.Input = input
			}
			if cmd.Flags().Changed("max-events") {
				cfg.Generator.MaxEvents = maxEvents
			}
			if cmd.Flags().Changed("particle") {
				cfg.Generator.Particle = particleName
			}
			if cmd.Flags().Changed("global-frame") {
				cfg.Generator.GlobalFrame = globalFrame
			}
			if cmd.Flags().Changed("workers") {
				cfg.Runtime.Workers = workers
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Runtime.BatchSize = batchSize
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Observability.LogLevel = logLevel
			}
			if cmd.Flags().Changed("enable-metrics") {
				cfg.Observability.EnableMetrics = enableMetrics
			}
			if cmd.Flags().Changed("enable-tracing") {
				cfg.Observability.EnableTracing = enableTracing
			}
			return runReplay(cfg, timeout)
		},
	}

	replayCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to replay configuration file (YAML or JSON)")
	replayCmd.Flags().StringVarP(&input, "input", "i", "", "Phase-space file to replay (selects the arrow source)")
	replayCmd.Flags().Int64Var(&maxEvents, "max-events", 0, "Events to generate per worker")
	replayCmd.Flags().StringVar(&particleName, "particle", "", "Fixed particle type; empty resolves per record from the PDG code")
	replayCmd.Flags().BoolVar(&globalFrame, "global-frame", false, "Emit records as-is instead of transforming into the attached volume frame")
	replayCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of parallel replay workers")
	replayCmd.Flags().IntVar(&batchSize, "batch-size", 10000, "Preferred records per batch refill")
	replayCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Replay timeout")
	replayCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	replayCmd.Flags().BoolVar(&enableMetrics, "enable-metrics", true, "Enable metrics collection")
	replayCmd.Flags().BoolVar(&enableTracing, "enable-tracing", false, "Enable trace span emission")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadReplayConfig(path string) (*config.ReplayConfig, error) {
	if path == "" {
		return config.NewReplayConfig(), nil
	}
	return config.Load(path)
}

func runReplay(cfg *config.ReplayConfig, timeout time.Duration) error {
	if err := logger.Init(logger.Config{Level: cfg.Observability.LogLevel}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Observability.EnableTracing {
		if err := observability.Init(observability.DefaultTracingConfig()); err != nil {
			return err
		}
	}

	log := logger.Get().With(
		zap.String("component", "phasegen-cli"),
		zap.String("source", cfg.Source),
	)
	log.Info("starting replay",
		zap.String("input", cfg.Input),
		zap.Int64("max_events", cfg.Generator.MaxEvents),
		zap.Int("workers", cfg.Runtime.Workers),
		zap.Int("batch_size", cfg.Runtime.BatchSize))

	r, err := runner.New(cfg, particle.DefaultTable(), geometry.NewNode("world"), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	summary, err := r.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("replay finished",
		zap.Int64("events", summary.Events),
		zap.Int64("vertices", summary.Vertices),
		zap.Duration("duration", summary.Duration),
		zap.Float64("events_per_second", float64(summary.Events)/summary.Duration.Seconds()))

	if cfg.Observability.EnableTracing {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := observability.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return nil
}
