// Package phasegen is a batched phase-space primary replay engine.
//
// phasegen reconstructs individual simulation primaries (position,
// direction, energy, weight, particle type) from externally supplied
// phase-space records and feeds them one simulation event at a time into
// an event consumer. Records arrive in columnar batches pulled on demand
// from a BatchProducer; a per-worker cursor tracks progress through the
// stream so that multiple workers can replay independent streams without
// any shared mutable state.
//
// # Architecture
//
// The repository is organized around a small set of packages:
//
//   - phasespace: columnar RecordBatch storage and indexed record views
//   - generator: the replay engine (cursor protocol, primary grouping,
//     vertex emission, stop condition)
//   - source: BatchProducer implementations (in-memory, Arrow IPC)
//   - particle: PDG particle table with charge/mass resolution
//   - geometry: rigid-body frame transforms for local placements
//   - runner: per-worker replay loops and run summaries
//
// # Basic Usage
//
//	cfg := config.NewReplayConfig()
//	cfg.Generator.MaxEvents = 1000
//
//	producer, err := source.NewMemoryProducer(columns, 256)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := generator.NewEngine(cfg, producer.Produce,
//	    particle.DefaultTable(), geometry.NewNode("world"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    t := engine.PrepareNextTime(0)
//	    if t == generator.StopReplay {
//	        break
//	    }
//	    event := generator.NewEvent()
//	    if err := engine.GeneratePrimaries(event, t); err != nil {
//	        break
//	    }
//	}
package phasegen
