// Package runner drives a multi-worker replay: each worker owns its own
// producer and engine pair and walks the stream independently, so no
// synchronization is needed on the replay hot path.
package runner

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/generator"
	"github.com/phasegen/phasegen/pkg/geometry"
	"github.com/phasegen/phasegen/pkg/logger"
	"github.com/phasegen/phasegen/pkg/observability"
	"github.com/phasegen/phasegen/pkg/particle"
	"github.com/phasegen/phasegen/pkg/phasespace"
	"github.com/phasegen/phasegen/pkg/source"
)

// EventSink receives every completed event. The sink is called from
// multiple workers concurrently and must be safe for that; the event is
// only valid for the duration of the call.
type EventSink func(workerID int, event *generator.Event)

// Summary reports what a finished replay run produced.
type Summary struct {
	Events   int64
	Vertices int64
	Workers  int
	Duration time.Duration
	// PerWorkerEvents holds the event count of each worker by index.
	PerWorkerEvents []int64
}

// Runner executes a replay run with the configured number of workers.
type Runner struct {
	cfg    *config.ReplayConfig
	table  *particle.Table
	node   *geometry.Node
	sink   EventSink
	logger *zap.Logger
}

// New builds a runner. The sink may be nil when only the summary counts
// matter (benchmark runs).
func New(cfg *config.ReplayConfig, table *particle.Table, node *geometry.Node, sink EventSink) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		table:  table,
		node:   node,
		sink:   sink,
		logger: logger.With(zap.String("component", "runner"), zap.String("run", cfg.Name)),
	}, nil
}

// Run replays the stream until every worker hits its event budget or the
// stream is exhausted. The first worker error aborts the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	r.logger.Info("starting replay run",
		zap.String("source", r.cfg.Source),
		zap.Int("workers", r.cfg.Runtime.Workers),
		zap.Int64("max_events", r.cfg.Generator.MaxEvents))

	var events, vertices atomic.Int64
	perWorker := make([]int64, r.cfg.Runtime.Workers)
	errorChan := make(chan error, r.cfg.Runtime.Workers)

	wg := &sync.WaitGroup{}
	for i := 0; i < r.cfg.Runtime.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			n, err := r.runWorker(ctx, id, &events, &vertices)
			perWorker[id] = n
			if err != nil {
				errorChan <- err
			}
		}(i)
	}
	wg.Wait()
	close(errorChan)

	if err := <-errorChan; err != nil {
		r.logger.Error("replay run failed", zap.Error(err))
		return nil, err
	}

	summary := &Summary{
		Events:          events.Load(),
		Vertices:        vertices.Load(),
		Workers:         r.cfg.Runtime.Workers,
		Duration:        time.Since(start),
		PerWorkerEvents: perWorker,
	}
	r.logger.Info("replay run completed",
		zap.Int64("events", summary.Events),
		zap.Int64("vertices", summary.Vertices),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (r *Runner) runWorker(ctx context.Context, id int, events, vertices *atomic.Int64) (int64, error) {
	workerCtx := context.WithValue(ctx, logger.WorkerKey, id)
	if r.cfg.Observability.EnableTracing {
		var spanCtx context.Context
		spanCtx, span := observability.StartRun(workerCtx, r.cfg.Source, id)
		defer span.End()
		workerCtx = spanCtx
	}
	log := logger.WithContext(workerCtx)

	producer, err := source.Create(r.cfg)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := producer.Close(); cerr != nil {
			log.Warn("source close failed", zap.Error(cerr))
		}
	}()

	produce := producer.Produce
	if r.cfg.Observability.EnableTracing {
		produce = func(batch *phasespace.RecordBatch) (int, error) {
			_, span := observability.StartRefill(workerCtx, r.cfg.Source)
			defer span.End()
			return producer.Produce(batch)
		}
	}

	engine, err := generator.NewEngine(r.cfg, produce, r.table, r.node)
	if err != nil {
		return 0, err
	}
	engine.PrepareNextRun()

	simTime := r.cfg.Generator.StartTime
	for {
		select {
		case <-ctx.Done():
			return engine.EventsGenerated(), errors.Wrap(ctx.Err(), errors.ErrorTypeInternal, "replay cancelled")
		default:
		}

		next := engine.PrepareNextTime(simTime)
		if next == generator.StopReplay {
			log.Debug("event budget reached",
				zap.Int64("events_generated", engine.EventsGenerated()))
			return engine.EventsGenerated(), nil
		}
		simTime = next

		event := generator.GetEvent()
		err := engine.GeneratePrimaries(event, simTime)
		if err != nil {
			generator.PutEvent(event)
			if stderrors.Is(err, generator.ErrStreamExhausted) {
				log.Debug("stream exhausted",
					zap.Int64("events_generated", engine.EventsGenerated()))
				return engine.EventsGenerated(), nil
			}
			return engine.EventsGenerated(), err
		}

		events.Add(1)
		vertices.Add(int64(event.Len()))
		if r.sink != nil {
			r.sink(id, event)
		}
		generator.PutEvent(event)
	}
}
