// Package generator implements the batched primary replay engine: it
// pulls phase-space records from a producer in batches, tracks a
// per-worker cursor through the stream, and emits one simulation event's
// worth of primary vertices per invocation.
package generator

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/geometry"
	"github.com/phasegen/phasegen/pkg/logger"
	"github.com/phasegen/phasegen/pkg/metrics"
	"github.com/phasegen/phasegen/pkg/particle"
	"github.com/phasegen/phasegen/pkg/phasespace"
)

// StopReplay is the sentinel returned by PrepareNextTime once this
// worker's event budget is spent.
const StopReplay = -1

// ErrStreamExhausted reports that the batch producer has no more records.
// It is a terminal condition, not a failure: the stream simply ended
// before the event budget did.
var ErrStreamExhausted = stderrors.New("phase-space stream exhausted")

// BatchProducer fills the given batch with the next chunk of phase-space
// records and returns the number of records produced. Returning 0 signals
// stream exhaustion. The producer is called synchronously from the worker
// that owns the engine and may perform arbitrary work (decoding the next
// chunk of a file, for instance).
type BatchProducer func(batch *phasespace.RecordBatch) (int, error)

// Cursor is the per-worker position in the record stream. It is owned by
// exactly one engine and mutated only by it; nothing here is shared.
//
// Invariant: 0 <= Index <= BatchSize. Index == BatchSize means the next
// read requires a refill.
type Cursor struct {
	Index           int
	BatchSize       int
	EventsGenerated int64
}

// Reset returns the cursor to its initial state.
func (c *Cursor) Reset() {
	c.Index = 0
	c.BatchSize = 0
	c.EventsGenerated = 0
}

// typeResolver turns a record into a concrete particle type. The variant
// is chosen once at engine construction: either every vertex carries one
// statically configured type, or each record's PDG code is looked up.
type typeResolver interface {
	resolve(rec phasespace.Record) (particle.Type, error)
}

// staticType emits the same pre-resolved species for every record.
type staticType struct {
	def particle.Type
}

func (s staticType) resolve(phasespace.Record) (particle.Type, error) {
	return s.def, nil
}

// perRecordType resolves each record's PDG code against the table.
// A record without a code is fatal: emitting a vertex with an unknown
// particle type would silently corrupt downstream physics.
type perRecordType struct {
	table *particle.Table
}

func (p perRecordType) resolve(rec phasespace.Record) (particle.Type, error) {
	if rec.PDGCode == 0 {
		return particle.Type{}, errors.New(errors.ErrorTypeParticle,
			"PDG code not available for record").
			WithRecordIndex(rec.Index).
			WithDetail("field", "pdg_code")
	}
	t, err := p.table.FindByCode(rec.PDGCode)
	if err != nil {
		return particle.Type{}, errors.Wrap(err, errors.ErrorTypeParticle,
			"cannot resolve record particle type").
			WithRecordIndex(rec.Index)
	}
	return t, nil
}

// Engine replays phase-space records as simulation primaries. One engine
// instance is constructed per worker; the configuration, particle table
// and geometry node it references are shared read-only.
type Engine struct {
	cfg      *config.ReplayConfig
	produce  BatchProducer
	types    typeResolver
	node     *geometry.Node
	grouping *PrimaryClassifier

	cursor Cursor
	batch  *phasespace.RecordBatch

	source  string
	metrics bool
	log     *zap.Logger
}

// NewEngine builds an engine from a validated configuration. The static
// particle type (when configured) and the grouping classifier are
// resolved here, once, so generation never branches on configuration
// strings.
func NewEngine(cfg *config.ReplayConfig, produce BatchProducer, table *particle.Table, node *geometry.Node) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if produce == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "batch producer is required")
	}

	e := &Engine{
		cfg:     cfg,
		produce: produce,
		node:    node,
		batch:   phasespace.NewRecordBatch(),
		source:  cfg.Source,
		metrics: cfg.Observability.EnableMetrics,
		log: logger.With(
			zap.String("component", "generator"),
			zap.String("source", cfg.Source),
		),
	}

	if cfg.Generator.UseParticleTypeFromFile() {
		e.types = perRecordType{table: table}
	} else {
		def, err := table.FindByName(cfg.Generator.Particle)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig,
				"configured particle is not in the table")
		}
		e.types = staticType{def: def}
	}

	if cfg.Grouping.UntilNextPrimary {
		classifier, err := NewPrimaryClassifier(cfg.Grouping)
		if err != nil {
			return nil, err
		}
		e.grouping = classifier
	}

	e.cursor.Reset()
	return e, nil
}

// Cursor returns a snapshot of the per-worker cursor.
func (e *Engine) Cursor() Cursor {
	return e.cursor
}

// EventsGenerated returns the number of events emitted so far.
func (e *Engine) EventsGenerated() int64 {
	return e.cursor.EventsGenerated
}

// PrepareNextRun hooks the start of a simulation run. The geometry
// node's placement may have been re-pointed since the last run; it is
// read fresh on every emission, so nothing is cached here.
func (e *Engine) PrepareNextRun() {
	e.log.Debug("preparing next run",
		zap.Int64("events_generated", e.cursor.EventsGenerated))
}

// ShouldStopGenerating reports whether this worker's event budget is
// spent.
func (e *Engine) ShouldStopGenerating() bool {
	return e.cursor.EventsGenerated >= e.cfg.Generator.MaxEvents
}

// PrepareNextTime returns the simulation time of the next event, or
// StopReplay once the event budget is spent. Phase-space replay carries
// no intrinsic timing, so every event is stamped with the configured
// start time.
func (e *Engine) PrepareNextTime(currentTime float64) float64 {
	if e.ShouldStopGenerating() {
		return StopReplay
	}
	return e.cfg.Generator.StartTime
}

// ensureRecordAvailable refills the batch from the producer when the
// cursor has consumed it. It reports false, with no error, when the
// producer signals stream exhaustion.
func (e *Engine) ensureRecordAvailable() (bool, error) {
	if e.cursor.Index < e.cursor.BatchSize {
		return true, nil
	}

	timer := metrics.NewTimer()
	e.batch.Reset()
	n, err := e.produce(e.batch)
	elapsed := timer.Stop()

	if err != nil {
		if e.metrics {
			metrics.ObserveRefill(e.source, metrics.OutcomeError, elapsed)
		}
		return false, errors.Wrap(err, errors.ErrorTypeSource, "batch producer failed")
	}
	if n < 0 {
		if e.metrics {
			metrics.ObserveRefill(e.source, metrics.OutcomeError, elapsed)
		}
		return false, errors.Newf(errors.ErrorTypeSource,
			"batch producer returned negative count %d", n)
	}
	if n == 0 {
		if e.metrics {
			metrics.ObserveRefill(e.source, metrics.OutcomeExhausted, elapsed)
		}
		e.cursor.Index = 0
		e.cursor.BatchSize = 0
		return false, nil
	}
	if err := e.batch.Validate(n); err != nil {
		return false, err
	}

	e.cursor.Index = 0
	e.cursor.BatchSize = n
	if e.metrics {
		metrics.ObserveRefill(e.source, metrics.OutcomeFilled, elapsed)
	}
	e.log.Debug("batch refilled",
		zap.Int("batch_size", n),
		zap.Duration("refill_time", elapsed))
	return true, nil
}

// GeneratePrimaries populates one simulation event from the record
// stream. In simple mode the event holds exactly one vertex; in
// until-next-primary mode it holds a primary and all records up to, but
// excluding, the next primary marker.
//
// On error no further vertex is appended and the caller must discard the
// event; ErrStreamExhausted means the stream ended and is not a failure.
func (e *Engine) GeneratePrimaries(event *Event, currentTime float64) error {
	if e.grouping != nil {
		return e.generateUntilNextPrimary(event, currentTime)
	}

	ok, err := e.ensureRecordAvailable()
	if err != nil {
		return err
	}
	if !ok {
		return ErrStreamExhausted
	}

	rec := e.batch.Record(e.cursor.Index)
	if err := e.emitVertex(event, rec, currentTime); err != nil {
		return err
	}
	e.cursor.Index++
	e.cursor.EventsGenerated++
	if e.metrics {
		metrics.EventsGenerated.WithLabelValues(e.source).Inc()
	}
	return nil
}

// generateUntilNextPrimary emits records until the second primary marker
// is seen. The second primary is neither consumed nor emitted: it stays
// at the cursor to seed the next event. The first record of the whole
// stream therefore always opens the first group.
func (e *Engine) generateUntilNextPrimary(event *Event, currentTime float64) error {
	primaries := 0
	emitted := 0

	for {
		ok, err := e.ensureRecordAvailable()
		if err != nil {
			return err
		}
		if !ok {
			if emitted == 0 {
				return ErrStreamExhausted
			}
			// The group was cut short by the end of the stream; what was
			// emitted still forms a complete event.
			break
		}

		rec := e.batch.Record(e.cursor.Index)
		isPrimary, err := e.grouping.IsPrimary(rec)
		if err != nil {
			return err
		}
		if isPrimary {
			primaries++
		}
		if primaries >= 2 {
			break
		}

		if err := e.emitVertex(event, rec, currentTime); err != nil {
			return err
		}
		e.cursor.Index++
		emitted++
	}

	e.cursor.EventsGenerated++
	if e.metrics {
		metrics.EventsGenerated.WithLabelValues(e.source).Inc()
		metrics.GroupSize.Observe(float64(emitted))
	}
	return nil
}

// emitVertex builds one vertex from a record and appends it to the
// event. The vertex is fully assembled before the append, so a
// resolution failure never leaves a partial vertex on the event.
func (e *Engine) emitVertex(event *Event, rec phasespace.Record, simTime float64) error {
	ptype, err := e.types.resolve(rec)
	if err != nil {
		return err
	}

	pos := rec.Position
	dir := rec.Direction.Normalized()
	if !e.cfg.Generator.GlobalFrame {
		// The node placement is read fresh: it may be re-pointed between
		// simulation runs.
		tr := e.node.CurrentTransform()
		pos = tr.ApplyPoint(pos)
		dir = tr.Rotation.Apply(dir)
	}

	v := getVertex()
	v.Position = pos
	v.Time = simTime
	v.Weight = rec.Weight
	v.Particle = Particle{
		Type:      ptype,
		Direction: dir,
		Energy:    rec.Energy,
		Charge:    ptype.Charge,
		Mass:      ptype.Mass,
	}
	event.AddVertex(v)

	if e.metrics {
		metrics.RecordsReplayed.WithLabelValues(e.source).Inc()
	}
	return nil
}
