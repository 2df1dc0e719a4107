package generator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/geometry"
	"github.com/phasegen/phasegen/pkg/particle"
	"github.com/phasegen/phasegen/pkg/phasespace"
)

// streamRecord is one row of a test stream in record order.
type streamRecord struct {
	pos    geometry.Vec3
	dir    geometry.Vec3
	energy float64
	weight float64
	pdg    int32
	name   string
}

// stubProducer replays a fixed record slice in chunks, mimicking a file
// reader that decodes a bounded number of rows per call.
type stubProducer struct {
	records   []streamRecord
	chunk     int
	pos       int
	calls     int
	withCodes bool
	withNames bool
	err       error
}

func (p *stubProducer) produce(batch *phasespace.RecordBatch) (int, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	remaining := len(p.records) - p.pos
	if remaining == 0 {
		return 0, nil
	}
	n := p.chunk
	if n <= 0 || n > remaining {
		n = remaining
	}

	px := make([]float64, n)
	py := make([]float64, n)
	pz := make([]float64, n)
	dx := make([]float64, n)
	dy := make([]float64, n)
	dz := make([]float64, n)
	energy := make([]float64, n)
	weight := make([]float64, n)
	var codes []int32
	var names []string
	if p.withCodes {
		codes = make([]int32, n)
	}
	if p.withNames {
		names = make([]string, n)
	}

	for i := 0; i < n; i++ {
		r := p.records[p.pos+i]
		px[i], py[i], pz[i] = r.pos.X, r.pos.Y, r.pos.Z
		dx[i], dy[i], dz[i] = r.dir.X, r.dir.Y, r.dir.Z
		energy[i] = r.energy
		weight[i] = r.weight
		if codes != nil {
			codes[i] = r.pdg
		}
		if names != nil {
			names[i] = r.name
		}
	}
	p.pos += n

	batch.SetPositions(px, py, pz)
	batch.SetDirections(dx, dy, dz)
	batch.SetEnergies(energy)
	batch.SetWeights(weight)
	if codes != nil {
		batch.SetPDGCodes(codes)
	}
	if names != nil {
		batch.SetParticleNames(names)
	}
	return n, nil
}

func testConfig() *config.ReplayConfig {
	cfg := config.NewReplayConfig()
	cfg.Generator.MaxEvents = 1000
	cfg.Generator.GlobalFrame = true
	cfg.Generator.Particle = "gamma"
	cfg.Observability.EnableMetrics = false
	return cfg
}

func gammaStream(n int) []streamRecord {
	recs := make([]streamRecord, n)
	for i := range recs {
		recs[i] = streamRecord{
			pos:    geometry.Vec3{X: float64(i), Y: float64(i) * 2, Z: float64(i) * 3},
			dir:    geometry.Vec3{Z: 1},
			energy: 1 + float64(i),
			weight: 1,
			pdg:    22,
		}
	}
	return recs
}

func TestEngineSimpleMode(t *testing.T) {
	t.Run("one record per event in stream order", func(t *testing.T) {
		producer := &stubProducer{records: gammaStream(5), chunk: 2, withCodes: true}
		engine, err := NewEngine(testConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			event := NewEvent()
			require.NoError(t, engine.GeneratePrimaries(event, 0))
			require.Equal(t, 1, event.Len())
			v := event.Vertices()[0]
			assert.Equal(t, float64(i), v.Position.X)
			assert.Equal(t, 1+float64(i), v.Particle.Energy)
		}
		assert.Equal(t, int64(5), engine.EventsGenerated())
		// 5 records in chunks of 2 means 3 refills.
		assert.Equal(t, 3, producer.calls)
	})

	t.Run("exhaustion is reported as ErrStreamExhausted", func(t *testing.T) {
		producer := &stubProducer{records: gammaStream(2), chunk: 2, withCodes: true}
		engine, err := NewEngine(testConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			require.NoError(t, engine.GeneratePrimaries(NewEvent(), 0))
		}
		err = engine.GeneratePrimaries(NewEvent(), 0)
		assert.ErrorIs(t, err, ErrStreamExhausted)
		assert.Equal(t, int64(2), engine.EventsGenerated())
	})

	t.Run("vertex carries the simulation time and weight", func(t *testing.T) {
		recs := gammaStream(1)
		recs[0].weight = 0.25
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(testConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 12.5))
		v := event.Vertices()[0]
		assert.Equal(t, 12.5, v.Time)
		assert.Equal(t, 0.25, v.Weight)
	})
}

func TestEngineStopConditions(t *testing.T) {
	t.Run("PrepareNextTime returns the start time while under budget", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.MaxEvents = 2
		cfg.Generator.StartTime = 3.5
		producer := &stubProducer{records: gammaStream(10), withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		assert.Equal(t, 3.5, engine.PrepareNextTime(0))
		require.NoError(t, engine.GeneratePrimaries(NewEvent(), 3.5))
		assert.Equal(t, 3.5, engine.PrepareNextTime(3.5))
		require.NoError(t, engine.GeneratePrimaries(NewEvent(), 3.5))

		assert.True(t, engine.ShouldStopGenerating())
		assert.Equal(t, float64(StopReplay), engine.PrepareNextTime(3.5))
	})

	t.Run("zero event budget stops immediately", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.MaxEvents = 0
		producer := &stubProducer{records: gammaStream(10), withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		assert.True(t, engine.ShouldStopGenerating())
		assert.Equal(t, float64(StopReplay), engine.PrepareNextTime(0))
	})
}

func TestEngineTypeResolution(t *testing.T) {
	t.Run("static type overrides the record identity", func(t *testing.T) {
		recs := gammaStream(1)
		recs[0].pdg = 2212
		cfg := testConfig()
		cfg.Generator.Particle = "e-"
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		p := event.Vertices()[0].Particle
		assert.Equal(t, "e-", p.Type.Name)
		assert.Equal(t, int32(11), p.Type.PDG)
		assert.InDelta(t, 0.51099895, p.Mass, 1e-9)
	})

	t.Run("per-record resolution uses the PDG column", func(t *testing.T) {
		recs := gammaStream(2)
		recs[0].pdg = 2212
		recs[1].pdg = 11
		cfg := testConfig()
		cfg.Generator.Particle = "None"
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, "proton", event.Vertices()[0].Particle.Type.Name)

		event = NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, "e-", event.Vertices()[0].Particle.Type.Name)
	})

	t.Run("missing PDG code is a particle error with the record index", func(t *testing.T) {
		recs := gammaStream(2)
		recs[1].pdg = 0
		cfg := testConfig()
		cfg.Generator.Particle = ""
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))

		event = NewEvent()
		err = engine.GeneratePrimaries(event, 0)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeParticle))
		assert.Equal(t, 1, errors.RecordIndex(err))
		assert.Equal(t, 0, event.Len())
	})

	t.Run("unknown static particle fails at construction", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.Particle = "unobtainium"
		producer := &stubProducer{records: gammaStream(1), withCodes: true}
		_, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}

func TestEngineFrameTransform(t *testing.T) {
	node := geometry.NewNode("detector")
	node.SetTransform(geometry.Transform{
		Rotation:    geometry.RotationZ(math.Pi / 2),
		Translation: geometry.Vec3{X: 10},
	})

	recs := []streamRecord{{
		pos:    geometry.Vec3{X: 1},
		dir:    geometry.Vec3{X: 2}, // unnormalized on purpose
		energy: 5,
		weight: 1,
		pdg:    22,
	}}

	t.Run("local frame applies the node placement", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.GlobalFrame = false
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), node)
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		v := event.Vertices()[0]
		// Rotation by pi/2 about Z sends +X to +Y, then translate.
		assert.InDelta(t, 10, v.Position.X, 1e-12)
		assert.InDelta(t, 1, v.Position.Y, 1e-12)
		assert.InDelta(t, 0, v.Particle.Direction.X, 1e-12)
		assert.InDelta(t, 1, v.Particle.Direction.Y, 1e-12)
	})

	t.Run("identity placement leaves records unchanged", func(t *testing.T) {
		cfg := testConfig()
		cfg.Generator.GlobalFrame = false
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		v := event.Vertices()[0]
		assert.Equal(t, geometry.Vec3{X: 1}, v.Position)
		assert.Equal(t, geometry.Vec3{X: 1}, v.Particle.Direction)
	})

	t.Run("global frame emits records as-is with normalized direction", func(t *testing.T) {
		cfg := testConfig()
		producer := &stubProducer{records: recs, withCodes: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), node)
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		v := event.Vertices()[0]
		assert.Equal(t, geometry.Vec3{X: 1}, v.Position)
		assert.Equal(t, geometry.Vec3{X: 1}, v.Particle.Direction)
	})
}

func TestEngineGroupedMode(t *testing.T) {
	groupedConfig := func() *config.ReplayConfig {
		cfg := testConfig()
		cfg.Grouping.UntilNextPrimary = true
		cfg.Grouping.PrimaryPDGCode = 22
		cfg.Grouping.EnergyThreshold = 5
		return cfg
	}

	// Stream: primary, secondary, secondary, primary, secondary.
	groupedStream := []streamRecord{
		{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, pdg: 22},
		{dir: geometry.Vec3{Z: 1}, energy: 1, weight: 1, pdg: 11},
		{dir: geometry.Vec3{Z: 1}, energy: 2, weight: 1, pdg: 11},
		{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, pdg: 22},
		{dir: geometry.Vec3{Z: 1}, energy: 3, weight: 1, pdg: 11},
	}

	t.Run("group runs up to but excluding the next primary", func(t *testing.T) {
		producer := &stubProducer{records: groupedStream, withCodes: true}
		engine, err := NewEngine(groupedConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		require.Equal(t, 3, event.Len())
		assert.Equal(t, 10.0, event.Vertices()[0].Particle.Energy)
		assert.Equal(t, 1.0, event.Vertices()[1].Particle.Energy)
		assert.Equal(t, 2.0, event.Vertices()[2].Particle.Energy)
		assert.Equal(t, int64(1), engine.EventsGenerated())
	})

	t.Run("withheld primary seeds the next event", func(t *testing.T) {
		producer := &stubProducer{records: groupedStream, withCodes: true}
		engine, err := NewEngine(groupedConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		require.NoError(t, engine.GeneratePrimaries(NewEvent(), 0))

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		require.Equal(t, 2, event.Len())
		assert.Equal(t, 10.0, event.Vertices()[0].Particle.Energy)
		assert.Equal(t, 3.0, event.Vertices()[1].Particle.Energy)
		assert.Equal(t, int64(2), engine.EventsGenerated())

		err = engine.GeneratePrimaries(NewEvent(), 0)
		assert.ErrorIs(t, err, ErrStreamExhausted)
	})

	t.Run("group boundary is found across batch refills", func(t *testing.T) {
		producer := &stubProducer{records: groupedStream, chunk: 2, withCodes: true}
		engine, err := NewEngine(groupedConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, 3, event.Len())

		event = NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, 2, event.Len())
	})

	t.Run("low energy record does not open a group", func(t *testing.T) {
		stream := []streamRecord{
			{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, pdg: 22},
			{dir: geometry.Vec3{Z: 1}, energy: 2, weight: 1, pdg: 22}, // below threshold
			{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, pdg: 22},
		}
		producer := &stubProducer{records: stream, withCodes: true}
		engine, err := NewEngine(groupedConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, 2, event.Len())
	})

	t.Run("name matching classifies when codes are absent", func(t *testing.T) {
		stream := []streamRecord{
			{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, name: "gamma"},
			{dir: geometry.Vec3{Z: 1}, energy: 1, weight: 1, name: "e-"},
			{dir: geometry.Vec3{Z: 1}, energy: 10, weight: 1, name: "gamma"},
		}
		cfg := groupedConfig()
		cfg.Grouping.PrimaryPDGCode = 0
		cfg.Grouping.PrimaryName = "gamma"
		producer := &stubProducer{records: stream, withNames: true}
		engine, err := NewEngine(cfg, producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		event := NewEvent()
		require.NoError(t, engine.GeneratePrimaries(event, 0))
		assert.Equal(t, 2, event.Len())
	})

	t.Run("empty stream reports exhaustion even in grouped mode", func(t *testing.T) {
		producer := &stubProducer{records: nil, withCodes: true}
		engine, err := NewEngine(groupedConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		err = engine.GeneratePrimaries(NewEvent(), 0)
		assert.ErrorIs(t, err, ErrStreamExhausted)
		assert.Equal(t, int64(0), engine.EventsGenerated())
	})
}

func TestEngineProducerErrors(t *testing.T) {
	t.Run("producer failure surfaces as a source error", func(t *testing.T) {
		producer := &stubProducer{err: assert.AnError}
		engine, err := NewEngine(testConfig(), producer.produce, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		err = engine.GeneratePrimaries(NewEvent(), 0)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
	})

	t.Run("misaligned columns surface as a data error", func(t *testing.T) {
		engine, err := NewEngine(testConfig(), func(batch *phasespace.RecordBatch) (int, error) {
			batch.SetPositions([]float64{0, 0}, []float64{0, 0}, []float64{0, 0})
			batch.SetDirections([]float64{0, 0}, []float64{0, 0}, []float64{1, 1})
			batch.SetEnergies([]float64{1}) // one short
			batch.SetWeights([]float64{1, 1})
			batch.SetPDGCodes([]int32{22, 22})
			return 2, nil
		}, particle.DefaultTable(), geometry.NewNode("world"))
		require.NoError(t, err)

		err = engine.GeneratePrimaries(NewEvent(), 0)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	})

	t.Run("nil producer fails at construction", func(t *testing.T) {
		_, err := NewEngine(testConfig(), nil, particle.DefaultTable(), geometry.NewNode("world"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})
}
