package source

import (
	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/phasespace"
)

// Columns is a full in-memory phase-space table in column order. Either
// PDGCode or ParticleName (or both) must be populated; the float columns
// must all have the same length.
type Columns struct {
	PosX, PosY, PosZ []float64
	DirX, DirY, DirZ []float64
	Energy           []float64
	Weight           []float64
	PDGCode          []int32
	Name             []string
}

// Len returns the number of rows in the table.
func (c *Columns) Len() int {
	return len(c.Energy)
}

func (c *Columns) validate() error {
	n := c.Len()
	aligned := len(c.PosX) == n && len(c.PosY) == n && len(c.PosZ) == n &&
		len(c.DirX) == n && len(c.DirY) == n && len(c.DirZ) == n &&
		len(c.Weight) == n
	if !aligned {
		return errors.New(errors.ErrorTypeData, "in-memory columns are not index-aligned")
	}
	if c.PDGCode != nil && len(c.PDGCode) != n {
		return errors.New(errors.ErrorTypeData, "pdg_code column is not index-aligned")
	}
	if c.Name != nil && len(c.Name) != n {
		return errors.New(errors.ErrorTypeData, "particle_name column is not index-aligned")
	}
	if n > 0 && c.PDGCode == nil && c.Name == nil {
		return errors.New(errors.ErrorTypeData,
			"in-memory table carries neither a PDG code nor a particle name column")
	}
	return nil
}

// MemoryProducer replays a fixed in-memory table in chunks. It backs
// tests and synthetic benchmark streams; batches are subslices of the
// table, so Produce never allocates.
type MemoryProducer struct {
	cols  *Columns
	chunk int
	pos   int
}

// NewMemoryProducer builds a producer over the given table. chunkSize
// bounds the number of records per Produce call.
func NewMemoryProducer(cols *Columns, chunkSize int) (*MemoryProducer, error) {
	if cols == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "in-memory table is required")
	}
	if err := cols.validate(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "chunk size must be positive")
	}
	return &MemoryProducer{cols: cols, chunk: chunkSize}, nil
}

// Produce delivers the next chunk of the table.
func (m *MemoryProducer) Produce(batch *phasespace.RecordBatch) (int, error) {
	remaining := m.cols.Len() - m.pos
	if remaining == 0 {
		return 0, nil
	}
	n := m.chunk
	if n > remaining {
		n = remaining
	}
	lo, hi := m.pos, m.pos+n

	batch.SetPositions(m.cols.PosX[lo:hi], m.cols.PosY[lo:hi], m.cols.PosZ[lo:hi])
	batch.SetDirections(m.cols.DirX[lo:hi], m.cols.DirY[lo:hi], m.cols.DirZ[lo:hi])
	batch.SetEnergies(m.cols.Energy[lo:hi])
	batch.SetWeights(m.cols.Weight[lo:hi])
	if m.cols.PDGCode != nil {
		batch.SetPDGCodes(m.cols.PDGCode[lo:hi])
	}
	if m.cols.Name != nil {
		batch.SetParticleNames(m.cols.Name[lo:hi])
	}

	m.pos = hi
	return n, nil
}

// Rewind restarts the producer at the first row.
func (m *MemoryProducer) Rewind() {
	m.pos = 0
}

// Close implements Producer; an in-memory table holds nothing to release.
func (m *MemoryProducer) Close() error {
	return nil
}

// SyntheticColumns builds a deterministic n-row gamma table for tests
// and benchmark runs.
func SyntheticColumns(n int) *Columns {
	cols := &Columns{
		PosX:    make([]float64, n),
		PosY:    make([]float64, n),
		PosZ:    make([]float64, n),
		DirX:    make([]float64, n),
		DirY:    make([]float64, n),
		DirZ:    make([]float64, n),
		Energy:  make([]float64, n),
		Weight:  make([]float64, n),
		PDGCode: make([]int32, n),
	}
	for i := 0; i < n; i++ {
		cols.PosX[i] = float64(i % 100)
		cols.PosY[i] = float64((i * 7) % 100)
		cols.PosZ[i] = -100
		cols.DirZ[i] = 1
		cols.Energy[i] = 0.1 + float64(i%60)*0.01
		cols.Weight[i] = 1
		cols.PDGCode[i] = 22
	}
	return cols
}

func newMemoryProducer(cfg *config.ReplayConfig) (Producer, error) {
	n := cfg.Runtime.BatchSize * 10
	return NewMemoryProducer(SyntheticColumns(n), cfg.Runtime.BatchSize)
}
