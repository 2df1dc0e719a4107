package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/phasespace"
	"github.com/phasegen/phasegen/pkg/pool"
)

// arrowColumns maps the phase-space columns to their field index in the
// file schema. PDG and Name are -1 when the file does not carry them.
type arrowColumns struct {
	posX, posY, posZ int
	dirX, dirY, dirZ int
	energy           int
	weight           int
	pdg              int
	name             int
}

// ArrowProducer reads phase-space records from an Arrow IPC file. Each
// Produce call delivers one Arrow record batch, decoded into flat
// columns pulled from the shared column pools.
type ArrowProducer struct {
	reader     *ipc.FileReader
	cols       arrowColumns
	batchIndex int

	posX, posY, posZ []float64
	dirX, dirY, dirZ []float64
	energy, weight   []float64
	pdgCode          []int32
	names            []string
}

// NewArrowProducer opens an Arrow IPC phase-space file. Files ending in
// .gz or .zst are decompressed transparently. Each worker must open its
// own producer.
func NewArrowProducer(path string) (*ArrowProducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "cannot open phase-space file")
	}
	defer f.Close()

	var r io.Reader = f
	switch filepath.Ext(path) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "cannot open gzip stream")
		}
		defer gz.Close()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "cannot open zstd stream")
		}
		defer zr.Close()
		r = zr.IOReadCloser()
	}

	// The IPC file reader needs random access, so the decompressed
	// payload is held in memory for the lifetime of the producer.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "cannot read phase-space file")
	}

	reader, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "cannot decode Arrow IPC file")
	}

	cols, err := resolveColumns(reader.Schema())
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &ArrowProducer{reader: reader, cols: cols}, nil
}

func resolveColumns(schema *arrow.Schema) (arrowColumns, error) {
	find := func(name string) int {
		indices := schema.FieldIndices(name)
		if len(indices) == 0 {
			return -1
		}
		return indices[0]
	}
	mustFind := func(name string) (int, error) {
		idx := find(name)
		if idx < 0 {
			return -1, errors.Newf(errors.ErrorTypeData,
				"phase-space file is missing column %s", name).
				WithDetail("column", name)
		}
		return idx, nil
	}

	var cols arrowColumns
	var err error
	if cols.posX, err = mustFind(ColPrePositionX); err != nil {
		return cols, err
	}
	if cols.posY, err = mustFind(ColPrePositionY); err != nil {
		return cols, err
	}
	if cols.posZ, err = mustFind(ColPrePositionZ); err != nil {
		return cols, err
	}
	if cols.dirX, err = mustFind(ColPreDirectionX); err != nil {
		return cols, err
	}
	if cols.dirY, err = mustFind(ColPreDirectionY); err != nil {
		return cols, err
	}
	if cols.dirZ, err = mustFind(ColPreDirectionZ); err != nil {
		return cols, err
	}
	if cols.energy, err = mustFind(ColKineticEnergy); err != nil {
		return cols, err
	}
	if cols.weight, err = mustFind(ColWeight); err != nil {
		return cols, err
	}
	cols.pdg = find(ColPDGCode)
	cols.name = find(ColParticleName)
	if cols.pdg < 0 && cols.name < 0 {
		return cols, errors.New(errors.ErrorTypeData,
			"phase-space file carries neither a PDGCode nor a ParticleName column")
	}
	return cols, nil
}

// Produce decodes the next Arrow record batch into the given batch.
func (a *ArrowProducer) Produce(batch *phasespace.RecordBatch) (int, error) {
	if a.batchIndex >= a.reader.NumRecords() {
		return 0, nil
	}
	rec, err := a.reader.Record(a.batchIndex)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeSource, "cannot read Arrow record batch")
	}
	a.batchIndex++

	n := int(rec.NumRows())
	if n == 0 {
		// An empty batch is legal in the file; skip to the next one.
		return a.Produce(batch)
	}
	a.grow(n)

	if err := a.decodeFloats(rec, n); err != nil {
		return 0, err
	}
	batch.SetPositions(a.posX[:n], a.posY[:n], a.posZ[:n])
	batch.SetDirections(a.dirX[:n], a.dirY[:n], a.dirZ[:n])
	batch.SetEnergies(a.energy[:n])
	batch.SetWeights(a.weight[:n])

	if a.cols.pdg >= 0 {
		if err := decodeInt32Column(rec.Column(a.cols.pdg), a.pdgCode[:n], ColPDGCode); err != nil {
			return 0, err
		}
		batch.SetPDGCodes(a.pdgCode[:n])
	}
	if a.cols.name >= 0 {
		if err := decodeStringColumn(rec.Column(a.cols.name), a.names[:n], ColParticleName); err != nil {
			return 0, err
		}
		batch.SetParticleNames(a.names[:n])
	}
	return n, nil
}

func (a *ArrowProducer) decodeFloats(rec arrow.Record, n int) error {
	pairs := []struct {
		idx  int
		dst  []float64
		name string
	}{
		{a.cols.posX, a.posX, ColPrePositionX},
		{a.cols.posY, a.posY, ColPrePositionY},
		{a.cols.posZ, a.posZ, ColPrePositionZ},
		{a.cols.dirX, a.dirX, ColPreDirectionX},
		{a.cols.dirY, a.dirY, ColPreDirectionY},
		{a.cols.dirZ, a.dirZ, ColPreDirectionZ},
		{a.cols.energy, a.energy, ColKineticEnergy},
		{a.cols.weight, a.weight, ColWeight},
	}
	for _, p := range pairs {
		if err := decodeFloatColumn(rec.Column(p.idx), p.dst[:n], p.name); err != nil {
			return err
		}
	}
	return nil
}

// grow sizes the decode buffers for n records, swapping pooled columns
// when the current ones are too small.
func (a *ArrowProducer) grow(n int) {
	if cap(a.posX) >= n {
		return
	}
	a.release()
	a.posX = pool.GetFloat64Column(n)[:n]
	a.posY = pool.GetFloat64Column(n)[:n]
	a.posZ = pool.GetFloat64Column(n)[:n]
	a.dirX = pool.GetFloat64Column(n)[:n]
	a.dirY = pool.GetFloat64Column(n)[:n]
	a.dirZ = pool.GetFloat64Column(n)[:n]
	a.energy = pool.GetFloat64Column(n)[:n]
	a.weight = pool.GetFloat64Column(n)[:n]
	if a.cols.pdg >= 0 {
		a.pdgCode = pool.GetInt32Column(n)[:n]
	}
	if a.cols.name >= 0 {
		a.names = pool.GetStringColumn(n)[:n]
	}
}

func (a *ArrowProducer) release() {
	for _, col := range [][]float64{a.posX, a.posY, a.posZ, a.dirX, a.dirY, a.dirZ, a.energy, a.weight} {
		if col != nil {
			pool.PutFloat64Column(col)
		}
	}
	a.posX, a.posY, a.posZ = nil, nil, nil
	a.dirX, a.dirY, a.dirZ = nil, nil, nil
	a.energy, a.weight = nil, nil
	if a.pdgCode != nil {
		pool.PutInt32Column(a.pdgCode)
		a.pdgCode = nil
	}
	if a.names != nil {
		pool.PutStringColumn(a.names)
		a.names = nil
	}
}

// Close releases the decode buffers and the underlying reader.
func (a *ArrowProducer) Close() error {
	a.release()
	return a.reader.Close()
}

func decodeFloatColumn(col arrow.Array, dst []float64, name string) error {
	switch c := col.(type) {
	case *array.Float64:
		copy(dst, c.Float64Values()[:len(dst)])
	case *array.Float32:
		vals := c.Float32Values()
		for i := range dst {
			dst[i] = float64(vals[i])
		}
	default:
		return errors.Newf(errors.ErrorTypeData,
			"column %s has unsupported type %s, expected float", name, col.DataType()).
			WithDetail("column", name)
	}
	return nil
}

func decodeInt32Column(col arrow.Array, dst []int32, name string) error {
	switch c := col.(type) {
	case *array.Int32:
		copy(dst, c.Int32Values()[:len(dst)])
	case *array.Int64:
		vals := c.Int64Values()
		for i := range dst {
			dst[i] = int32(vals[i])
		}
	default:
		return errors.Newf(errors.ErrorTypeData,
			"column %s has unsupported type %s, expected integer", name, col.DataType()).
			WithDetail("column", name)
	}
	return nil
}

func decodeStringColumn(col arrow.Array, dst []string, name string) error {
	c, ok := col.(*array.String)
	if !ok {
		return errors.Newf(errors.ErrorTypeData,
			"column %s has unsupported type %s, expected string", name, col.DataType()).
			WithDetail("column", name)
	}
	for i := range dst {
		dst[i] = c.Value(i)
	}
	return nil
}

func newArrowProducer(cfg *config.ReplayConfig) (Producer, error) {
	if cfg.Input == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "arrow source requires an input path")
	}
	return NewArrowProducer(cfg.Input)
}
