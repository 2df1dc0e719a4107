// Package phasespace provides the columnar in-memory storage for one
// delivered batch of phase-space records. A batch is a plain data holder:
// producers fill it column by column, the generator engine addresses
// records purely by index. Columns are adopted, not copied, so a producer
// that decodes into its own buffers hands them over without allocation.
package phasespace

import (
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/geometry"
)

// Record is an indexed view of one phase-space entry.
type Record struct {
	Index     int
	Position  geometry.Vec3
	Direction geometry.Vec3
	Energy    float64
	Weight    float64
	PDGCode   int32
	Name      string
}

// RecordBatch holds one delivered batch of records in column order.
// All float columns must be index-aligned; the PDG code and name columns
// are optional because a phase-space file carries one or the other.
//
// A batch belongs to exactly one worker and is never shared.
type RecordBatch struct {
	posX, posY, posZ []float64
	dirX, dirY, dirZ []float64
	energy           []float64
	weight           []float64
	pdgCode          []int32
	name             []string
}

// NewRecordBatch creates an empty batch.
func NewRecordBatch() *RecordBatch {
	return &RecordBatch{}
}

// Reset drops all column references so the batch can be refilled.
func (b *RecordBatch) Reset() {
	b.posX, b.posY, b.posZ = nil, nil, nil
	b.dirX, b.dirY, b.dirZ = nil, nil, nil
	b.energy = nil
	b.weight = nil
	b.pdgCode = nil
	b.name = nil
}

// SetPositions adopts the position columns.
func (b *RecordBatch) SetPositions(x, y, z []float64) {
	b.posX, b.posY, b.posZ = x, y, z
}

// SetDirections adopts the direction columns. Directions may be
// unnormalized; normalization happens at emission.
func (b *RecordBatch) SetDirections(x, y, z []float64) {
	b.dirX, b.dirY, b.dirZ = x, y, z
}

// SetEnergies adopts the kinetic energy column.
func (b *RecordBatch) SetEnergies(energy []float64) {
	b.energy = energy
}

// SetWeights adopts the statistical weight column.
func (b *RecordBatch) SetWeights(weight []float64) {
	b.weight = weight
}

// SetPDGCodes adopts the PDG code column. A zero code marks a record
// whose identity is absent from the file.
func (b *RecordBatch) SetPDGCodes(code []int32) {
	b.pdgCode = code
}

// SetParticleNames adopts the particle name column.
func (b *RecordBatch) SetParticleNames(name []string) {
	b.name = name
}

// Len returns the number of records in the batch.
func (b *RecordBatch) Len() int {
	return len(b.energy)
}

// Validate checks the batch against a producer-reported record count:
// every mandatory column must hold exactly n values, the identity
// columns must hold n values or be absent entirely.
func (b *RecordBatch) Validate(n int) error {
	if n == 0 {
		return nil
	}
	mandatory := map[string]int{
		"position_x":  len(b.posX),
		"position_y":  len(b.posY),
		"position_z":  len(b.posZ),
		"direction_x": len(b.dirX),
		"direction_y": len(b.dirY),
		"direction_z": len(b.dirZ),
		"energy":      len(b.energy),
		"weight":      len(b.weight),
	}
	for column, length := range mandatory {
		if length != n {
			return errors.Newf(errors.ErrorTypeData,
				"column %s holds %d values, batch reports %d records", column, length, n).
				WithDetail("column", column)
		}
	}
	if b.pdgCode != nil && len(b.pdgCode) != n {
		return errors.Newf(errors.ErrorTypeData,
			"column pdg_code holds %d values, batch reports %d records", len(b.pdgCode), n).
			WithDetail("column", "pdg_code")
	}
	if b.name != nil && len(b.name) != n {
		return errors.Newf(errors.ErrorTypeData,
			"column particle_name holds %d values, batch reports %d records", len(b.name), n).
			WithDetail("column", "particle_name")
	}
	if b.pdgCode == nil && b.name == nil {
		return errors.New(errors.ErrorTypeData,
			"batch carries neither a PDG code nor a particle name column")
	}
	return nil
}

// Record returns the indexed view of record i. The caller guarantees
// 0 <= i < Len().
func (b *RecordBatch) Record(i int) Record {
	r := Record{
		Index:     i,
		Position:  geometry.Vec3{X: b.posX[i], Y: b.posY[i], Z: b.posZ[i]},
		Direction: geometry.Vec3{X: b.dirX[i], Y: b.dirY[i], Z: b.dirZ[i]},
		Energy:    b.energy[i],
		Weight:    b.weight[i],
	}
	if b.pdgCode != nil {
		r.PDGCode = b.pdgCode[i]
	}
	if b.name != nil {
		r.Name = b.name[i]
	}
	return r
}
