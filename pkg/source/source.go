// Package source provides the batch producers that feed the generator
// engine: an in-memory producer for tests and synthetic streams, and an
// Arrow-backed producer for phase-space files. Producers are registered
// by name and created from the replay configuration.
package source

import (
	"github.com/phasegen/phasegen/pkg/phasespace"
)

// Producer delivers phase-space records batch by batch. Produce fills
// the given batch and returns the number of records delivered; 0 means
// the stream is exhausted. A producer serves exactly one worker.
type Producer interface {
	Produce(batch *phasespace.RecordBatch) (int, error)
	Close() error
}

// Column names recognized in phase-space files. They follow the usual
// phase-space actor output layout.
const (
	ColPrePositionX  = "PrePosition_X"
	ColPrePositionY  = "PrePosition_Y"
	ColPrePositionZ  = "PrePosition_Z"
	ColPreDirectionX = "PreDirection_X"
	ColPreDirectionY = "PreDirection_Y"
	ColPreDirectionZ = "PreDirection_Z"
	ColKineticEnergy = "KineticEnergy"
	ColWeight        = "Weight"
	ColPDGCode       = "PDGCode"
	ColParticleName  = "ParticleName"
)
