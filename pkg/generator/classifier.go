package generator

import (
	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/phasespace"
)

// PrimaryClassifier decides whether a record marks the start of a new
// primary group. Matching is by PDG code when both the record and the
// configuration carry one, falling back to the particle name; in either
// path the record's energy must reach the configured threshold.
type PrimaryClassifier struct {
	pdgCode   int32
	name      string
	threshold float64
}

// NewPrimaryClassifier builds a classifier from the grouping
// configuration. At least one of the PDG code and the name must be set.
func NewPrimaryClassifier(cfg config.GroupingConfig) (*PrimaryClassifier, error) {
	if cfg.PrimaryPDGCode == 0 && cfg.PrimaryName == "" {
		return nil, errors.New(errors.ErrorTypeConfig,
			"primary classification requires a PDG code or a particle name")
	}
	return &PrimaryClassifier{
		pdgCode:   cfg.PrimaryPDGCode,
		name:      cfg.PrimaryName,
		threshold: cfg.EnergyThreshold,
	}, nil
}

// IsPrimary classifies one record. A record with neither a PDG code nor
// a particle name cannot be classified at all; that is a configuration
// error for the whole run, not bad data to skip.
func (c *PrimaryClassifier) IsPrimary(rec phasespace.Record) (bool, error) {
	switch {
	case rec.PDGCode != 0 && c.pdgCode != 0:
		return rec.PDGCode == c.pdgCode && rec.Energy >= c.threshold, nil
	case rec.Name != "" && c.name != "":
		return rec.Name == c.name && rec.Energy >= c.threshold, nil
	default:
		return false, errors.New(errors.ErrorTypeConfig,
			"record carries neither a usable PDG code nor a particle name").
			WithRecordIndex(rec.Index)
	}
}
