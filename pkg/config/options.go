package config

import (
	"github.com/phasegen/phasegen/pkg/errors"
)

// Recognized option-mapping keys. These follow the historical phase-space
// source option names so that existing run descriptions keep working.
const (
	OptionMaxEvents        = "n"
	OptionGlobalFlag       = "global_flag"
	OptionParticle         = "particle"
	OptionUntilNextPrimary = "generate_until_next_primary"
	OptionEnergyThreshold  = "primary_lower_energy_threshold"
	OptionPrimaryPDGCode   = "primary_PDGCode"
	OptionPrimaryName      = "primary_particle_name"
)

// FromOptions builds a ReplayConfig from a generic option mapping, the way
// replay runs are described by embedding callers. Unknown keys are
// rejected so that typos surface immediately instead of silently running
// with defaults.
func FromOptions(options map[string]interface{}) (*ReplayConfig, error) {
	cfg := NewReplayConfig()

	for key, value := range options {
		var err error
		switch key {
		case OptionMaxEvents:
			cfg.Generator.MaxEvents, err = asInt64(key, value)
		case OptionGlobalFlag:
			cfg.Generator.GlobalFrame, err = asBool(key, value)
		case OptionParticle:
			cfg.Generator.Particle, err = asString(key, value)
		case OptionUntilNextPrimary:
			cfg.Grouping.UntilNextPrimary, err = asBool(key, value)
		case OptionEnergyThreshold:
			cfg.Grouping.EnergyThreshold, err = asFloat64(key, value)
		case OptionPrimaryPDGCode:
			var code int64
			code, err = asInt64(key, value)
			cfg.Grouping.PrimaryPDGCode = int32(code)
		case OptionPrimaryName:
			cfg.Grouping.PrimaryName, err = asString(key, value)
		default:
			err = errors.Newf(errors.ErrorTypeConfig, "unrecognized option %q", key)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func asInt64(key string, value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "option %q: expected int, got %T", key, value)
	}
}

func asFloat64(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "option %q: expected float, got %T", key, value)
	}
}

func asBool(key string, value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, errors.Newf(errors.ErrorTypeConfig, "option %q: expected bool, got %T", key, value)
}

func asString(key string, value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", errors.Newf(errors.ErrorTypeConfig, "option %q: expected string, got %T", key, value)
}
