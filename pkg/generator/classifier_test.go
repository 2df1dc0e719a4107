package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phasegen/phasegen/pkg/config"
	"github.com/phasegen/phasegen/pkg/errors"
	"github.com/phasegen/phasegen/pkg/phasespace"
)

func TestNewPrimaryClassifier(t *testing.T) {
	t.Run("requires a code or a name", func(t *testing.T) {
		_, err := NewPrimaryClassifier(config.GroupingConfig{EnergyThreshold: 1})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("accepts code only", func(t *testing.T) {
		c, err := NewPrimaryClassifier(config.GroupingConfig{PrimaryPDGCode: 22})
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("accepts name only", func(t *testing.T) {
		c, err := NewPrimaryClassifier(config.GroupingConfig{PrimaryName: "gamma"})
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}

func TestPrimaryClassifierIsPrimary(t *testing.T) {
	cfg := config.GroupingConfig{
		PrimaryPDGCode:  22,
		PrimaryName:     "gamma",
		EnergyThreshold: 5,
	}
	c, err := NewPrimaryClassifier(cfg)
	require.NoError(t, err)

	cases := []struct {
		name    string
		rec     phasespace.Record
		primary bool
	}{
		{"code match above threshold", phasespace.Record{PDGCode: 22, Energy: 10}, true},
		{"code match at threshold", phasespace.Record{PDGCode: 22, Energy: 5}, true},
		{"code match below threshold", phasespace.Record{PDGCode: 22, Energy: 4.9}, false},
		{"code mismatch", phasespace.Record{PDGCode: 11, Energy: 10}, false},
		{"code preferred over name", phasespace.Record{PDGCode: 11, Name: "gamma", Energy: 10}, false},
		{"name match when code absent", phasespace.Record{Name: "gamma", Energy: 10}, true},
		{"name mismatch", phasespace.Record{Name: "e-", Energy: 10}, false},
		{"name match below threshold", phasespace.Record{Name: "gamma", Energy: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.IsPrimary(tc.rec)
			require.NoError(t, err)
			assert.Equal(t, tc.primary, got)
		})
	}

	t.Run("unclassifiable record is a config error", func(t *testing.T) {
		_, err := c.IsPrimary(phasespace.Record{Index: 7, Energy: 10})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		assert.Equal(t, 7, errors.RecordIndex(err))
	})
}
