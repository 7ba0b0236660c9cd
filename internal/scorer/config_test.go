package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ValidateConfig(cfg))
	assert.InDelta(t, 100.0, WeightSum(cfg), 0.001)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.ScoringConfig)
		wantErr string
	}{
		{
			"negative weight",
			func(c *config.ScoringConfig) { c.FloodWeight = -5 },
			"flood_weight must be >= 0",
		},
		{
			"weights not summing to 100",
			func(c *config.ScoringConfig) { c.FloodWeight = 60 },
			"weights should sum to 100",
		},
		{
			"inverted elevation band",
			func(c *config.ScoringConfig) { c.ElevationLowM = 2000 },
			"elevation band",
		},
		{
			"power far below near",
			func(c *config.ScoringConfig) { c.PowerFarKM = 2 },
			"power_far_km",
		},
		{
			"latency bad below good",
			func(c *config.ScoringConfig) { c.LatencyBadMS = 5 },
			"latency_bad_ms",
		},
		{
			"cost high below low",
			func(c *config.ScoringConfig) { c.CostHighUSD = 10 },
			"cost_high_usd",
		},
		{
			"flood cap out of range",
			func(c *config.ScoringConfig) { c.FloodCapRisk = 1.5 },
			"flood_cap_risk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	t.Run("partial override keeps base values", func(t *testing.T) {
		path := writeProfile(t, "flood_weight: 40\npower_weight: 15\n")

		got, err := LoadProfile(path, DefaultConfig())
		require.NoError(t, err)

		assert.InDelta(t, 40.0, got.FloodWeight, 0.001)
		assert.InDelta(t, 15.0, got.PowerWeight, 0.001)
		assert.InDelta(t, 20.0, got.ElevationWeight, 0.001, "untouched weight keeps default")
		assert.InDelta(t, 0.8, got.FloodCapRisk, 0.001)
	})

	t.Run("invalid resulting config is rejected", func(t *testing.T) {
		path := writeProfile(t, "flood_weight: 90\n")

		_, err := LoadProfile(path, DefaultConfig())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sum to 100")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"), DefaultConfig())
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeProfile(t, "flood_weight: [not a number\n")
		_, err := LoadProfile(path, DefaultConfig())
		require.Error(t, err)
	})
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
