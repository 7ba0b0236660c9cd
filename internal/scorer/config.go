// Package scorer implements weighted suitability scoring for data-center
// site parcels.
package scorer

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sitescout/sitescout/internal/config"
)

// DefaultConfig returns a config.ScoringConfig with sensible defaults.
// Weights sum to 100.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Weights (sum = 100).
		ElevationWeight: 20,
		FloodWeight:     30,
		PowerWeight:     25,
		LatencyWeight:   15,
		CostWeight:      10,

		// Elevation band (meters).
		ElevationMinM:  5,
		ElevationLowM:  100,
		ElevationHighM: 1500,
		ElevationMaxM:  3500,

		// Power proximity decay (km).
		PowerNearKM: 5,
		PowerFarKM:  100,

		// Latency decay (ms).
		LatencyGoodMS: 10,
		LatencyBadMS:  80,

		// Cost decay ($k per MW-year).
		CostLowUSD:  50,
		CostHighUSD: 150,

		// Hard cap for flood-prone sites.
		FloodCapRisk: 0.8,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.ElevationWeight + c.FloodWeight + c.PowerWeight +
		c.LatencyWeight + c.CostWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"elevation_weight": c.ElevationWeight,
		"flood_weight":     c.FloodWeight,
		"power_weight":     c.PowerWeight,
		"latency_weight":   c.LatencyWeight,
		"cost_weight":      c.CostWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	// Weights should be close to 100 (allow tolerance for floating-point).
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if !(c.ElevationMinM < c.ElevationLowM && c.ElevationLowM < c.ElevationHighM && c.ElevationHighM < c.ElevationMaxM) {
		errs = append(errs, "elevation band must satisfy min < low < high < max")
	}
	if c.PowerNearKM < 0 || c.PowerFarKM <= c.PowerNearKM {
		errs = append(errs, "power_far_km must be > power_near_km >= 0")
	}
	if c.LatencyGoodMS < 0 || c.LatencyBadMS <= c.LatencyGoodMS {
		errs = append(errs, "latency_bad_ms must be > latency_good_ms >= 0")
	}
	if c.CostLowUSD < 0 || c.CostHighUSD <= c.CostLowUSD {
		errs = append(errs, "cost_high_usd must be > cost_low_usd >= 0")
	}
	if c.FloodCapRisk <= 0 || c.FloodCapRisk > 1 {
		errs = append(errs, "flood_cap_risk must be in (0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// profile is the YAML shape of a weight profile file. Only the fields
// present override the base config.
type profile struct {
	ElevationWeight *float64 `yaml:"elevation_weight"`
	FloodWeight     *float64 `yaml:"flood_weight"`
	PowerWeight     *float64 `yaml:"power_weight"`
	LatencyWeight   *float64 `yaml:"latency_weight"`
	CostWeight      *float64 `yaml:"cost_weight"`
	FloodCapRisk    *float64 `yaml:"flood_cap_risk"`
}

// LoadProfile applies a YAML weight profile on top of a base config.
func LoadProfile(path string, base config.ScoringConfig) (config.ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "scorer: read profile %s", path)
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, eris.Wrapf(err, "scorer: parse profile %s", path)
	}

	out := base
	if p.ElevationWeight != nil {
		out.ElevationWeight = *p.ElevationWeight
	}
	if p.FloodWeight != nil {
		out.FloodWeight = *p.FloodWeight
	}
	if p.PowerWeight != nil {
		out.PowerWeight = *p.PowerWeight
	}
	if p.LatencyWeight != nil {
		out.LatencyWeight = *p.LatencyWeight
	}
	if p.CostWeight != nil {
		out.CostWeight = *p.CostWeight
	}
	if p.FloodCapRisk != nil {
		out.FloodCapRisk = *p.FloodCapRisk
	}

	if err := ValidateConfig(out); err != nil {
		return base, err
	}
	return out, nil
}
