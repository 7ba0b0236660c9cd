package scorer

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/model"
)

// Engine turns a parcel's site attributes into a 0-100 suitability score
// with a tier and a templated justification. Pure: no I/O, no side effects
// beyond logging.
type Engine struct {
	cfg config.ScoringConfig
}

// New creates an Engine after validating the config.
func New(cfg config.ScoringConfig) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Score evaluates one parcel. Attributes out of range fail with a
// ValidationError; valid input never errors.
func (e *Engine) Score(parcel *model.Parcel, attrs *model.SiteAttributes) (*model.ScoreResult, error) {
	if attrs == nil {
		return nil, model.Invalid("attributes", "missing")
	}
	if err := validateAttributes(attrs); err != nil {
		return nil, err
	}

	components := map[string]float64{
		"elevation": scoreElevation(attrs.ElevationM, e.cfg),
		"flood":     scoreFlood(attrs.FloodRisk),
		"power":     scorePower(attrs.PowerKM, e.cfg),
		"latency":   scoreLatency(attrs.LatencyMS, e.cfg),
		"cost":      scoreCost(attrs.CostPerMW, e.cfg),
	}
	weights := map[string]float64{
		"elevation": e.cfg.ElevationWeight,
		"flood":     e.cfg.FloodWeight,
		"power":     e.cfg.PowerWeight,
		"latency":   e.cfg.LatencyWeight,
		"cost":      e.cfg.CostWeight,
	}

	var total float64
	for k, c := range components {
		total += c * weights[k]
	}
	if sum := WeightSum(e.cfg); sum > 0 {
		total = total / sum * 100
	}

	score := int(math.Round(math.Min(100, math.Max(0, total))))

	// A parcel in a high flood-risk zone is never better than red,
	// whatever its other attributes look like.
	if attrs.FloodRisk >= e.cfg.FloodCapRisk && score >= model.OrangeThreshold {
		score = model.OrangeThreshold - 1
	}

	result := &model.ScoreResult{
		ParcelID:      parcel.ID,
		Name:          parcel.Name,
		Score:         score,
		Tier:          model.TierForScore(score),
		Justification: justify(components, weights, attrs, e.cfg),
		Components:    components,
		Attributes:    *attrs,
		Centroid:      parcel.Centroid,
	}

	zap.L().Debug("scorer: parcel scored",
		zap.String("parcel_id", parcel.ID),
		zap.Int("score", score),
		zap.String("tier", string(result.Tier)),
	)

	return result, nil
}

// validateAttributes range-checks the attribute record.
func validateAttributes(a *model.SiteAttributes) error {
	if !isFinite(a.ElevationM) {
		return model.Invalid("elevation_m", "not a finite number")
	}
	if a.ElevationM < -500 || a.ElevationM > 9000 {
		return model.Invalid("elevation_m", "%.1f outside [-500, 9000]", a.ElevationM)
	}
	if !isFinite(a.FloodRisk) || a.FloodRisk < 0 || a.FloodRisk > 1 {
		return model.Invalid("flood_risk", "%v outside [0, 1]", a.FloodRisk)
	}
	if !isFinite(a.PowerKM) || a.PowerKM < 0 || a.PowerKM > 20_000 {
		return model.Invalid("power_km", "%v outside [0, 20000]", a.PowerKM)
	}
	if a.LatencyMS != nil && (!isFinite(*a.LatencyMS) || *a.LatencyMS < 0) {
		return model.Invalid("latency_ms", "must be a non-negative number")
	}
	if a.CostPerMW != nil && (!isFinite(*a.CostPerMW) || *a.CostPerMW <= 0) {
		return model.Invalid("cost_per_mw", "must be a positive number")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// scoreElevation returns 0.0-1.0 for the site elevation band. Sites near
// sea level or alpine terrain score poorly, the broad middle scores 1.0.
func scoreElevation(elevM float64, cfg config.ScoringConfig) float64 {
	switch {
	case elevM <= cfg.ElevationMinM, elevM >= cfg.ElevationMaxM:
		return 0
	case elevM >= cfg.ElevationLowM && elevM <= cfg.ElevationHighM:
		return 1
	case elevM < cfg.ElevationLowM:
		return (elevM - cfg.ElevationMinM) / (cfg.ElevationLowM - cfg.ElevationMinM)
	default:
		return (cfg.ElevationMaxM - elevM) / (cfg.ElevationMaxM - cfg.ElevationHighM)
	}
}

// scoreFlood returns 0.0-1.0: the complement of the flood-risk fraction.
func scoreFlood(risk float64) float64 {
	return 1 - risk
}

// scorePower returns 0.0-1.0 based on distance to the nearest grid
// interconnect, with linear decay between the near and far thresholds.
func scorePower(km float64, cfg config.ScoringConfig) float64 {
	return decay(km, cfg.PowerNearKM, cfg.PowerFarKM)
}

// scoreLatency returns 0.0-1.0 for the latency proxy; nil is neutral.
func scoreLatency(ms *float64, cfg config.ScoringConfig) float64 {
	if ms == nil {
		return 0.5
	}
	return decay(*ms, cfg.LatencyGoodMS, cfg.LatencyBadMS)
}

// scoreCost returns 0.0-1.0 for estimated power cost; nil is neutral.
func scoreCost(perMW *float64, cfg config.ScoringConfig) float64 {
	if perMW == nil {
		return 0.5
	}
	return decay(*perMW, cfg.CostLowUSD, cfg.CostHighUSD)
}

// decay maps v to 1.0 at or below lo, 0.0 at or above hi, linear between.
func decay(v, lo, hi float64) float64 {
	switch {
	case v <= lo:
		return 1
	case v >= hi:
		return 0
	default:
		return (hi - v) / (hi - lo)
	}
}

// componentLabels maps component keys to human phrasing used in
// justifications.
var componentLabels = map[string]string{
	"elevation": "site elevation",
	"flood":     "flood exposure",
	"power":     "power proximity",
	"latency":   "network latency",
	"cost":      "power cost",
}

// justify builds a one-sentence explanation naming the strongest and
// weakest weighted factors.
func justify(components, weights map[string]float64, attrs *model.SiteAttributes, cfg config.ScoringConfig) string {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	// Deterministic tie-breaking.
	sort.Strings(keys)

	best, worst := keys[0], keys[0]
	for _, k := range keys[1:] {
		if components[k]*weights[k] > components[best]*weights[best] {
			best = k
		}
		if components[k]*weights[k] < components[worst]*weights[worst] {
			worst = k
		}
	}

	if attrs.FloodRisk >= cfg.FloodCapRisk {
		return fmt.Sprintf("High flood exposure (%.0f%% risk) disqualifies the site despite %s (%s).",
			attrs.FloodRisk*100, componentLabels[best], describe(best, attrs))
	}
	if best == worst {
		return fmt.Sprintf("Evenly balanced site; %s (%s) is representative.",
			componentLabels[best], describe(best, attrs))
	}
	return fmt.Sprintf("Strongest factor is %s (%s); weakest is %s (%s).",
		componentLabels[best], describe(best, attrs),
		componentLabels[worst], describe(worst, attrs))
}

// describe renders the raw attribute behind a component.
func describe(component string, attrs *model.SiteAttributes) string {
	switch component {
	case "elevation":
		return fmt.Sprintf("%.0f m", attrs.ElevationM)
	case "flood":
		return fmt.Sprintf("%.0f%% risk", attrs.FloodRisk*100)
	case "power":
		return fmt.Sprintf("%.1f km to grid", attrs.PowerKM)
	case "latency":
		if attrs.LatencyMS == nil {
			return "unknown"
		}
		return fmt.Sprintf("%.1f ms", *attrs.LatencyMS)
	case "cost":
		if attrs.CostPerMW == nil {
			return "unknown"
		}
		return fmt.Sprintf("$%.0fk/MW", *attrs.CostPerMW)
	default:
		return ""
	}
}

// SortResults orders score results descending by score, ascending by
// parcel ID on ties so output is stable.
func SortResults(results []model.ScoreResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ParcelID < results[j].ParcelID
	})
}
