package model

import (
	"github.com/sitescout/sitescout/internal/geo"
)

// Tier is the color-coded suitability bucket derived from a score.
type Tier string

const (
	TierGreen  Tier = "green"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
)

// Tier thresholds. A score at or above GreenThreshold is green, at or
// above OrangeThreshold is orange, below is red.
const (
	GreenThreshold  = 80
	OrangeThreshold = 60
)

// TierForScore maps a 0-100 score to its tier.
func TierForScore(score int) Tier {
	switch {
	case score >= GreenThreshold:
		return TierGreen
	case score >= OrangeThreshold:
		return TierOrange
	default:
		return TierRed
	}
}

// ScoreResult is the suitability verdict for a single parcel.
type ScoreResult struct {
	ParcelID      string             `json:"parcel_id"`
	Name          string             `json:"name"`
	Score         int                `json:"score"` // always in [0,100]
	Tier          Tier               `json:"tier"`
	Justification string             `json:"justification"`
	Components    map[string]float64 `json:"components,omitempty"` // per-factor 0-1 scores
	Attributes    SiteAttributes     `json:"attributes"`
	Centroid      geo.Point          `json:"centroid"`
}
