// Package model defines the core types flowing through the evaluation
// pipeline: parcels, site attributes, score results, and evaluations.
package model

import (
	"time"

	"github.com/twpayne/go-geom"

	"github.com/sitescout/sitescout/internal/geo"
)

// Parcel is a land area defined by a polygon boundary, the unit of
// evaluation. Immutable once scored; geometry is WGS84 lng/lat.
type Parcel struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Source   string    `json:"source,omitempty"` // "geojson", "shapefile", "drawn"
	Geometry geom.T    `json:"-"`                // Polygon or MultiPolygon
	Centroid geo.Point `json:"centroid"`
	BBox     geo.BBox  `json:"bbox"`
	Vertices int       `json:"vertices"`
}

// SiteAttributes holds the geospatial signals a parcel is scored on.
// ElevationM, FloodRisk, and PowerKM are required; LatencyMS and CostPerMW
// are optional refinements (nil means unknown, scored as neutral).
type SiteAttributes struct {
	ElevationM float64  `json:"elevation_m"`
	FloodRisk  float64  `json:"flood_risk"` // fraction in [0,1]
	PowerKM    float64  `json:"power_km"`   // distance to nearest grid interconnect
	LatencyMS  *float64 `json:"latency_ms,omitempty"`
	CostPerMW  *float64 `json:"cost_per_mw,omitempty"` // $k per MW-year
	Provider   string   `json:"provider,omitempty"`    // which provider produced the record
}

// SkippedParcel records a parcel that failed validation and was dropped
// from an evaluation while the rest proceeded.
type SkippedParcel struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Evaluation is one complete pass over a set of uploaded parcels.
type Evaluation struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Results   []ScoreResult   `json:"results"`
	Skipped   []SkippedParcel `json:"skipped,omitempty"`
	BBox      geo.BBox        `json:"bbox"`
	CreatedAt time.Time       `json:"created_at"`

	// ResultCount is populated on list views where full results are not
	// loaded.
	ResultCount int `json:"result_count,omitempty"`
}
