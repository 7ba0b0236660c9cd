// Package ingest normalizes uploaded parcel boundaries (GeoJSON or
// shapefile) into model.Parcel records, validating geometry on the way in.
// Invalid features are skipped and reported; valid ones proceed.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/geo"
	"github.com/sitescout/sitescout/internal/model"
)

// ParseGeoJSON decodes a GeoJSON document into parcels. Accepts a
// FeatureCollection, a single Feature, or a bare Polygon/MultiPolygon.
// Returns an error only when the document itself is unusable; individual
// bad features come back in skipped.
func ParseGeoJSON(data []byte) ([]model.Parcel, []model.SkippedParcel, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, model.Invalid("geojson", "not valid JSON: %v", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, nil, model.Invalid("geojson", "bad feature collection: %v", err)
		}
		return parcelsFromFeatures(fc.Features)

	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, nil, model.Invalid("geojson", "bad feature: %v", err)
		}
		return parcelsFromFeatures([]*geojson.Feature{&f})

	case "Polygon", "MultiPolygon":
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, nil, model.Invalid("geojson", "bad geometry: %v", err)
		}
		p, err := buildParcel(g, "Site 1")
		if err != nil {
			return nil, []model.SkippedParcel{{Name: "Site 1", Reason: err.Error()}}, nil
		}
		return []model.Parcel{*p}, nil, nil

	default:
		return nil, nil, model.Invalid("geojson", "unsupported type %q", probe.Type)
	}
}

func parcelsFromFeatures(features []*geojson.Feature) ([]model.Parcel, []model.SkippedParcel, error) {
	var parcels []model.Parcel
	var skipped []model.SkippedParcel

	for i, f := range features {
		name := featureName(f, i)
		if f.Geometry == nil {
			skipped = append(skipped, model.SkippedParcel{Name: name, Reason: "missing geometry"})
			continue
		}
		p, err := buildParcel(f.Geometry, name)
		if err != nil {
			zap.L().Warn("ingest: skipping invalid feature",
				zap.String("name", name),
				zap.Error(err),
			)
			skipped = append(skipped, model.SkippedParcel{Name: name, Reason: err.Error()})
			continue
		}
		parcels = append(parcels, *p)
	}

	return parcels, skipped, nil
}

// featureName pulls a display name from feature properties, falling back
// to a positional label.
func featureName(f *geojson.Feature, idx int) string {
	if f.Properties != nil {
		if v, ok := f.Properties["name"].(string); ok && v != "" {
			return v
		}
	}
	if f.ID != "" {
		return f.ID
	}
	return fmt.Sprintf("Site %d", idx+1)
}

// buildParcel validates a geometry and wraps it in a Parcel.
func buildParcel(g geom.T, name string) (*model.Parcel, error) {
	vertices, err := validateGeometry(g)
	if err != nil {
		return nil, err
	}

	centroid, err := geo.Centroid(g)
	if err != nil {
		return nil, model.Invalid("geometry", "%v", err)
	}

	return &model.Parcel{
		ID:       uuid.New().String(),
		Name:     name,
		Source:   "geojson",
		Geometry: g,
		Centroid: centroid,
		BBox:     geo.BoundsOf(g),
		Vertices: vertices,
	}, nil
}

// validateGeometry checks that g is a Polygon or MultiPolygon with closed,
// in-range rings. Returns the total vertex count.
func validateGeometry(g geom.T) (int, error) {
	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return 0, model.Invalid("geometry", "empty multipolygon")
		}
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	default:
		return 0, model.Invalid("geometry", "unsupported type %T, want polygon", g)
	}

	var vertices int
	for _, poly := range polys {
		if poly.NumLinearRings() == 0 {
			return 0, model.Invalid("geometry", "polygon has no rings")
		}
		for r := 0; r < poly.NumLinearRings(); r++ {
			ring := poly.LinearRing(r).Coords()
			if err := validateRing(ring); err != nil {
				return 0, err
			}
			vertices += len(ring)
		}
	}
	return vertices, nil
}

func validateRing(ring []geom.Coord) error {
	if len(ring) < 4 {
		return model.Invalid("geometry", "ring has %d vertices, need at least 4", len(ring))
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		return model.Invalid("geometry", "ring is not closed")
	}
	for _, c := range ring {
		if len(c) < 2 {
			return model.Invalid("geometry", "coordinate missing dimension")
		}
		lng, lat := c[0], c[1]
		if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
			return model.Invalid("geometry", "coordinate (%g, %g) out of range", lng, lat)
		}
	}
	return nil
}
