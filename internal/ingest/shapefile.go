package ingest

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/model"
)

// ParseShapefile reads polygon records from a shapefile into parcels.
// Non-polygon shapes and malformed records are skipped and reported.
func ParseShapefile(path string) ([]model.Parcel, []model.SkippedParcel, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Field name → index map for the NAME attribute.
	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "name") {
			nameIdx = i
			break
		}
	}

	var parcels []model.Parcel
	var skipped []model.SkippedParcel
	row := 0

	for reader.Next() {
		row++
		_, shape := reader.Shape()

		name := fmt.Sprintf("Site %d", row)
		if nameIdx >= 0 {
			if v := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00")); v != "" {
				name = v
			}
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped = append(skipped, model.SkippedParcel{
				Name:   name,
				Reason: fmt.Sprintf("record %d is not a polygon", row),
			})
			continue
		}

		g := polygonToMultiPolygon(poly)
		if g == nil {
			skipped = append(skipped, model.SkippedParcel{
				Name:   name,
				Reason: fmt.Sprintf("record %d has no usable rings", row),
			})
			continue
		}

		p, err := buildParcel(g, name)
		if err != nil {
			zap.L().Warn("ingest: skipping invalid shapefile record",
				zap.Int("record", row),
				zap.Error(err),
			)
			skipped = append(skipped, model.SkippedParcel{Name: name, Reason: err.Error()})
			continue
		}
		p.Source = "shapefile"
		parcels = append(parcels, *p)
	}

	return parcels, skipped, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon,
// one polygon per part. Shapefile rings are not guaranteed closed; open
// rings are closed by repeating the first point.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start+1)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) >= 2 && (flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1]) {
			flat = append(flat, flat[0], flat[1])
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("ingest: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// buildParcelFromShape is used by tests to exercise conversion without a
// file on disk.
func buildParcelFromShape(p *shp.Polygon, name string) (*model.Parcel, error) {
	g := polygonToMultiPolygon(p)
	if g == nil {
		return nil, model.Invalid("geometry", "no usable rings")
	}
	parcel, err := buildParcel(g, name)
	if err != nil {
		return nil, err
	}
	parcel.Source = "shapefile"
	return parcel, nil
}
