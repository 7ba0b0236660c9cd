// Package geo provides planar and spherical geometry helpers for parcel
// evaluation: centroids, areas, bounding boxes, and great-circle distances.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const earthRadiusM = 6_371_000

// Ashburn is the reference point for the latency proxy: the center of the
// northern-Virginia data-center corridor.
var Ashburn = Point{Lat: 39.0, Lng: -77.5}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox is a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Extend grows the box to include another box.
func (b *BBox) Extend(other BBox) {
	b.MinLng = math.Min(b.MinLng, other.MinLng)
	b.MinLat = math.Min(b.MinLat, other.MinLat)
	b.MaxLng = math.Max(b.MaxLng, other.MaxLng)
	b.MaxLat = math.Max(b.MaxLat, other.MaxLat)
}

// EmptyBBox returns a box that any Extend call will replace entirely.
func EmptyBBox() BBox {
	return BBox{
		MinLng: math.Inf(1), MinLat: math.Inf(1),
		MaxLng: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// LatencyProxyMS estimates network latency in milliseconds from a point to
// the Ashburn corridor, using distance / 3000 m-per-ms.
func LatencyProxyMS(p Point) float64 {
	return Haversine(p, Ashburn) / 3000
}

// RingArea returns the signed planar (shoelace) area of a coordinate ring
// in squared degrees. Positive for counter-clockwise winding.
func RingArea(ring []geom.Coord) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

// Centroid returns the area-weighted centroid of a Polygon or MultiPolygon,
// computed over outer rings only. Holes are small relative to parcel outer
// rings and are ignored.
func Centroid(g geom.T) (Point, error) {
	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = []*geom.Polygon{t}
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
	default:
		return Point{}, eris.Errorf("geo: centroid of unsupported geometry %T", g)
	}

	var cx, cy, totalArea float64
	for _, poly := range polys {
		if poly.NumLinearRings() == 0 {
			continue
		}
		ring := poly.LinearRing(0).Coords()
		area := RingArea(ring)
		if area == 0 {
			continue
		}
		var rx, ry float64
		for i := 0; i < len(ring)-1; i++ {
			cross := ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
			rx += (ring[i][0] + ring[i+1][0]) * cross
			ry += (ring[i][1] + ring[i+1][1]) * cross
		}
		cx += rx / 6
		cy += ry / 6
		totalArea += area
	}

	if totalArea == 0 {
		return Point{}, eris.New("geo: centroid of degenerate geometry")
	}
	return Point{Lat: cy / totalArea, Lng: cx / totalArea}, nil
}

// BoundsOf returns the bounding box of a geometry.
func BoundsOf(g geom.T) BBox {
	b := g.Bounds()
	return BBox{
		MinLng: b.Min(0), MinLat: b.Min(1),
		MaxLng: b.Max(0), MaxLat: b.Max(1),
	}
}
