// Package geo provides the geometric predicates that gate checkpoint
// unlocking. Both predicates are pure functions over WGS84 lat/lng
// coordinates. Polygons crossing the ±180° meridian are not supported;
// tour data is authored well away from it.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius of the spherical
// approximation used by Haversine.
const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance between two points in
// meters on a spherical Earth.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether p lies within radiusMeters of center.
// The boundary counts as inside. A negative radius never matches.
func WithinRadius(p, center Point, radiusMeters float64) bool {
	if radiusMeters < 0 {
		return false
	}
	return Haversine(p, center) <= radiusMeters
}

// WithinPolygon reports whether p lies inside the polygon described by
// its ordered vertex list, using a ray-casting parity test. Polygons
// with fewer than three vertices match nothing. Points exactly on an
// edge may fall on either side; geofences are drawn with margin, so
// edge cases do not matter in practice.
func WithinPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			cross := (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if p.Lng < cross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
