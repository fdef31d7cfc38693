package geo

import "testing"

func TestHaversineKnownDistance(t *testing.T) {
	// Amsterdam Centraal to Utrecht Centraal, roughly 35 km.
	ams := Point{Lat: 52.3791, Lng: 4.9003}
	utr := Point{Lat: 52.0894, Lng: 5.1100}
	d := Haversine(ams, utr)
	if d < 34000 || d > 36500 {
		t.Fatalf("Haversine(ams, utr) = %.0f m, want ~35 km", d)
	}
}

func TestWithinRadius(t *testing.T) {
	center := Point{Lat: 51.9225, Lng: 4.47917}

	// A point is within any non-negative radius of itself.
	for _, r := range []float64{0, 1, 50, 1e6} {
		if !WithinRadius(center, center, r) {
			t.Errorf("WithinRadius(p, p, %v) = false, want true", r)
		}
	}
	if WithinRadius(center, center, -1) {
		t.Error("negative radius should never match")
	}

	// ~111 m north of center.
	north := Point{Lat: center.Lat + 0.001, Lng: center.Lng}
	d := Haversine(north, center)
	if !WithinRadius(north, center, d+0.5) {
		t.Error("point just inside the radius should match")
	}
	if WithinRadius(north, center, d-0.5) {
		t.Error("point just outside the radius should not match")
	}
}

func TestWithinPolygon(t *testing.T) {
	// Convex quad around a park; centroid must be inside.
	poly := []Point{
		{Lat: 52.090, Lng: 5.120},
		{Lat: 52.090, Lng: 5.130},
		{Lat: 52.098, Lng: 5.130},
		{Lat: 52.098, Lng: 5.120},
	}
	var centroid Point
	for _, v := range poly {
		centroid.Lat += v.Lat
		centroid.Lng += v.Lng
	}
	centroid.Lat /= float64(len(poly))
	centroid.Lng /= float64(len(poly))

	if !WithinPolygon(centroid, poly) {
		t.Error("centroid of a convex polygon should be inside")
	}
	far := Point{Lat: 53.5, Lng: 6.9}
	if WithinPolygon(far, poly) {
		t.Error("point far outside the bounding box should be outside")
	}
}

func TestWithinPolygonDegenerate(t *testing.T) {
	p := Point{Lat: 52, Lng: 5}
	if WithinPolygon(p, nil) {
		t.Error("empty polygon should match nothing")
	}
	if WithinPolygon(p, []Point{{52, 5}, {53, 5}}) {
		t.Error("two-vertex polygon should match nothing")
	}
}

func TestWithinPolygonConcave(t *testing.T) {
	// L-shape: the notch is outside even though its bounding box covers it.
	poly := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 4},
		{Lat: 2, Lng: 4},
		{Lat: 2, Lng: 2},
		{Lat: 4, Lng: 2},
		{Lat: 4, Lng: 0},
	}
	if !WithinPolygon(Point{Lat: 1, Lng: 1}, poly) {
		t.Error("point in the long arm should be inside")
	}
	if WithinPolygon(Point{Lat: 3, Lng: 3}, poly) {
		t.Error("point in the notch should be outside")
	}
}
