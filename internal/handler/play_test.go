package handler

import (
	"encoding/json"
	"testing"

	"github.com/tochtwerk/gelukstocht/internal/geo"
	"github.com/tochtwerk/gelukstocht/internal/model"
)

func TestParsePolygon(t *testing.T) {
	pts, err := parsePolygon(`[[52.37,4.89],[52.38,4.89],[52.38,4.91],[52.37,4.91]]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(pts) != 4 {
		t.Fatalf("got %d vertices, want 4", len(pts))
	}
	if pts[0].Lat != 52.37 || pts[0].Lng != 4.89 {
		t.Fatalf("first vertex = %+v", pts[0])
	}
}

func TestParsePolygonRejectsBadInput(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`[[52.37,4.89],[52.38,4.89]]`, // two vertices
		`[]`,
	} {
		if _, err := parsePolygon(raw); err == nil {
			t.Errorf("parsePolygon(%q) accepted", raw)
		}
	}
}

func TestFenceContainsCircle(t *testing.T) {
	cp := &model.Checkpoint{Lat: 52.3702, Lng: 4.8952, RadiusMeters: 100}

	inside, err := fenceContains(cp, geo.Point{Lat: 52.3702, Lng: 4.8952})
	if err != nil || !inside {
		t.Fatalf("center not inside: inside=%v err=%v", inside, err)
	}
	// roughly 1.1km north
	outside, err := fenceContains(cp, geo.Point{Lat: 52.3802, Lng: 4.8952})
	if err != nil || outside {
		t.Fatalf("distant point inside: inside=%v err=%v", outside, err)
	}
}

func TestFenceContainsPolygonWinsOverCircle(t *testing.T) {
	// Polygon set: the circle fields must be ignored even when they
	// would give the opposite answer.
	cp := &model.Checkpoint{
		Lat: 0, Lng: 0, RadiusMeters: 1e7,
		PolygonJSON: `[[10,10],[10,11],[11,11],[11,10]]`,
	}
	inside, err := fenceContains(cp, geo.Point{Lat: 10.5, Lng: 10.5})
	if err != nil || !inside {
		t.Fatalf("point in polygon rejected: inside=%v err=%v", inside, err)
	}
	outside, err := fenceContains(cp, geo.Point{Lat: 0, Lng: 0})
	if err != nil {
		t.Fatal(err)
	}
	if outside {
		t.Fatal("point outside polygon accepted because of circle fields")
	}
}

func TestParseHintLevel(t *testing.T) {
	cases := []struct {
		body string
		want int
		ok   bool
	}{
		{`{"level":"1"}`, 1, true},
		{`{"level":"2"}`, 2, true},
		{`{"level":"3"}`, 3, true},
		{`{"level":1}`, 1, true},
		{`{"level":3}`, 3, true},
		{`{"level":"4"}`, 0, false},
		{`{"level":0}`, 0, false},
		{`{"level":"abc"}`, 0, false},
		{`{"level":""}`, 0, false},
		{`{}`, 0, false},
	}
	for _, tc := range cases {
		var req hintReq
		if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.body, err)
		}
		got, ok := parseHintLevel(req.Level)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseHintLevel(%s) = (%d, %v), want (%d, %v)", tc.body, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFenceContainsCorruptPolygon(t *testing.T) {
	cp := &model.Checkpoint{PolygonJSON: `{broken`}
	if _, err := fenceContains(cp, geo.Point{}); err == nil {
		t.Fatal("corrupt polygon did not error")
	}
}
