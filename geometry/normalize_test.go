package geometry

import (
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/signalsfoundry/regionmap/model"
)

func TestNormalize(t *testing.T) {
	raw := []model.Point{{1, 2}, {3, 4}}

	tests := []struct {
		name string
		swap bool
		want []model.Point
	}{
		{"swapped", true, []model.Point{{2, 1}, {4, 3}}},
		{"passthrough", false, []model.Point{{1, 2}, {3, 4}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := model.Region{Label: "A", AxisSwap: tc.swap, Coordinates: raw}
			got := Normalize(r)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeDoesNotMutateRegion(t *testing.T) {
	r := model.Region{Label: "A", AxisSwap: true, Coordinates: []model.Point{{1, 2}}}
	out := Normalize(r)
	out[0][0] = 42
	if r.Coordinates[0] != (model.Point{1, 2}) {
		t.Fatalf("region coordinates mutated: %v", r.Coordinates)
	}
	if again := Normalize(r); again[0] != (model.Point{2, 1}) {
		t.Fatalf("Normalize not deterministic: %v", again)
	}
}

func TestRingIsClosed(t *testing.T) {
	r := model.Region{Coordinates: []model.Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}}}
	ring := Ring(r)
	if len(ring) != 5 || ring[0] != ring[len(ring)-1] {
		t.Fatalf("Ring = %v, want closed ring of 5 points", ring)
	}

	closed := model.Region{Coordinates: []model.Point{{0, 0}, {0, 2}, {2, 2}, {0, 0}}}
	if got := len(Ring(closed)); got != 4 {
		t.Fatalf("already closed ring grew to %d points", got)
	}
}

func TestAnchor(t *testing.T) {
	square := model.Region{AxisSwap: true, Coordinates: []model.Point{{0, 0}, {2, 0}, {2, 4}, {0, 4}}}
	got := Anchor(square)
	if math.Abs(got[0]-2) > 1e-9 || math.Abs(got[1]-1) > 1e-9 {
		t.Fatalf("Anchor(square) = %v, want [2 1]", got)
	}

	line := model.Region{Coordinates: []model.Point{{0, 0}, {4, 0}}}
	if got := Anchor(line); got != (model.Point{2, 0}) {
		t.Fatalf("Anchor(line) = %v, want [2 0]", got)
	}

	single := model.Region{Coordinates: []model.Point{{5, 6}}}
	if got := Anchor(single); got != (model.Point{5, 6}) {
		t.Fatalf("Anchor(single) = %v, want [5 6]", got)
	}
}

func TestBound(t *testing.T) {
	r := model.Region{AxisSwap: true, Coordinates: []model.Point{{1, 10}, {3, 20}}}
	b := Bound(r)
	if b.Min != (orb.Point{10, 1}) || b.Max != (orb.Point{20, 3}) {
		t.Fatalf("Bound = %+v", b)
	}
}
