package render

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/signalsfoundry/regionmap/model"
	"github.com/signalsfoundry/regionmap/selection"
)

func testSnapshot() selection.Snapshot {
	return selection.Snapshot{Regions: []model.Region{
		{
			Label:       "Adazi",
			AxisSwap:    true,
			Coordinates: []model.Point{{24, 57}, {25, 57}, {25, 58}, {24, 58}},
			Selected:    true,
			Hover:       true,
		},
		{
			Label:       "Carnikava",
			Coordinates: []model.Point{{57, 24}, {57, 25}, {58, 25}},
			Hover:       true,
		},
	}}
}

func TestComposeAppliesPolicyAndNormalizer(t *testing.T) {
	f := Compose(testSnapshot(), 8)
	if f.Zoom != 8 || f.ShowLabels {
		t.Fatalf("frame zoom=%d labels=%v, want 8/false", f.Zoom, f.ShowLabels)
	}
	if len(f.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(f.Layers))
	}

	a, ok := f.Layer("Adazi")
	if !ok {
		t.Fatalf("Adazi layer missing")
	}
	if a.Style != SelectedStyle {
		t.Fatalf("Adazi style = %v, want selected", a.Style)
	}
	if a.Positions[0] != (model.Point{57, 24}) {
		t.Fatalf("Adazi not axis-swapped: %v", a.Positions)
	}
	if a.ShowLabel {
		t.Fatalf("label visible at zoom 8")
	}

	c, _ := f.Layer("Carnikava")
	if c.Style != HoverStyle {
		t.Fatalf("Carnikava style = %v, want hover", c.Style)
	}
	if c.Positions[2] != (model.Point{58, 25}) {
		t.Fatalf("Carnikava positions changed: %v", c.Positions)
	}
}

func TestComposeShowsLabelsAboveThreshold(t *testing.T) {
	f := Compose(testSnapshot(), 9)
	if !f.ShowLabels {
		t.Fatalf("labels hidden at zoom 9")
	}
	for _, l := range f.Layers {
		if !l.ShowLabel {
			t.Fatalf("layer %q label hidden at zoom 9", l.Label)
		}
	}
}

func countPermanent(t *testing.T, fc *geojson.FeatureCollection) (polys, labels int) {
	t.Helper()
	for _, feat := range fc.Features {
		perm, _ := feat.Properties["permanent"].(bool)
		switch feat.Geometry.(type) {
		case orb.Polygon:
			if perm {
				t.Fatalf("polygon feature marked permanent")
			}
			polys++
		case orb.Point:
			if !perm {
				t.Fatalf("label feature not marked permanent")
			}
			labels++
		default:
			t.Fatalf("unexpected geometry %T", feat.Geometry)
		}
	}
	return polys, labels
}

func TestFeatureCollectionLabelLayer(t *testing.T) {
	low := Compose(testSnapshot(), 8).FeatureCollection()
	if polys, labels := countPermanent(t, low); polys != 2 || labels != 0 {
		t.Fatalf("zoom 8: polys=%d labels=%d, want 2/0", polys, labels)
	}

	high := Compose(testSnapshot(), 10).FeatureCollection()
	if polys, labels := countPermanent(t, high); polys != 2 || labels != 2 {
		t.Fatalf("zoom 10: polys=%d labels=%d, want 2/2", polys, labels)
	}
}

func TestFeatureCollectionEncodesStyle(t *testing.T) {
	fc := Compose(testSnapshot(), 8).FeatureCollection()
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Features) != 2 {
		t.Fatalf("decoded %d features, want 2", len(decoded.Features))
	}
	first := decoded.Features[0]
	if first.Properties.MustString("color") != "green" || first.Properties.MustString("label") != "Adazi" {
		t.Fatalf("first feature properties = %v", first.Properties)
	}
	poly, ok := first.Geometry.(orb.Polygon)
	if !ok || len(poly[0]) != 5 || poly[0][0] != poly[0][4] {
		t.Fatalf("first geometry = %#v, want closed 5-point ring", first.Geometry)
	}
	if z, ok := decoded.ExtraMembers["zoom"].(float64); !ok || z != 8 {
		t.Fatalf("zoom member = %v", decoded.ExtraMembers["zoom"])
	}
}
