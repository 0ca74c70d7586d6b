package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/signalsfoundry/regionmap/geometry"
	"github.com/signalsfoundry/regionmap/model"
	"github.com/signalsfoundry/regionmap/selection"
	"github.com/signalsfoundry/regionmap/zoom"
)

// Layer is the paint instruction for one region.
type Layer struct {
	Label     string
	Style     Style
	Positions []model.Point
	Anchor    model.Point
	ShowLabel bool
}

// Frame is everything the rendering layer needs for one redraw.
type Frame struct {
	Zoom       int
	ShowLabels bool
	Layers     []Layer
}

// Compose derives a frame from a settled store snapshot and a zoom level.
func Compose(snap selection.Snapshot, level int) Frame {
	show := zoom.ShouldShowLabel(level)
	f := Frame{
		Zoom:       level,
		ShowLabels: show,
		Layers:     make([]Layer, 0, len(snap.Regions)),
	}
	for _, r := range snap.Regions {
		f.Layers = append(f.Layers, Layer{
			Label:     r.Label,
			Style:     StyleFor(r),
			Positions: geometry.Normalize(r),
			Anchor:    geometry.Anchor(r),
			ShowLabel: show,
		})
	}
	return f
}

// Layer returns the layer for label.
func (f Frame) Layer(label string) (Layer, bool) {
	for _, l := range f.Layers {
		if l.Label == label {
			return l, true
		}
	}
	return Layer{}, false
}

// FeatureCollection encodes the frame as GeoJSON: one polygon feature per
// region and, when labels are visible, one point feature per region marked
// permanent for the label layer.
func (f Frame) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{"zoom": f.Zoom}

	for _, l := range f.Layers {
		ring := make(orb.Ring, 0, len(l.Positions)+1)
		for _, p := range l.Positions {
			ring = append(ring, orb.Point(p))
		}
		if len(ring) > 1 && !ring.Closed() {
			ring = append(ring, ring[0])
		}
		poly := geojson.NewFeature(orb.Polygon{ring})
		poly.ID = l.Label
		poly.Properties["label"] = l.Label
		poly.Properties["style"] = l.Style.Name
		poly.Properties["color"] = l.Style.Color
		poly.Properties["permanent"] = false
		fc.Append(poly)
	}

	if !f.ShowLabels {
		return fc
	}
	for _, l := range f.Layers {
		if !l.ShowLabel {
			continue
		}
		pt := geojson.NewFeature(orb.Point(l.Anchor))
		pt.Properties["label"] = l.Label
		pt.Properties["permanent"] = true
		fc.Append(pt)
	}
	return fc
}
