// Package geometry converts stored region coordinates into display order
// and derives the shapes the renderer needs from them.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/signalsfoundry/regionmap/model"
)

// Normalize returns the region's coordinates in display order. When
// AxisSwap is set each stored pair (a, b) becomes (b, a); otherwise the pairs
// are copied unchanged. Pairs are not validated.
func Normalize(r model.Region) []model.Point {
	out := make([]model.Point, len(r.Coordinates))
	for i, p := range r.Coordinates {
		if r.AxisSwap {
			out[i] = model.Point{p[1], p[0]}
		} else {
			out[i] = p
		}
	}
	return out
}

// Ring returns the normalised outline as a closed orb ring.
func Ring(r model.Region) orb.Ring {
	pts := Normalize(r)
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point(p))
	}
	if len(ring) > 1 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Bound returns the display-order bounding box of the region.
func Bound(r model.Region) orb.Bound {
	return Ring(r).Bound()
}

// Anchor returns the point a permanent label is attached to: the area
// centroid of the outline, or the bound centre when the outline encloses no
// area.
func Anchor(r model.Region) model.Point {
	ring := Ring(r)
	if len(ring) == 0 {
		return model.Point{}
	}
	if len(ring) >= 4 {
		c, area := planar.CentroidArea(orb.Polygon{ring})
		if area != 0 && !math.IsNaN(c[0]) && !math.IsNaN(c[1]) {
			return model.Point(c)
		}
	}
	return model.Point(ring.Bound().Center())
}
