package model

// Point is a 2-component coordinate pair. Which component is latitude
// depends on the owning region's AxisSwap flag; after normalisation the
// pair is in display order.
type Point [2]float64

// Region is a selectable parish polygon.
type Region struct {
	Label       string
	Coordinates []Point

	// AxisSwap is fixed at load time. When true the stored pairs are in the
	// opposite axis order to what the map displays.
	AxisSwap bool

	Selected bool
	Hover    bool
}

// Clone returns a copy of r that shares no backing storage with it.
func (r Region) Clone() Region {
	out := r
	if r.Coordinates != nil {
		out.Coordinates = append([]Point(nil), r.Coordinates...)
	}
	return out
}

// County groups regions in the tree control.
type County struct {
	Label string

	// FocusPoint is where the camera flies when the county panel opens.
	// Nil means the county has no camera target.
	FocusPoint *Point

	// Children holds region labels in display order.
	Children []string
}
