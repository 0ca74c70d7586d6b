package render

import "github.com/signalsfoundry/regionmap/model"

// Style is the paint style of a region polygon.
type Style struct {
	Name  string
	Color string
}

var (
	// DefaultStyle paints regions that are neither selected nor hovered.
	DefaultStyle = Style{Name: "default", Color: "grey"}
	// HoverStyle paints hovered regions that are not selected.
	HoverStyle = Style{Name: "hover", Color: "orange"}
	// SelectedStyle paints selected regions, hovered or not.
	SelectedStyle = Style{Name: "selected", Color: "green"}
)

// StyleFor picks exactly one style for r. Selection dominates hover.
func StyleFor(r model.Region) Style {
	switch {
	case r.Selected:
		return SelectedStyle
	case r.Hover:
		return HoverStyle
	default:
		return DefaultStyle
	}
}
