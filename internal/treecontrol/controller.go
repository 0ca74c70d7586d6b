// Package treecontrol binds the collapsible county/parish checkbox tree to
// the selection store and the map camera.
package treecontrol

import (
	"context"
	"fmt"
	"sync"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/model"
	"github.com/signalsfoundry/regionmap/selection"
)

// FocusZoom is the zoom level the camera flies to when a county opens.
const FocusZoom = 10

// Camera is the map capability the tree needs when a county panel opens.
type Camera interface {
	FlyTo(ctx context.Context, point model.Point, zoom int) error
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context, point model.Point, zoom int) error

func (fn CameraFunc) FlyTo(ctx context.Context, point model.Point, zoom int) error {
	return fn(ctx, point, zoom)
}

// Selector is the subset of selection.Store the tree reads and mutates.
type Selector interface {
	Apply(ctx context.Context, action selection.Action, labels ...string) selection.Snapshot
	IsSelected(label string) (selected, known bool)
}

// Item is one checkbox row under a county.
type Item struct {
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// Panel is one collapsible county section.
type Panel struct {
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// Option customises Controller construction.
type Option func(*Controller)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller translates tree widget notifications into store actions and
// camera requests.
type Controller struct {
	store  Selector
	camera Camera
	log    logging.Logger

	mu       sync.RWMutex
	counties []model.County
	byLabel  map[string]int
}

// New builds a controller over the counties in display order. camera may be
// nil, in which case panel changes never move the map.
func New(counties []model.County, store Selector, camera Camera, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		camera:  camera,
		log:     logging.Noop(),
		byLabel: make(map[string]int, len(counties)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	for _, county := range counties {
		if _, dup := c.byLabel[county.Label]; dup {
			continue
		}
		c.byLabel[county.Label] = len(c.counties)
		c.counties = append(c.counties, cloneCounty(county))
	}
	return c
}

// OnPanelChange handles a county panel opening or closing. Only opening a
// county with a focus point requests camera movement.
func (c *Controller) OnPanelChange(ctx context.Context, county string, expanded bool) error {
	if !expanded || c.camera == nil {
		return nil
	}
	target, ok := c.county(county)
	if !ok {
		c.log.Debug(ctx, "panel change for unknown county", logging.String("county", county))
		return nil
	}
	if target.FocusPoint == nil {
		return nil
	}
	if err := c.camera.FlyTo(ctx, *target.FocusPoint, FocusZoom); err != nil {
		return fmt.Errorf("fly to county %q: %w", county, err)
	}
	return nil
}

// OnCheckboxToggle flips selection of a single parish.
func (c *Controller) OnCheckboxToggle(ctx context.Context, label string) {
	c.store.Apply(ctx, selection.ActionSelect, label)
}

// SelectCounty forces every parish of county into the selected state.
// It reports false for unknown counties.
func (c *Controller) SelectCounty(ctx context.Context, county string) bool {
	target, ok := c.county(county)
	if !ok {
		return false
	}
	c.store.Apply(ctx, selection.ActionSelectAll, target.Children...)
	return true
}

// Counties returns copies of the configured counties.
func (c *Controller) Counties() []model.County {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.County, 0, len(c.counties))
	for _, county := range c.counties {
		out = append(out, cloneCounty(county))
	}
	return out
}

// Panels renders the tree view model with checkbox state read from the
// store. Children the store does not know are left out.
func (c *Controller) Panels() []Panel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	panels := make([]Panel, 0, len(c.counties))
	for _, county := range c.counties {
		p := Panel{Label: county.Label, Items: make([]Item, 0, len(county.Children))}
		for _, child := range county.Children {
			selected, known := c.store.IsSelected(child)
			if !known {
				continue
			}
			p.Items = append(p.Items, Item{Label: child, Checked: selected})
		}
		panels = append(panels, p)
	}
	return panels
}

func (c *Controller) county(label string) (model.County, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byLabel[label]
	if !ok {
		return model.County{}, false
	}
	return c.counties[idx], true
}

func cloneCounty(c model.County) model.County {
	out := c
	if c.FocusPoint != nil {
		p := *c.FocusPoint
		out.FocusPoint = &p
	}
	out.Children = append([]string(nil), c.Children...)
	return out
}
