// Package dataset reads the static county/parish dataset the map is seeded
// from.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/regionmap/model"
)

var (
	// ErrEmptyLabel is returned for counties or parishes with no label.
	ErrEmptyLabel = errors.New("empty label")
	// ErrDuplicateLabel is returned when two parishes or two counties share a label.
	ErrDuplicateLabel = errors.New("duplicate label")
	// ErrNoCoordinates is returned for parishes without a single coordinate pair.
	ErrNoCoordinates = errors.New("parish has no coordinates")
)

// Dataset is the decoded, validated content of a dataset file.
type Dataset struct {
	Counties []model.County
	Regions  []model.Region
	// Unresolved maps county labels to children that name no parish. Those
	// children are dropped from Counties.
	Unresolved map[string][]string
}

// internal JSON shapes, kept unexported so the file format can evolve.
type datasetJSON struct {
	TreeView []countyJSON `json:"treeView"`
	Parishes []parishJSON `json:"parishes"`
}

type countyJSON struct {
	Label string `json:"label"`
	// The published data files store the focus point under "coordinates".
	Coordinates *model.Point `json:"coordinates"`
	FocusPoint  *model.Point `json:"focusPoint"`
	Children    []childJSON  `json:"children"`
}

type childJSON struct {
	Label string `json:"label"`
}

type parishJSON struct {
	Label           string        `json:"label"`
	SwapCoordinates bool          `json:"swapCoordinates"`
	Coordinates     []model.Point `json:"coordinates"`
}

// Load decodes and validates a dataset from r.
func Load(r io.Reader) (*Dataset, error) {
	var payload datasetJSON
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("dataset.Load: decode failed: %w", err)
	}

	ds := &Dataset{
		Counties:   make([]model.County, 0, len(payload.TreeView)),
		Regions:    make([]model.Region, 0, len(payload.Parishes)),
		Unresolved: make(map[string][]string),
	}

	known := make(map[string]struct{}, len(payload.Parishes))
	for i, p := range payload.Parishes {
		if p.Label == "" {
			return nil, fmt.Errorf("dataset.Load: parish #%d: %w", i, ErrEmptyLabel)
		}
		if _, dup := known[p.Label]; dup {
			return nil, fmt.Errorf("dataset.Load: parish %q: %w", p.Label, ErrDuplicateLabel)
		}
		if len(p.Coordinates) == 0 {
			return nil, fmt.Errorf("dataset.Load: parish %q: %w", p.Label, ErrNoCoordinates)
		}
		known[p.Label] = struct{}{}
		ds.Regions = append(ds.Regions, model.Region{
			Label:       p.Label,
			Coordinates: p.Coordinates,
			AxisSwap:    p.SwapCoordinates,
		})
	}

	seenCounty := make(map[string]struct{}, len(payload.TreeView))
	for i, c := range payload.TreeView {
		if c.Label == "" {
			return nil, fmt.Errorf("dataset.Load: county #%d: %w", i, ErrEmptyLabel)
		}
		if _, dup := seenCounty[c.Label]; dup {
			return nil, fmt.Errorf("dataset.Load: county %q: %w", c.Label, ErrDuplicateLabel)
		}
		seenCounty[c.Label] = struct{}{}

		county := model.County{Label: c.Label, FocusPoint: c.Coordinates}
		if county.FocusPoint == nil {
			county.FocusPoint = c.FocusPoint
		}
		for _, child := range c.Children {
			if _, ok := known[child.Label]; !ok {
				ds.Unresolved[c.Label] = append(ds.Unresolved[c.Label], child.Label)
				continue
			}
			county.Children = append(county.Children, child.Label)
		}
		ds.Counties = append(ds.Counties, county)
	}

	return ds, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset.LoadFile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Seeder is the store-side loading surface.
type Seeder interface {
	Seed(regions []model.Region) error
}

// Populate seeds store with every parish of the dataset.
func (d *Dataset) Populate(store Seeder) error {
	if d == nil {
		return errors.New("dataset.Populate: dataset is nil")
	}
	if err := store.Seed(d.Regions); err != nil {
		return fmt.Errorf("dataset.Populate: %w", err)
	}
	return nil
}

// UnresolvedCount returns the total number of dropped children.
func (d *Dataset) UnresolvedCount() int {
	n := 0
	for _, labels := range d.Unresolved {
		n += len(labels)
	}
	return n
}
