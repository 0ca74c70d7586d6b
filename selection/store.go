package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/model"
)

var (
	// ErrRegionExists indicates a region with the same label was already added.
	ErrRegionExists = errors.New("region already exists")
	// ErrInvalidRegion indicates a region failed structural validation.
	ErrInvalidRegion = errors.New("invalid region")
)

// Action is a mutation accepted by Store.Apply.
type Action int

const (
	// ActionSelect flips Selected on every named region.
	ActionSelect Action = iota
	// ActionSelectAll forces Selected to true on every named region.
	ActionSelectAll
	// ActionHover flips Hover on every named region.
	ActionHover
	// ActionSetHover is reported to subscribers for SetHover calls. It is
	// not accepted by Apply.
	ActionSetHover
)

func (a Action) String() string {
	switch a {
	case ActionSelect:
		return "SELECT"
	case ActionSelectAll:
		return "SELECT_ALL"
	case ActionHover:
		return "HOVER"
	case ActionSetHover:
		return "SET_HOVER"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction maps the wire names SELECT, SELECT_ALL and HOVER onto actions.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SELECT":
		return ActionSelect, nil
	case "SELECT_ALL":
		return ActionSelectAll, nil
	case "HOVER":
		return ActionHover, nil
	default:
		return 0, fmt.Errorf("unknown selection action %q", s)
	}
}

// Change is delivered to subscribers after a mutation has been fully applied.
type Change struct {
	Action Action
	// Regions holds copies of the regions the mutation touched, in load order.
	Regions []model.Region
	// Ignored lists requested labels with no matching region.
	Ignored []string
}

// Snapshot is a consistent copy of every region in load order.
type Snapshot struct {
	Regions []model.Region
}

// Region looks up a region in the snapshot by label.
func (s Snapshot) Region(label string) (model.Region, bool) {
	for _, r := range s.Regions {
		if r.Label == label {
			return r, true
		}
	}
	return model.Region{}, false
}

// MetricsRecorder receives per-action outcomes and flag counts.
type MetricsRecorder interface {
	RecordAction(action string, applied, ignored int)
	SetSelectionCounts(selected, hovered, total int)
}

// Option customises Store construction.
type Option func(*Store)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store holds every region and its selection/hover flags. All input sources
// mutate regions exclusively through Apply and SetHover.
type Store struct {
	mu sync.RWMutex

	regions map[string]*model.Region
	order   []string

	subs    map[int]func(Change)
	nextSub int

	log     logging.Logger
	metrics MetricsRecorder
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		regions: make(map[string]*model.Region),
		subs:    make(map[int]func(Change)),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Add registers a region. Flags are reset so every region starts unselected
// and not hovered.
func (s *Store) Add(r model.Region) error {
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidRegion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.regions[r.Label]; exists {
		return fmt.Errorf("%w: %q", ErrRegionExists, r.Label)
	}
	stored := r.Clone()
	stored.Selected = false
	stored.Hover = false
	s.regions[r.Label] = &stored
	s.order = append(s.order, r.Label)
	s.updateMetricsLocked()
	return nil
}

// Seed adds regions in order, stopping at the first error.
func (s *Store) Seed(regions []model.Region) error {
	for _, r := range regions {
		if err := s.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs action against every region whose label is in labels and
// returns the resulting state. Unknown labels are ignored. A region named
// more than once in labels is still only affected once.
func (s *Store) Apply(ctx context.Context, action Action, labels ...string) Snapshot {
	if action != ActionSelect && action != ActionSelectAll && action != ActionHover {
		s.log.Warn(ctx, "unsupported selection action", logging.String("action", action.String()))
		return s.Snapshot()
	}
	if len(labels) == 0 {
		return s.Snapshot()
	}

	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
	}

	s.mu.Lock()
	change := Change{Action: action}
	for _, label := range s.order {
		if _, ok := want[label]; !ok {
			continue
		}
		r := s.regions[label]
		switch action {
		case ActionSelect:
			r.Selected = !r.Selected
		case ActionSelectAll:
			r.Selected = true
		case ActionHover:
			r.Hover = !r.Hover
		}
		change.Regions = append(change.Regions, r.Clone())
		delete(want, label)
	}
	for _, l := range labels {
		if _, missing := want[l]; missing {
			change.Ignored = append(change.Ignored, l)
			delete(want, l)
		}
	}
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.updateMetricsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordAction(action.String(), len(change.Regions), len(change.Ignored))
	}
	if len(change.Ignored) > 0 {
		s.log.Debug(ctx, "ignoring unknown region labels",
			logging.String("action", action.String()),
			logging.Strings("labels", change.Ignored),
		)
	}

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(change)
	}
	return snap
}

// SetHover sets the hover flag of one region to an explicit value. It
// returns false when the label is unknown. Subscribers are only notified
// when the flag actually changes.
func (s *Store) SetHover(ctx context.Context, label string, hover bool) bool {
	s.mu.Lock()
	r, ok := s.regions[label]
	if !ok {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordAction(ActionSetHover.String(), 0, 1)
		}
		s.log.Debug(ctx, "ignoring hover for unknown region", logging.String("label", label))
		return false
	}
	if r.Hover == hover {
		s.mu.Unlock()
		return true
	}
	r.Hover = hover
	change := Change{Action: ActionSetHover, Regions: []model.Region{r.Clone()}}
	subs := s.subscribersLocked()
	s.updateMetricsLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordAction(ActionSetHover.String(), 1, 0)
	}
	for _, sub := range subs {
		sub(change)
	}
	return true
}

// IsSelected reports whether label is selected. known is false when no
// region carries that label.
func (s *Store) IsSelected(label string) (selected, known bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[label]
	if !ok {
		return false, false
	}
	return r.Selected, true
}

// Region returns a copy of the region with the given label.
func (s *Store) Region(label string) (model.Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[label]
	if !ok {
		return model.Region{}, false
	}
	return r.Clone(), true
}

// Has reports whether a region with the given label exists.
func (s *Store) Has(label string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.regions[label]
	return ok
}

// Labels returns region labels in load order.
func (s *Store) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len returns the number of regions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of every region in load order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers a callback invoked synchronously after each mutation.
// It returns an unsubscribe function.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	regions := make([]model.Region, 0, len(s.order))
	for _, label := range s.order {
		regions = append(regions, s.regions[label].Clone())
	}
	return Snapshot{Regions: regions}
}

// subscribersLocked returns subscribers in registration order.
func (s *Store) subscribersLocked() []func(Change) {
	out := make([]func(Change), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *Store) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	selected, hovered := 0, 0
	for _, r := range s.regions {
		if r.Selected {
			selected++
		}
		if r.Hover {
			hovered++
		}
	}
	s.metrics.SetSelectionCounts(selected, hovered, len(s.regions))
}
