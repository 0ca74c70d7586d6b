package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/regionmap/model"
)

func newTestStore(t *testing.T, labels ...string) *Store {
	t.Helper()
	store := NewStore()
	for _, l := range labels {
		if err := store.Add(model.Region{Label: l, Coordinates: []model.Point{{1, 2}}}); err != nil {
			t.Fatalf("Add(%q) error: %v", l, err)
		}
	}
	return store
}

func mustRegion(t *testing.T, s *Store, label string) model.Region {
	t.Helper()
	r, ok := s.Region(label)
	if !ok {
		t.Fatalf("Region(%q) not found", label)
	}
	return r
}

func TestAddRejectsDuplicatesAndEmptyLabels(t *testing.T) {
	store := newTestStore(t, "A")
	if err := store.Add(model.Region{Label: "A"}); !errors.Is(err, ErrRegionExists) {
		t.Fatalf("duplicate Add error = %v, want ErrRegionExists", err)
	}
	if err := store.Add(model.Region{Label: "  "}); !errors.Is(err, ErrInvalidRegion) {
		t.Fatalf("empty label Add error = %v, want ErrInvalidRegion", err)
	}
}

func TestAddResetsFlags(t *testing.T) {
	store := NewStore()
	if err := store.Add(model.Region{Label: "A", Selected: true, Hover: true}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	r := mustRegion(t, store, "A")
	if r.Selected || r.Hover {
		t.Fatalf("new region flags = selected:%v hover:%v, want both false", r.Selected, r.Hover)
	}
}

func TestSelectTogglesOnlyNamedRegion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A", "B", "C")
	store.Apply(ctx, ActionHover, "B")
	before := store.Snapshot()

	snap := store.Apply(ctx, ActionSelect, "A")

	for i, r := range snap.Regions {
		prev := before.Regions[i]
		if r.Label == "A" {
			if r.Selected == prev.Selected {
				t.Fatalf("A.Selected not toggled")
			}
			if r.Hover != prev.Hover {
				t.Fatalf("A.Hover changed by SELECT")
			}
			continue
		}
		if r.Selected != prev.Selected || r.Hover != prev.Hover {
			t.Fatalf("region %q flags changed: before %+v after %+v", r.Label, prev, r)
		}
	}
}

func TestHoverIsSelfInverse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A")
	store.Apply(ctx, ActionHover, "A")
	if !mustRegion(t, store, "A").Hover {
		t.Fatalf("hover not set after first toggle")
	}
	store.Apply(ctx, ActionHover, "A")
	if mustRegion(t, store, "A").Hover {
		t.Fatalf("hover still set after second toggle")
	}
}

func TestSelectAllForcesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A", "B")
	store.Apply(ctx, ActionSelect, "A")

	for i := 0; i < 3; i++ {
		store.Apply(ctx, ActionSelectAll, "A", "B")
		for _, label := range []string{"A", "B"} {
			if sel, _ := store.IsSelected(label); !sel {
				t.Fatalf("iteration %d: %s not selected after SELECT_ALL", i, label)
			}
		}
	}
}

func TestUnknownLabelsAreIgnored(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A")

	var got Change
	store.Subscribe(func(c Change) { got = c })

	snap := store.Apply(ctx, ActionSelect, "missing", "A", "missing")
	if r, _ := snap.Region("A"); !r.Selected {
		t.Fatalf("A should be selected")
	}
	if len(got.Ignored) != 1 || got.Ignored[0] != "missing" {
		t.Fatalf("Ignored = %v, want [missing]", got.Ignored)
	}

	sel, known := store.IsSelected("missing")
	if known || sel {
		t.Fatalf("IsSelected(missing) = (%v, %v), want (false, false)", sel, known)
	}
}

func TestDuplicateLabelsToggleOnce(t *testing.T) {
	store := newTestStore(t, "A")
	store.Apply(context.Background(), ActionSelect, "A", "A")
	if sel, _ := store.IsSelected("A"); !sel {
		t.Fatalf("A toggled twice by one SELECT with a repeated label")
	}
}

func TestEmptyApplyDoesNotNotify(t *testing.T) {
	store := newTestStore(t, "A")
	calls := 0
	store.Subscribe(func(Change) { calls++ })
	store.Apply(context.Background(), ActionSelect)
	if calls != 0 {
		t.Fatalf("subscriber called %d times for empty label set", calls)
	}
}

func TestSelectedHoverScenario(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A", "B")

	store.Apply(ctx, ActionSelect, "A")
	a := mustRegion(t, store, "A")
	b := mustRegion(t, store, "B")
	if !a.Selected || b.Selected || b.Hover {
		t.Fatalf("after SELECT A: A=%+v B=%+v", a, b)
	}

	store.Apply(ctx, ActionHover, "A")
	if a = mustRegion(t, store, "A"); !a.Hover || !a.Selected {
		t.Fatalf("after HOVER A: %+v, want selected and hovered", a)
	}

	store.Apply(ctx, ActionSelect, "A")
	if a = mustRegion(t, store, "A"); a.Selected || !a.Hover {
		t.Fatalf("after second SELECT A: %+v, want hover only", a)
	}
}

func TestSetHoverExplicit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, "A")
	calls := 0
	store.Subscribe(func(c Change) {
		calls++
		if c.Action != ActionSetHover {
			t.Errorf("change action = %v, want SET_HOVER", c.Action)
		}
	})

	if !store.SetHover(ctx, "A", true) {
		t.Fatalf("SetHover(A) reported unknown label")
	}
	store.SetHover(ctx, "A", true)
	if calls != 1 {
		t.Fatalf("subscriber calls = %d, want 1 (second SetHover is a no-op)", calls)
	}
	store.SetHover(ctx, "A", false)
	if mustRegion(t, store, "A").Hover {
		t.Fatalf("hover still set after SetHover(false)")
	}
	if store.SetHover(ctx, "nope", true) {
		t.Fatalf("SetHover on unknown label returned true")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	store := newTestStore(t, "A")
	var got []Change
	unsubscribe := store.Subscribe(func(c Change) { got = append(got, c) })
	other := 0
	store.Subscribe(func(Change) { other++ })

	store.Apply(context.Background(), ActionSelect, "A")
	if len(got) != 1 || got[0].Action != ActionSelect || len(got[0].Regions) != 1 || !got[0].Regions[0].Selected {
		t.Fatalf("change = %#v", got)
	}

	unsubscribe()
	unsubscribe()
	store.Apply(context.Background(), ActionSelect, "A")
	if len(got) != 1 {
		t.Fatalf("unsubscribed callback still invoked")
	}
	if other != 2 {
		t.Fatalf("remaining subscriber calls = %d, want 2", other)
	}
}

func TestSubscriberSeesSettledState(t *testing.T) {
	store := newTestStore(t, "A", "B")
	store.Subscribe(func(Change) {
		a, _ := store.IsSelected("A")
		b, _ := store.IsSelected("B")
		if a != b {
			t.Errorf("subscriber observed partial apply: A=%v B=%v", a, b)
		}
	})
	store.Apply(context.Background(), ActionSelect, "A", "B")
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newTestStore(t, "A")
	snap := store.Snapshot()
	snap.Regions[0].Selected = true
	snap.Regions[0].Coordinates[0] = model.Point{9, 9}

	r := mustRegion(t, store, "A")
	if r.Selected || r.Coordinates[0] != (model.Point{1, 2}) {
		t.Fatalf("mutating a snapshot leaked into the store: %+v", r)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
		err  bool
	}{
		{"SELECT", ActionSelect, false},
		{"select_all", ActionSelectAll, false},
		{" hover ", ActionHover, false},
		{"SET_HOVER", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseAction(tc.in)
		if (err != nil) != tc.err {
			t.Fatalf("ParseAction(%q) error = %v, want error %v", tc.in, err, tc.err)
		}
		if err == nil && got != tc.want {
			t.Fatalf("ParseAction(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

type recordingMetrics struct {
	mu                       sync.Mutex
	applied, ignored         map[string]int
	selected, hovered, total int
}

func (m *recordingMetrics) RecordAction(action string, applied, ignored int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied[action] += applied
	m.ignored[action] += ignored
}

func (m *recordingMetrics) SetSelectionCounts(selected, hovered, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected, m.hovered, m.total = selected, hovered, total
}

func TestMetricsRecorder(t *testing.T) {
	rec := &recordingMetrics{applied: map[string]int{}, ignored: map[string]int{}}
	store := NewStore(WithMetricsRecorder(rec))
	for _, l := range []string{"A", "B"} {
		if err := store.Add(model.Region{Label: l}); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	ctx := context.Background()
	store.Apply(ctx, ActionSelect, "A", "zzz")
	store.SetHover(ctx, "B", true)

	if rec.applied["SELECT"] != 1 || rec.ignored["SELECT"] != 1 {
		t.Fatalf("SELECT applied/ignored = %d/%d, want 1/1", rec.applied["SELECT"], rec.ignored["SELECT"])
	}
	if rec.selected != 1 || rec.hovered != 1 || rec.total != 2 {
		t.Fatalf("counts = %d/%d/%d, want 1/1/2", rec.selected, rec.hovered, rec.total)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	for i := 0; i < 5; i++ {
		if err := store.Add(model.Region{Label: fmt.Sprintf("r-%d", i)}); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Snapshot()
			_, _ = store.IsSelected("r-1")
		}()
		go func() {
			defer wg.Done()
			store.Apply(context.Background(), ActionSelect, fmt.Sprintf("r-%d", i%5))
		}()
	}
	wg.Wait()
}
