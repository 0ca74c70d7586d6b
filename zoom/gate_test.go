package zoom

import (
	"context"
	"testing"
)

func TestShouldShowLabel(t *testing.T) {
	tests := []struct {
		z    int
		want bool
	}{
		{0, false},
		{8, false},
		{9, true},
		{18, true},
		{-3, false},
	}
	for _, tc := range tests {
		if got := ShouldShowLabel(tc.z); got != tc.want {
			t.Fatalf("ShouldShowLabel(%d) = %v, want %v", tc.z, got, tc.want)
		}
	}
}

func TestGateStartsAtInitialLevel(t *testing.T) {
	g := NewGate()
	if g.Level() != 8 {
		t.Fatalf("Level() = %d, want 8", g.Level())
	}
	if g.ShowLabels() {
		t.Fatalf("labels visible at initial level")
	}
}

func TestSetLevelReplacesUnconditionally(t *testing.T) {
	g := NewGate()
	ctx := context.Background()
	for _, z := range []int{12, -40, 9, 9, 3} {
		g.SetLevel(ctx, z)
		if g.Level() != z {
			t.Fatalf("Level() = %d after SetLevel(%d)", g.Level(), z)
		}
	}
}

type levelRecorder struct {
	last   int
	labels bool
}

func (r *levelRecorder) SetZoomLevel(level int, labels bool) {
	r.last = level
	r.labels = labels
}

func TestSubscribeAndMetrics(t *testing.T) {
	rec := &levelRecorder{last: -1}
	g := NewGate(WithMetricsRecorder(rec))
	if rec.last != InitialLevel || rec.labels {
		t.Fatalf("initial recorded level = %d labels = %v, want %d/false", rec.last, rec.labels, InitialLevel)
	}

	var seen []int
	unsubscribe := g.Subscribe(func(z int) {
		seen = append(seen, z)
		if g.Level() != z {
			t.Errorf("subscriber saw Level()=%d, notified with %d", g.Level(), z)
		}
	})

	ctx := context.Background()
	g.SetLevel(ctx, 10)
	g.SetLevel(ctx, 10)
	unsubscribe()
	g.SetLevel(ctx, 11)

	if len(seen) != 2 || seen[0] != 10 || seen[1] != 10 {
		t.Fatalf("notifications = %v, want [10 10]", seen)
	}
	if rec.last != 11 || !rec.labels {
		t.Fatalf("recorded level = %d labels = %v, want 11/true", rec.last, rec.labels)
	}
}
