package zoom

import (
	"context"
	"sync"

	"github.com/signalsfoundry/regionmap/internal/logging"
)

const (
	// InitialLevel is the zoom level the map opens at.
	InitialLevel = 8
	// LabelThreshold is the level permanent labels must exceed to be shown.
	LabelThreshold = 8
)

// ShouldShowLabel reports whether permanent region labels are visible at z.
func ShouldShowLabel(z int) bool {
	return z > LabelThreshold
}

// MetricsRecorder receives the current zoom level and the label
// visibility it implies.
type MetricsRecorder interface {
	SetZoomLevel(level int, labelsVisible bool)
}

// Option customises Gate construction.
type Option func(*Gate)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// Gate holds the current zoom level and decides label visibility.
type Gate struct {
	mu    sync.RWMutex
	level int

	subs    map[int]func(int)
	nextSub int

	log     logging.Logger
	metrics MetricsRecorder
}

// NewGate returns a gate at InitialLevel.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		level: InitialLevel,
		subs:  make(map[int]func(int)),
		log:   logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.metrics != nil {
		g.metrics.SetZoomLevel(g.level, ShouldShowLabel(g.level))
	}
	return g
}

// Level returns the current zoom level.
func (g *Gate) Level() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

// ShowLabels applies ShouldShowLabel to the current level.
func (g *Gate) ShowLabels() bool {
	return ShouldShowLabel(g.Level())
}

// SetLevel replaces the current level unconditionally and notifies
// subscribers with the new value.
func (g *Gate) SetLevel(ctx context.Context, z int) {
	g.mu.Lock()
	prev := g.level
	g.level = z
	subs := make([]func(int), 0, len(g.subs))
	for id := 0; id < g.nextSub; id++ {
		if fn, ok := g.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	g.mu.Unlock()

	if g.metrics != nil {
		g.metrics.SetZoomLevel(z, ShouldShowLabel(z))
	}
	if ShouldShowLabel(prev) != ShouldShowLabel(z) {
		g.log.Debug(ctx, "label visibility changed",
			logging.Int("zoom", z),
			logging.Bool("labels", ShouldShowLabel(z)),
		)
	}
	for _, fn := range subs {
		fn(z)
	}
}

// Subscribe registers a callback invoked synchronously after every
// SetLevel. It returns an unsubscribe function.
func (g *Gate) Subscribe(fn func(level int)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
	}
}
