package render

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/selection"
	"github.com/signalsfoundry/regionmap/timectrl"
)

// Painter hands a composed frame to the external rendering layer.
type Painter interface {
	Paint(ctx context.Context, f Frame) error
}

// PainterFunc adapts a function to Painter.
type PainterFunc func(ctx context.Context, f Frame) error

// Paint calls fn.
func (fn PainterFunc) Paint(ctx context.Context, f Frame) error { return fn(ctx, f) }

// StateSource is the subset of selection.Store the renderer reads.
type StateSource interface {
	Snapshot() selection.Snapshot
	Subscribe(fn func(selection.Change)) (unsubscribe func())
}

// LevelSource is the subset of zoom.Gate the renderer reads.
type LevelSource interface {
	Level() int
	Subscribe(fn func(level int)) (unsubscribe func())
}

// MetricsRecorder counts painted frames.
type MetricsRecorder interface {
	RecordFrame(layers int, err error)
}

// Option customises Renderer construction.
type Option func(*Renderer)

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetricsRecorder attaches an optional frame counter.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// WithFrameClock makes the renderer coalesce notifications: they only mark
// the frame dirty, and the next clock tick repaints once.
func WithFrameClock(clock *timectrl.FrameClock) Option {
	return func(r *Renderer) {
		r.clock = clock
	}
}

// Renderer recomputes a frame whenever the store or the zoom gate notifies
// it and passes the frame to a Painter.
type Renderer struct {
	state   StateSource
	levels  LevelSource
	painter Painter
	clock   *timectrl.FrameClock

	log     logging.Logger
	metrics MetricsRecorder

	// paintMu serializes compose and paint so the last paint reads the
	// latest state.
	paintMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	dirty   bool
	running bool
	unsubs  []func()
}

// NewRenderer wires a renderer. It does nothing until Start.
func NewRenderer(state StateSource, levels LevelSource, painter Painter, opts ...Option) *Renderer {
	r := &Renderer{
		state:   state,
		levels:  levels,
		painter: painter,
		log:     logging.Noop(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.clock != nil {
		r.clock.AddListener(func(time.Time) { r.Flush() })
	}
	return r
}

// Start subscribes to the store and the gate and paints the initial frame.
// ctx is passed to every Paint call until Stop.
func (r *Renderer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.ctx = ctx
	r.unsubs = append(r.unsubs,
		r.state.Subscribe(func(selection.Change) { r.invalidate() }),
		r.levels.Subscribe(func(int) { r.invalidate() }),
	)
	r.mu.Unlock()

	return r.Redraw(ctx)
}

// Stop detaches the renderer from its sources. Pending dirty state is
// dropped.
func (r *Renderer) Stop() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.running = false
	r.dirty = false
	r.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
}

// Redraw composes and paints a frame immediately. Concurrent calls paint one
// at a time.
func (r *Renderer) Redraw(ctx context.Context) error {
	r.paintMu.Lock()
	defer r.paintMu.Unlock()

	f := Compose(r.state.Snapshot(), r.levels.Level())
	err := r.painter.Paint(ctx, f)
	if r.metrics != nil {
		r.metrics.RecordFrame(len(f.Layers), err)
	}
	if err != nil {
		r.log.Warn(ctx, "paint failed", logging.Err(err))
	}
	return err
}

// Flush repaints if a notification arrived since the last paint. It reports
// whether a frame was painted.
func (r *Renderer) Flush() bool {
	r.mu.Lock()
	if !r.running || !r.dirty {
		r.mu.Unlock()
		return false
	}
	r.dirty = false
	ctx := r.ctx
	r.mu.Unlock()

	_ = r.Redraw(ctx)
	return true
}

func (r *Renderer) invalidate() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.dirty = true
	coalesce := r.clock != nil
	r.mu.Unlock()

	if !coalesce {
		r.Flush()
	}
}
