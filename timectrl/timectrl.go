package timectrl

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is roughly one display refresh at 60Hz.
const DefaultInterval = 16 * time.Millisecond

// FrameClock drives redraws. Listeners run on every tick, in registration
// order, on the clock goroutine; Step lets callers drive the clock by hand.
type FrameClock struct {
	mu       sync.RWMutex
	Interval time.Duration

	// frames counts ticks delivered so far.
	frames uint64
	last   time.Time

	listeners []func(time.Time)
}

// NewFrameClock constructs a clock. A non-positive interval falls back to
// DefaultInterval.
func NewFrameClock(interval time.Duration) *FrameClock {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &FrameClock{Interval: interval}
}

// AddListener registers a callback invoked on every tick.
func (fc *FrameClock) AddListener(fn func(time.Time)) {
	if fn == nil {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.listeners = append(fc.listeners, fn)
}

// Frames returns the number of ticks delivered.
func (fc *FrameClock) Frames() uint64 {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.frames
}

// Listeners returns the number of registered listeners.
func (fc *FrameClock) Listeners() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.listeners)
}

// LastTick returns the time of the most recent tick, or the zero time.
func (fc *FrameClock) LastTick() time.Time {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.last
}

// Step delivers a single tick at now.
func (fc *FrameClock) Step(now time.Time) {
	fc.mu.Lock()
	fc.frames++
	fc.last = now
	listeners := append([]func(time.Time){}, fc.listeners...)
	fc.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
}

// Start ticks in a separate goroutine until ctx is cancelled. It returns a
// channel that is closed when the clock stops.
func (fc *FrameClock) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(fc.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				fc.Step(now)
			}
		}
	}()
	return done
}
