package mapsvc

import (
	"context"
	"sync"

	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/model"
)

// DefaultCameraBacklog bounds the camera requests kept between Frame calls.
const DefaultCameraBacklog = 16

// FlightRecorder counts camera requests.
type FlightRecorder interface {
	IncCameraFlights()
}

// CameraQueue implements the tree control's Camera by buffering fly-to
// requests until the remote rendering layer collects them with Frame.
// Only the most recent requests are kept when the backlog fills.
type CameraQueue struct {
	mu      sync.Mutex
	pending []CameraRequest
	limit   int

	metrics FlightRecorder
	log     logging.Logger
}

// NewCameraQueue returns a queue holding at most limit requests. A
// non-positive limit selects DefaultCameraBacklog.
func NewCameraQueue(limit int, metrics FlightRecorder, log logging.Logger) *CameraQueue {
	if limit <= 0 {
		limit = DefaultCameraBacklog
	}
	if log == nil {
		log = logging.Noop()
	}
	return &CameraQueue{limit: limit, metrics: metrics, log: log}
}

// FlyTo queues a camera request.
func (q *CameraQueue) FlyTo(ctx context.Context, point model.Point, zoom int) error {
	q.mu.Lock()
	q.pending = append(q.pending, CameraRequest{Point: point, Zoom: zoom})
	dropped := 0
	if over := len(q.pending) - q.limit; over > 0 {
		dropped = over
		q.pending = append(q.pending[:0], q.pending[over:]...)
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.IncCameraFlights()
	}
	if dropped > 0 {
		q.log.Debug(ctx, "camera backlog full; dropped oldest requests", logging.Int("dropped", dropped))
	}
	return nil
}

// Drain returns and clears the pending requests in arrival order.
func (q *CameraQueue) Drain() []CameraRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending requests.
func (q *CameraQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
