package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FrameCollector exposes renderer-specific Prometheus metrics.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	FramesPainted *prometheus.CounterVec
	FrameLayers   prometheus.Gauge
	FrameGap      prometheus.Histogram
	CameraFlights prometheus.Counter

	mu        sync.Mutex
	lastPaint time.Time
	now       func() time.Time
}

// NewFrameCollector registers renderer metrics against the provided registerer.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	painted, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regionmap_frames_painted_total",
		Help: "Frames handed to the painter, labeled by result (ok|error).",
	}, []string{"result"}), "regionmap_frames_painted_total")
	if err != nil {
		return nil, err
	}

	layers, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_frame_layers",
		Help: "Number of region layers in the most recent frame.",
	}), "regionmap_frame_layers")
	if err != nil {
		return nil, err
	}

	gap, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "regionmap_frame_gap_seconds",
		Help:    "Time between consecutive painted frames.",
		Buckets: []float64{0.008, 0.016, 0.033, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
	}), "regionmap_frame_gap_seconds")
	if err != nil {
		return nil, err
	}

	flights, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "regionmap_camera_flights_total",
		Help: "Camera fly-to requests issued by the tree control.",
	}), "regionmap_camera_flights_total")
	if err != nil {
		return nil, err
	}

	return &FrameCollector{
		gatherer:      gatherer,
		FramesPainted: painted,
		FrameLayers:   layers,
		FrameGap:      gap,
		CameraFlights: flights,
		now:           time.Now,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *FrameCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordFrame satisfies the renderer's metrics recorder.
func (c *FrameCollector) RecordFrame(layers int, err error) {
	if c == nil || c.FramesPainted == nil {
		return
	}
	if err != nil {
		c.FramesPainted.WithLabelValues("error").Inc()
		return
	}
	c.FramesPainted.WithLabelValues("ok").Inc()
	if c.FrameLayers != nil {
		c.FrameLayers.Set(float64(layers))
	}

	c.mu.Lock()
	now := c.now()
	prev := c.lastPaint
	c.lastPaint = now
	c.mu.Unlock()

	if !prev.IsZero() && c.FrameGap != nil {
		c.FrameGap.Observe(now.Sub(prev).Seconds())
	}
}

// IncCameraFlights increments the camera request counter.
func (c *FrameCollector) IncCameraFlights() {
	if c == nil || c.CameraFlights == nil {
		return
	}
	c.CameraFlights.Inc()
}
