package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MapCollector bundles Prometheus metrics for the map service: RPC traffic,
// selection activity and the current zoom level. It satisfies the metrics
// recorder interfaces of the selection store and the zoom gate.
type MapCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	SelectionActions *prometheus.CounterVec
	RegionsTotal     prometheus.Gauge
	RegionsSelected  prometheus.Gauge
	RegionsHovered   prometheus.Gauge

	ZoomLevel     prometheus.Gauge
	LabelsVisible prometheus.Gauge
}

// NewMapCollector registers map metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewMapCollector(reg prometheus.Registerer) (*MapCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regionmap_rpc_requests_total",
		Help: "Total number of handled map service RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "regionmap_rpc_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regionmap_rpc_duration_seconds",
		Help:    "Map service RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "regionmap_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	actions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "regionmap_selection_actions_total",
		Help: "Region labels processed by selection actions, labeled by action and outcome (applied|ignored).",
	}, []string{"action", "outcome"}), "regionmap_selection_actions_total")
	if err != nil {
		return nil, err
	}
	total, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_regions",
		Help: "Number of regions loaded into the selection store.",
	}), "regionmap_regions")
	if err != nil {
		return nil, err
	}
	selected, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_regions_selected",
		Help: "Number of currently selected regions.",
	}), "regionmap_regions_selected")
	if err != nil {
		return nil, err
	}
	hovered, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_regions_hovered",
		Help: "Number of regions currently flagged as hovered.",
	}), "regionmap_regions_hovered")
	if err != nil {
		return nil, err
	}

	zoomLevel, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_zoom_level",
		Help: "Current map zoom level.",
	}), "regionmap_zoom_level")
	if err != nil {
		return nil, err
	}
	labels, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "regionmap_labels_visible",
		Help: "1 when permanent region labels are shown at the current zoom level.",
	}), "regionmap_labels_visible")
	if err != nil {
		return nil, err
	}

	return &MapCollector{
		gatherer:         gatherer,
		RPCRequests:      requests,
		RPCDurations:     durations,
		SelectionActions: actions,
		RegionsTotal:     total,
		RegionsSelected:  selected,
		RegionsHovered:   hovered,
		ZoomLevel:        zoomLevel,
		LabelsVisible:    labels,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *MapCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *MapCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordAction counts the labels an action applied to and the labels it
// ignored because no region carried them.
func (c *MapCollector) RecordAction(action string, applied, ignored int) {
	if c == nil || c.SelectionActions == nil {
		return
	}
	if applied > 0 {
		c.SelectionActions.WithLabelValues(action, "applied").Add(float64(applied))
	}
	if ignored > 0 {
		c.SelectionActions.WithLabelValues(action, "ignored").Add(float64(ignored))
	}
}

// SetSelectionCounts updates the region gauges from the store's mutators.
func (c *MapCollector) SetSelectionCounts(selected, hovered, total int) {
	if c == nil {
		return
	}
	if c.RegionsSelected != nil {
		c.RegionsSelected.Set(float64(selected))
	}
	if c.RegionsHovered != nil {
		c.RegionsHovered.Set(float64(hovered))
	}
	if c.RegionsTotal != nil {
		c.RegionsTotal.Set(float64(total))
	}
}

// SetZoomLevel records the zoom level along with the label visibility it
// implies.
func (c *MapCollector) SetZoomLevel(level int, labelsVisible bool) {
	if c == nil {
		return
	}
	if c.ZoomLevel != nil {
		c.ZoomLevel.Set(float64(level))
	}
	if c.LabelsVisible != nil {
		v := 0.0
		if labelsVisible {
			v = 1
		}
		c.LabelsVisible.Set(v)
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds collector to reg, reusing a previously registered collector
// of the same type so several components can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, collector C, name string) (C, error) {
	if err := reg.Register(collector); err != nil {
		var zero C
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return collector, nil
}
