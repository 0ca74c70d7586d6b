package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/signalsfoundry/regionmap/dataset"
	"github.com/signalsfoundry/regionmap/internal/config"
	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/mapsvc"
	"github.com/signalsfoundry/regionmap/internal/observability"
	"github.com/signalsfoundry/regionmap/internal/treecontrol"
	"github.com/signalsfoundry/regionmap/render"
	"github.com/signalsfoundry/regionmap/selection"
	"github.com/signalsfoundry/regionmap/timectrl"
	"github.com/signalsfoundry/regionmap/zoom"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file merged into the environment")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the map gRPC server listens on (overrides REGIONMAP_GRPC_ADDR)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides REGIONMAP_METRICS_ADDR)")
	datasetPath := flag.String("dataset", "", "Path to the county/parish dataset (overrides REGIONMAP_DATASET)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapd: %v\n", err)
		os.Exit(2)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *datasetPath != "" {
		cfg.DatasetPath = *datasetPath
	}

	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "mapd exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires the map engine behind a gRPC server on lis and blocks until ctx
// is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mapMetrics, err := observability.NewMapCollector(reg)
	if err != nil {
		return fmt.Errorf("init map metrics: %w", err)
	}
	frameMetrics, err := observability.NewFrameCollector(reg)
	if err != nil {
		return fmt.Errorf("init frame metrics: %w", err)
	}

	ds, err := dataset.LoadFile(cfg.DatasetPath)
	if err != nil {
		return err
	}
	for county, labels := range ds.Unresolved {
		log.Warn(ctx, "dropping unresolved county children",
			logging.String("county", county),
			logging.Strings("labels", labels),
		)
	}

	store := selection.NewStore(
		selection.WithLogger(log),
		selection.WithMetricsRecorder(mapMetrics),
	)
	if err := ds.Populate(store); err != nil {
		return err
	}
	gate := zoom.NewGate(zoom.WithLogger(log), zoom.WithMetricsRecorder(mapMetrics))

	hoverMode, err := cfg.ParsedHoverMode()
	if err != nil {
		return err
	}
	bridge := mapbridge.New(store, gate, mapbridge.WithHoverMode(hoverMode), mapbridge.WithLogger(log))
	camera := mapsvc.NewCameraQueue(0, frameMetrics, log)
	tree := treecontrol.New(ds.Counties, store, camera, treecontrol.WithLogger(log))

	cache := &render.Cache{}
	renderer, err := startRenderer(ctx, cfg.FrameInterval, store, gate, cache,
		render.WithLogger(log),
		render.WithMetricsRecorder(frameMetrics),
	)
	if err != nil {
		return fmt.Errorf("start renderer: %w", err)
	}
	defer renderer.Stop()

	svc, err := mapsvc.NewServer(mapsvc.Backend{
		Store:  store,
		Bridge: bridge,
		Tree:   tree,
		Frames: cache,
		Camera: camera,
		Flush:  renderer.Flush,
	}, log)
	if err != nil {
		return err
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			mapsvc.RequestIDUnaryServerInterceptor(log),
			mapsvc.TracingUnaryServerInterceptor(),
			mapMetrics.UnaryServerInterceptor(),
			mapsvc.ErrorUnaryServerInterceptor(),
		),
	)
	mapsvc.RegisterMapServiceServer(server, svc)
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(mapsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthSrv)

	metricsSrv := serveMetrics(cfg.MetricsAddr, mapMetrics, log)

	log.Info(ctx, "starting map gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.Int("regions", store.Len()),
		logging.Int("counties", len(ds.Counties)),
		logging.String("hover_mode", hoverMode.String()),
	)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = fmt.Errorf("grpc serve: %w", err)
		}
	}

	log.Info(context.Background(), "shutting down map server")
	healthSrv.Shutdown()
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

// startRenderer starts a renderer over the store and gate. A positive
// interval coalesces repaints onto a frame clock running until ctx ends;
// otherwise every notification repaints immediately.
func startRenderer(ctx context.Context, interval time.Duration, state render.StateSource, levels render.LevelSource, painter render.Painter, opts ...render.Option) (*render.Renderer, error) {
	var clock *timectrl.FrameClock
	if interval > 0 {
		clock = timectrl.NewFrameClock(interval)
		opts = append(opts, render.WithFrameClock(clock))
	}
	r := render.NewRenderer(state, levels, painter, opts...)
	if err := r.Start(ctx); err != nil {
		r.Stop()
		return nil, err
	}
	if clock != nil {
		clock.Start(ctx)
	}
	return r, nil
}

func serveMetrics(addr string, collector *observability.MapCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
