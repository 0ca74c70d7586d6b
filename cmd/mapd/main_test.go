package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/regionmap/internal/config"
	"github.com/signalsfoundry/regionmap/internal/logging"
	"github.com/signalsfoundry/regionmap/internal/mapbridge"
	"github.com/signalsfoundry/regionmap/internal/mapsvc"
	"github.com/signalsfoundry/regionmap/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestMapServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Config{
		DatasetPath:   filepath.Join("..", "..", "data", "map.json"),
		GRPCAddr:      lis.Addr().String(),
		MetricsAddr:   "",
		FrameInterval: 5 * time.Millisecond,
		HoverMode:     "explicit",
		Log:           logging.Config{Level: "warn", Format: "text"},
		Tracing:       observability.TracingConfig{Enabled: false},
	}

	log := logging.New(cfg.Log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	health, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: mapsvc.ServiceName}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if health.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v", health.GetStatus())
	}

	client := mapsvc.NewClient(conn)
	tree, err := client.Tree(ctx)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(tree.Panels) != 3 {
		t.Fatalf("panels = %d, want 3", len(tree.Panels))
	}

	layer := mapbridge.StaticLayer{ID: "poly-adazi", Label: "Ādaži"}
	if err := client.LayerAdd(ctx, layer); err != nil {
		t.Fatalf("LayerAdd: %v", err)
	}
	if err := client.Click(ctx, layer); err != nil {
		t.Fatalf("Click: %v", err)
	}
	frame, fc, err := client.Frame(ctx)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if frame.Version == 0 || len(fc.Features) != 5 {
		t.Fatalf("frame version=%d features=%d, want painted frame with 5 regions", frame.Version, len(fc.Features))
	}
	selected := 0
	for _, f := range fc.Features {
		if f.Properties.MustString("style") == "selected" {
			selected++
		}
	}
	if selected != 1 {
		t.Fatalf("selected features = %d, want 1", selected)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not exit after context cancellation")
	}
}

func TestRunFailsOnMissingDataset(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	cfg := config.Config{DatasetPath: filepath.Join(t.TempDir(), "missing.json")}
	if err := run(context.Background(), cfg, logging.Noop(), lis); err == nil {
		t.Fatalf("expected error for missing dataset")
	}
}
