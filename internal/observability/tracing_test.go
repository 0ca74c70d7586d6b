package observability

import (
	"bytes"
	"context"
	"testing"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("REGIONMAP_TRACING_ENABLED", "true")
	t.Setenv("REGIONMAP_TRACING_EXPORTER", "OTLP")
	t.Setenv("REGIONMAP_TRACING_ENDPOINT", "collector:4317")
	t.Setenv("REGIONMAP_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := TracingConfigFromEnv()
	if err != nil {
		t.Fatalf("TracingConfigFromEnv: %v", err)
	}
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "regionmap" {
		t.Fatalf("service name default = %q", cfg.ServiceName)
	}
}

func TestTracingConfigClampsRatio(t *testing.T) {
	t.Setenv("REGIONMAP_TRACING_SAMPLE_RATIO", "7")
	cfg, err := TracingConfigFromEnv()
	if err != nil {
		t.Fatalf("TracingConfigFromEnv: %v", err)
	}
	if cfg.SampleRatio != 1 || cfg.Enabled {
		t.Fatalf("cfg = %+v, want ratio 1 and disabled", cfg)
	}
}

func TestTracingConfigRejectsBadBool(t *testing.T) {
	t.Setenv("REGIONMAP_TRACING_ENABLED", "sometimes")
	if _, err := TracingConfigFromEnv(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestExporterFromConfig(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	exp, err := exporterFromConfig(ctx, TracingConfig{Exporter: "stdout"}.normalized(), &buf)
	if err != nil {
		t.Fatalf("stdout exporter: %v", err)
	}
	if err := exp.Shutdown(ctx); err != nil {
		t.Fatalf("stdout exporter shutdown: %v", err)
	}

	if _, err := exporterFromConfig(ctx, TracingConfig{Exporter: "zipkin"}.normalized(), &buf); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}
