package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/miradorstack/mirador-netforecast/internal/config"
)

func TestInitTracingNone(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Exporter: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, span := StartSpan(context.Background(), "test", attribute.Int("tick", 1))
	if span.SpanContext().IsSampled() {
		t.Fatalf("expected no-op span")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdout(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{
		Exporter: "stdout", SampleRatio: 1, ServiceName: "netforecast-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer shutdown(context.Background())

	_, span := StartSpan(context.Background(), "pipeline.tick")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a recording span")
	}
}

func TestInitTracingUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), config.TracingConfig{Exporter: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}

func TestBuildSamplerBounds(t *testing.T) {
	if got := buildSampler(0).Description(); got == buildSampler(1).Description() {
		t.Fatalf("expected distinct samplers, both %s", got)
	}
}
