package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/leadcraft/leadcraft-backend/internal/config"
)

func stashGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func tracingConfig() config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "leadcraft-test",
		SampleRatio: 1.0,
	}
}

func TestSetupOTel_DisabledLeavesGlobalsAlone(t *testing.T) {
	stashGlobals(t)
	prev := otel.GetTracerProvider()

	cfg := tracingConfig()
	cfg.Enabled = false
	shutdown, err := SetupOTel(context.Background(), cfg, "v0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if otel.GetTracerProvider() != prev {
		t.Fatal("disabled tracing must not replace the tracer provider")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_InstallsProviderAndPropagator(t *testing.T) {
	stashGlobals(t)

	shutdown, err := SetupOTel(context.Background(), tracingConfig(), "v1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("tracer provider = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}

	// The composite propagator round-trips trace context.
	carrier := propagation.MapCarrier{}
	ctx, span := otel.Tracer("setup-test").Start(context.Background(), "probe-span")
	span.End()
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		t.Fatal("expected injected trace headers")
	}
}

func TestSetupOTel_TLSBranch(t *testing.T) {
	stashGlobals(t)

	cfg := tracingConfig()
	cfg.Insecure = false
	shutdown, err := SetupOTel(context.Background(), cfg, "v1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("tracer provider = %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
	}
}

func TestSetupOTel_ExporterErrorLeavesGlobalsAlone(t *testing.T) {
	stashGlobals(t)
	orig := otlpExporterFn
	t.Cleanup(func() { otlpExporterFn = orig })

	otlpExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, errors.New("exporter refused")
	}

	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	if _, err := SetupOTel(context.Background(), tracingConfig(), "v0"); err == nil {
		t.Fatal("expected exporter error")
	}
	if otel.GetTracerProvider() != prevTP || otel.GetTextMapPropagator() != prevProp {
		t.Fatal("globals changed on failed setup")
	}
}

func TestSetupOTel_ResourceErrorLeavesGlobalsAlone(t *testing.T) {
	stashGlobals(t)
	orig := serviceResourceFn
	t.Cleanup(func() { serviceResourceFn = orig })

	serviceResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return nil, errors.New("resource refused")
	}

	prevTP := otel.GetTracerProvider()
	if _, err := SetupOTel(context.Background(), tracingConfig(), "v0"); err == nil {
		t.Fatal("expected resource error")
	}
	if otel.GetTracerProvider() != prevTP {
		t.Fatal("tracer provider changed on failed setup")
	}
}

func TestSetupOTel_ShutdownCompletes(t *testing.T) {
	stashGlobals(t)

	shutdown, err := SetupOTel(context.Background(), tracingConfig(), "v1")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
