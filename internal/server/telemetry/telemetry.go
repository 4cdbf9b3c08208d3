// Package telemetry configures OpenTelemetry tracing for the server.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/dmitrijs2005/fittrack/internal/logging"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Settings selects the OTLP collector. An empty Endpoint disables tracing.
type Settings struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// seam for tests
var newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (trace.SpanExporter, error) {
	return otlptracegrpc.New(ctx, opts...)
}

// Setup installs a global tracer provider exporting over OTLP/gRPC. Exporter
// problems are logged and tracing is left disabled; they never stop the
// server from starting.
func Setup(ctx context.Context, s Settings, log logging.Logger) ShutdownFunc {
	noop := func(context.Context) error { return nil }
	if s.Endpoint == "" {
		return noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(s.Endpoint)}
	if s.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := newExporter(ctx, opts...)
	if err != nil {
		log.Error(ctx, "otel exporter error", "error", err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(s.ServiceName)))
	if err != nil {
		log.Warn(ctx, "otel resource error", "error", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	log.Info(ctx, "tracing enabled", "endpoint", s.Endpoint)

	return provider.Shutdown
}
