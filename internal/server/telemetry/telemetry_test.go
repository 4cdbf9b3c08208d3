package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dmitrijs2005/fittrack/internal/logging"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	called := false
	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (trace.SpanExporter, error) {
		called = true
		return nil, nil
	}

	shutdown := Setup(context.Background(), Settings{ServiceName: "fittrack"}, logging.Nop())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.False(t, called)
}

func TestSetup_ExporterErrorIsNotFatal(t *testing.T) {
	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (trace.SpanExporter, error) {
		return nil, errors.New("dial failed")
	}

	shutdown := Setup(context.Background(), Settings{ServiceName: "fittrack", Endpoint: "collector:4317"}, logging.Nop())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_InstallsProvider(t *testing.T) {
	orig := newExporter
	t.Cleanup(func() { newExporter = orig })

	exp := tracetest.NewInMemoryExporter()
	var gotOpts int
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (trace.SpanExporter, error) {
		gotOpts = len(opts)
		return exp, nil
	}

	shutdown := Setup(context.Background(), Settings{ServiceName: "fittrack", Endpoint: "collector:4317", Insecure: true}, logging.Nop())
	assert.Equal(t, 2, gotOpts)
	assert.NoError(t, shutdown(context.Background()))
}
