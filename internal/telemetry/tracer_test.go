package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	t.Parallel()

	tp, err := NewTracerProvider(context.Background(), WithTracingConfig(&TracingConfig{Enabled: false}))
	require.NoError(t, err)
	_, isNoOp := tp.(noop.TracerProvider)
	assert.True(t, isNoOp, "expected no-op tracer provider")
}

func TestStartSpan_NilTracer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gotCtx, span := StartSpan(ctx, nil, "noop")
	assert.Equal(t, ctx, gotCtx)
	assert.NotNil(t, span)
	// Recording on a no-op span must not panic
	RecordError(span, errors.New("boom"))
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), tp.Tracer(TracerName), "source.fetch")
	RecordError(span, errors.New("secret-token=abc"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "operation failed", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}
