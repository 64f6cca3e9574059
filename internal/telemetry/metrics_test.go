package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewGenerateMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewGenerateMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewGenerateMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.fetchDuration)
		assert.NotNil(t, metrics.artifactsWritten)
		assert.NotNil(t, metrics.mastersRendered)
	})
}

func TestGenerateMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *GenerateMetrics
	ctx := context.Background()
	// Should not panic
	metrics.RecordFetch(ctx, "bom", time.Second, OutcomeSuccess)
	metrics.RecordArtifact(ctx, "bom", "config", true)
	metrics.RecordMaster(ctx, "osmtiles_provider")
}

func TestGenerateMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewGenerateMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordFetch(ctx, "bom", 250*time.Millisecond, OutcomeSuccess)
	metrics.RecordFetch(ctx, "strava", 2*time.Second, OutcomeFetchFailed)
	metrics.RecordArtifact(ctx, "bing", "config", true)
	metrics.RecordArtifact(ctx, "bing", "sidecar", false)
	metrics.RecordMaster(ctx, "osmtiles_provider")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != GenerateMetricsMeterName {
			continue
		}
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}

	assert.True(t, names["osmtiles_source_fetch_duration_seconds"])
	assert.True(t, names["osmtiles_artifacts_total"])
	assert.True(t, names["osmtiles_masters_rendered_total"])
}
