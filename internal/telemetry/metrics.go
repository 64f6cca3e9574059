package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// GenerateMetricsMeterName is the name used for the generator metrics meter
	GenerateMetricsMeterName = "github.com/stacklok/osmtiles-provider/generate"
)

// Fetch outcomes recorded on the fetch duration histogram
const (
	OutcomeSuccess      = "success"
	OutcomeFetchFailed  = "fetch_failed"
	OutcomeStoreFailed  = "store_failed"
	OutcomeTemplateFail = "template_failed"
)

// GenerateMetrics holds the OpenTelemetry instruments for generator runs
type GenerateMetrics struct {
	fetchDuration    metric.Float64Histogram
	artifactsWritten metric.Int64Counter
	mastersRendered  metric.Int64Counter
}

// NewGenerateMetrics creates a new GenerateMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewGenerateMetrics(provider metric.MeterProvider) (*GenerateMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(GenerateMetricsMeterName)

	fetchDuration, err := meter.Float64Histogram(
		"osmtiles_source_fetch_duration_seconds",
		metric.WithDescription("Duration of source adapter fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	artifactsWritten, err := meter.Int64Counter(
		"osmtiles_artifacts_total",
		metric.WithDescription("Number of generated artifacts, by kind and whether content changed"),
		metric.WithUnit("{artifact}"),
	)
	if err != nil {
		return nil, err
	}

	mastersRendered, err := meter.Int64Counter(
		"osmtiles_masters_rendered_total",
		metric.WithDescription("Number of master configurations rendered"),
		metric.WithUnit("{master}"),
	)
	if err != nil {
		return nil, err
	}

	return &GenerateMetrics{
		fetchDuration:    fetchDuration,
		artifactsWritten: artifactsWritten,
		mastersRendered:  mastersRendered,
	}, nil
}

// RecordFetch records the duration and outcome of a single source fetch
func (m *GenerateMetrics) RecordFetch(ctx context.Context, source string, duration time.Duration, outcome string) {
	if m == nil || m.fetchDuration == nil {
		return
	}

	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	))
}

// RecordArtifact records one artifact write attempt that reached storage
func (m *GenerateMetrics) RecordArtifact(ctx context.Context, source, kind string, changed bool) {
	if m == nil || m.artifactsWritten == nil {
		return
	}

	m.artifactsWritten.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("kind", kind),
		attribute.Bool("changed", changed),
	))
}

// RecordMaster records one rendered master configuration
func (m *GenerateMetrics) RecordMaster(ctx context.Context, master string) {
	if m == nil || m.mastersRendered == nil {
		return
	}

	m.mastersRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("master", master)))
}
