package generator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/osmtiles-provider/internal/aggregator"
	"github.com/stacklok/osmtiles-provider/internal/composer"
	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/registry"
	"github.com/stacklok/osmtiles-provider/internal/sources"
	"github.com/stacklok/osmtiles-provider/internal/storage"
	"github.com/stacklok/osmtiles-provider/internal/telemetry"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// Option is a function that configures the generator builder
type Option func(*generatorConfig) error

// generatorConfig collects the generator's dependencies.
// Every component has a production default built from the configuration;
// the overrides exist for tests.
type generatorConfig struct {
	config  *config.Config
	baseDir string

	renderer       templates.Renderer
	adapterFactory sources.AdapterFactory
	store          storage.ArtifactStore

	tracer        trace.Tracer
	meterProvider metric.MeterProvider
}

// WithConfig sets the configuration
func WithConfig(cfg *config.Config) Option {
	return func(c *generatorConfig) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		c.config = cfg
		return nil
	}
}

// WithBaseDir sets the directory relative paths in the configuration are resolved against
func WithBaseDir(dir string) Option {
	return func(c *generatorConfig) error {
		c.baseDir = dir
		return nil
	}
}

// WithRenderer overrides the template renderer
func WithRenderer(renderer templates.Renderer) Option {
	return func(c *generatorConfig) error {
		c.renderer = renderer
		return nil
	}
}

// WithAdapterFactory overrides the adapter factory
func WithAdapterFactory(factory sources.AdapterFactory) Option {
	return func(c *generatorConfig) error {
		c.adapterFactory = factory
		return nil
	}
}

// WithArtifactStore overrides the artifact store
func WithArtifactStore(store storage.ArtifactStore) Option {
	return func(c *generatorConfig) error {
		c.store = store
		return nil
	}
}

// WithTracer enables tracing of runs and fetches
func WithTracer(tracer trace.Tracer) Option {
	return func(c *generatorConfig) error {
		c.tracer = tracer
		return nil
	}
}

// WithMeterProvider enables generator metrics
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *generatorConfig) error {
		c.meterProvider = mp
		return nil
	}
}

// New builds a Generator, creating every component the options did not provide
func New(_ context.Context, opts ...Option) (*Generator, error) {
	cfg := &generatorConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if cfg.renderer == nil {
		cfg.renderer = templates.NewRenderer(resolveDir(cfg.baseDir, cfg.config.Templates.Dir))
	}
	if cfg.adapterFactory == nil {
		cfg.adapterFactory = sources.NewAdapterFactory(cfg.renderer,
			sources.WithRequestTimeout(cfg.config.GetTimeout()),
			sources.WithBaseDir(cfg.baseDir),
		)
	}
	if cfg.store == nil {
		cfg.store = storage.NewFileArtifactStore(resolveDir(cfg.baseDir, cfg.config.Output.Root))
	}

	reg, err := registry.FromConfig(cfg.config, cfg.adapterFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to build source registry: %w", err)
	}

	metrics, err := telemetry.NewGenerateMetrics(cfg.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Generator{
		masters:  cfg.config.Masters,
		registry: reg,
		store:    cfg.store,
		composer: composer.New(cfg.renderer),
		aggregator: aggregator.New(reg, cfg.store,
			aggregator.WithTimeout(cfg.config.GetTimeout()),
			aggregator.WithTracer(cfg.tracer),
			aggregator.WithMetrics(metrics),
		),
		tracer:  cfg.tracer,
		metrics: metrics,
	}, nil
}
