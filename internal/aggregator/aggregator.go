// Package aggregator drives the source registry for one generator run.
//
// Every registered source contributes its filenames to the composition
// context, whether or not it is fetched this run, so master configurations
// always reference the full set of sources. Only selected sources are fetched
// and written. A failing source is reported and skipped; its previously
// written artifacts stay in place.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/osmtiles-provider/internal/composer"
	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/registry"
	"github.com/stacklok/osmtiles-provider/internal/sources"
	"github.com/stacklok/osmtiles-provider/internal/storage"
	"github.com/stacklok/osmtiles-provider/internal/telemetry"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

const (
	// ProviderDir holds per-source config snippets, relative to the output root
	ProviderDir = "provider"

	// ScriptDir holds per-source sidecar scripts, relative to the output root
	ScriptDir = "provider/js"
)

// Failure reasons
const (
	ReasonFetchFailed   = "FetchFailed"
	ReasonStorageFailed = "StorageFailed"
)

// Status is the outcome of one entry in a run
type Status string

// Entry statuses
const (
	StatusRegenerated Status = "regenerated"
	StatusUnchanged   Status = "unchanged"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Failure describes a source whose artifacts could not be regenerated
type Failure struct {
	Source  string
	Reason  string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// EntryReport is the outcome of one registry entry
type EntryReport struct {
	Name   string
	Status Status

	// Written lists the artifact paths whose content changed
	Written []string
}

// RunResult is the outcome of a run
type RunResult struct {
	// Context lists the filenames of every registered source
	Context *composer.Context

	// Entries has one report per registry entry, in registry order
	Entries []EntryReport

	// Failures has one element per failed entry
	Failures []*Failure
}

// Failed reports whether any entry failed
func (r *RunResult) Failed() bool {
	return len(r.Failures) > 0
}

// Aggregator fetches sources and writes their artifacts
type Aggregator struct {
	registry *registry.Registry
	store    storage.ArtifactStore
	timeout  time.Duration
	tracer   trace.Tracer
	metrics  *telemetry.GenerateMetrics
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithTimeout bounds every adapter fetch
func WithTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = timeout
	}
}

// WithTracer enables a span per run and per fetched source
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

// WithMetrics enables fetch and artifact metrics
func WithMetrics(metrics *telemetry.GenerateMetrics) Option {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// New creates an Aggregator over reg writing to store
func New(reg *registry.Registry, store storage.ArtifactStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: reg,
		store:    store,
		timeout:  config.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run processes the registry. An empty selection fetches every source,
// otherwise only the named one is fetched. Per-source failures are collected in
// the result; template errors and unknown selections abort the run.
func (a *Aggregator) Run(ctx context.Context, selection string) (*RunResult, error) {
	if err := a.registry.CheckSelection(selection); err != nil {
		return nil, err
	}

	logger := logr.FromContextOrDiscard(ctx)
	ctx, span := telemetry.StartSpan(ctx, a.tracer, "aggregator.Run",
		trace.WithAttributes(telemetry.AttrSelection.String(selection)))
	defer span.End()

	result := &RunResult{Context: composer.NewContext()}
	written := 0

	for _, entry := range a.registry.Entries() {
		result.Context.Add(entry.ConfigFile(), entry.SidecarFile())

		if selection != "" && selection != entry.Name {
			result.Entries = append(result.Entries, EntryReport{Name: entry.Name, Status: StatusSkipped})
			continue
		}

		report, failure, err := a.process(ctx, entry)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if failure != nil {
			result.Failures = append(result.Failures, failure)
		}
		written += len(report.Written)
		result.Entries = append(result.Entries, report)
	}

	span.SetAttributes(telemetry.AttrArtifactCount.Int(written))
	logger.V(1).Info("Aggregation completed",
		"sources", len(result.Entries), "artifactsWritten", written, "failures", len(result.Failures))

	return result, nil
}

// process fetches one entry and writes its artifacts. A returned error is fatal to the run.
func (a *Aggregator) process(ctx context.Context, entry registry.Entry) (EntryReport, *Failure, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("source", entry.Name)
	ctx = logr.NewContext(ctx, logger)

	ctx, span := telemetry.StartSpan(ctx, a.tracer, "source.fetch",
		trace.WithAttributes(telemetry.AttrSourceName.String(entry.Name)))
	defer span.End()

	report := EntryReport{Name: entry.Name, Status: StatusFailed}
	start := time.Now()

	result, err := a.fetch(ctx, entry)
	if err != nil {
		telemetry.RecordError(span, err)
		if templates.IsTemplateError(err) {
			a.metrics.RecordFetch(ctx, entry.Name, time.Since(start), telemetry.OutcomeTemplateFail)
			logger.Error(err, "Template error, aborting run")
			return report, nil, fmt.Errorf("source %s: %w", entry.Name, err)
		}

		a.metrics.RecordFetch(ctx, entry.Name, time.Since(start), telemetry.OutcomeFetchFailed)
		logger.Error(err, "Source fetch failed, keeping previous artifacts")
		return report, &Failure{
			Source:  entry.Name,
			Reason:  ReasonFetchFailed,
			Message: err.Error(),
			Err:     err,
		}, nil
	}
	span.SetAttributes(telemetry.AttrSourceKind.String(result.Kind.String()))

	artifacts := []storage.Artifact{{
		Path:    filepath.Join(ProviderDir, entry.ConfigFile()),
		Content: []byte(result.Config),
	}}
	if result.Kind == sources.KindPaired {
		artifacts = append(artifacts, storage.Artifact{
			Path:    filepath.Join(ScriptDir, entry.SidecarFile()),
			Content: []byte(result.Sidecar),
		})
	}

	// A paired source's files are replaced together or not at all
	changed, err := a.store.WriteAll(ctx, artifacts)
	if err != nil {
		telemetry.RecordError(span, err)
		a.metrics.RecordFetch(ctx, entry.Name, time.Since(start), telemetry.OutcomeStoreFailed)
		logger.Error(err, "Failed to write artifacts, keeping previous artifacts")
		return report, &Failure{
			Source:  entry.Name,
			Reason:  ReasonStorageFailed,
			Message: fmt.Sprintf("failed to write artifacts for source %s: %v", entry.Name, err),
			Err:     err,
		}, nil
	}

	for i, artifact := range artifacts {
		kind := "config"
		if i > 0 {
			kind = "sidecar"
		}
		a.metrics.RecordArtifact(ctx, entry.Name, kind, changed[i])
		if changed[i] {
			report.Written = append(report.Written, artifact.Path)
		}
	}

	a.metrics.RecordFetch(ctx, entry.Name, time.Since(start), telemetry.OutcomeSuccess)

	report.Status = StatusUnchanged
	if len(report.Written) > 0 {
		report.Status = StatusRegenerated
	}
	logger.Info("Source processed", "status", report.Status, "written", report.Written)

	return report, nil, nil
}

// fetch invokes the adapter under the per-source timeout and checks the result shape
func (a *Aggregator) fetch(ctx context.Context, entry registry.Entry) (*sources.Result, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := entry.Adapter.Fetch(fetchCtx)
	if err != nil {
		var fetchErr *sources.FetchError
		if templates.IsTemplateError(err) || errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &sources.FetchError{Source: entry.Name, Err: err}
	}

	if err := sources.CheckShape(entry.Adapter, result); err != nil {
		return nil, &sources.FetchError{Source: entry.Name, Err: err}
	}
	return result, nil
}
