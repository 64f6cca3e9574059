// Package generator runs the full configuration generation pipeline: it
// locks the output tree, regenerates the selected sources and writes every
// master configuration.
package generator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/osmtiles-provider/internal/aggregator"
	"github.com/stacklok/osmtiles-provider/internal/composer"
	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/registry"
	"github.com/stacklok/osmtiles-provider/internal/storage"
	"github.com/stacklok/osmtiles-provider/internal/telemetry"
)

// Generator runs the generation pipeline
type Generator struct {
	masters    []config.MasterConfig
	registry   *registry.Registry
	store      storage.ArtifactStore
	composer   *composer.Composer
	aggregator *aggregator.Aggregator
	tracer     trace.Tracer
	metrics    *telemetry.GenerateMetrics
}

// MasterReport is the outcome of writing one master configuration
type MasterReport struct {
	Name    string
	Path    string
	Changed bool
}

// Report is the outcome of a generator run
type Report struct {
	Run     *aggregator.RunResult
	Masters []MasterReport
}

// Failed reports whether any source failed during the run
func (r *Report) Failed() bool {
	return r.Run != nil && r.Run.Failed()
}

// Registry returns the generator's source registry
func (g *Generator) Registry() *registry.Registry {
	return g.registry
}

// Generate regenerates the selected source (all sources when selection is
// empty) and rewrites every master. Source failures are reported in the
// Report; an error is returned only when the run could not complete.
func (g *Generator) Generate(ctx context.Context, selection string) (*Report, error) {
	logger := logr.FromContextOrDiscard(ctx)

	// Unknown selections are rejected before anything, the lock file included, is written
	if err := g.registry.CheckSelection(selection); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, g.tracer, "generator.Generate",
		trace.WithAttributes(telemetry.AttrSelection.String(selection)))
	defer span.End()

	unlock, err := g.store.Lock(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Error(err, "Failed to release output tree lock")
		}
	}()

	run, err := g.aggregator.Run(ctx, selection)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &Report{Run: run}
	for _, master := range g.masters {
		mr, err := g.writeMaster(ctx, master, run.Context)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		report.Masters = append(report.Masters, mr)
	}

	logSummary(logger, report)
	return report, nil
}

// writeMaster composes one master and writes it to {root}/{name}.conf
func (g *Generator) writeMaster(
	ctx context.Context,
	master config.MasterConfig,
	cctx *composer.Context,
) (MasterReport, error) {
	_, span := telemetry.StartSpan(ctx, g.tracer, "composer.Compose",
		trace.WithAttributes(telemetry.AttrMasterName.String(master.Name)))
	defer span.End()

	text, err := g.composer.Compose(master.Template, cctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return MasterReport{}, fmt.Errorf("master %s: %w", master.Name, err)
	}

	path := master.Name + "." + registry.ConfigExtension
	changed, err := g.store.Write(ctx, storage.Artifact{Path: path, Content: []byte(text)})
	if err != nil {
		telemetry.RecordError(span, err)
		return MasterReport{}, fmt.Errorf("failed to write master %s: %w", master.Name, err)
	}
	g.metrics.RecordMaster(ctx, master.Name)

	return MasterReport{Name: master.Name, Path: path, Changed: changed}, nil
}

// logSummary logs one line per run with the count of sources in each state
func logSummary(logger logr.Logger, report *Report) {
	counts := map[aggregator.Status]int{}
	for _, e := range report.Run.Entries {
		counts[e.Status]++
	}

	failed := make([]string, 0, len(report.Run.Failures))
	for _, f := range report.Run.Failures {
		failed = append(failed, f.Source)
	}

	logger.Info("Generation completed",
		"regenerated", counts[aggregator.StatusRegenerated],
		"unchanged", counts[aggregator.StatusUnchanged],
		"skipped", counts[aggregator.StatusSkipped],
		"failed", counts[aggregator.StatusFailed],
		"failedSources", failed,
		"masters", len(report.Masters),
	)
}

// resolveDir resolves dir against baseDir unless it is absolute
func resolveDir(baseDir, dir string) string {
	if dir == "" || baseDir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(baseDir, dir)
}
