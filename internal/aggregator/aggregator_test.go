package aggregator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/osmtiles-provider/internal/aggregator"
	"github.com/stacklok/osmtiles-provider/internal/registry"
	"github.com/stacklok/osmtiles-provider/internal/sources"
	"github.com/stacklok/osmtiles-provider/internal/sources/mocks"
	"github.com/stacklok/osmtiles-provider/internal/storage"
	storagemocks "github.com/stacklok/osmtiles-provider/internal/storage/mocks"
	"github.com/stacklok/osmtiles-provider/internal/telemetry"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// fixture is the two-source registry used by the end-to-end scenarios:
// A returns Single("a-conf"), B returns Paired("b-conf", "b-js")
type fixture struct {
	root string
	a    *mocks.MockAdapter
	b    *mocks.MockAdapter
	reg  *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &fixture{
		root: t.TempDir(),
		a:    mocks.NewMockAdapter(ctrl),
		b:    mocks.NewMockAdapter(ctrl),
	}
	f.a.EXPECT().SidecarExtension().Return("").AnyTimes()
	f.b.EXPECT().SidecarExtension().Return("js").AnyTimes()

	reg, err := registry.New(
		registry.Entry{Name: "a", Adapter: f.a},
		registry.Entry{Name: "b", Adapter: f.b},
	)
	require.NoError(t, err)
	f.reg = reg
	return f
}

func (f *fixture) path(rel ...string) string {
	return filepath.Join(append([]string{f.root}, rel...)...)
}

func (f *fixture) read(t *testing.T, rel ...string) string {
	t.Helper()
	data, err := os.ReadFile(f.path(rel...))
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) seed(t *testing.T, content string, rel ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(f.path(rel...)), 0750))
	require.NoError(t, os.WriteFile(f.path(rel...), []byte(content), 0600))
}

func statuses(result *aggregator.RunResult) map[string]aggregator.Status {
	out := map[string]aggregator.Status{}
	for _, e := range result.Entries {
		out[e.Name] = e.Status
	}
	return out
}

func TestRun_FullRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil)
	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("b-conf", "b-js"), nil)

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "a-conf", f.read(t, "provider", "a.conf"))
	assert.Equal(t, "b-conf", f.read(t, "provider", "b.conf"))
	assert.Equal(t, "b-js", f.read(t, "provider", "js", "b.js"))

	assert.Equal(t, []string{"a.conf", "b.conf"}, result.Context.ConfigFiles)
	assert.Equal(t, []string{"b.js"}, result.Context.ScriptFiles)
	assert.False(t, result.Failed())
	assert.Equal(t, map[string]aggregator.Status{
		"a": aggregator.StatusRegenerated,
		"b": aggregator.StatusRegenerated,
	}, statuses(result))
	assert.Equal(t, []string{"provider/b.conf", "provider/js/b.js"}, result.Entries[1].Written)
}

func TestRun_SelectiveRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "old-b-conf", "provider", "b.conf")
	f.seed(t, "old-b-js", "provider", "js", "b.js")
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil)
	// b must not be fetched

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, "a-conf", f.read(t, "provider", "a.conf"))
	assert.Equal(t, "old-b-conf", f.read(t, "provider", "b.conf"))
	assert.Equal(t, "old-b-js", f.read(t, "provider", "js", "b.js"))

	assert.Equal(t, []string{"a.conf", "b.conf"}, result.Context.ConfigFiles)
	assert.Equal(t, []string{"b.js"}, result.Context.ScriptFiles)
	assert.Equal(t, aggregator.StatusSkipped, statuses(result)["b"])
}

func TestRun_FailingSource(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "old-b-conf", "provider", "b.conf")
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil)
	f.b.EXPECT().Fetch(gomock.Any()).Return(nil, &sources.FetchError{Source: "b", Err: errors.New("unreachable")})

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "a-conf", f.read(t, "provider", "a.conf"))
	assert.Equal(t, "old-b-conf", f.read(t, "provider", "b.conf"))
	assert.NoFileExists(t, f.path("provider", "js", "b.js"))

	assert.Equal(t, []string{"a.conf", "b.conf"}, result.Context.ConfigFiles)
	assert.Equal(t, []string{"b.js"}, result.Context.ScriptFiles)

	require.True(t, result.Failed())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].Source)
	assert.Equal(t, aggregator.ReasonFetchFailed, result.Failures[0].Reason)
	var fetchErr *sources.FetchError
	assert.ErrorAs(t, result.Failures[0], &fetchErr)
	assert.Equal(t, aggregator.StatusFailed, statuses(result)["b"])
}

func TestRun_UnknownSelection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// No Fetch expectations: any adapter call fails the test

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "c")

	var unknown *registry.UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Nil(t, result)

	entries, err := os.ReadDir(f.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_ContextMatchesRegistryForEverySelection(t *testing.T) {
	t.Parallel()

	for _, selection := range []string{"", "a", "b"} {
		t.Run("selection="+selection, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil).MaxTimes(1)
			f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("b-conf", "b-js"), nil).MaxTimes(1)

			agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
			result, err := agg.Run(context.Background(), selection)
			require.NoError(t, err)

			assert.Equal(t, []string{"a.conf", "b.conf"}, result.Context.ConfigFiles)
			assert.Equal(t, []string{"b.js"}, result.Context.ScriptFiles)
			require.Len(t, result.Entries, 2)
			assert.Equal(t, "a", result.Entries[0].Name)
			assert.Equal(t, "b", result.Entries[1].Name)
		})
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil).Times(2)
	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("b-conf", "b-js"), nil).Times(2)

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	_, err := agg.Run(context.Background(), "")
	require.NoError(t, err)

	result, err := agg.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]aggregator.Status{
		"a": aggregator.StatusUnchanged,
		"b": aggregator.StatusUnchanged,
	}, statuses(result))
	assert.Equal(t, "b-js", f.read(t, "provider", "js", "b.js"))
}

func TestRun_ShapeMismatchIsFetchFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("a-conf", "a-js"), nil)
	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Single("b-conf"), nil)

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Failures, 2)
	for _, failure := range result.Failures {
		assert.Equal(t, aggregator.ReasonFetchFailed, failure.Reason)
		assert.ErrorIs(t, failure, sources.ErrShapeMismatch)
	}
	assert.NoFileExists(t, f.path("provider", "a.conf"))
	assert.NoFileExists(t, f.path("provider", "b.conf"))
}

func TestRun_TemplateErrorAbortsRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(nil, &templates.NotFoundError{Name: "a"})
	// b is never reached

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, result)

	var notFound *templates.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRun_PlainAdapterErrorIsWrapped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("boom"))

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	var fetchErr *sources.FetchError
	require.ErrorAs(t, result.Failures[0], &fetchErr)
	assert.Equal(t, "a", fetchErr.Source)
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(ctx context.Context) (*sources.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root), aggregator.WithTimeout(50*time.Millisecond))
	result, err := agg.Run(context.Background(), "a")
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0], context.DeadlineExceeded)
}

func TestRun_StorageFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := newFixture(t)
	store := storagemocks.NewMockArtifactStore(ctrl)

	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil)
	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("b-conf", "b-js"), nil)

	store.EXPECT().WriteAll(gomock.Any(), []storage.Artifact{{Path: "provider/a.conf", Content: []byte("a-conf")}}).
		Return(nil, errors.New("disk full"))
	store.EXPECT().WriteAll(gomock.Any(), []storage.Artifact{
		{Path: "provider/b.conf", Content: []byte("b-conf")},
		{Path: "provider/js/b.js", Content: []byte("b-js")},
	}).Return([]bool{true, false}, nil)

	agg := aggregator.New(f.reg, store)
	result, err := agg.Run(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "a", result.Failures[0].Source)
	assert.Equal(t, aggregator.ReasonStorageFailed, result.Failures[0].Reason)
	assert.Contains(t, result.Failures[0].Error(), "disk full")
	assert.Equal(t, aggregator.StatusRegenerated, statuses(result)["b"])
	assert.Equal(t, []string{"provider/b.conf"}, result.Entries[1].Written)
}

func TestRun_PairedWriteFailureKeepsPreviousPair(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seed(t, "old-b-conf", "provider", "b.conf")
	// A regular file where the script directory belongs makes the sidecar unwritable
	f.seed(t, "not a directory", "provider", "js")

	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("new-b-conf", "new-b-js"), nil)

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root))
	result, err := agg.Run(context.Background(), "b")
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].Source)
	assert.Equal(t, aggregator.ReasonStorageFailed, result.Failures[0].Reason)
	assert.Equal(t, aggregator.StatusFailed, statuses(result)["b"])

	assert.Equal(t, "old-b-conf", f.read(t, "provider", "b.conf"))
	entries, err := os.ReadDir(f.path("provider"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"b.conf", "js"}, names)
}

func TestRun_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewGenerateMetrics(mp)
	require.NoError(t, err)

	f := newFixture(t)
	f.a.EXPECT().Fetch(gomock.Any()).Return(sources.Single("a-conf"), nil)
	f.b.EXPECT().Fetch(gomock.Any()).Return(sources.Paired("b-conf", "b-js"), nil)

	agg := aggregator.New(f.reg, storage.NewFileArtifactStore(f.root), aggregator.WithMetrics(metrics))
	_, err = agg.Run(context.Background(), "")
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var artifacts int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "osmtiles_artifacts_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				artifacts += dp.Value
			}
		}
	}
	assert.Equal(t, int64(3), artifacts)
}
