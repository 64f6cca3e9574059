package sources_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/httpclient"
	"github.com/stacklok/osmtiles-provider/internal/session"
	sessionmocks "github.com/stacklok/osmtiles-provider/internal/session/mocks"
	"github.com/stacklok/osmtiles-provider/internal/sources"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

func testRenderer() templates.Renderer {
	return templates.NewFSRenderer(fstest.MapFS{
		"static.tmpl":  {Data: []byte(`{{ .Name }} {{ .Vars.zone }}`)},
		"latest.tmpl":  {Data: []byte(`{{ .Name }}@{{ .Timestamp }}`)},
		"signed.tmpl":  {Data: []byte(`{{ .KeyPairID }}|{{ .Policy }}|{{ .Signature }}`)},
		"wrong.tmpl":   {Data: []byte(`{{ .Timestamp }}`)},
		"invalid.tmpl": {Data: []byte(`{{ if }}`)},
	})
}

func TestStaticAdapter(t *testing.T) {
	t.Parallel()

	adapter := sources.NewStaticAdapter("osm", "static", map[string]string{"zone": "osmtiles"}, testRenderer())
	assert.Empty(t, adapter.SidecarExtension())

	result, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sources.Single("osm osmtiles"), result)

	// Bindings of another variant are not available to static templates
	adapter = sources.NewStaticAdapter("osm", "wrong", nil, testRenderer())
	_, err = adapter.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, templates.IsTemplateError(err))
}

func TestCapabilitiesAdapter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		status      int
		path        string
		template    string
		want        string
		wantFetch   bool
		wantTmplErr bool
	}{
		{
			name:     "lexical maximum of string timesteps",
			body:     `{"data":{"timesteps":["202401010010","202401010030","202401010020"]}}`,
			template: "latest",
			want:     "bom@202401010030",
		},
		{
			name:     "numeric maximum of number timesteps",
			body:     `{"data":{"timesteps":[9, 10, 2]}}`,
			template: "latest",
			want:     "bom@10",
		},
		{
			name:     "mixed values fall back to lexical comparison",
			body:     `{"data":{"timesteps":[9, "10"]}}`,
			template: "latest",
			want:     "bom@9",
		},
		{
			name:     "custom path",
			body:     `{"layers":[{"times":["a","c","b"]}]}`,
			path:     "layers.0.times",
			template: "latest",
			want:     "bom@c",
		},
		{
			name:      "missing field",
			body:      `{"data":{}}`,
			template:  "latest",
			wantFetch: true,
		},
		{
			name:      "field is not a list",
			body:      `{"data":{"timesteps":"202401010000"}}`,
			template:  "latest",
			wantFetch: true,
		},
		{
			name:      "empty list",
			body:      `{"data":{"timesteps":[]}}`,
			template:  "latest",
			wantFetch: true,
		},
		{
			name:      "malformed JSON",
			body:      `{"data":`,
			template:  "latest",
			wantFetch: true,
		},
		{
			name:      "upstream error",
			status:    http.StatusBadGateway,
			template:  "latest",
			wantFetch: true,
		},
		{
			name:        "template failure is not a fetch failure",
			body:        `{"data":{"timesteps":["1"]}}`,
			template:    "invalid",
			wantTmplErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := sources.NewCapabilitiesAdapter("bom", &config.CapabilitiesConfig{
				URL:      server.URL,
				Path:     tt.path,
				Template: tt.template,
			}, httpclient.NewDefaultClient(0), testRenderer())
			assert.Empty(t, adapter.SidecarExtension())

			result, err := adapter.Fetch(context.Background())

			var fetchErr *sources.FetchError
			switch {
			case tt.wantFetch:
				require.ErrorAs(t, err, &fetchErr)
				assert.Equal(t, "bom", fetchErr.Source)
			case tt.wantTmplErr:
				require.Error(t, err)
				assert.True(t, templates.IsTemplateError(err))
				assert.False(t, errors.As(err, &fetchErr))
			default:
				require.NoError(t, err)
				assert.Equal(t, sources.Single(tt.want), result)
			}
		})
	}
}

func TestSessionAdapter(t *testing.T) {
	t.Parallel()

	t.Run("binds credentials", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		fetcher := sessionmocks.NewMockCredentialsFetcher(ctrl)
		fetcher.EXPECT().FetchCredentials(gomock.Any()).
			Return(&session.Credentials{KeyPairID: "K", Policy: "P", Signature: "S"}, nil)

		adapter := sources.NewSessionAdapter("strava", "signed", nil, fetcher, testRenderer())
		assert.Empty(t, adapter.SidecarExtension())

		result, err := adapter.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sources.Single("K|P|S"), result)
	})

	t.Run("authentication failure becomes a fetch failure", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		fetcher := sessionmocks.NewMockCredentialsFetcher(ctrl)
		fetcher.EXPECT().FetchCredentials(gomock.Any()).
			Return(nil, &session.AuthenticationError{URL: "https://www.strava.com/login"})

		adapter := sources.NewSessionAdapter("strava", "signed", nil, fetcher, testRenderer())

		_, err := adapter.Fetch(context.Background())
		var fetchErr *sources.FetchError
		require.ErrorAs(t, err, &fetchErr)
		var authErr *session.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "https://www.strava.com/login", authErr.URL)
	})
}

func TestFileAdapter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bing.conf"), []byte("b-conf"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bing.js"), []byte("b-js"), 0600))

	t.Run("paired with relative paths", func(t *testing.T) {
		t.Parallel()

		adapter := sources.NewFileAdapter("bing", dir, "bing.conf", "bing.js", "js")
		assert.Equal(t, "js", adapter.SidecarExtension())

		result, err := adapter.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sources.Paired("b-conf", "b-js"), result)
	})

	t.Run("single with absolute path", func(t *testing.T) {
		t.Parallel()

		adapter := sources.NewFileAdapter("bing", "/elsewhere", filepath.Join(dir, "bing.conf"), "", "js")
		assert.Empty(t, adapter.SidecarExtension())

		result, err := adapter.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sources.Single("b-conf"), result)
	})

	t.Run("missing sidecar is a fetch failure", func(t *testing.T) {
		t.Parallel()

		adapter := sources.NewFileAdapter("bing", dir, "bing.conf", "missing.js", "js")

		_, err := adapter.Fetch(context.Background())
		var fetchErr *sources.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
