package sources

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/httpclient"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// capabilitiesAdapter renders a template with the latest value listed by a capabilities document
type capabilitiesAdapter struct {
	name     string
	cfg      *config.CapabilitiesConfig
	client   httpclient.Client
	renderer templates.Renderer
}

// NewCapabilitiesAdapter creates an adapter that reads cfg.URL and binds the maximum value at cfg.Path
func NewCapabilitiesAdapter(
	name string,
	cfg *config.CapabilitiesConfig,
	client httpclient.Client,
	renderer templates.Renderer,
) Adapter {
	return &capabilitiesAdapter{
		name:     name,
		cfg:      cfg,
		client:   client,
		renderer: renderer,
	}
}

// Fetch downloads the capabilities document and renders the template with its latest value
func (a *capabilitiesAdapter) Fetch(ctx context.Context) (*Result, error) {
	logger := logr.FromContextOrDiscard(ctx)

	data, err := a.client.Get(ctx, a.cfg.URL)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}

	if !gjson.ValidBytes(data) {
		return nil, newFetchError(a.name, "capabilities document from %s is not valid JSON", a.cfg.URL)
	}

	path := a.cfg.GetPath()
	values := gjson.GetBytes(data, path)
	if !values.Exists() {
		return nil, newFetchError(a.name, "capabilities document has no %s", path)
	}
	if !values.IsArray() {
		return nil, newFetchError(a.name, "capabilities field %s is not a list", path)
	}

	latest, ok := maxValue(values.Array())
	if !ok {
		return nil, newFetchError(a.name, "capabilities field %s is empty", path)
	}
	logger.V(1).Info("Resolved latest capabilities value", "path", path, "value", latest)

	out, err := a.renderer.Render(a.cfg.Template, CapabilitiesBindings{
		Bindings:  Bindings{Name: a.name, Vars: a.cfg.Vars},
		Timestamp: latest,
	})
	if err != nil {
		return nil, err
	}
	return Single(out), nil
}

// SidecarExtension returns "" since capabilities sources have no sidecar
func (*capabilitiesAdapter) SidecarExtension() string {
	return ""
}

// maxValue returns the largest of values. Values are compared numerically
// when all of them are JSON numbers and lexically otherwise.
func maxValue(values []gjson.Result) (string, bool) {
	if len(values) == 0 {
		return "", false
	}

	numeric := true
	for _, v := range values {
		if v.Type != gjson.Number {
			numeric = false
			break
		}
	}

	best := values[0]
	for _, v := range values[1:] {
		if numeric {
			if v.Float() > best.Float() {
				best = v
			}
		} else if v.String() > best.String() {
			best = v
		}
	}

	if numeric {
		return best.Raw, true
	}
	return best.String(), true
}
