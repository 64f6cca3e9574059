package sources

import (
	"context"

	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// staticAdapter renders a template from configuration alone
type staticAdapter struct {
	name     string
	template string
	vars     map[string]string
	renderer templates.Renderer
}

// NewStaticAdapter creates an adapter that renders template with vars
func NewStaticAdapter(name, template string, vars map[string]string, renderer templates.Renderer) Adapter {
	return &staticAdapter{
		name:     name,
		template: template,
		vars:     vars,
		renderer: renderer,
	}
}

// Fetch renders the configured template
func (a *staticAdapter) Fetch(_ context.Context) (*Result, error) {
	out, err := a.renderer.Render(a.template, Bindings{Name: a.name, Vars: a.vars})
	if err != nil {
		return nil, err
	}
	return Single(out), nil
}

// SidecarExtension returns "" since static sources have no sidecar
func (*staticAdapter) SidecarExtension() string {
	return ""
}
