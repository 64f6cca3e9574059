package sources

import (
	"context"

	"github.com/stacklok/osmtiles-provider/internal/session"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// sessionAdapter renders a template with credentials from an authenticated session
type sessionAdapter struct {
	name     string
	template string
	vars     map[string]string
	fetcher  session.CredentialsFetcher
	renderer templates.Renderer
}

// NewSessionAdapter creates an adapter that binds the credentials returned by fetcher
func NewSessionAdapter(
	name, template string,
	vars map[string]string,
	fetcher session.CredentialsFetcher,
	renderer templates.Renderer,
) Adapter {
	return &sessionAdapter{
		name:     name,
		template: template,
		vars:     vars,
		fetcher:  fetcher,
		renderer: renderer,
	}
}

// Fetch logs in, harvests the credentials and renders the template
func (a *sessionAdapter) Fetch(ctx context.Context) (*Result, error) {
	creds, err := a.fetcher.FetchCredentials(ctx)
	if err != nil {
		return nil, &FetchError{Source: a.name, Err: err}
	}

	out, err := a.renderer.Render(a.template, SessionBindings{
		Bindings:  Bindings{Name: a.name, Vars: a.vars},
		KeyPairID: creds.KeyPairID,
		Policy:    creds.Policy,
		Signature: creds.Signature,
	})
	if err != nil {
		return nil, err
	}
	return Single(out), nil
}

// SidecarExtension returns "" since session sources have no sidecar
func (*sessionAdapter) SidecarExtension() string {
	return ""
}
