package sources

import (
	"fmt"
	"time"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/httpclient"
	"github.com/stacklok/osmtiles-provider/internal/session"
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// defaultAdapterFactory is the default implementation of AdapterFactory
type defaultAdapterFactory struct {
	renderer templates.Renderer
	client   httpclient.Client
	timeout  time.Duration
	baseDir  string
}

var _ AdapterFactory = (*defaultAdapterFactory)(nil)

// FactoryOption configures the adapter factory
type FactoryOption func(*defaultAdapterFactory)

// WithHTTPClient sets the client used by capabilities adapters
func WithHTTPClient(client httpclient.Client) FactoryOption {
	return func(f *defaultAdapterFactory) {
		f.client = client
	}
}

// WithRequestTimeout sets the timeout of HTTP clients created by the factory
func WithRequestTimeout(timeout time.Duration) FactoryOption {
	return func(f *defaultAdapterFactory) {
		f.timeout = timeout
	}
}

// WithBaseDir sets the directory relative file paths are resolved against
func WithBaseDir(dir string) FactoryOption {
	return func(f *defaultAdapterFactory) {
		f.baseDir = dir
	}
}

// NewAdapterFactory creates a new adapter factory rendering through renderer
func NewAdapterFactory(renderer templates.Renderer, opts ...FactoryOption) AdapterFactory {
	f := &defaultAdapterFactory{
		renderer: renderer,
		timeout:  httpclient.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httpclient.NewDefaultClient(f.timeout)
	}
	return f
}

// CreateAdapter creates the adapter matching the configured source type
func (f *defaultAdapterFactory) CreateAdapter(cfg *config.SourceConfig) (Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source configuration cannot be nil")
	}

	switch cfg.GetType() {
	case config.SourceTypeStatic:
		return NewStaticAdapter(cfg.Name, cfg.Static.Template, cfg.Static.Vars, f.renderer), nil
	case config.SourceTypeCapabilities:
		return NewCapabilitiesAdapter(cfg.Name, cfg.Capabilities, f.client, f.renderer), nil
	case config.SourceTypeSession:
		s := cfg.Session
		cookies := s.GetCookies()
		fetcher := session.NewCookieFetcher(session.CookieFetcherConfig{
			LoginURL:        s.LoginURL,
			SessionURL:      s.SessionURL,
			AuthURL:         s.AuthURL,
			CookieURL:       s.GetCookieURL(),
			Email:           s.Email,
			Password:        s.GetPassword,
			KeyPairIDCookie: cookies.KeyPairID,
			PolicyCookie:    cookies.Policy,
			SignatureCookie: cookies.Signature,
			Timeout:         f.timeout,
		})
		return NewSessionAdapter(cfg.Name, s.Template, s.Vars, fetcher, f.renderer), nil
	case config.SourceTypeFile:
		fc := cfg.File
		return NewFileAdapter(cfg.Name, f.baseDir, fc.Config, fc.Sidecar, fc.GetSidecarExtension()), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported source type", cfg.Name)
	}
}
