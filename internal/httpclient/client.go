// Package httpclient provides the HTTP clients used by source adapters to
// reach upstream tile providers.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a request when the caller configures none
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize caps any upstream document (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent identifies the generator to upstream providers
	UserAgent = "osmtiles-provider/1.0"

	acceptJSON = "application/json"
	acceptHTML = "text/html,application/xhtml+xml,*/*"
)

// Client fetches documents from upstream providers
type Client interface {
	// Get returns the body of a 200 response to a GET of url
	Get(ctx context.Context, url string) ([]byte, error)
}

// DefaultClient fetches JSON documents such as provider capabilities
type DefaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a JSON client. A zero timeout means DefaultTimeout.
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{client: &http.Client{Timeout: timeout}}
}

// Get fetches a JSON document
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	return get(ctx, c.client, url, acceptJSON)
}

// get performs a GET that must answer 200 and returns the size-capped body
func get(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, nil, accept)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, newHTTPError(http.MethodGet, rawURL, resp)
	}

	return readLimited(resp)
}

func newRequest(ctx context.Context, method, rawURL string, body io.Reader, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("invalid request to %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}

// readLimited reads the response body, refusing anything over MaxResponseSize
func readLimited(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response of %d bytes from %s exceeds the %d byte limit",
			resp.ContentLength, resp.Request.URL, MaxResponseSize)
	}

	// One byte past the limit tells an oversized chunked body apart from an exact fit
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", resp.Request.URL, err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response from %s exceeds the %d byte limit", resp.Request.URL, MaxResponseSize)
	}
	return body, nil
}
