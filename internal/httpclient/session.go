package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// SessionClient is an HTTP client that keeps cookies across requests, for
// upstreams that hand out credentials through a login flow.
type SessionClient struct {
	client *http.Client
}

// NewSessionClient creates a cookie-keeping client. A zero timeout means DefaultTimeout.
// Each call returns a client with its own empty cookie jar.
func NewSessionClient(timeout time.Duration) (*SessionClient, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &SessionClient{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// Get fetches an HTML page that must answer 200, storing any cookies the server sets
func (c *SessionClient) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return get(ctx, c.client, rawURL, acceptHTML)
}

// Visit requests rawURL only for the cookies it sets. Any response status is
// accepted; the returned status is the final one after redirects.
func (c *SessionClient) Visit(ctx context.Context, rawURL string) (int, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, nil, acceptHTML)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))

	return resp.StatusCode, nil
}

// PostForm submits a URL-encoded form, following redirects, and returns the
// URL of the final response. Client and server error statuses fail.
func (c *SessionClient) PostForm(ctx context.Context, rawURL string, form url.Values) (string, error) {
	req, err := newRequest(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), acceptHTML)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", newHTTPError(http.MethodPost, rawURL, resp)
	}

	return resp.Request.URL.String(), nil
}

// Cookie returns the value of the named cookie the jar would send to rawURL
func (c *SessionClient) Cookie(rawURL, name string) (string, bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, fmt.Errorf("invalid cookie URL %s: %w", rawURL, err)
	}

	for _, cookie := range c.client.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value, true, nil
		}
	}
	return "", false, nil
}
