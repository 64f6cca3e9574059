package session

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/stacklok/osmtiles-provider/internal/httpclient"
)

const (
	// tokenMetaName is the meta tag carrying the anti-forgery token value
	tokenMetaName = "csrf-token"

	// paramMetaName is the meta tag carrying the form field name for the token
	paramMetaName = "csrf-param"
)

// CookieFetcherConfig configures a CookieFetcher
type CookieFetcherConfig struct {
	LoginURL   string
	SessionURL string
	AuthURL    string
	CookieURL  string
	Email      string

	// Password is resolved lazily so secrets are only read when a fetch happens
	Password func() (string, error)

	KeyPairIDCookie string
	PolicyCookie    string
	SignatureCookie string

	Timeout time.Duration
}

// CookieFetcher logs in with a form POST and reads credentials from the resulting cookies
type CookieFetcher struct {
	cfg CookieFetcherConfig
}

// NewCookieFetcher creates a new CookieFetcher
func NewCookieFetcher(cfg CookieFetcherConfig) *CookieFetcher {
	if cfg.CookieURL == "" {
		cfg.CookieURL = cfg.AuthURL
	}
	return &CookieFetcher{cfg: cfg}
}

// FetchCredentials runs the full login handshake with a fresh cookie jar
func (f *CookieFetcher) FetchCredentials(ctx context.Context) (*Credentials, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("loginURL", f.cfg.LoginURL)

	client, err := httpclient.NewSessionClient(f.cfg.Timeout)
	if err != nil {
		return nil, err
	}

	page, err := client.Get(ctx, f.cfg.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load login page: %w", err)
	}

	meta := extractMeta(page, tokenMetaName, paramMetaName)
	token, param := meta[tokenMetaName], meta[paramMetaName]
	if token == "" || param == "" {
		return nil, &AuthenticationError{URL: f.cfg.LoginURL, Reason: "login page has no security token"}
	}

	password, err := f.cfg.Password()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("utf8", "✓")
	form.Set(param, token)
	form.Set("plan", "")
	form.Set("email", f.cfg.Email)
	form.Set("password", password)

	logger.V(1).Info("Submitting login form")
	landing, err := client.PostForm(ctx, f.cfg.SessionURL, form)
	if err != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", err)
	}
	if sameURL(landing, f.cfg.LoginURL) {
		return nil, &AuthenticationError{URL: landing, Reason: "login was rejected"}
	}

	// Only the cookies matter here; the cookie check below decides success
	status, err := client.Visit(ctx, f.cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain signed cookies: %w", err)
	}
	logger.V(1).Info("Visited auth URL", "status", status)

	creds := &Credentials{}
	for _, c := range []struct {
		name string
		dst  *string
	}{
		{f.cfg.KeyPairIDCookie, &creds.KeyPairID},
		{f.cfg.PolicyCookie, &creds.Policy},
		{f.cfg.SignatureCookie, &creds.Signature},
	} {
		value, ok, err := client.Cookie(f.cfg.CookieURL, c.name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("cookie %s not set after authentication", c.name)
		}
		*c.dst = value
	}

	logger.V(1).Info("Credentials obtained")
	return creds, nil
}

// extractMeta returns the content attribute of the named meta tags found in page
func extractMeta(page []byte, names ...string) map[string]string {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	found := make(map[string]string, len(names))
	tokenizer := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return found
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.DataAtom != atom.Meta {
				continue
			}
			var name, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if wanted[name] {
				if _, seen := found[name]; !seen {
					found[name] = content
				}
			}
		}
	}
}

// sameURL compares two URLs ignoring a trailing slash
func sameURL(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
