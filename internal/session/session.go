// Package session harvests signed credentials from a provider that issues
// them only to logged-in users.
//
// The login handshake is isolated behind CredentialsFetcher so that source
// adapters never deal with markup scraping or cookie jars.
package session

import (
	"context"
	"fmt"
)

// Credentials are the three signed values issued after a successful login
type Credentials struct {
	KeyPairID string
	Policy    string
	Signature string
}

// CredentialsFetcher performs a login handshake and returns fresh credentials
//
//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=session.go CredentialsFetcher
type CredentialsFetcher interface {
	FetchCredentials(ctx context.Context) (*Credentials, error)
}

// AuthenticationError indicates the login flow did not complete.
// The flow is considered failed when the post-login landing page is the login page.
type AuthenticationError struct {
	URL    string
	Reason string
}

// Error returns the error message
func (e *AuthenticationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("authentication failed at %s", e.URL)
	}
	return fmt.Sprintf("authentication failed at %s: %s", e.URL, e.Reason)
}
