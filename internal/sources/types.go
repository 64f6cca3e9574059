package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/osmtiles-provider/internal/config"
)

// Kind tells a single-config Result apart from a config+sidecar Result
type Kind int

const (
	// KindSingle is a Result carrying only a config snippet
	KindSingle Kind = iota

	// KindPaired is a Result carrying a config snippet and a sidecar script
	KindPaired
)

// String returns the lowercase kind name
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindPaired:
		return "paired"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the content produced by one adapter fetch
type Result struct {
	Kind    Kind
	Config  string
	Sidecar string
}

// Single creates a Result carrying only a config snippet
func Single(config string) *Result {
	return &Result{Kind: KindSingle, Config: config}
}

// Paired creates a Result carrying a config snippet and its sidecar script
func Paired(config, sidecar string) *Result {
	return &Result{Kind: KindPaired, Config: config, Sidecar: sidecar}
}

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks -source=types.go Adapter,AdapterFactory

// Adapter produces the current configuration for one tile provider
type Adapter interface {
	// Fetch performs all external I/O needed and returns the rendered content.
	// It must not write to the output tree.
	Fetch(ctx context.Context) (*Result, error)

	// SidecarExtension returns the extension of the sidecar file the adapter
	// produces, or "" when it only ever returns Single results
	SidecarExtension() string
}

// AdapterFactory creates adapters from source configuration
type AdapterFactory interface {
	// CreateAdapter creates the adapter for the given source
	CreateAdapter(cfg *config.SourceConfig) (Adapter, error)
}

// ErrShapeMismatch is returned when a Result's kind disagrees with the adapter's declared sidecar extension
var ErrShapeMismatch = errors.New("result kind does not match declared sidecar extension")

// FetchError indicates that a source could not produce its content: the
// upstream was unreachable, returned malformed data, or lacked a required field.
type FetchError struct {
	Source string
	Err    error
}

// Error returns the error message
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch source %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// newFetchError wraps err as a FetchError for the named source
func newFetchError(source string, format string, args ...any) error {
	return &FetchError{Source: source, Err: fmt.Errorf(format, args...)}
}

// CheckShape verifies that result agrees with the adapter's declared sidecar extension
func CheckShape(adapter Adapter, result *Result) error {
	if result == nil {
		return errors.New("adapter returned no result")
	}
	paired := adapter.SidecarExtension() != ""
	if paired != (result.Kind == KindPaired) {
		return fmt.Errorf("%w: got %s", ErrShapeMismatch, result.Kind)
	}
	return nil
}

// Bindings are exposed to every per-source template
type Bindings struct {
	Name string
	Vars map[string]string
}

// CapabilitiesBindings add the latest capabilities value as .Timestamp
type CapabilitiesBindings struct {
	Bindings
	Timestamp string
}

// SessionBindings add the harvested session credentials
type SessionBindings struct {
	Bindings
	KeyPairID string
	Policy    string
	Signature string
}
