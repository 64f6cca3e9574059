// Package registry holds the ordered set of tile sources known to a run.
//
// The order entries are registered in is the order their artifacts appear in
// composed master configurations, so output stays stable across runs.
package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stacklok/osmtiles-provider/internal/config"
	"github.com/stacklok/osmtiles-provider/internal/sources"
)

const (
	// ConfigExtension is the extension of generated source config snippets
	ConfigExtension = "conf"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Entry binds a source name to the adapter producing its content
type Entry struct {
	Name    string
	Adapter sources.Adapter

	// Type is the configured source type, informational only
	Type string
}

// ConfigFile returns the filename of the entry's config snippet
func (e Entry) ConfigFile() string {
	return e.Name + "." + ConfigExtension
}

// SidecarFile returns the filename of the entry's sidecar, or "" when the adapter declares none
func (e Entry) SidecarFile() string {
	ext := e.Adapter.SidecarExtension()
	if ext == "" {
		return ""
	}
	return e.Name + "." + ext
}

// UnknownSourceError indicates a selection naming a source absent from the registry
type UnknownSourceError struct {
	Name  string
	Known []string
}

// Error returns the error message
func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q (known sources: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Registry is an immutable ordered mapping from source name to adapter
type Registry struct {
	entries []Entry
	index   map[string]int
}

// New creates a registry from entries, in the given order
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}

	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry[%d]: name is required", i)
		}
		if !namePattern.MatchString(e.Name) {
			return nil, fmt.Errorf("entry[%d]: name '%s' must match %s", i, e.Name, namePattern.String())
		}
		if _, exists := r.index[e.Name]; exists {
			return nil, fmt.Errorf("entry[%d]: duplicate source name '%s'", i, e.Name)
		}
		if e.Adapter == nil {
			return nil, fmt.Errorf("entry[%d] (%s): adapter is required", i, e.Name)
		}
		r.index[e.Name] = len(r.entries)
		r.entries = append(r.entries, e)
	}

	return r, nil
}

// FromConfig creates a registry with one adapter per configured source
func FromConfig(cfg *config.Config, factory sources.AdapterFactory) (*Registry, error) {
	entries := make([]Entry, 0, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		adapter, err := factory.CreateAdapter(src)
		if err != nil {
			return nil, fmt.Errorf("failed to create adapter for source %s: %w", src.Name, err)
		}
		entries = append(entries, Entry{Name: src.Name, Adapter: adapter, Type: src.GetType()})
	}
	return New(entries...)
}

// Entries returns the entries in registration order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the entry registered under name
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Names returns the source names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}

// CheckSelection returns an UnknownSourceError unless selection is empty or a registered name
func (r *Registry) CheckSelection(selection string) error {
	if selection == "" {
		return nil
	}
	if _, ok := r.index[selection]; !ok {
		return &UnknownSourceError{Name: selection, Known: r.Names()}
	}
	return nil
}
