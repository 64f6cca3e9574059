// Package templates loads and renders the text templates used for per-source
// snippets and master configurations.
//
// Templates are looked up by name as "{name}.tmpl". An optional directory
// takes precedence over the templates built into the binary.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

// Extension is the file extension of template files
const Extension = ".tmpl"

//go:embed defaults/*.tmpl
var defaults embed.FS

// NotFoundError indicates that no template with the given name exists
type NotFoundError struct {
	Name string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.Name)
}

// RenderError indicates that a template failed to parse or execute
type RenderError struct {
	Name string
	Err  error
}

// Error returns the error message
func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render template %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error
func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsTemplateError reports whether err is a NotFoundError or RenderError
func IsTemplateError(err error) bool {
	var notFound *NotFoundError
	var render *RenderError
	return errors.As(err, &notFound) || errors.As(err, &render)
}

// Renderer renders named templates
type Renderer interface {
	// Render executes the named template with data and returns the output
	Render(name string, data any) (string, error)
}

// layeredRenderer resolves names against an ordered list of filesystems
type layeredRenderer struct {
	layers []fs.FS
}

// NewRenderer creates a Renderer over the built-in templates, overlaid by dir when non-empty
func NewRenderer(dir string) Renderer {
	builtin, err := fs.Sub(defaults, "defaults")
	if err != nil {
		// defaults is embedded at build time; Sub only fails on an invalid path
		panic(err)
	}

	layers := make([]fs.FS, 0, 2)
	if dir != "" {
		layers = append(layers, os.DirFS(dir))
	}
	layers = append(layers, builtin)
	return NewFSRenderer(layers...)
}

// NewFSRenderer creates a Renderer over the given filesystems; earlier ones win
func NewFSRenderer(layers ...fs.FS) Renderer {
	return &layeredRenderer{layers: layers}
}

// Render executes the named template with data
func (r *layeredRenderer) Render(name string, data any) (string, error) {
	text, err := r.load(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(funcMap).
		Parse(text)
	if err != nil {
		return "", &RenderError{Name: name, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &RenderError{Name: name, Err: err}
	}
	return buf.String(), nil
}

// load returns the source of the first layer holding the named template
func (r *layeredRenderer) load(name string) (string, error) {
	if name == "" || !fs.ValidPath(name) || strings.Contains(name, "/") {
		return "", &NotFoundError{Name: name}
	}

	file := name + Extension
	for _, layer := range r.layers {
		data, err := fs.ReadFile(layer, file)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", &RenderError{Name: name, Err: fmt.Errorf("failed to read %s: %w", file, err)}
		}
	}
	return "", &NotFoundError{Name: name}
}

var funcMap = template.FuncMap{
	// stem strips the extension from a filename: "bing.js" -> "bing"
	"stem": func(filename string) string {
		return strings.TrimSuffix(filename, path.Ext(filename))
	},
}
