// Package composer renders master configurations over the full set of
// generated source artifacts.
package composer

import (
	"github.com/stacklok/osmtiles-provider/internal/templates"
)

// Context lists every known artifact filename, in registry order
type Context struct {
	ConfigFiles []string
	ScriptFiles []string
}

// NewContext creates an empty Context
func NewContext() *Context {
	return &Context{
		ConfigFiles: []string{},
		ScriptFiles: []string{},
	}
}

// Add appends a source's config filename and, when non-empty, its sidecar filename
func (c *Context) Add(configFile, scriptFile string) {
	c.ConfigFiles = append(c.ConfigFiles, configFile)
	if scriptFile != "" {
		c.ScriptFiles = append(c.ScriptFiles, scriptFile)
	}
}

// masterBindings are exposed to master templates
type masterBindings struct {
	Sources []string
	Scripts []string
}

// Composer renders master templates
type Composer struct {
	renderer templates.Renderer
}

// New creates a Composer rendering through renderer
func New(renderer templates.Renderer) *Composer {
	return &Composer{renderer: renderer}
}

// Compose renders the named master template with .Sources and .Scripts bound from cctx.
// It performs no I/O beyond loading the template.
func (c *Composer) Compose(templateName string, cctx *Context) (string, error) {
	if cctx == nil {
		cctx = NewContext()
	}
	return c.renderer.Render(templateName, masterBindings{
		Sources: nonNil(cctx.ConfigFiles),
		Scripts: nonNil(cctx.ScriptFiles),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
