package sources

import (
	"context"
	"os"
	"path/filepath"
)

// fileAdapter passes local files through verbatim
type fileAdapter struct {
	name        string
	configPath  string
	sidecarPath string
	sidecarExt  string
}

// NewFileAdapter creates an adapter returning the contents of configPath, and of
// sidecarPath when set. Relative paths are resolved against baseDir.
func NewFileAdapter(name, baseDir, configPath, sidecarPath, sidecarExt string) Adapter {
	a := &fileAdapter{
		name:       name,
		configPath: resolvePath(baseDir, configPath),
	}
	if sidecarPath != "" {
		a.sidecarPath = resolvePath(baseDir, sidecarPath)
		a.sidecarExt = sidecarExt
	}
	return a
}

// Fetch reads the configured files
func (a *fileAdapter) Fetch(_ context.Context) (*Result, error) {
	conf, err := a.read(a.configPath)
	if err != nil {
		return nil, err
	}

	if a.sidecarPath == "" {
		return Single(conf), nil
	}

	sidecar, err := a.read(a.sidecarPath)
	if err != nil {
		return nil, err
	}
	return Paired(conf, sidecar), nil
}

// SidecarExtension returns the sidecar extension, or "" when no sidecar is configured
func (a *fileAdapter) SidecarExtension() string {
	return a.sidecarExt
}

func (a *fileAdapter) read(path string) (string, error) {
	//nolint:gosec // Path comes from the operator's configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newFetchError(a.name, "failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// resolvePath returns path unchanged when absolute or when baseDir is empty
func resolvePath(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
