// Package storage writes generated artifacts into the output tree.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofrs/flock"
)

const (
	// LockFileName is the advisory lock held on the output root during a run
	LockFileName = ".osmtiles-provider.lock"

	// lockRetryDelay is how often a busy lock is polled
	lockRetryDelay = 250 * time.Millisecond

	dirMode  = 0750
	fileMode = 0644
)

// Artifact is a generated file, addressed relative to the output root
type Artifact struct {
	Path    string
	Content []byte
}

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks -source=storage.go ArtifactStore

// ArtifactStore persists artifacts into the output tree
type ArtifactStore interface {
	// Write atomically replaces the artifact's file. It reports false, without
	// touching the file, when the existing content is already identical.
	Write(ctx context.Context, artifact Artifact) (changed bool, err error)

	// WriteAll replaces a group of artifacts together: either every changed
	// file is replaced or the group's previous files are left in place.
	// changed has one element per artifact.
	WriteAll(ctx context.Context, artifacts []Artifact) (changed []bool, err error)

	// Lock takes the exclusive run lock on the output tree, waiting until ctx is done.
	// The returned function releases it.
	Lock(ctx context.Context) (unlock func() error, err error)
}

// ErrLocked is returned when another run holds the output tree lock
var ErrLocked = errors.New("output tree is locked by another run")

// fileArtifactStore implements ArtifactStore on the local filesystem
type fileArtifactStore struct {
	root string
}

// NewFileArtifactStore creates a store rooted at root
func NewFileArtifactStore(root string) ArtifactStore {
	return &fileArtifactStore{root: root}
}

// staged is a changed artifact written to a temporary sibling, waiting to be renamed
type staged struct {
	path     string
	filePath string
	tempPath string
	previous []byte
	existed  bool
}

// Write replaces a single artifact
func (s *fileArtifactStore) Write(ctx context.Context, artifact Artifact) (bool, error) {
	changed, err := s.WriteAll(ctx, []Artifact{artifact})
	if err != nil {
		return false, err
	}
	return changed[0], nil
}

// WriteAll stages every changed artifact in a temporary sibling before renaming
// any of them, so a failed write leaves the group untouched. Renames run
// last-to-first: the first artifact usually references the others and only
// changes once they are in place. A failed rename restores the files already
// replaced.
func (s *fileArtifactStore) WriteAll(ctx context.Context, artifacts []Artifact) ([]bool, error) {
	logger := logr.FromContextOrDiscard(ctx)

	for _, artifact := range artifacts {
		if !filepath.IsLocal(artifact.Path) {
			return nil, fmt.Errorf("artifact path %q must be relative to the output root", artifact.Path)
		}
	}

	changed := make([]bool, len(artifacts))
	var pending []staged
	discard := func() {
		for _, st := range pending {
			_ = os.Remove(st.tempPath)
		}
	}

	for i, artifact := range artifacts {
		filePath := filepath.Join(s.root, artifact.Path)

		//nolint:gosec // Path is validated to stay under the output root
		existing, readErr := os.ReadFile(filePath)
		if readErr == nil && bytes.Equal(existing, artifact.Content) {
			logger.V(1).Info("Artifact unchanged", "path", artifact.Path)
			continue
		}
		if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
			discard()
			return nil, fmt.Errorf("failed to read existing artifact %s: %w", artifact.Path, readErr)
		}

		tempPath, err := stage(filePath, artifact.Content)
		if err != nil {
			discard()
			return nil, fmt.Errorf("failed to stage artifact %s: %w", artifact.Path, err)
		}
		pending = append(pending, staged{
			path:     artifact.Path,
			filePath: filePath,
			tempPath: tempPath,
			previous: existing,
			existed:  readErr == nil,
		})
		changed[i] = true
	}

	for i := len(pending) - 1; i >= 0; i-- {
		st := pending[i]
		if err := os.Rename(st.tempPath, st.filePath); err != nil {
			for _, rest := range pending[:i+1] {
				_ = os.Remove(rest.tempPath)
			}
			for _, done := range pending[i+1:] {
				if rerr := restore(done); rerr != nil {
					logger.Error(rerr, "Failed to restore artifact", "path", done.path)
				}
			}
			return nil, fmt.Errorf("failed to rename artifact %s: %w", st.path, err)
		}
	}

	return changed, nil
}

// stage writes content to a world-readable temporary file next to filePath
func stage(filePath string, content []byte) (string, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tmp.Name()

	if err := writeAndSync(tmp, content); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Proxy workers read the tree, so the file must be world-readable
	if err := os.Chmod(tempPath, fileMode); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	return tempPath, nil
}

// restore puts back the content a replaced artifact had before the group write
func restore(st staged) error {
	if !st.existed {
		return os.Remove(st.filePath)
	}
	tempPath, err := stage(st.filePath, st.previous)
	if err != nil {
		return err
	}
	if err := os.Rename(tempPath, st.filePath); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}

// writeAndSync writes data, flushes it to disk and closes f on every path
func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Lock takes the advisory flock on the output root
func (s *fileArtifactStore) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(s.root, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create output root %s: %w", s.root, err)
	}

	lock := flock.New(filepath.Join(s.root, LockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		}
		return nil, fmt.Errorf("failed to lock output tree: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return lock.Unlock, nil
}
