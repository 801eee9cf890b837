// Package fsstore implements the artifact store on a local filesystem
// tree, mirroring the host's storage layout.
package fsstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// artifactMode makes derivatives world-readable; serving is done by a
// downstream HTTP layer running under a different user.
const artifactMode = 0o644

// Store persists derivatives under a base directory.
type Store struct {
	basePath string
}

// Compile-time verification that Store implements ArtifactStore.
var _ repository.ArtifactStore = (*Store)(nil)

// New creates a Store rooted at basePath, creating it if needed.
func New(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// BasePath returns the artifact root.
func (s *Store) BasePath() string {
	return s.basePath
}

// LocalPath maps a relative artifact path to its absolute location.
func (s *Store) LocalPath(relativePath string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(relativePath))
}

// Put writes the bytes to a temp file in the target directory and
// renames it into place, so a concurrent reader never observes a
// partially written artifact. Existing artifacts are replaced.
func (s *Store) Put(ctx context.Context, relativePath string, r io.Reader, size int64) (model.DerivativeArtifact, error) {
	if err := ctx.Err(); err != nil {
		return model.DerivativeArtifact{}, err
	}

	target := s.LocalPath(relativePath)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.DerivativeArtifact{}, fmt.Errorf("create directory %s: %w", dir, err)
	}

	// Temp file in the same directory keeps the rename on one
	// filesystem.
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return model.DerivativeArtifact{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return model.DerivativeArtifact{}, fmt.Errorf("write artifact bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return model.DerivativeArtifact{}, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, artifactMode); err != nil {
		_ = os.Remove(tmpPath)
		return model.DerivativeArtifact{}, fmt.Errorf("set artifact mode: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return model.DerivativeArtifact{}, fmt.Errorf("rename into place: %w", err)
	}

	return model.DerivativeArtifact{
		RelativePath: relativePath,
		ByteSize:     written,
		CreatedAt:    time.Now(),
	}, nil
}

// Exists reports whether an artifact is present at the path.
func (s *Store) Exists(ctx context.Context, relativePath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.LocalPath(relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat artifact: %w", err)
	}
	return true, nil
}

// Size returns the byte size of the artifact at the path.
func (s *Store) Size(ctx context.Context, relativePath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.LocalPath(relativePath))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, repository.ErrArtifactNotFound
		}
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	return info.Size(), nil
}
