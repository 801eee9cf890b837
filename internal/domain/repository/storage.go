package repository

import (
	"context"
	"io"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// ArtifactStore persists derivative bytes under canonical relative paths.
// Implementations must create intermediate directories as needed and must
// replace existing artifacts without ever exposing a partially written
// file to a concurrent reader.
type ArtifactStore interface {
	// Put writes the reader's bytes to the given relative path and
	// returns the stored artifact. size may be -1 when unknown.
	Put(ctx context.Context, relativePath string, r io.Reader, size int64) (model.DerivativeArtifact, error)

	// Exists reports whether an artifact is present at the path.
	Exists(ctx context.Context, relativePath string) (bool, error)

	// Size returns the byte size of the artifact at the path.
	// Returns ErrArtifactNotFound if nothing is stored there.
	Size(ctx context.Context, relativePath string) (int64, error)
}
