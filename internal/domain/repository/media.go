package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// Criteria selects media items for bulk derivative generation.
// The zero value selects every known media item.
type Criteria struct {
	// MediaTypePrefix restricts results to MIME types with this prefix
	// (e.g. "video/"). Empty means no restriction.
	MediaTypePrefix string

	// ItemID restricts results to media belonging to one host item.
	ItemID *uuid.UUID

	// Limit bounds the result set. Zero means no limit.
	Limit int
}

// MediaRepository looks up source media metadata from the host store.
// Implementations should be provided by the infrastructure layer.
type MediaRepository interface {
	// GetByID retrieves one media descriptor by its identifier.
	// Returns ErrMediaNotFound if the media does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaDescriptor, error)

	// Search retrieves all media descriptors matching the criteria.
	// Returns an empty slice when nothing matches.
	Search(ctx context.Context, criteria Criteria) ([]*model.MediaDescriptor, error)
}
