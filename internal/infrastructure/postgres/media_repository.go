package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hazama-dev/mediaforge/internal/derive"
	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MediaRepository implements repository.MediaRepository against the
// host's media table.
type MediaRepository struct {
	db DBTX

	// originalBasePath roots source-path resolution for rows whose
	// source_path column is empty.
	originalBasePath string
}

// Compile-time verification that MediaRepository implements the
// domain interface.
var _ repository.MediaRepository = (*MediaRepository)(nil)

// NewMediaRepository creates a new MediaRepository instance.
func NewMediaRepository(db DBTX, originalBasePath string) *MediaRepository {
	return &MediaRepository{db: db, originalBasePath: originalBasePath}
}

const mediaColumns = "id, item_id, storage_id, media_type, source_path, filename"

// GetByID retrieves one media descriptor by its identifier.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaDescriptor, error) {
	query := fmt.Sprintf(`SELECT %s FROM media WHERE id = $1`, mediaColumns)

	md, err := r.scanMedia(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media by ID: %w", err)
	}

	return md, nil
}

// Search retrieves all media descriptors matching the criteria,
// ordered by id for stable bulk runs.
func (r *MediaRepository) Search(ctx context.Context, criteria repository.Criteria) ([]*model.MediaDescriptor, error) {
	var (
		conds []string
		args  []any
	)
	if criteria.MediaTypePrefix != "" {
		args = append(args, criteria.MediaTypePrefix+"%")
		conds = append(conds, fmt.Sprintf("media_type LIKE $%d", len(args)))
	}
	if criteria.ItemID != nil {
		args = append(args, *criteria.ItemID)
		conds = append(conds, fmt.Sprintf("item_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM media`, mediaColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"
	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search media: %w", err)
	}
	defer rows.Close()

	var media []*model.MediaDescriptor
	for rows.Next() {
		md, err := r.scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		media = append(media, md)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	return media, nil
}

// scanMedia maps one row to a MediaDescriptor. When the row carries no
// source path, the canonical original location is derived from the
// storage ID and filename.
func (r *MediaRepository) scanMedia(row pgx.Row) (*model.MediaDescriptor, error) {
	var (
		md         model.MediaDescriptor
		itemID     *uuid.UUID
		sourcePath *string
		filename   *string
	)
	if err := row.Scan(&md.ID, &itemID, &md.StorageID, &md.MediaType, &sourcePath, &filename); err != nil {
		return nil, err
	}

	if filename != nil {
		md.Filename = *filename
	}
	if sourcePath != nil && *sourcePath != "" {
		md.SourcePath = *sourcePath
	} else {
		md.SourcePath = derive.OriginalPath(r.originalBasePath, md.StorageID, md.Filename)
	}

	return &md, nil
}
