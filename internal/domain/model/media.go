package model

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyStorageID  = errors.New("storage ID cannot be empty")
	ErrEmptySourcePath = errors.New("source path cannot be empty")
	ErrEmptyMediaType  = errors.New("media type cannot be empty")
)

// MediaDescriptor identifies one source media file on durable storage.
// It is constructed from host entity data by the caller and is read-only
// within the derivative pipeline.
type MediaDescriptor struct {
	// ID is the host-side identifier of the media item.
	ID uuid.UUID

	// StorageID is the stable identifier used to construct derivative
	// paths. It may embed sharding sub-paths (e.g. "215/abcdef123") and
	// may or may not carry a file extension.
	StorageID string

	// MediaType is the MIME type of the source, e.g. "video/mp4".
	MediaType string

	// SourcePath is the absolute path to the original file.
	SourcePath string

	// Filename is the original upload filename, used to recover the
	// extension when StorageID lacks one.
	Filename string
}

// NewMediaDescriptor validates and constructs a MediaDescriptor.
func NewMediaDescriptor(id uuid.UUID, storageID, mediaType, sourcePath, filename string) (*MediaDescriptor, error) {
	if storageID == "" {
		return nil, ErrEmptyStorageID
	}
	if mediaType == "" {
		return nil, ErrEmptyMediaType
	}
	if sourcePath == "" {
		return nil, ErrEmptySourcePath
	}
	return &MediaDescriptor{
		ID:         id,
		StorageID:  storageID,
		MediaType:  mediaType,
		SourcePath: sourcePath,
		Filename:   filename,
	}, nil
}

// IsVideo reports whether the source is a video.
func (m *MediaDescriptor) IsVideo() bool {
	return strings.HasPrefix(m.MediaType, "video/")
}

// IsAudio reports whether the source is an audio file.
func (m *MediaDescriptor) IsAudio() bool {
	return strings.HasPrefix(m.MediaType, "audio/")
}

// IsImage reports whether the source is a still image.
func (m *MediaDescriptor) IsImage() bool {
	return strings.HasPrefix(m.MediaType, "image/")
}

// Extension returns the source file extension without the leading dot.
// The StorageID takes precedence; the original filename is the fallback.
func (m *MediaDescriptor) Extension() string {
	if ext := filepath.Ext(m.StorageID); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return strings.TrimPrefix(filepath.Ext(m.Filename), ".")
}

// FilenameStem returns the original filename without its extension,
// falling back to the last StorageID segment when no filename is known.
func (m *MediaDescriptor) FilenameStem() string {
	name := m.Filename
	if name == "" {
		name = filepath.Base(m.StorageID)
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
