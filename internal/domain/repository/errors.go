package repository

import "errors"

var (
	// ErrMediaNotFound is returned when a media item cannot be found.
	ErrMediaNotFound = errors.New("media not found")

	// ErrArtifactNotFound is returned when a derivative artifact does not
	// exist at its canonical path.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBucketNotFound is returned when the configured storage bucket
	// does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
