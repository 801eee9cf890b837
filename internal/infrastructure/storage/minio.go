// Package storage implements the artifact store on a MinIO/S3 bucket,
// for deployments where the host provides a remote byte store instead
// of a local filesystem.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// minioClientAdapter wraps *minio.Client to implement minioClient.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

// ClientConfig holds configuration for the MinIO artifact store.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client stores derivative artifacts as bucket objects under their
// canonical relative paths. Object PUTs are atomic on the server side,
// which satisfies the no-partial-reads requirement without a rename
// step.
type Client struct {
	client minioClient
	bucket string
}

// Compile-time verification that Client implements ArtifactStore.
var _ repository.ArtifactStore = (*Client)(nil)

// NewClient creates a new MinIO-backed artifact store.
// It verifies the bucket exists during initialization to fail fast on
// misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newClientWithMinioClient(ctx, &minioClientAdapter{client: client}, cfg.Bucket)
}

// newClientWithMinioClient creates a Client with a given minioClient
// implementation. This is used for dependency injection in tests.
func newClientWithMinioClient(ctx context.Context, client minioClient, bucket string) (*Client, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &Client{client: client, bucket: bucket}, nil
}

// Put uploads the artifact bytes under the relative path.
func (c *Client) Put(ctx context.Context, relativePath string, r io.Reader, size int64) (model.DerivativeArtifact, error) {
	info, err := c.client.PutObject(ctx, c.bucket, relativePath, r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(relativePath),
	})
	if err != nil {
		return model.DerivativeArtifact{}, fmt.Errorf("failed to upload artifact: %w", err)
	}

	return model.DerivativeArtifact{
		RelativePath: relativePath,
		ByteSize:     info.Size,
		CreatedAt:    time.Now(),
	}, nil
}

// Exists checks if an artifact is present at the path.
func (c *Client) Exists(ctx context.Context, relativePath string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, relativePath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check artifact existence: %w", err)
	}
	return true, nil
}

// Size returns the byte size of the artifact at the path.
func (c *Client) Size(ctx context.Context, relativePath string) (int64, error) {
	info, err := c.client.StatObject(ctx, c.bucket, relativePath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, repository.ErrArtifactNotFound
		}
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.Size, nil
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// contentTypeFor maps a derivative path to its MIME type by extension.
func contentTypeFor(relativePath string) string {
	switch {
	case strings.HasSuffix(relativePath, ".jpg"), strings.HasSuffix(relativePath, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(relativePath, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(relativePath, ".webm"):
		return "video/webm"
	case strings.HasSuffix(relativePath, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(relativePath, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(relativePath, ".pdf"):
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
