// Package storage uploads user photos to an S3-compatible image host and
// hands back the public URL that gets persisted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/emilythestrangee/vitia/backend/internal/config"
)

// ErrNotConfigured is returned by handlers when no image host is set up.
var ErrNotConfigured = errors.New("image storage is not configured")

const (
	FolderCollection = "coleccion_usuarios"
	FolderPosts      = "publicaciones"
)

// ImageStore persists an image and returns the URL clients should load.
type ImageStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioStore stores images in one bucket of a MinIO/S3 endpoint.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to the endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg config.Storage) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to image storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload implements ImageStore.
func (s *MinioStore) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error) {
	object := ObjectName(folder, filename)
	_, err := s.client.PutObject(ctx, s.bucket, object, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}
	return s.publicURL + "/" + s.bucket + "/" + object, nil
}

// ObjectName builds a collision-free object key that keeps the file extension.
func ObjectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.New().String()+ext)
}
