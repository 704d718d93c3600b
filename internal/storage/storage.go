// Package storage keeps the original résumé files.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/gcp"
	"airecruiter/internal/utils"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ObjectStore writes one object per résumé and returns its locator
type ObjectStore interface {
	Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error)
	Close() error
}

// GCSStore uploads to a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore creates the storage client
func NewGCSStore(ctx context.Context, cfg config.StorageConfig, gcpConfig config.GCPConfig) (*GCSStore, error) {
	opts, err := gcp.ClientOptions(ctx, gcpConfig)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
			"Failed to create Cloud Storage client", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket}, nil
}

// Upload returns gs://bucket/name
func (s *GCSStore) Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error) {
	ctx, span := otel.Tracer("airecruiter.storage").Start(ctx, "storage.upload")
	defer span.End()
	span.SetAttributes(attribute.String("storage.bucket", s.bucket), attribute.String("storage.object", name))

	key, err := utils.SanitizeFileName(name)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid résumé file name", err)
	}

	// cancelling the writer's context discards the object; Close would commit it
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		cancel()
		_ = w.Close()
		span.RecordError(err)
		return "", uploadError(key, err)
	}
	if err := w.Close(); err != nil {
		span.RecordError(err)
		return "", uploadError(key, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func uploadError(key string, err error) error {
	return errors.NewNetworkError(errors.ErrCodeStorageUploadFailed,
		"Failed to upload résumé", err).WithContext("object", key)
}

// LocalStore writes résumés into a directory. It backs local runs.
type LocalStore struct {
	dir string
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates the directory if it does not exist
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid storage directory", err)
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageUploadFailed, "Cannot create storage directory", err)
	}
	return &LocalStore{dir: abs}, nil
}

// Upload returns file://<dir>/name. An existing file with the same name is
// replaced, as an object store would.
func (s *LocalStore) Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error) {
	key, err := utils.SanitizeFileName(name)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid résumé file name", err)
	}

	path := filepath.Join(s.dir, key)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeStorageUploadFailed, "Failed to create résumé file", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", errors.NewIOError(errors.ErrCodeStorageUploadFailed, "Failed to write résumé file", err)
	}
	if err := f.Close(); err != nil {
		return "", errors.NewIOError(errors.ErrCodeStorageUploadFailed, "Failed to close résumé file", err)
	}

	return "file://" + filepath.ToSlash(path), nil
}

func (s *LocalStore) Close() error {
	return nil
}

// Unavailable stands in for object storage whose client failed to start
type Unavailable struct {
	err error
}

var _ ObjectStore = (*Unavailable)(nil)

// NewUnavailable logs the cause once and returns the stand-in
func NewUnavailable(cause error, logger *errors.Logger) *Unavailable {
	logger.LogError(cause, "Object storage is unavailable")
	return &Unavailable{err: errors.NewUnavailableError(errors.ErrCodeServiceUnavailable,
		"Object storage is unavailable", cause)}
}

func (u *Unavailable) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", u.err
}

func (u *Unavailable) Close() error { return nil }
