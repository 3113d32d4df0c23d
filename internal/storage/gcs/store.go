// Package gcs implements storage.Provider on Google Cloud Storage. Paths are
// full gs://bucket/object URIs.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	store "github.com/JakeFAU/soft404-sweeper/internal/storage"
)

// Store reads and writes whole objects through a storage client.
type Store struct {
	client *storage.Client
	logger *zap.Logger
}

// New wraps an existing client.
func New(client *storage.Client, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}, nil
}

// Dial creates a client using Application Default Credentials.
func Dial(ctx context.Context, logger *zap.Logger) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return New(client, logger)
}

// Read downloads the object named by path.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.object(path)
	if err != nil {
		return nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, store.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			s.logger.Warn("close gcs reader", zap.String("path", path), zap.Error(cerr))
		}
	}()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write uploads data to the object named by path.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	obj, err := s.object(path)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return fmt.Errorf("write %s: %w (close writer: %v)", path, err, closeErr)
		}
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", path, err)
	}
	return nil
}

// Remove deletes the object named by path if it exists.
func (s *Store) Remove(ctx context.Context, path string) error {
	obj, err := s.object(path)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}

func (s *Store) object(path string) (*storage.ObjectHandle, error) {
	bucket, name, err := store.ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(bucket).Object(name), nil
}
