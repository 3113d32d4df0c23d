// Package storage defines the blob interface behind the URL list reader and
// writer. Implementations exist for the local filesystem, Google Cloud
// Storage, and memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Read when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Provider reads, writes, and removes whole objects by path.
type Provider interface {
	// Read returns the full content of path.
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the content of path.
	Write(ctx context.Context, path string, data []byte) error
	// Remove deletes path. Removing a missing object is not an error.
	Remove(ctx context.Context, path string) error
}

// GCSScheme prefixes Cloud Storage object paths.
const GCSScheme = "gs://"

// IsGCSPath reports whether path names a Cloud Storage object.
func IsGCSPath(path string) bool {
	return strings.HasPrefix(path, GCSScheme)
}

// ParseGCSPath splits gs://bucket/object into its bucket and object name.
func ParseGCSPath(path string) (bucket, object string, err error) {
	if !IsGCSPath(path) {
		return "", "", fmt.Errorf("not a gs:// path: %q", path)
	}
	rest := strings.TrimPrefix(path, GCSScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(object, "/") == "" {
		return "", "", fmt.Errorf("gs:// path needs a bucket and object: %q", path)
	}
	return bucket, object, nil
}
