// Package storage contains the object store abstraction for file content and its
// S3-compatible backends (MinIO client, AWS SDK) plus an in-memory one.
// Implementations stream uploads and never touch local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned by Get and Delete when the key does not exist.
	// Backends translate their own "no such key" responses into it so callers never match strings.
	ErrObjectNotFound = errors.New("storage: object not found")

	// ErrSizeMismatch is returned by Get when the stored object length differs from the expected size.
	ErrSizeMismatch = errors.New("storage: object size mismatch")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Bucket       string
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Storage is the object store client used by the file service.
// All methods are safe for concurrent use.
type Storage interface {
	// Put uploads an object under bucket/key using the provided reader and options.
	Put(ctx context.Context, bucket, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get reads a whole object. expectedSize is the length recorded at upload time;
	// a different stored length yields ErrSizeMismatch.
	Get(ctx context.Context, bucket, key string, expectedSize int64) ([]byte, error)
	// Delete removes an object. A missing key yields ErrObjectNotFound.
	Delete(ctx context.Context, bucket, key string) error
}

// ReadExact reads exactly expected bytes from r. Shorter or longer content is reported as
// ErrSizeMismatch instead of being truncated.
func ReadExact(r io.Reader, expected int64) ([]byte, error) {
	if expected < 0 {
		return nil, fmt.Errorf("negative expected size %d", expected)
	}
	data, err := io.ReadAll(io.LimitReader(r, expected+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if int64(len(data)) != expected {
		if int64(len(data)) > expected {
			return nil, fmt.Errorf("%w: expected %d bytes, object is larger", ErrSizeMismatch, expected)
		}
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, expected, len(data))
	}
	return data, nil
}
