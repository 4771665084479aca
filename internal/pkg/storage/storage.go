package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("stored object not found")

// FileStorage keeps uploaded export files until they have been processed.
type FileStorage interface {
	// Upload stores the content under key. size may be -1 when unknown.
	Upload(ctx context.Context, file io.Reader, size int64, key string, contentType string) (string, error)

	// Download opens a stored object. Callers close it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}
