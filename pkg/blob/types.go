// Package blob is flat key/value file storage, used to archive graph
// snapshots outside the live metadata store.
package blob

import (
	"context"
	"io"
)

// Store holds opaque blobs under slash-separated keys.
type Store interface {
	// Put writes content under key, replacing any existing blob.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get retrieves the blob stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys matching the prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a blob.
	Delete(ctx context.Context, key string) error
}
