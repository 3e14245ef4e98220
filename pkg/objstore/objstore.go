// Package objstore stores finished output documents. The pipeline treats it
// as a boundary: results are durable in the database either way, the object
// store only serves downloads.
package objstore

import (
	"context"
	"io"
)

type ObjectStore interface {
	// Put stores the object under key and returns an opaque reference for
	// retrieving it later.
	Put(ctx context.Context, key string, r io.Reader, size int64) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Type() string
}
