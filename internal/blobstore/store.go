// Package blobstore abstracts the flat filename-addressed area where
// applicant documents are kept.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by Delete and Open when no blob is stored under the
// key. Callers replacing a slot's file downgrade this to a warning.
var ErrNotExist = errors.New("blob does not exist")

// Store is a filesystem-like area addressable by filename. Keys are flat
// names derived from slot data (models.DeriveFileKey), never paths.
type Store interface {
	// Write stores the blob under key, replacing any previous content.
	Write(ctx context.Context, key string, r io.Reader) error
	// Open returns a reader over the blob, or ErrNotExist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob, returning ErrNotExist if it was absent.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}
