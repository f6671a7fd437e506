// Package storage defines the object-storage capability the scope layer
// delegates to. Implementations live in internal/objectstore (S3) and
// internal/store (local filesystem, SQLite).
//
// Paths handed to a Store are slash-separated and never carry a scheme. The
// first segment names the bucket; everything after it is the object key.
package storage

import (
	"context"
	"io"
)

// Mode is the stream mode a codec asks for when opening an object.
type Mode int

const (
	Binary Mode = iota
	Text
)

func (m Mode) String() string {
	switch m {
	case Binary:
		return "binary"
	case Text:
		return "text"
	}
	return "unknown"
}

// Store is the storage client capability: listing, existence, size,
// recursive delete and streaming open for read or write.
type Store interface {
	// Scheme is the URI scheme addresses are rendered with, e.g. "s3".
	Scheme() string

	// List returns the full paths of the immediate children of path.
	// A child that is itself a prefix is returned without a trailing slash.
	List(ctx context.Context, path string) ([]string, error)

	// Exists reports whether an object or a non-empty prefix lives at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Size returns the byte length of the object at path.
	Size(ctx context.Context, path string) (int64, error)

	// RemoveAll deletes the object at path and every object below it.
	RemoveAll(ctx context.Context, path string) error

	// Open opens an existing object for reading.
	Open(ctx context.Context, path string, mode Mode) (io.ReadCloser, error)

	// Create opens path for writing, truncating any existing object.
	// The object is committed when the returned writer is closed.
	Create(ctx context.Context, path string, mode Mode) (io.WriteCloser, error)
}

// Aborter is implemented by writers returned from Create that can drop the
// pending object instead of committing it. Abort releases the writer.
type Aborter interface {
	Abort(cause error) error
}

// Abort drops w's pending object when w supports it and closes w otherwise.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort(cause)
	}
	return w.Close()
}
