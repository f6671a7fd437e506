// Package store holds the storage.Store implementations that do not need a
// remote service: a directory tree (FS) and a single SQLite file (SQLite).
// Metered wraps any store with prometheus-backed counters.
package store

import (
	"context"

	"github.com/passwordkeyorg/s3s/storage"
)

func checkPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return storage.CleanPath(p)
}
