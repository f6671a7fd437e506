// Package backend builds the configured storage.Store and the scope on top
// of it.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/passwordkeyorg/s3s/codec"
	"github.com/passwordkeyorg/s3s/internal/config"
	"github.com/passwordkeyorg/s3s/internal/objectstore"
	"github.com/passwordkeyorg/s3s/internal/store"
	"github.com/passwordkeyorg/s3s/scope"
	"github.com/passwordkeyorg/s3s/storage"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the store selected by cfg.Backend. For s3 the bucket named by
// the first root segment is created when missing. The closer releases
// backend resources and is never nil.
func Open(ctx context.Context, cfg config.Config) (storage.Store, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendS3:
		if len(cfg.Root) == 0 {
			return nil, nil, fmt.Errorf("S3S_ROOT must name a bucket")
		}
		m, err := objectstore.NewMinIO(objectstore.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Region:    cfg.MinIORegion,
			Bucket:    cfg.Root[0],
			Secure:    cfg.MinIOSecure,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("minio init: %w", err)
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, nil, fmt.Errorf("minio ensure bucket: %w", err)
		}
		return m, nopCloser{}, nil
	case config.BackendFile:
		return store.NewFS(cfg.FileDir), nopCloser{}, nil
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Codecs is the default registry plus YAML.
func Codecs() *codec.Registry {
	r := codec.Default()
	r.Register(codec.YAML)
	r.Register(codec.YML)
	return r
}

// Scope roots a scope at cfg.Root.
func Scope(st storage.Store, cfg config.Config, logger *slog.Logger) (*scope.Scope, error) {
	return scope.New(scope.Deps{Store: st, Codecs: Codecs(), Logger: logger}, cfg.Root)
}
