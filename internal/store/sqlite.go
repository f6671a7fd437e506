package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"

	"github.com/passwordkeyorg/s3s/storage"
)

// SQLite keeps every object as a row keyed by its full path. Prefixes exist
// only while some object lives below them, as in S3.
type SQLite struct {
	db  *sql.DB
	Now func() time.Time
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS objects (
  path TEXT PRIMARY KEY,
  data BLOB NOT NULL,
  size INTEGER NOT NULL,
  mode TEXT NOT NULL DEFAULT 'binary',
  updated_at TEXT NOT NULL
);
`)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Scheme() string { return "sqlite" }

// below matches rows strictly under p. substr counts characters, not bytes.
const below = `substr(path, 1, ?) = ?`

func prefixArgs(p string) []any {
	prefix := p + "/"
	return []any{utf8.RuneCountInString(prefix), prefix}
}

func (s *SQLite) List(ctx context.Context, p string) ([]string, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM objects WHERE `+below+` ORDER BY path`, prefixArgs(p)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var paths []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		paths = append(paths, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		return storage.Children(p, paths), nil
	}
	if _, err := s.Size(ctx, p); err != nil {
		return nil, err
	}
	return []string{p}, nil
}

func (s *SQLite) Exists(ctx context.Context, p string) (bool, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return false, err
	}
	var ok bool
	args := append([]any{p}, prefixArgs(p)...)
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM objects WHERE path = ? OR `+below+`)`, args...).Scan(&ok)
	return ok, err
}

func (s *SQLite) Size(ctx context.Context, p string) (int64, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT size FROM objects WHERE path = ?`, p).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.NotFound(p, nil)
	}
	return n, err
}

func (s *SQLite) RemoveAll(ctx context.Context, p string) error {
	p, err := checkPath(ctx, p)
	if err != nil {
		return err
	}
	args := append([]any{p}, prefixArgs(p)...)
	_, err = s.db.ExecContext(ctx, `DELETE FROM objects WHERE path = ? OR `+below, args...)
	return err
}

func (s *SQLite) Open(ctx context.Context, p string, _ storage.Mode) (io.ReadCloser, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE path = ?`, p).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(p, nil)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create buffers the object in memory and upserts it on Close.
func (s *SQLite) Create(ctx context.Context, p string, mode storage.Mode) (io.WriteCloser, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return nil, err
	}
	return &rowWriter{ctx: ctx, s: s, path: p, mode: mode}, nil
}

type rowWriter struct {
	ctx    context.Context
	s      *SQLite
	path   string
	mode   storage.Mode
	buf    bytes.Buffer
	closed bool
}

func (w *rowWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *rowWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	now := time.Now
	if w.s.Now != nil {
		now = w.s.Now
	}
	data := w.buf.Bytes()
	if data == nil {
		data = []byte{}
	}
	_, err := w.s.db.ExecContext(w.ctx, `
INSERT INTO objects (path, data, size, mode, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  data=excluded.data,
  size=excluded.size,
  mode=excluded.mode,
  updated_at=excluded.updated_at
`, w.path, data, len(data), w.mode.String(), now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", w.path, err)
	}
	return nil
}

func (w *rowWriter) Abort(error) error {
	w.closed = true
	w.buf.Reset()
	return nil
}
