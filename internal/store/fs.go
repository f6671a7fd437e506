package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/passwordkeyorg/s3s/internal/ids"
	"github.com/passwordkeyorg/s3s/storage"
)

const tmpPrefix = ".s3s-tmp-"

// FS stores objects as files below Base; the first path segment is a
// top-level directory standing in for the bucket. Open modes are ignored.
type FS struct {
	Base string
	Now  func() time.Time
}

func NewFS(base string) *FS { return &FS{Base: base} }

func (s *FS) Scheme() string { return "file" }

func (s *FS) resolve(ctx context.Context, p string) (string, string, error) {
	p, err := checkPath(ctx, p)
	if err != nil {
		return "", "", err
	}
	return p, filepath.Join(s.Base, filepath.FromSlash(p)), nil
}

func (s *FS) List(ctx context.Context, p string) ([]string, error) {
	p, full, err := s.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return nil, notFoundOr(p, err)
	}
	if !fi.IsDir() {
		return []string{p}, nil
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", full, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		out = append(out, p+"/"+e.Name())
	}
	return out, nil
}

func (s *FS) Exists(ctx context.Context, p string) (bool, error) {
	_, full, err := s.resolve(ctx, p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if isMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FS) Size(ctx context.Context, p string) (int64, error) {
	p, full, err := s.resolve(ctx, p)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return 0, notFoundOr(p, err)
	}
	if fi.IsDir() {
		return 0, storage.NotFound(p, errors.New("is a prefix"))
	}
	return fi.Size(), nil
}

// RemoveAll deletes the file or directory at p, then prunes parent
// directories left empty, stopping at the bucket directory.
func (s *FS) RemoveAll(ctx context.Context, p string) error {
	p, full, err := s.resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("remove %s: %w", full, err)
	}
	bucket, _ := storage.SplitPath(p)
	stop := filepath.Join(s.Base, bucket)
	for dir := filepath.Dir(full); len(dir) > len(stop) && strings.HasPrefix(dir, stop); dir = filepath.Dir(dir) {
		// os.Remove refuses non-empty directories.
		if err := os.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

func (s *FS) Open(ctx context.Context, p string, _ storage.Mode) (io.ReadCloser, error) {
	p, full, err := s.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, notFoundOr(p, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, storage.NotFound(p, errors.New("is a prefix"))
	}
	return f, nil
}

// Create writes to a temp file next to the target; Close fsyncs and renames
// it into place.
func (s *FS) Create(ctx context.Context, p string, _ storage.Mode) (io.WriteCloser, error) {
	_, full, err := s.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	tmp := filepath.Join(dir, tmpPrefix+ids.New(now()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create tmp: %w", err)
	}
	return &fileWriter{f: f, bw: bufio.NewWriterSize(f, 32*1024), tmp: tmp, final: full}, nil
}

type fileWriter struct {
	f      *os.File
	bw     *bufio.Writer
	tmp    string
	final  string
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) { return w.bw.Write(p) }

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(w.tmp)
		return fmt.Errorf("flush: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(w.tmp)
		return fmt.Errorf("fsync: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmp)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(w.tmp, w.final); err != nil {
		_ = os.Remove(w.tmp)
		return fmt.Errorf("rename %s: %w", w.final, err)
	}
	return nil
}

// Abort discards the temp file; the target is left untouched.
func (w *fileWriter) Abort(error) error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.f.Close()
	return os.Remove(w.tmp)
}

func notFoundOr(p string, err error) error {
	if isMissing(err) {
		return storage.NotFound(p, err)
	}
	return err
}

// A file standing where a prefix is expected surfaces as ENOTDIR.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
