package store

import (
	"context"
	"io"
	"time"

	"github.com/passwordkeyorg/s3s/storage"
)

// Metrics receives one observation per store call plus the bytes moved by
// streams. internal/metrics.StoreAdapter implements it.
type Metrics interface {
	ObserveOp(op string, err error, seconds float64)
	AddBytes(op string, n int64)
}

// Metered records every call made to Store.
type Metered struct {
	Store   storage.Store
	Metrics Metrics
}

func (m Metered) observe(op string, start time.Time, err error) {
	m.Metrics.ObserveOp(op, err, time.Since(start).Seconds())
}

func (m Metered) Scheme() string { return m.Store.Scheme() }

func (m Metered) List(ctx context.Context, p string) ([]string, error) {
	start := time.Now()
	out, err := m.Store.List(ctx, p)
	m.observe("list", start, err)
	return out, err
}

func (m Metered) Exists(ctx context.Context, p string) (bool, error) {
	start := time.Now()
	ok, err := m.Store.Exists(ctx, p)
	m.observe("exists", start, err)
	return ok, err
}

func (m Metered) Size(ctx context.Context, p string) (int64, error) {
	start := time.Now()
	n, err := m.Store.Size(ctx, p)
	m.observe("size", start, err)
	return n, err
}

func (m Metered) RemoveAll(ctx context.Context, p string) error {
	start := time.Now()
	err := m.Store.RemoveAll(ctx, p)
	m.observe("remove", start, err)
	return err
}

func (m Metered) Open(ctx context.Context, p string, mode storage.Mode) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := m.Store.Open(ctx, p, mode)
	m.observe("open", start, err)
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: rc, done: func(n int64) { m.Metrics.AddBytes("read", n) }}, nil
}

func (m Metered) Create(ctx context.Context, p string, mode storage.Mode) (io.WriteCloser, error) {
	start := time.Now()
	wc, err := m.Store.Create(ctx, p, mode)
	if err != nil {
		m.observe("create", start, err)
		return nil, err
	}
	// The write only lands on Close, so time and errors are taken there.
	return &countingWriter{WriteCloser: wc, done: func(n int64, err error) {
		m.observe("create", start, err)
		if err == nil {
			m.Metrics.AddBytes("write", n)
		}
	}}, nil
}

type countingReader struct {
	io.ReadCloser
	n    int64
	done func(int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}

func (r *countingReader) Close() error {
	err := r.ReadCloser.Close()
	if r.done != nil {
		r.done(r.n)
		r.done = nil
	}
	return err
}

type countingWriter struct {
	io.WriteCloser
	n    int64
	done func(int64, error)
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.WriteCloser.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *countingWriter) Close() error {
	err := w.WriteCloser.Close()
	if w.done != nil {
		w.done(w.n, err)
		w.done = nil
	}
	return err
}

func (w *countingWriter) Abort(cause error) error {
	err := storage.Abort(w.WriteCloser, cause)
	if w.done != nil {
		w.done(w.n, cause)
		w.done = nil
	}
	return err
}
