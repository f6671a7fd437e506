package scope

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/passwordkeyorg/s3s/storage"
)

// memStore is an in-memory storage.Store that counts calls and stream closes.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
	opened  int
	closed  int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Scheme() string { return "s3" }

func (m *memStore) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) below(p string) []string {
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, p+"/") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *memStore) List(_ context.Context, p string) ([]string, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	if paths := m.below(p); len(paths) > 0 {
		return storage.Children(p, paths), nil
	}
	if _, ok := m.objects[p]; ok {
		return []string{p}, nil
	}
	return nil, storage.NotFound(p, nil)
}

func (m *memStore) Exists(_ context.Context, p string) (bool, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[p]
	return ok || len(m.below(p)) > 0, nil
}

func (m *memStore) Size(_ context.Context, p string) (int64, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[p]
	if !ok {
		return 0, storage.NotFound(p, nil)
	}
	return int64(len(b)), nil
}

func (m *memStore) RemoveAll(_ context.Context, p string) error {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.below(p) {
		delete(m.objects, k)
	}
	delete(m.objects, p)
	return nil
}

func (m *memStore) Open(_ context.Context, p string, _ storage.Mode) (io.ReadCloser, error) {
	m.touch()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[p]
	if !ok {
		return nil, storage.NotFound(p, nil)
	}
	m.opened++
	return &memReader{Reader: bytes.NewReader(b), m: m}, nil
}

func (m *memStore) Create(_ context.Context, p string, _ storage.Mode) (io.WriteCloser, error) {
	m.touch()
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
	return &memWriter{m: m, path: p}, nil
}

func (m *memStore) streamsBalanced() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened == m.closed
}

type memReader struct {
	*bytes.Reader
	m *memStore
}

func (r *memReader) Close() error {
	r.m.mu.Lock()
	r.m.closed++
	r.m.mu.Unlock()
	return nil
}

type memWriter struct {
	bytes.Buffer
	m    *memStore
	path string
}

func (w *memWriter) Abort(error) error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.m.closed++
	return nil
}

func (w *memWriter) Close() error {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.m.closed++
	w.m.objects[w.path] = bytes.Clone(w.Bytes())
	return nil
}
