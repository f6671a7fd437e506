// Package storetest checks storage.Store implementations against the
// behaviour the scope layer relies on.
package storetest

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/passwordkeyorg/s3s/storage"
)

func Put(t testing.TB, st storage.Store, p, body string) {
	t.Helper()
	w, err := st.Create(context.Background(), p, storage.Text)
	if err != nil {
		t.Fatalf("create %s: %v", p, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close %s: %v", p, err)
	}
}

func Read(t testing.TB, st storage.Store, p string) string {
	t.Helper()
	r, err := st.Open(context.Background(), p, storage.Text)
	if err != nil {
		t.Fatalf("open %s: %v", p, err)
	}
	defer func() { _ = r.Close() }()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

// Run checks the behaviour every storage.Store must share. The store must
// accept writes below the bucket "bucket".
func Run(t *testing.T, st storage.Store) {
	ctx := context.Background()

	Put(t, st, "bucket/p/data.json", `{"a":1}`)
	Put(t, st, "bucket/p/sub/object.json", `{}`)
	Put(t, st, "bucket/p/sub/deeper/x.csv", ",c\n0,1\n")

	if got := Read(t, st, "bucket/p/data.json"); got != `{"a":1}` {
		t.Fatalf("read back %q", got)
	}
	Put(t, st, "bucket/p/data.json", `[]`)
	if got := Read(t, st, "bucket/p/data.json"); got != `[]` {
		t.Fatalf("overwrite not applied: %q", got)
	}

	w, err := st.Create(ctx, "bucket/p/data.json", storage.Text)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _ = io.WriteString(w, "half")
	if err := storage.Abort(w, errors.New("encode failed")); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if got := Read(t, st, "bucket/p/data.json"); got != `[]` {
		t.Fatalf("abort replaced object: %q", got)
	}

	n, err := st.Size(ctx, "bucket/p/data.json")
	if err != nil || n != 2 {
		t.Fatalf("size = %d, %v", n, err)
	}
	if _, err := st.Size(ctx, "bucket/p/missing.json"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.Open(ctx, "bucket/p/missing.json", storage.Text); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	for p, want := range map[string]bool{
		"bucket/p/data.json":       true,
		"bucket/p/sub":             true,
		"bucket/p/sub/object.json": true,
		"bucket/p/su":              false,
		"bucket/random/path.pkl":   false,
	} {
		ok, err := st.Exists(ctx, p)
		if err != nil {
			t.Fatalf("exists %s: %v", p, err)
		}
		if ok != want {
			t.Fatalf("exists %s = %v, want %v", p, ok, want)
		}
	}

	got, err := st.List(ctx, "bucket/p")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"bucket/p/data.json", "bucket/p/sub"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	if _, err := st.List(ctx, "bucket/nothing"); !storage.IsNotFound(err) {
		t.Fatalf("list missing: expected not found, got %v", err)
	}

	if err := st.RemoveAll(ctx, "bucket/p/sub"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := st.Exists(ctx, "bucket/p/sub/deeper/x.csv"); ok {
		t.Fatalf("recursive remove left objects behind")
	}
	got, _ = st.List(ctx, "bucket/p")
	if !reflect.DeepEqual(got, []string{"bucket/p/data.json"}) {
		t.Fatalf("list after remove = %v", got)
	}
	if err := st.RemoveAll(ctx, "bucket/p/sub"); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	if _, err := st.Open(ctx, "bucket/../etc/passwd", storage.Text); !errors.Is(err, storage.ErrInvalidPath) {
		t.Fatalf("expected invalid path, got %v", err)
	}
}
