package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/passwordkeyorg/s3s/internal/store/storetest"
	"github.com/passwordkeyorg/s3s/storage"
)

type recorder struct {
	ops   map[string]int
	errs  map[string]int
	bytes map[string]int64
}

func newRecorder() *recorder {
	return &recorder{ops: map[string]int{}, errs: map[string]int{}, bytes: map[string]int64{}}
}

func (r *recorder) ObserveOp(op string, err error, _ float64) {
	r.ops[op]++
	if err != nil {
		r.errs[op]++
	}
}

func (r *recorder) AddBytes(op string, n int64) { r.bytes[op] += n }

func TestMetered_CountsOpsAndBytes(t *testing.T) {
	rec := newRecorder()
	st := Metered{Store: NewFS(t.TempDir()), Metrics: rec}

	storetest.Put(t, st, "bucket/a.json", `{"a":1}`)
	if got := storetest.Read(t, st, "bucket/a.json"); got != `{"a":1}` {
		t.Fatalf("read %q", got)
	}
	if _, err := st.Size(context.Background(), "bucket/missing"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if rec.ops["create"] != 1 || rec.ops["open"] != 1 || rec.ops["size"] != 1 {
		t.Fatalf("ops = %v", rec.ops)
	}
	if rec.errs["size"] != 1 || rec.errs["create"] != 0 {
		t.Fatalf("errs = %v", rec.errs)
	}
	if rec.bytes["write"] != 7 || rec.bytes["read"] != 7 {
		t.Fatalf("bytes = %v", rec.bytes)
	}
	if st.Scheme() != "file" {
		t.Fatalf("scheme = %s", st.Scheme())
	}
}

func TestMetered_AbortCountsAsFailedCreate(t *testing.T) {
	rec := newRecorder()
	st := Metered{Store: NewFS(t.TempDir()), Metrics: rec}

	w, err := st.Create(context.Background(), "bucket/a.json", storage.Text)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, _ = io.WriteString(w, "{")
	if err := storage.Abort(w, errors.New("boom")); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if rec.errs["create"] != 1 || rec.bytes["write"] != 0 {
		t.Fatalf("errs = %v bytes = %v", rec.errs, rec.bytes)
	}
	if ok, _ := st.Exists(context.Background(), "bucket/a.json"); ok {
		t.Fatalf("aborted object exists")
	}
}
