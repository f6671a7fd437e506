package scope_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/passwordkeyorg/s3s/codec"
	"github.com/passwordkeyorg/s3s/internal/store"
	"github.com/passwordkeyorg/s3s/scope"
	"github.com/passwordkeyorg/s3s/storage"
)

type square struct{ Power int }

func (s square) Apply(x int) int {
	out := 1
	for range s.Power {
		out *= x
	}
	return out
}

// workflow walks the README usage end to end against a real store.
func workflow(t *testing.T, st storage.Store) {
	ctx := context.Background()
	s, err := scope.New(scope.Deps{Store: st}, "some-bucket", "path1", "path2")
	require.NoError(t, err)

	egJSON := map[string]any{"key": "value", "key2": []any{1.0, 2.0, 3.0}}
	require.NoError(t, s.Set(ctx, "data.json", egJSON))
	res, err := s.Get(ctx, "data.json")
	require.NoError(t, err)
	v, _ := res.Value()
	require.Equal(t, egJSON, v)

	egTable := codec.NewTable([]string{"C1", "C2"}, []string{"1", "3"}, []string{"2", "4"})
	require.NoError(t, s.Set(ctx, "data.csv", egTable))
	var tbl codec.Table
	require.NoError(t, s.Load(ctx, "data.csv", &tbl))
	require.True(t, egTable.Equal(&tbl))

	codec.RegisterType(square{})
	require.NoError(t, s.Set(ctx, "object.pkl", square{Power: 2}))
	var sq square
	require.NoError(t, s.Load(ctx, "object.pkl", &sq))
	require.Equal(t, 9, sq.Apply(3))

	require.ErrorIs(t, s.Set(ctx, "data.zip", "abc"), scope.ErrUnsupportedFormat)

	sub := scope.Key{"subpath", "object.json"}
	require.NoError(t, s.Set(ctx, sub, egJSON))
	res, err = s.Get(ctx, sub)
	require.NoError(t, err)
	v, _ = res.Value()
	require.Equal(t, egJSON, v)

	ok, err := s.Contains(ctx, "object.pkl")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Contains(ctx, sub)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Contains(ctx, scope.Key{"random", "path.pkl"})
	require.NoError(t, err)
	require.False(t, ok)

	res, err = s.Get(ctx, "subpath")
	require.NoError(t, err)
	subScope, ok := res.Scope()
	require.True(t, ok)
	a, err := subScope.Get(ctx, "object.json")
	require.NoError(t, err)
	b, err := s.Get(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, a, b)

	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "data.csv")
	require.Contains(t, names, "subpath")

	names, err = subScope.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"object.json"}, names)

	require.NoError(t, s.Delete(ctx, "data.csv"))
	ok, err = s.Contains(ctx, "data.csv")
	require.NoError(t, err)
	require.False(t, ok)
	names, err = s.List(ctx)
	require.NoError(t, err)
	require.NotContains(t, names, "data.csv")

	size, err := s.Size(ctx, "data.json")
	require.NoError(t, err)
	require.EqualValues(t, len(`{"key":"value","key2":[1,2,3]}`), size)

	require.Equal(t, st.Scheme()+"://some-bucket/path1/path2/subpath/object.json", s.URI("subpath", "object.json"))
}

func TestWorkflow_FS(t *testing.T) {
	workflow(t, store.NewFS(t.TempDir()))
}

func TestWorkflow_SQLite(t *testing.T) {
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "s3s.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	workflow(t, st)
}

type explodes struct{}

func (explodes) MarshalJSON() ([]byte, error) { panic("marshal exploded") }

func TestSet_PanicLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s, err := scope.New(scope.Deps{Store: store.NewFS(dir)}, "b")
	require.NoError(t, err)

	require.Panics(t, func() { _ = s.Set(context.Background(), "x.json", explodes{}) })

	var files []string
	require.NoError(t, filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, p)
		}
		return err
	}))
	require.Empty(t, files)
}
