// Package scope exposes an object-storage prefix as a dictionary.
//
// A Scope holds an immutable list of path segments (the first naming the
// bucket) and resolves keys below it. Writing a key serializes the value with
// the codec chosen by the key's extension; reading a key either decodes the
// object or, when the key has no known extension, returns a deeper Scope:
//
//	s, _ := scope.New(scope.Deps{Store: st}, "some-bucket", "path1", "path2")
//	_ = s.Set(ctx, "data.json", map[string]any{"key": "value"})
//	res, _ := s.Get(ctx, "data.json")          // decoded value
//	res, _ = s.Get(ctx, "subpath")             // child scope, no I/O
//	s.URI("subpath", "object.json")            // s3://some-bucket/path1/path2/subpath/object.json
package scope

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/passwordkeyorg/s3s/codec"
	"github.com/passwordkeyorg/s3s/storage"
)

// defaultCodecs is never handed out, so it stays read-only.
var defaultCodecs = codec.Default()

type Deps struct {
	Store  storage.Store
	Codecs *codec.Registry // nil selects the .pkl/.json/.csv defaults
	Logger *slog.Logger
}

type Scope struct {
	segments []string
	store    storage.Store
	codecs   *codec.Registry
	log      *slog.Logger
}

// New returns a scope rooted at root, which must flatten to at least one
// segment.
func New(deps Deps, root ...any) (*Scope, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	segs := Flatten(Key(root))
	if len(segs) == 0 {
		return nil, fmt.Errorf("root needs at least one segment")
	}
	if deps.Codecs == nil {
		deps.Codecs = defaultCodecs
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Scope{segments: segs, store: deps.Store, codecs: deps.Codecs, log: deps.Logger}, nil
}

// Segments returns a copy of the scope's path segments.
func (s *Scope) Segments() []string { return slices.Clone(s.segments) }

// Path is the scheme-less address of key, as handed to the store.
func (s *Scope) Path(key ...any) string { return s.join(Flatten(Key(key))) }

// URI is the fully qualified address of key; URI() addresses the scope.
func (s *Scope) URI(key ...any) string { return s.uri(s.Path(key...)) }

// Sub returns the scope for key regardless of its extension.
func (s *Scope) Sub(key ...any) *Scope { return s.descend(Flatten(Key(key))) }

// Codec returns the codec that Set and Get would use for key.
func (s *Scope) Codec(key any) (*codec.Codec, bool) { return s.codecFor(Flatten(key)) }

// Set serializes value to key with the key's codec, replacing any existing
// object. A key without a registered extension fails with
// ErrUnsupportedFormat before the store is touched. When encoding fails the
// pending object is aborted where the store supports it.
func (s *Scope) Set(ctx context.Context, key, value any) error {
	segs := Flatten(key)
	c, ok := s.codecFor(segs)
	if !ok {
		return &UnsupportedFormatError{Key: segs, Known: s.codecs.Suffixes()}
	}
	p := s.join(segs)
	w, err := s.store.Create(ctx, p, c.WriteMode)
	if err != nil {
		return err
	}
	committed, cause := false, errInterrupted
	defer func() {
		if !committed {
			_ = storage.Abort(w, cause)
		}
	}()
	s.log.Debug("set", "uri", s.uri(p), "codec", c.Suffix)
	if err := c.Encode(w, value); err != nil {
		cause = err
		return err
	}
	committed = true
	return w.Close()
}

// Get decodes the object at key, or returns the child scope for key when
// its extension matches no codec.
func (s *Scope) Get(ctx context.Context, key any) (Result, error) {
	segs := Flatten(key)
	c, ok := s.codecFor(segs)
	if !ok {
		return Result{child: s.descend(segs)}, nil
	}
	var v any
	if err := s.read(ctx, segs, c, &v); err != nil {
		return Result{}, err
	}
	return Result{value: v}, nil
}

// Load decodes the object at key into dst.
func (s *Scope) Load(ctx context.Context, key, dst any) error {
	segs := Flatten(key)
	c, ok := s.codecFor(segs)
	if !ok {
		return &UnsupportedFormatError{Key: segs, Known: s.codecs.Suffixes()}
	}
	return s.read(ctx, segs, c, dst)
}

// Contains reports whether an object or prefix exists at key.
func (s *Scope) Contains(ctx context.Context, key any) (bool, error) {
	return s.store.Exists(ctx, s.join(Flatten(key)))
}

// Delete removes key and everything below it.
func (s *Scope) Delete(ctx context.Context, key any) error {
	p := s.join(Flatten(key))
	s.log.Debug("delete", "uri", s.uri(p))
	return s.store.RemoveAll(ctx, p)
}

// Size returns the byte length of the object at key.
func (s *Scope) Size(ctx context.Context, key ...any) (int64, error) {
	return s.store.Size(ctx, s.Path(key...))
}

// List returns the names of the scope's immediate children in store order.
func (s *Scope) List(ctx context.Context) ([]string, error) {
	self := s.join(nil)
	children, err := s.store.List(ctx, self)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(children))
	for _, c := range children {
		name, ok := strings.CutPrefix(c, self+"/")
		if !ok {
			name = path.Base(c)
		}
		out = append(out, name)
	}
	return out, nil
}

func (s *Scope) read(ctx context.Context, segs []string, c *codec.Codec, dst any) error {
	p := s.join(segs)
	r, err := s.store.Open(ctx, p, c.ReadMode)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()
	s.log.Debug("get", "uri", s.uri(p), "codec", c.Suffix)
	return c.Decode(r, dst)
}

func (s *Scope) codecFor(segs []string) (*codec.Codec, bool) {
	if len(segs) == 0 {
		return nil, false
	}
	return s.codecs.Lookup(segs[len(segs)-1])
}

func (s *Scope) descend(segs []string) *Scope {
	child := *s
	child.segments = append(slices.Clone(s.segments), segs...)
	return &child
}

func (s *Scope) join(segs []string) string {
	all := make([]string, 0, len(s.segments)+len(segs))
	all = append(append(all, s.segments...), segs...)
	return strings.Join(all, "/")
}

func (s *Scope) uri(p string) string { return s.store.Scheme() + "://" + p }
