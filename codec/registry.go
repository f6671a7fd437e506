package codec

import (
	"strings"
	"sync"
)

type entry struct {
	match func(last string) bool
	codec *Codec
}

// Registry is an ordered codec table. Lookups scan in registration order and
// the first match wins.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry returns a registry holding codecs in the given order, each
// matched by suffix.
func NewRegistry(codecs ...*Codec) *Registry {
	r := &Registry{}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Default returns a fresh registry with the .pkl, .json and .csv codecs.
func Default() *Registry {
	return NewRegistry(Pickle, JSON, CSV)
}

// Register appends c, matched when the last key segment ends with c.Suffix.
func (r *Registry) Register(c *Codec) {
	suffix := c.Suffix
	r.RegisterFunc(func(last string) bool { return strings.HasSuffix(last, suffix) }, c)
}

// RegisterFunc appends c with a custom predicate.
func (r *Registry) RegisterFunc(match func(last string) bool, c *Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{match: match, codec: c})
}

// Lookup returns the first codec accepting last.
func (r *Registry) Lookup(last string) (*Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.match(last) {
			return e.codec, true
		}
	}
	return nil, false
}

// Suffixes lists the registered suffixes in lookup order.
func (r *Registry) Suffixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.codec.Suffix)
	}
	return out
}
