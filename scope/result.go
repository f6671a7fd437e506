package scope

// Result is what Get returns: either a decoded value or, for a key with no
// codec, a deeper Scope.
type Result struct {
	value any
	child *Scope
}

// Value returns the decoded value; ok is false when the result is a scope.
func (r Result) Value() (v any, ok bool) {
	if r.child != nil {
		return nil, false
	}
	return r.value, true
}

// Scope returns the child scope; ok is false when the result is a value.
func (r Result) Scope() (s *Scope, ok bool) {
	return r.child, r.child != nil
}

// IsScope reports whether the result addresses a deeper scope.
func (r Result) IsScope() bool { return r.child != nil }
