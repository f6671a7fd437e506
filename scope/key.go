package scope

import "fmt"

// Key groups segments into one key argument, like a tuple: Key{"sub", "a.json"}.
type Key []any

// Flatten normalizes a key into string segments. A composite key (Key, []any
// or []string) contributes its elements; an element that is itself a
// composite is spliced in one level. Anything nested deeper is rendered with
// fmt.Sprint rather than descended into. Every segment is stringified.
func Flatten(key any) []string {
	top, ok := elems(key)
	if !ok {
		return []string{fmt.Sprint(key)}
	}
	out := make([]string, 0, len(top))
	for _, e := range top {
		if inner, ok := elems(e); ok {
			for _, v := range inner {
				out = append(out, fmt.Sprint(v))
			}
			continue
		}
		out = append(out, fmt.Sprint(e))
	}
	return out
}

func elems(v any) ([]any, bool) {
	switch x := v.(type) {
	case Key:
		return x, true
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
