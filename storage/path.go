package storage

import "strings"

// SplitPath splits "bucket/a/b" into ("bucket", "a/b").
func SplitPath(p string) (bucket, key string) {
	p = strings.Trim(p, "/")
	bucket, key, _ = strings.Cut(p, "/")
	return bucket, key
}

// Children reduces full object paths below parent to the distinct immediate
// child paths, keeping first-seen order. A path equal to parent (a directory
// marker) is dropped.
func Children(parent string, paths []string) []string {
	parent = strings.Trim(parent, "/")
	prefix := parent + "/"
	if parent == "" {
		prefix = ""
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" || rest == "/" {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, prefix+name)
	}
	return out
}

// CleanPath trims surrounding slashes and rejects paths that are empty or
// carry empty, "." or ".." segments.
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", &StorageError{Code: CodeInvalidPath, Key: p}
		}
	}
	return p, nil
}
