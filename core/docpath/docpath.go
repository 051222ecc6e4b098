package docpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrKeyNotFound is returned when a path segment is absent from the document.
var ErrKeyNotFound = errors.New("key not found")

// Get returns the value at the dot-separated path within a nested
// mapping/sequence tree. A segment that parses as an integer is used as a
// sequence index, so "tasks.0.id" reaches into arrays.
func Get(doc any, path string) (any, error) {
	lead, rest, nested := strings.Cut(path, ".")

	var next any
	switch node := doc.(type) {
	case map[string]any:
		v, ok := node[lead]
		if !ok {
			return nil, fmt.Errorf("%q: %w", path, ErrKeyNotFound)
		}
		next = v
	case []any:
		idx, err := strconv.Atoi(lead)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, fmt.Errorf("%q: %w", path, ErrKeyNotFound)
		}
		next = node[idx]
	default:
		return nil, fmt.Errorf("%q: %w", path, ErrKeyNotFound)
	}

	if !nested {
		return next, nil
	}
	return Get(next, rest)
}

// Has reports whether a value exists at path. It never fails.
func Has(doc any, path string) bool {
	_, err := Get(doc, path)
	return err == nil
}

// Put builds a freshly nested mapping representing {path: value},
// e.g. Put("a.b", 1) returns {"a": {"b": 1}}. Array-index construction is
// not supported.
func Put(path string, value any) map[string]any {
	lead, rest, nested := strings.Cut(path, ".")
	if nested {
		return map[string]any{lead: Put(rest, value)}
	}
	return map[string]any{lead: value}
}

// Make copies the value at getPath in doc into a fresh nested mapping
// rooted at putPath.
func Make(doc any, getPath, putPath string) (map[string]any, error) {
	v, err := Get(doc, getPath)
	if err != nil {
		return nil, err
	}
	return Put(putPath, v), nil
}

// Unset removes the value at path and prunes mapping ancestors left empty
// by the removal, up to but not including the document root. Only mapping
// segments are pruned.
func Unset(doc map[string]any, path string) {
	segs := strings.Split(path, ".")

	parents := make([]map[string]any, 0, len(segs))
	node := doc
	for _, seg := range segs[:len(segs)-1] {
		parents = append(parents, node)
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, segs[len(segs)-1])

	for i := len(parents) - 1; i >= 0; i-- {
		child, _ := parents[i][segs[i]].(map[string]any)
		if child != nil && len(child) == 0 {
			delete(parents[i], segs[i])
		}
	}
}

// Merge recursively folds src into dst. When both sides hold a mapping for
// the same key the mappings are merged; otherwise the src value overwrites.
// dst is mutated in place.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if cur, ok := dst[k].(map[string]any); ok {
				Merge(cur, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// Substitute rewrites doc in place per an alias mapping of
// destination path -> source path. For every covered source path present in
// doc, its value is re-rooted at the destination path and the source path is
// unset (with empty-ancestor pruning). Paths outside the mapping are left
// untouched. Both sides may be multi-level dot-paths.
func Substitute(doc map[string]any, aliases map[string]string) {
	if doc == nil {
		return
	}
	for alias, key := range aliases {
		v, err := Get(doc, key)
		if err != nil {
			continue
		}
		Unset(doc, key)
		Merge(doc, Put(alias, v))
	}
}

// LazySubstitute renames top-level keys only, without interpreting
// dot-paths.
func LazySubstitute(doc map[string]any, aliases map[string]string) {
	for alias, key := range aliases {
		if v, ok := doc[key]; ok {
			doc[alias] = v
			delete(doc, key)
		}
	}
}

// Copy returns a deep copy of doc. Nested mappings and sequences are
// duplicated; scalar values are shared.
func Copy(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Copy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// SizeHandler lets callers teach Size how to walk container values it does
// not know about. It returns the contained values and whether it handled v.
type SizeHandler func(v any) ([]any, bool)

// Size approximates the in-memory footprint of a document tree in bytes.
// Additional container kinds are walked through explicitly supplied
// handlers; there is no shared global registry.
func Size(v any, handlers ...SizeHandler) int {
	const word = 8
	switch t := v.(type) {
	case nil:
		return word
	case bool:
		return 1
	case string:
		return len(t) + 2*word
	case int, int32, int64, float32, float64:
		return word
	case []byte:
		return len(t) + 3*word
	case map[string]any:
		n := 6 * word
		for k, e := range t {
			n += len(k) + 2*word + Size(e, handlers...)
		}
		return n
	case []any:
		n := 3 * word
		for _, e := range t {
			n += Size(e, handlers...)
		}
		return n
	default:
		for _, h := range handlers {
			if elems, ok := h(v); ok {
				n := 3 * word
				for _, e := range elems {
					n += Size(e, handlers...)
				}
				return n
			}
		}
		return 2 * word
	}
}
