package store

import (
	"fmt"
	"reflect"
	"strings"

	"docpipe/core/docpath"
)

// Criteria is a generic query expression over dot-paths. Each entry maps a
// dot-path to either a literal (equality) or an operator mapping using a
// subset of the Mongo operators:
//
//	{"a.b": 3}
//	{"a": map[string]any{"$exists": true}}
//	{"n": map[string]any{"$gte": 2, "$lt": 10}}
//	{"tag": map[string]any{"$in": []any{"x", "y"}}}
//
// The persistent-document adapter passes criteria to the backend's native
// query language; in-process adapters evaluate them with Matches.
type Criteria map[string]any

var operators = map[string]struct{}{
	"$exists": {}, "$eq": {}, "$ne": {},
	"$gt": {}, "$gte": {}, "$lt": {}, "$lte": {},
	"$in": {}, "$nin": {},
}

// Validate rejects malformed expressions with an error wrapping
// ErrInvalidQuery.
func (c Criteria) Validate() error {
	for path, cond := range c {
		if strings.HasPrefix(path, "$") {
			return fmt.Errorf("%w: unsupported top-level operator %q", ErrInvalidQuery, path)
		}
		ops, ok := cond.(map[string]any)
		if !ok || !hasOperator(ops) {
			continue // literal equality
		}
		for op, arg := range ops {
			if _, known := operators[op]; !known {
				return fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidQuery, op, path)
			}
			if op == "$in" || op == "$nin" {
				if _, ok := arg.([]any); !ok {
					return fmt.Errorf("%w: %s on field %q requires a list", ErrInvalidQuery, op, path)
				}
			}
		}
	}
	return nil
}

// Matches evaluates the criteria against doc. A nil Criteria matches
// everything.
func (c Criteria) Matches(doc Document) (bool, error) {
	for path, cond := range c {
		val, err := docpath.Get(doc, path)
		present := err == nil

		ops, ok := cond.(map[string]any)
		if !ok || !hasOperator(ops) {
			if !present || !valuesEqual(val, cond) {
				return false, nil
			}
			continue
		}

		for op, arg := range ops {
			ok, err := applyOperator(op, path, val, present, arg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

func hasOperator(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func applyOperator(op, path string, val any, present bool, arg any) (bool, error) {
	switch op {
	case "$exists":
		return present == truthy(arg), nil
	case "$eq":
		return present && valuesEqual(val, arg), nil
	case "$ne":
		// Like Mongo, $ne matches documents lacking the field entirely.
		return !present || !valuesEqual(val, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		cmp, ok := compareValues(val, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return cmp > 0, nil
		case "$gte":
			return cmp >= 0, nil
		case "$lt":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "$in", "$nin":
		list, ok := arg.([]any)
		if !ok {
			return false, fmt.Errorf("%w: %s on field %q requires a list", ErrInvalidQuery, op, path)
		}
		found := false
		for _, e := range list {
			if present && valuesEqual(val, e) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidQuery, op, path)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return v != nil
	}
}

// valuesEqual compares scalars with numeric coercion so that e.g. an int
// criteria matches a float64 decoded from JSON. Mappings, sequences and
// other uncomparable values are compared deeply; `==` on them would
// panic.
func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if !comparableValue(a) || !comparableValue(b) {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func comparableValue(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

// compareValues orders two values when they are mutually comparable:
// numbers by value, strings lexicographically.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
