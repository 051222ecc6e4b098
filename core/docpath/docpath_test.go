package docpath_test

import (
	"testing"

	"docpipe/core/docpath"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 3}}}

	t.Run("Nested", func(t *testing.T) {
		v, err := docpath.Get(doc, "a.b.c")
		require.NoError(t, err)
		assert.Equal(t, 3, v)
	})

	t.Run("Intermediate", func(t *testing.T) {
		v, err := docpath.Get(doc, "a.b")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"c": 3}, v)
	})

	t.Run("ArrayIndex", func(t *testing.T) {
		doc := map[string]any{"items": []any{
			map[string]any{"id": "x"},
			map[string]any{"id": "y"},
		}}
		v, err := docpath.Get(doc, "items.1.id")
		require.NoError(t, err)
		assert.Equal(t, "y", v)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := docpath.Get(doc, "a.z.c")
		assert.ErrorIs(t, err, docpath.ErrKeyNotFound)
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		doc := map[string]any{"items": []any{1}}
		_, err := docpath.Get(doc, "items.3")
		assert.ErrorIs(t, err, docpath.ErrKeyNotFound)
	})
}

func TestHas(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": 1}}
	assert.True(t, docpath.Has(doc, "a.b"))
	assert.False(t, docpath.Has(doc, "a.c"))
	assert.False(t, docpath.Has(nil, "a"))
}

func TestPut(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1}, docpath.Put("a", 1))
	assert.Equal(t,
		map[string]any{"a": map[string]any{"b": map[string]any{"c": 2}}},
		docpath.Put("a.b.c", 2))
}

func TestMake(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": 7}}
	out, err := docpath.Make(doc, "a.b", "x.y")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": map[string]any{"y": 7}}, out)

	_, err = docpath.Make(doc, "a.q", "x")
	assert.ErrorIs(t, err, docpath.ErrKeyNotFound)
}

func TestUnset(t *testing.T) {
	t.Run("PrunesEmptyAncestors", func(t *testing.T) {
		doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 3}}}
		docpath.Unset(doc, "a.b.c")
		assert.Equal(t, map[string]any{}, doc)
	})

	t.Run("KeepsPopulatedAncestors", func(t *testing.T) {
		doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 3}, "d": 4}}
		docpath.Unset(doc, "a.b.c")
		assert.Equal(t, map[string]any{"a": map[string]any{"d": 4}}, doc)
	})

	t.Run("MissingPathIsNoop", func(t *testing.T) {
		doc := map[string]any{"a": 1}
		docpath.Unset(doc, "b.c")
		assert.Equal(t, map[string]any{"a": 1}, doc)
	})
}

func TestMerge(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"b": 1, "c": 2}, "d": 3}
	docpath.Merge(dst, map[string]any{"a": map[string]any{"c": 9, "e": 10}, "f": 11})
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": 9, "e": 10},
		"d": 3,
		"f": 11,
	}, dst)
}

func TestSubstitute(t *testing.T) {
	aliases := map[string]string{"a": "b", "c.d": "e", "f": "g.h"}

	t.Run("TopLevel", func(t *testing.T) {
		d := map[string]any{"b": 1}
		docpath.Substitute(d, aliases)
		assert.Equal(t, map[string]any{"a": 1}, d)
	})

	t.Run("NestedDestination", func(t *testing.T) {
		d := map[string]any{"e": 1}
		docpath.Substitute(d, aliases)
		assert.Equal(t, map[string]any{"c": map[string]any{"d": 1}}, d)
	})

	t.Run("NestedSource", func(t *testing.T) {
		d := map[string]any{"g": map[string]any{"h": 4}}
		docpath.Substitute(d, aliases)
		assert.Equal(t, map[string]any{"f": 4}, d)
	})

	t.Run("UncoveredKeysPassThrough", func(t *testing.T) {
		d := map[string]any{"z": 5, "b": 1}
		docpath.Substitute(d, aliases)
		assert.Equal(t, map[string]any{"z": 5, "a": 1}, d)
	})

	t.Run("NilDoc", func(t *testing.T) {
		docpath.Substitute(nil, aliases)
	})
}

func TestLazySubstitute(t *testing.T) {
	d := map[string]any{"b": 1, "c.d": 2}
	docpath.LazySubstitute(d, map[string]string{"a": "b"})
	assert.Equal(t, map[string]any{"a": 1, "c.d": 2}, d)
}

func TestCopy(t *testing.T) {
	src := map[string]any{"a": map[string]any{"b": []any{1, 2}}}
	dup := docpath.Copy(src)
	assert.Equal(t, src, dup)

	dup["a"].(map[string]any)["b"].([]any)[0] = 99
	assert.Equal(t, 1, src["a"].(map[string]any)["b"].([]any)[0])
}

func TestSize(t *testing.T) {
	small := map[string]any{"a": 1}
	large := map[string]any{"a": 1, "blob": string(make([]byte, 4096))}
	assert.Greater(t, docpath.Size(large), docpath.Size(small))

	t.Run("Handler", func(t *testing.T) {
		type pair struct{ x, y any }
		n := docpath.Size(pair{x: "abc", y: "def"}, func(v any) ([]any, bool) {
			if p, ok := v.(pair); ok {
				return []any{p.x, p.y}, true
			}
			return nil, false
		})
		assert.Greater(t, n, docpath.Size("abc"))
	})
}
