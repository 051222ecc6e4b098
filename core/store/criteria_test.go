package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteriaValidate(t *testing.T) {
	t.Run("nil criteria is valid", func(t *testing.T) {
		var c Criteria
		assert.NoError(t, c.Validate())
	})

	t.Run("literal equality is valid", func(t *testing.T) {
		c := Criteria{"a.b": 3, "name": "x"}
		assert.NoError(t, c.Validate())
	})

	t.Run("known operators are valid", func(t *testing.T) {
		c := Criteria{
			"n":   map[string]any{"$gte": 2, "$lt": 10},
			"tag": map[string]any{"$in": []any{"x", "y"}},
			"opt": map[string]any{"$exists": false},
		}
		assert.NoError(t, c.Validate())
	})

	t.Run("unknown operator is rejected", func(t *testing.T) {
		c := Criteria{"n": map[string]any{"$regex": "^a"}}
		err := c.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("top-level operator is rejected", func(t *testing.T) {
		c := Criteria{"$or": []any{}}
		assert.ErrorIs(t, c.Validate(), ErrInvalidQuery)
	})

	t.Run("in requires a list", func(t *testing.T) {
		c := Criteria{"tag": map[string]any{"$in": "x"}}
		assert.ErrorIs(t, c.Validate(), ErrInvalidQuery)
	})

	t.Run("operator-free mapping value is literal equality", func(t *testing.T) {
		c := Criteria{"meta": map[string]any{"kind": "blob"}}
		assert.NoError(t, c.Validate())
	})
}

func TestCriteriaMatches(t *testing.T) {
	doc := Document{
		"task_id": "t-1",
		"n":       7,
		"name":    "alpha",
		"nested":  map[string]any{"depth": 2},
		"tags":    []any{"x", "y"},
	}

	match := func(t *testing.T, c Criteria) bool {
		t.Helper()
		ok, err := c.Matches(doc)
		require.NoError(t, err)
		return ok
	}

	t.Run("nil matches everything", func(t *testing.T) {
		var c Criteria
		assert.True(t, match(t, c))
	})

	t.Run("literal equality", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"name": "alpha"}))
		assert.False(t, match(t, Criteria{"name": "beta"}))
	})

	t.Run("dot path equality", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"nested.depth": 2}))
		assert.False(t, match(t, Criteria{"nested.depth": 3}))
	})

	t.Run("numeric coercion", func(t *testing.T) {
		// JSON decoding yields float64; stored ints must still match.
		assert.True(t, match(t, Criteria{"n": float64(7)}))
	})

	t.Run("range operators", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"n": map[string]any{"$gt": 5, "$lte": 7}}))
		assert.False(t, match(t, Criteria{"n": map[string]any{"$gt": 7}}))
		assert.True(t, match(t, Criteria{"name": map[string]any{"$lt": "beta"}}))
	})

	t.Run("exists", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"n": map[string]any{"$exists": true}}))
		assert.True(t, match(t, Criteria{"ghost": map[string]any{"$exists": false}}))
		assert.False(t, match(t, Criteria{"ghost": map[string]any{"$exists": true}}))
	})

	t.Run("ne matches missing fields", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"ghost": map[string]any{"$ne": 1}}))
		assert.True(t, match(t, Criteria{"n": map[string]any{"$ne": 8}}))
		assert.False(t, match(t, Criteria{"n": map[string]any{"$ne": 7}}))
	})

	t.Run("in and nin", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"name": map[string]any{"$in": []any{"alpha", "beta"}}}))
		assert.False(t, match(t, Criteria{"name": map[string]any{"$nin": []any{"alpha"}}}))
		assert.True(t, match(t, Criteria{"ghost": map[string]any{"$nin": []any{1}}}))
	})

	t.Run("range on missing field never matches", func(t *testing.T) {
		assert.False(t, match(t, Criteria{"ghost": map[string]any{"$gt": 0}}))
	})

	t.Run("incomparable values never match ranges", func(t *testing.T) {
		assert.False(t, match(t, Criteria{"name": map[string]any{"$gt": 5}}))
	})

	t.Run("subdocument literal equality", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"nested": map[string]any{"depth": 2}}))
		assert.False(t, match(t, Criteria{"nested": map[string]any{"depth": 3}}))
		assert.False(t, match(t, Criteria{"nested": map[string]any{"depth": 2, "extra": 1}}))
	})

	t.Run("list literal equality", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"tags": []any{"x", "y"}}))
		assert.False(t, match(t, Criteria{"tags": []any{"y", "x"}}))
	})

	t.Run("eq and ne against subdocuments", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"nested": map[string]any{"$eq": map[string]any{"depth": 2}}}))
		assert.True(t, match(t, Criteria{"nested": map[string]any{"$ne": map[string]any{"depth": 3}}}))
		assert.False(t, match(t, Criteria{"nested": map[string]any{"$ne": map[string]any{"depth": 2}}}))
	})

	t.Run("in with composite list members", func(t *testing.T) {
		assert.True(t, match(t, Criteria{"nested": map[string]any{"$in": []any{
			map[string]any{"depth": 1},
			map[string]any{"depth": 2},
		}}}))
		assert.False(t, match(t, Criteria{"nested": map[string]any{"$nin": []any{
			map[string]any{"depth": 2},
		}}}))
	})
}
