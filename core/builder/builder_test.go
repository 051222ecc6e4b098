package builder

import (
	"context"
	"fmt"
	"testing"

	"docpipe/core/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// keepOpen lets tests inspect a store after the runner finalized the
// build, since closing an in-memory store drops its documents.
type keepOpen struct {
	store.Store
	updates int
}

func (k *keepOpen) Close(ctx context.Context) error { return nil }

func (k *keepOpen) Update(ctx context.Context, docs []store.Document, opts store.UpdateOptions) error {
	k.updates++
	return k.Store.Update(ctx, docs, opts)
}

func seededSource(t *testing.T, stamps map[string]string) *keepOpen {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory("source", store.Options{})
	require.NoError(t, m.Connect(ctx))

	var docs []store.Document
	for id, stamp := range stamps {
		docs = append(docs, store.Document{
			"task_id":            id,
			m.LastUpdatedField(): stamp,
			"v":                  id,
		})
	}
	require.NoError(t, m.Update(ctx, docs, store.UpdateOptions{SkipLastUpdated: true}))
	return &keepOpen{Store: m}
}

func emptyTarget(t *testing.T) *keepOpen {
	t.Helper()
	m := store.NewMemory("target", store.Options{})
	require.NoError(t, m.Connect(context.Background()))
	return &keepOpen{Store: m}
}

func targetDocs(t *testing.T, target store.Store) []store.Document {
	t.Helper()
	ctx := context.Background()
	cur, err := target.Query(ctx, nil, nil)
	require.NoError(t, err)
	docs, err := store.Collect(ctx, cur)
	require.NoError(t, err)
	return docs
}

func TestRunnerCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("copies every source document", func(t *testing.T) {
		source := seededSource(t, map[string]string{
			"t1": "2024-01-01T00:00:00.000",
			"t2": "2024-01-02T00:00:00.000",
			"t3": "2024-01-03T00:00:00.000",
		})
		target := emptyTarget(t)

		b := NewCopy(source, target, nil, 2, zap.NewNop())
		r := &Runner{Workers: 2, Log: zap.NewNop()}
		require.NoError(t, r.Run(ctx, b))

		docs := targetDocs(t, target)
		assert.Len(t, docs, 3)
	})

	t.Run("copied documents keep their source stamps", func(t *testing.T) {
		source := seededSource(t, map[string]string{
			"t1": "2024-01-01T00:00:00.000",
		})
		target := emptyTarget(t)

		b := NewCopy(source, target, nil, 10, zap.NewNop())
		require.NoError(t, (&Runner{Log: zap.NewNop()}).Run(ctx, b))

		got, err := target.QueryOne(ctx, store.Criteria{"task_id": "t1"}, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "2024-01-01T00:00:00.000", got[target.LastUpdatedField()])
	})

	t.Run("second run moves nothing", func(t *testing.T) {
		source := seededSource(t, map[string]string{
			"t1": "2024-01-01T00:00:00.000",
			"t2": "2024-01-02T00:00:00.000",
		})
		target := emptyTarget(t)

		b := NewCopy(source, target, nil, 10, zap.NewNop())
		r := &Runner{Log: zap.NewNop()}
		require.NoError(t, r.Run(ctx, b))
		firstUpdates := target.updates
		require.Positive(t, firstUpdates)

		require.NoError(t, r.Run(ctx, b))
		assert.Equal(t, firstUpdates, target.updates, "rerun wrote batches despite no newer documents")
	})

	t.Run("only newer documents move on rerun", func(t *testing.T) {
		source := seededSource(t, map[string]string{
			"t1": "2024-01-01T00:00:00.000",
		})
		target := emptyTarget(t)

		b := NewCopy(source, target, nil, 10, zap.NewNop())
		r := &Runner{Log: zap.NewNop()}
		require.NoError(t, r.Run(ctx, b))

		require.NoError(t, source.Update(ctx, []store.Document{
			{"task_id": "t2", source.LastUpdatedField(): "2024-06-01T00:00:00.000", "v": "t2"},
		}, store.UpdateOptions{SkipLastUpdated: true}))
		require.NoError(t, r.Run(ctx, b))

		assert.Len(t, targetDocs(t, target), 2)
	})

	t.Run("criteria restrict the copy", func(t *testing.T) {
		source := seededSource(t, map[string]string{
			"t1": "2024-01-01T00:00:00.000",
			"t2": "2024-01-02T00:00:00.000",
		})
		target := emptyTarget(t)

		b := NewCopy(source, target, store.Criteria{"task_id": "t1"}, 10, zap.NewNop())
		require.NoError(t, (&Runner{Log: zap.NewNop()}).Run(ctx, b))

		assert.Len(t, targetDocs(t, target), 1)
	})
}

// flakyBuilder fails processing for designated task ids.
type flakyBuilder struct {
	Base
	source store.Store
	target store.Store
	bad    map[string]bool
}

func (f *flakyBuilder) GetItems(ctx context.Context) (store.Cursor, error) {
	return f.source.Query(ctx, nil, nil)
}

func (f *flakyBuilder) ProcessItem(ctx context.Context, item store.Document) (store.Document, error) {
	if id, ok := item["task_id"].(string); ok && f.bad[id] {
		return nil, fmt.Errorf("corrupt payload")
	}
	return item, nil
}

func (f *flakyBuilder) UpdateTargets(ctx context.Context, items []store.Document) error {
	return f.target.Update(ctx, items, store.UpdateOptions{SkipLastUpdated: true})
}

func TestRunnerItemFailures(t *testing.T) {
	ctx := context.Background()
	source := seededSource(t, map[string]string{
		"good-1": "2024-01-01T00:00:00.000",
		"bad":    "2024-01-02T00:00:00.000",
		"good-2": "2024-01-03T00:00:00.000",
	})
	target := emptyTarget(t)

	b := &flakyBuilder{
		Base:   NewBase([]store.Store{source}, []store.Store{target}, 10, zap.NewNop()),
		source: source,
		target: target,
		bad:    map[string]bool{"bad": true},
	}

	err := (&Runner{Workers: 2, Log: zap.NewNop()}).Run(ctx, b)

	t.Run("failure is attributed to the item", func(t *testing.T) {
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task_id=bad")
		assert.Contains(t, err.Error(), "corrupt payload")
	})

	t.Run("healthy chunk-mates are still written", func(t *testing.T) {
		docs := targetDocs(t, target)
		assert.Len(t, docs, 2)
		for _, doc := range docs {
			assert.NotEqual(t, "bad", doc["task_id"])
		}
	})
}

func TestBaseDefaults(t *testing.T) {
	t.Run("chunk size falls back to the default", func(t *testing.T) {
		b := NewBase(nil, nil, 0, nil)
		assert.Equal(t, DefaultChunkSize, b.Chunk())
	})

	t.Run("process item is the identity", func(t *testing.T) {
		b := NewBase(nil, nil, 1, nil)
		item := store.Document{"task_id": "a"}
		got, err := b.ProcessItem(context.Background(), item)
		require.NoError(t, err)
		assert.Equal(t, item, got)
	})
}
