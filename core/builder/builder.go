package builder

import (
	"context"
	"errors"
	"fmt"

	"docpipe/core/store"

	"go.uber.org/zap"
)

// DefaultChunkSize is the number of items processed per batch when a
// builder does not set its own.
const DefaultChunkSize = 1000

// Builder is an incremental ETL stage: it reads a lazy sequence of items
// from source stores, transforms them one at a time, and writes batches
// to target stores.
type Builder interface {
	// Connect establishes connections for all source and target stores.
	Connect(ctx context.Context) error
	// GetItems returns the lazy sequence of items to process.
	GetItems(ctx context.Context) (store.Cursor, error)
	// ProcessItem transforms a single item. It must not touch any store:
	// the runner may execute it on a separate worker.
	ProcessItem(ctx context.Context, item store.Document) (store.Document, error)
	// UpdateTargets writes a batch of processed items to the target
	// stores, plus any bookkeeping the builder needs.
	UpdateTargets(ctx context.Context, items []store.Document) error
	// Finalize releases store resources deterministically, including any
	// cursor resources that outlive normal iteration.
	Finalize(ctx context.Context) error
}

// Base carries the source/target wiring shared by builders. Embed it and
// implement GetItems/ProcessItem/UpdateTargets.
type Base struct {
	Sources   []store.Store
	Targets   []store.Store
	ChunkSize int
	Log       *zap.Logger
}

// NewBase wires sources and targets with a chunk size and logger,
// applying defaults for both.
func NewBase(sources, targets []store.Store, chunkSize int, log *zap.Logger) Base {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if log == nil {
		log = zap.L()
	}
	return Base{Sources: sources, Targets: targets, ChunkSize: chunkSize, Log: log}
}

// Chunk reports the builder's batch size to the runner.
func (b Base) Chunk() int { return b.ChunkSize }

// Connect connects every source and target store.
func (b *Base) Connect(ctx context.Context) error {
	for _, s := range append(append([]store.Store{}, b.Sources...), b.Targets...) {
		if err := s.Connect(ctx); err != nil {
			return fmt.Errorf("builder connect %s: %w", s.Name(), err)
		}
	}
	return nil
}

// ProcessItem passes the item through unchanged by default.
func (b *Base) ProcessItem(ctx context.Context, item store.Document) (store.Document, error) {
	return item, nil
}

// Finalize closes every store. All stores are attempted; errors are
// joined.
func (b *Base) Finalize(ctx context.Context) error {
	var errs []error
	for _, s := range append(append([]store.Store{}, b.Sources...), b.Targets...) {
		if err := s.Close(ctx); err != nil {
			b.Log.Warn("store close failed", zap.String("store", s.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ConfirmIndex warns when none of the given fields is index-backed on a
// source store. Sources are often read-only, so a missing index is
// reported, not created.
func (b *Base) ConfirmIndex(ctx context.Context, s store.Store, fields []string) {
	ok, err := s.ConfirmIndex(ctx, fields)
	if err != nil {
		b.Log.Warn("index confirmation failed", zap.String("store", s.Name()), zap.Error(err))
		return
	}
	if !ok {
		b.Log.Warn("no index backs the incremental query; full scans ahead",
			zap.String("store", s.Name()), zap.Strings("fields", fields))
	}
}
