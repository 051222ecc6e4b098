package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docpipe/core/docpath"
	"docpipe/core/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner drives a Builder: connect, pull items in chunks, fan
// ProcessItem out across workers, write each processed chunk to the
// targets, finalize. Item failures are attributed to the failing item
// and do not abort the run; the joined per-item errors are returned at
// the end.
type Runner struct {
	// Workers bounds concurrent ProcessItem calls. Defaults to 1.
	Workers int
	Log     *zap.Logger
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.L()
	}
	return r.Log
}

// Run executes one full build.
func (r *Runner) Run(ctx context.Context, b Builder) (err error) {
	log := r.logger()

	if err := b.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if ferr := b.Finalize(ctx); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	items, err := b.GetItems(ctx)
	if err != nil {
		return err
	}
	defer items.Close(ctx)

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	chunkSize := DefaultChunkSize
	if sized, ok := b.(interface{ Chunk() int }); ok && sized.Chunk() > 0 {
		chunkSize = sized.Chunk()
	}

	var itemErrs []error
	total := 0
	for {
		chunk := nextChunk(ctx, items, chunkSize)
		if len(chunk) == 0 {
			break
		}
		processed, errs := r.processChunk(ctx, b, chunk, workers)
		itemErrs = append(itemErrs, errs...)
		if len(processed) > 0 {
			if err := b.UpdateTargets(ctx, processed); err != nil {
				return errors.Join(append(itemErrs, err)...)
			}
		}
		total += len(processed)
		log.Debug("chunk written", zap.Int("items", len(processed)), zap.Int("total", total))
	}
	if err := items.Err(); err != nil {
		itemErrs = append(itemErrs, err)
	}

	log.Info("build finished",
		zap.Int("items", total), zap.Int("failed", len(itemErrs)))
	return errors.Join(itemErrs...)
}

// processChunk transforms a chunk concurrently, preserving order for the
// successful items.
func (r *Runner) processChunk(ctx context.Context, b Builder, chunk []store.Document, workers int) ([]store.Document, []error) {
	out := make([]store.Document, len(chunk))
	var mu sync.Mutex
	var itemErrs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range chunk {
		g.Go(func() error {
			res, err := b.ProcessItem(gctx, item)
			if err != nil {
				wrapped := fmt.Errorf("item %s: %w", itemLabel(item), err)
				r.logger().Error("item processing failed", zap.Error(wrapped))
				mu.Lock()
				itemErrs = append(itemErrs, wrapped)
				mu.Unlock()
				return nil // a bad item must not sink its chunk-mates
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()

	kept := out[:0]
	for _, doc := range out {
		if doc != nil {
			kept = append(kept, doc)
		}
	}
	return kept, itemErrs
}

// nextChunk collects up to n documents from the cursor.
func nextChunk(ctx context.Context, cur store.Cursor, n int) []store.Document {
	var chunk []store.Document
	for len(chunk) < n && cur.Next(ctx) {
		chunk = append(chunk, cur.Doc())
	}
	return chunk
}

// itemLabel identifies an item in error messages, preferring the default
// key field.
func itemLabel(item store.Document) string {
	if v, err := docpath.Get(item, store.DefaultKeyField); err == nil {
		return fmt.Sprintf("%s=%v", store.DefaultKeyField, v)
	}
	return "(unkeyed)"
}
