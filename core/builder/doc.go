// Package builder provides the ETL orchestration layer over stores: the
// Builder interface (connect, lazily get items, transform each item,
// batch-write to targets, finalize), a Runner that drives it with
// chunking and a bounded worker pool, and the incremental Copy builder
// that moves only documents newer than the target's last-updated
// high-water mark.
//
// ProcessItem implementations must not reach into any store; the runner
// may execute them concurrently on separate workers. A failing item is
// logged and reported with the item's key attached, without aborting the
// rest of its chunk.
package builder
