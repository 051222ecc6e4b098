// Package store defines the uniform Store contract over heterogeneous
// document backends and the adapters implementing it.
//
// A Store is a named collection of schemaless documents with three pieces
// of configuration: the key field(s) establishing document identity for
// idempotent upserts, a last-updated field driving incremental rebuilds,
// and a codec controlling how that field round-trips to time.Time.
//
// # Adapters
//
//   - Memory: process-local, full contract except GroupBy.
//   - Mongo: persistent-document database; query, distinct and groupby
//     translate to the native query and aggregation language.
//   - JSONFile: read-only collection of (optionally gzipped) JSON files.
//   - SQL: documents as JSON rows in a relational table via GORM.
//   - Blob: metadata/payload split with content-addressed payloads in
//     object storage.
//   - Alias: derived store translating field paths between an external
//     and the wrapped store's internal layout.
//   - Vault: persistent-document store with credentials resolved from a
//     secret service at construction.
//
// # Semantics
//
// Stores begin disconnected; operations before Connect fail with
// ErrNotConnected. Update is an idempotent upsert: applying the same
// document twice leaves one document per distinct key, equal up to the
// last-updated stamp. Query results are lazy cursors whose Close releases
// backend resources before exhaustion. Criteria are generic dot-path
// expressions (equality, existence, comparison, set membership) that
// in-process adapters evaluate directly and the Mongo adapter hands to
// the server. Backend-native errors are wrapped into the package's error
// taxonomy and never leak driver types.
package store
