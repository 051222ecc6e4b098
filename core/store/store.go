package store

import (
	"context"
	"fmt"
	"time"

	"docpipe/core/docpath"

	"go.uber.org/zap"
)

// Default field names used when a store is built without overrides.
const (
	DefaultKeyField = "task_id"
	DefaultLuField  = "_lu"
)

// nowFunc supplies update timestamps; swapped in tests.
var nowFunc = time.Now

// Document is an arbitrary nested key-value mapping. There is no fixed
// schema; identity within a store is established by the store's key
// field(s).
type Document = map[string]any

// Cursor is a lazy, finite, non-restartable sequence of documents. Close
// releases any server-side resources the iteration holds and must be safe
// to call before the sequence is exhausted.
type Cursor interface {
	// Next advances the cursor. It returns false when the sequence is
	// exhausted, an error occurred, or the cursor was closed.
	Next(ctx context.Context) bool
	// Doc returns the current document. Valid only after Next returned true.
	Doc() Document
	// Err returns the first error encountered during iteration.
	Err() error
	// Close releases cursor resources.
	Close(ctx context.Context) error
}

// UpdateOptions adjusts a single Update call.
type UpdateOptions struct {
	// Key overrides the store's key field(s) for this call. A composite key
	// matches on equality of all listed fields.
	Key []string
	// SkipLastUpdated suppresses stamping the last-updated field.
	SkipLastUpdated bool
}

// Store is the uniform contract over a document storage backend.
//
// A store begins disconnected. Connect transitions it to connected
// exactly once; every other operation fails with ErrNotConnected
// beforehand. There is no automatic reconnect. Close releases backend
// resources on teardown; operations after Close fail with
// ErrNotConnected again.
//
// Stores are safe to share across workers for reads on distinct
// documents; concurrent updates to the same key are last-writer-wins with
// only the backend's atomic single-document replace as ordering.
type Store interface {
	// Name identifies the store (collection name or equivalent).
	Name() string
	// Key returns the field(s) forming the unique upsert key.
	Key() []string
	// LastUpdatedField returns the name of the last-updated field.
	LastUpdatedField() string
	// Codec returns the last-updated encode/decode pair.
	Codec() LuCodec

	// Connect establishes backend resources.
	Connect(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error

	// Query returns documents matching criteria, optionally projected to
	// the given dot-path properties.
	Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error)
	// QueryOne returns the first match, or (nil, nil) when nothing matches.
	QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error)
	// Distinct returns the distinct value combinations of the given
	// dot-path fields among matching documents, each combination as a
	// dot-path keyed document. With allExist, only combinations where every
	// requested field exists are counted.
	Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error)
	// GroupBy groups matching documents by equality of the field tuple.
	// Each yielded document has the shape {"_id": {field: value, ...},
	// "docs": [...]}.
	GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error)
	// Update upserts documents idempotently: for each input, the document
	// whose key field(s) equal the input's is replaced, or a new one is
	// created. Input documents are not mutated.
	Update(ctx context.Context, docs []Document, opts UpdateOptions) error

	// EnsureIndex requests an index on the given fields, best effort.
	EnsureIndex(ctx context.Context, fields []string) error
	// ConfirmIndex reports whether an index backs any of the given fields.
	// It degrades to (false, nil) when the backend forbids introspection,
	// since a read-only source cannot be asked to create one.
	ConfirmIndex(ctx context.Context, fields []string) (bool, error)
}

// base carries the configuration common to every adapter.
type base struct {
	name      string
	key       []string
	luField   string
	codec     LuCodec
	log       *zap.Logger
	connected bool
}

// Options configures the contract-level behavior shared by all adapters.
// Zero values select the defaults.
type Options struct {
	// Key is the upsert key field or fields. Defaults to "task_id".
	Key []string
	// LastUpdatedField defaults to "_lu".
	LastUpdatedField string
	// Codec defaults to ISOCodec.
	Codec LuCodec
	// Logger defaults to the process-global zap logger.
	Logger *zap.Logger
}

func newBase(name string, opts Options) base {
	b := base{
		name:    name,
		key:     opts.Key,
		luField: opts.LastUpdatedField,
		codec:   opts.Codec,
		log:     opts.Logger,
	}
	if len(b.key) == 0 {
		b.key = []string{DefaultKeyField}
	}
	if b.luField == "" {
		b.luField = DefaultLuField
	}
	if b.codec.Encode == nil || b.codec.Decode == nil {
		b.codec = ISOCodec()
	}
	if b.log == nil {
		b.log = zap.L()
	}
	b.log = b.log.Named(name)
	return b
}

func (b *base) Name() string             { return b.name }
func (b *base) Key() []string            { return b.key }
func (b *base) LastUpdatedField() string { return b.luField }
func (b *base) Codec() LuCodec           { return b.codec }

func (b *base) requireConnected() error {
	if !b.connected {
		return fmt.Errorf("store %s: %w", b.name, ErrNotConnected)
	}
	return nil
}

// updateKey resolves the key fields for an update call.
func (b *base) updateKey(opts UpdateOptions) []string {
	if len(opts.Key) > 0 {
		return opts.Key
	}
	return b.key
}

// stamp deep-copies doc and, unless suppressed, writes the encoded
// current time into the last-updated field.
func (b *base) stamp(doc Document, opts UpdateOptions, now time.Time) Document {
	out := docpath.Copy(doc)
	if !opts.SkipLastUpdated {
		out[b.luField] = b.codec.Encode(now)
	}
	return out
}

// keyFilter builds an exact-match criteria over the key fields of doc.
func keyFilter(doc Document, key []string) (Criteria, error) {
	crit := Criteria{}
	for _, f := range key {
		v, err := docpath.Get(doc, f)
		if err != nil {
			return nil, fmt.Errorf("document is missing key field %q: %w", f, err)
		}
		crit[f] = v
	}
	return crit, nil
}

// DistinctValues is the single-field convenience over Store.Distinct.
func DistinctValues(ctx context.Context, s Store, field string, criteria Criteria) ([]any, error) {
	combos, err := s.Distinct(ctx, []string{field}, criteria, false)
	if err != nil {
		return nil, err
	}
	vals := make([]any, 0, len(combos))
	for _, c := range combos {
		if v, ok := c[field]; ok {
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// LastUpdated returns the most recent last-updated time recorded in s,
// or the zero time when the store holds no stamped documents.
func LastUpdated(ctx context.Context, s Store) (time.Time, error) {
	vals, err := DistinctValues(ctx, s, s.LastUpdatedField(), nil)
	if err != nil {
		return time.Time{}, err
	}
	var max time.Time
	for _, v := range vals {
		t, err := s.Codec().Decode(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("store %s: %w", s.Name(), err)
		}
		if t.After(max) {
			max = t
		}
	}
	return max, nil
}

// NewerCriteria builds a criteria selecting documents whose last-updated
// field is strictly newer than since, in the store's own encoding.
func NewerCriteria(s Store, since time.Time) Criteria {
	return Criteria{s.LastUpdatedField(): map[string]any{"$gt": s.Codec().Encode(since)}}
}
