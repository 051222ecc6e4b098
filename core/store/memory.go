package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is a process-local Store backed by a mutable in-memory
// collection. It supports the full contract except GroupBy, which needs
// an aggregation engine no plain slice provides.
type Memory struct {
	base
	mu   sync.RWMutex
	docs []Document
}

// NewMemory returns a disconnected in-memory store.
func NewMemory(name string, opts Options) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{base: newBase(name, opts)}
}

func (m *Memory) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		m.docs = []Document{}
		m.connected = true
	}
	return nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.connected = false
	return nil
}

func (m *Memory) Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireConnected(); err != nil {
		return nil, err
	}
	matched, err := matchDocs(m.docs, criteria, properties)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", m.name, err)
	}
	return newSliceCursor(matched), nil
}

func (m *Memory) QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error) {
	cur, err := m.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		return cur.Doc(), nil
	}
	return nil, cur.Err()
}

func (m *Memory) Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.requireConnected(); err != nil {
		return nil, err
	}
	out, err := distinctDocs(m.docs, fields, criteria, allExist)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", m.name, err)
	}
	return out, nil
}

func (m *Memory) GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error) {
	if err := m.requireConnected(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("store %s: groupby: %w", m.name, ErrNotImplemented)
}

func (m *Memory) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireConnected(); err != nil {
		return err
	}
	return m.upsert(docs, opts, nowFunc())
}

// upsert replaces every stored document matching an input's key fields
// with the (stamped) input, keeping exactly one document per distinct key.
// Callers hold the write lock.
func (m *Memory) upsert(docs []Document, opts UpdateOptions, now time.Time) error {
	key := m.updateKey(opts)
	for _, doc := range docs {
		stamped := m.stamp(doc, opts, now)
		if _, err := keyFilter(stamped, key); err != nil {
			return fmt.Errorf("store %s: update: %w", m.name, err)
		}
		kept := m.docs[:0]
		for _, existing := range m.docs {
			if !matchesKey(existing, stamped, key) {
				kept = append(kept, existing)
			}
		}
		m.docs = append(kept, stamped)
	}
	return nil
}

// load bulk-inserts documents verbatim, bypassing key matching and
// last-updated stamping. Used by the file-collection store at connect
// time.
func (m *Memory) load(docs []Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
}

func (m *Memory) EnsureIndex(ctx context.Context, fields []string) error {
	if err := m.requireConnected(); err != nil {
		return err
	}
	return nil // every field scan is equivalent; nothing to build
}

func (m *Memory) ConfirmIndex(ctx context.Context, fields []string) (bool, error) {
	if err := m.requireConnected(); err != nil {
		return false, err
	}
	return false, nil
}
