package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"docpipe/core/store"

	"go.uber.org/zap"
)

// Service exposes read-only query operations over a set of named,
// connected stores.
type Service struct {
	stores map[string]store.Store
	logger *zap.Logger
}

// NewService creates a new query service.
func NewService(stores map[string]store.Store, logger *zap.Logger) *Service {
	return &Service{stores: stores, logger: logger}
}

// StoreNames lists the served stores.
func (s *Service) StoreNames() []string {
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) store(name string) (store.Store, error) {
	st, ok := s.stores[name]
	if !ok {
		return nil, fmt.Errorf("no store named %q", name)
	}
	return st, nil
}

// Query returns up to limit documents matching the JSON-encoded criteria.
func (s *Service) Query(ctx context.Context, name, criteriaJSON string, properties []string, limit int) ([]store.Document, error) {
	st, err := s.store(name)
	if err != nil {
		return nil, err
	}
	criteria, err := parseCriteria(criteriaJSON)
	if err != nil {
		return nil, err
	}
	cur, err := st.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []store.Document{}
	for len(docs) < limit && cur.Next(ctx) {
		docs = append(docs, cur.Doc())
	}
	return docs, cur.Err()
}

// Distinct returns the distinct values of one field.
func (s *Service) Distinct(ctx context.Context, name, field, criteriaJSON string) ([]any, error) {
	st, err := s.store(name)
	if err != nil {
		return nil, err
	}
	criteria, err := parseCriteria(criteriaJSON)
	if err != nil {
		return nil, err
	}
	return store.DistinctValues(ctx, st, field, criteria)
}

func parseCriteria(raw string) (store.Criteria, error) {
	if raw == "" {
		return nil, nil
	}
	var criteria store.Criteria
	if err := json.Unmarshal([]byte(raw), &criteria); err != nil {
		return nil, fmt.Errorf("%w: criteria is not valid JSON: %v", store.ErrInvalidQuery, err)
	}
	return criteria, nil
}
