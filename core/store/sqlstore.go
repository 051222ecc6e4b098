package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"docpipe/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores documents as JSON rows in a relational table, one row per
// distinct key. Queries, distinct and groupby load the table and evaluate
// criteria in process, which keeps the adapter honest for moderate
// collections without inventing a JSON-path query compiler per dialect.
type SQL struct {
	base
	dial           gorm.Dialector
	table          string
	timeoutSeconds int
	db             *gorm.DB
}

type documentRow struct {
	DocKey string `gorm:"column:doc_key;primaryKey;size:512"`
	Body   string `gorm:"column:body;type:text"`
}

// NewSQL returns a disconnected relational document store writing to the
// given table through the dialector (MySQL in production, sqlite in
// tests).
func NewSQL(dial gorm.Dialector, table string, opts Options) *SQL {
	if table == "" {
		table = "documents"
	}
	return &SQL{base: newBase(table, opts), dial: dial, table: table}
}

// NewSQLFromConfig builds a MySQL-backed document store from a database
// configuration.
func NewSQLFromConfig(cfg database.Config, table string, opts Options) *SQL {
	s := NewSQL(database.Dialector(cfg), table, opts)
	s.timeoutSeconds = cfg.TimeoutSeconds
	return s
}

func (s *SQL) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	db, err := database.Open(s.dial, s.timeoutSeconds)
	if err != nil {
		return &ConnError{Store: s.name, Err: err}
	}
	if err := db.Table(s.table).AutoMigrate(&documentRow{}); err != nil {
		return &ConnError{Store: s.name, Err: err}
	}
	s.db = db
	s.connected = true
	return nil
}

func (s *SQL) Close(ctx context.Context) error {
	s.connected = false
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

func (s *SQL) Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error) {
	docs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	matched, err := matchDocs(docs, criteria, properties)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}
	return newSliceCursor(matched), nil
}

func (s *SQL) QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error) {
	cur, err := s.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		return cur.Doc(), nil
	}
	return nil, cur.Err()
}

func (s *SQL) Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	docs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out, err := distinctDocs(docs, fields, criteria, allExist)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}
	return out, nil
}

func (s *SQL) GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error) {
	docs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := groupDocs(docs, fields, criteria)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}
	return newSliceCursor(groups), nil
}

func (s *SQL) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	key := s.updateKey(opts)
	now := nowFunc()
	for _, doc := range docs {
		stamped := s.stamp(doc, opts, now)
		rowKey, err := s.rowKey(stamped, key)
		if err != nil {
			return fmt.Errorf("store %s: update: %w", s.name, err)
		}
		body, err := json.Marshal(stamped)
		if err != nil {
			return fmt.Errorf("store %s: update: %w", s.name, err)
		}
		row := documentRow{DocKey: rowKey, Body: string(body)}
		err = s.db.WithContext(ctx).Table(s.table).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "doc_key"}},
				UpdateAll: true,
			}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("store %s: update: %w", s.name, err)
		}
	}
	return nil
}

// rowKey renders the key-field values as the primary-key column.
// Including the field names keeps rows written under a per-call key
// override from colliding with rows keyed by the store default.
func (s *SQL) rowKey(doc Document, key []string) (string, error) {
	filter, err := keyFilter(doc, key)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(key))
	for i, f := range key {
		parts[i] = fmt.Sprintf("%s=%v", f, filter[f])
	}
	return strings.Join(parts, "\x1f"), nil
}

func (s *SQL) loadAll(ctx context.Context) ([]Document, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	var rows []documentRow
	if err := s.db.WithContext(ctx).Table(s.table).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store %s: query: %w", s.name, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var doc Document
		if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
			return nil, fmt.Errorf("store %s: row %s: %w", s.name, row.DocKey, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SQL) EnsureIndex(ctx context.Context, fields []string) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	// Documents live in an opaque JSON column; only the key column is
	// indexed, and it already is as the primary key.
	return nil
}

func (s *SQL) ConfirmIndex(ctx context.Context, fields []string) (bool, error) {
	if err := s.requireConnected(); err != nil {
		return false, err
	}
	return false, nil
}
