package store

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// JSONFile is a read-mostly Store over a set of JSON document files,
// optionally gzip-compressed. Connect eagerly parses every configured file
// into memory; Update is unsupported since the files are treated as an
// immutable source.
type JSONFile struct {
	*Memory
	paths       []string
	compression bool
}

// NewJSONFile returns a disconnected store over the given files. Each file
// may hold a single document or an array of documents. Files ending in
// ".gz", or all files when compression is set, are gzip-decoded.
func NewJSONFile(paths []string, compression bool, opts Options) *JSONFile {
	return &JSONFile{
		Memory:      NewMemory("jsonfile", opts),
		paths:       paths,
		compression: compression,
	}
}

func (j *JSONFile) Connect(ctx context.Context) error {
	if err := j.Memory.Connect(ctx); err != nil {
		return err
	}
	for _, path := range j.paths {
		docs, err := j.readFile(path)
		if err != nil {
			return fmt.Errorf("store %s: %w", j.name, err)
		}
		j.load(docs)
	}
	return nil
}

func (j *JSONFile) readFile(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if j.compression || strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		var single Document
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("%s: not a JSON document or document array: %w", path, err)
		}
		docs = []Document{single}
	}
	return docs, nil
}

// Update always fails: the file collection is a read-only source.
func (j *JSONFile) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	return fmt.Errorf("store %s: update on read-only file store: %w", j.name, ErrNotImplemented)
}
