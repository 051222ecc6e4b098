package schema

import (
	"encoding/json"
	"fmt"

	"docpipe/core/docpath"
	"docpipe/core/store"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Reconstructor rebuilds a complex sub-object from its serialized mapping
// form, returning an error when the mapping is not a valid serialization.
type Reconstructor func(raw map[string]any) (any, error)

// Validator checks documents against a declarative JSON-Schema document,
// optionally requiring designated dot-paths to hold serialized forms a
// Reconstructor accepts.
type Validator struct {
	schema   *jsonschema.Schema
	keypaths map[string]Reconstructor
}

// New compiles the schema document. keypaths may be nil.
func New(schemaDoc map[string]any, keypaths map[string]Reconstructor) (*Validator, error) {
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("schema document: %w", err)
	}
	compiled, err := jsonschema.CompileString("schema.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("schema compile: %w", err)
	}
	return &Validator{schema: compiled, keypaths: keypaths}, nil
}

// Validate reports why doc does not conform, or nil.
func (v *Validator) Validate(doc store.Document) error {
	// Round-trip through JSON so the schema engine sees the same value
	// shapes a decoded document would have.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("document is not JSON-shaped: %w", err)
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return err
	}
	if err := v.schema.Validate(plain); err != nil {
		return err
	}

	for path, rebuild := range v.keypaths {
		val, err := docpath.Get(doc, path)
		if err != nil {
			return fmt.Errorf("keypath %q: %w", path, err)
		}
		mapping, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("keypath %q: expected a serialized object, got %T", path, val)
		}
		if _, err := rebuild(mapping); err != nil {
			return fmt.Errorf("keypath %q: %w", path, err)
		}
	}
	return nil
}

// IsValid is the boolean convenience over Validate.
func (v *Validator) IsValid(doc store.Document) bool {
	return v.Validate(doc) == nil
}
