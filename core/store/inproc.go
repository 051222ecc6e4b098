package store

import (
	"fmt"
	"sort"
	"strings"

	"docpipe/core/docpath"
)

// In-process query evaluation shared by the adapters that hold their
// documents in memory (memory, jsonfile, sql). The persistent-document
// adapter translates the same expressions to its native query language
// instead.

// matchDocs returns copies of the documents matching criteria, projected
// to properties.
func matchDocs(docs []Document, criteria Criteria, properties []string) ([]Document, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	var out []Document
	for _, doc := range docs {
		ok, err := criteria.Matches(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, projectDoc(doc, properties))
		}
	}
	return out, nil
}

// projectDoc copies doc restricted to the given dot-path properties. A nil
// properties slice keeps the whole document. Absent properties are
// silently skipped.
func projectDoc(doc Document, properties []string) Document {
	if properties == nil {
		return docpath.Copy(doc)
	}
	out := Document{}
	for _, p := range properties {
		v, err := docpath.Get(doc, p)
		if err != nil {
			continue
		}
		docpath.Merge(out, docpath.Put(p, v))
	}
	return out
}

// distinctDocs computes the distinct value combinations of fields among
// documents matching criteria. Combinations are dot-path keyed documents;
// a document lacking one of the fields contributes a combination without
// that key unless allExist is set, in which case it is skipped entirely.
func distinctDocs(docs []Document, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	seen := map[string]Document{}
	var order []string
	for _, doc := range docs {
		ok, err := criteria.Matches(doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		combo, complete := fieldCombo(doc, fields)
		if allExist && !complete {
			continue
		}
		if len(combo) == 0 {
			continue
		}
		sig := comboSignature(combo, fields)
		if _, dup := seen[sig]; !dup {
			seen[sig] = combo
			order = append(order, sig)
		}
	}
	sort.Strings(order)
	out := make([]Document, 0, len(order))
	for _, sig := range order {
		out = append(out, seen[sig])
	}
	return out, nil
}

// groupDocs groups documents matching criteria by equality of the field
// tuple, yielding {"_id": combo, "docs": [...]} documents.
func groupDocs(docs []Document, fields []string, criteria Criteria) ([]Document, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	groups := map[string]Document{}
	var order []string
	for _, doc := range docs {
		ok, err := criteria.Matches(doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		combo, _ := fieldCombo(doc, fields)
		sig := comboSignature(combo, fields)
		g, exists := groups[sig]
		if !exists {
			g = Document{"_id": combo, "docs": []Document{}}
			groups[sig] = g
			order = append(order, sig)
		}
		g["docs"] = append(g["docs"].([]Document), docpath.Copy(doc))
	}
	sort.Strings(order)
	out := make([]Document, 0, len(order))
	for _, sig := range order {
		out = append(out, groups[sig])
	}
	return out, nil
}

// fieldCombo extracts the dot-path keyed value combination of fields from
// doc and reports whether every field was present.
func fieldCombo(doc Document, fields []string) (Document, bool) {
	combo := Document{}
	complete := true
	for _, f := range fields {
		v, err := docpath.Get(doc, f)
		if err != nil {
			complete = false
			continue
		}
		combo[f] = v
	}
	return combo, complete
}

// comboSignature renders a combination to a stable string for
// deduplication and grouping. Numeric values are normalized so 1 and 1.0
// collapse to the same signature.
func comboSignature(combo Document, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := combo[f]
		if !ok {
			parts = append(parts, f+"=\x00absent")
			continue
		}
		if fv, isNum := toFloat(v); isNum {
			parts = append(parts, fmt.Sprintf("%s=%v", f, fv))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", f, v))
		}
	}
	return strings.Join(parts, "\x1f")
}

// matchesKey reports whether doc matches the key-field values of probe
// on every listed field.
func matchesKey(doc, probe Document, key []string) bool {
	for _, f := range key {
		dv, derr := docpath.Get(doc, f)
		pv, perr := docpath.Get(probe, f)
		if derr != nil || perr != nil || !valuesEqual(dv, pv) {
			return false
		}
	}
	return true
}
