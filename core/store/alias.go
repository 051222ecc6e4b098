package store

import (
	"context"

	"docpipe/core/docpath"
)

// Alias wraps another Store, translating document field paths between an
// external layout and the wrapped store's internal layout on every call.
// The alias mapping goes external path -> internal path; both sides may
// be multi-level dot-paths. Fields outside the mapping pass through
// unchanged in both directions. The wrapped store owns the documents and
// the connection lifecycle.
type Alias struct {
	inner   Store
	aliases map[string]string // external -> internal
	reverse map[string]string // internal -> external
}

// NewAlias wraps inner with the given external->internal alias mapping.
func NewAlias(inner Store, aliases map[string]string) *Alias {
	reverse := make(map[string]string, len(aliases))
	for ext, in := range aliases {
		reverse[in] = ext
	}
	return &Alias{inner: inner, aliases: aliases, reverse: reverse}
}

func (a *Alias) Name() string             { return a.inner.Name() }
func (a *Alias) LastUpdatedField() string { return a.inner.LastUpdatedField() }
func (a *Alias) Codec() LuCodec           { return a.inner.Codec() }

// Key returns the wrapped store's key fields in their external spelling.
func (a *Alias) Key() []string {
	return a.externalFields(a.inner.Key())
}

func (a *Alias) Connect(ctx context.Context) error { return a.inner.Connect(ctx) }
func (a *Alias) Close(ctx context.Context) error   { return a.inner.Close(ctx) }

func (a *Alias) Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error) {
	cur, err := a.inner.Query(ctx, a.internalCriteria(criteria), a.internalFields(properties))
	if err != nil {
		return nil, err
	}
	return newTransformCursor(cur, func(doc Document) (Document, error) {
		return a.externalDoc(doc), nil
	}), nil
}

func (a *Alias) QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error) {
	doc, err := a.inner.QueryOne(ctx, a.internalCriteria(criteria), a.internalFields(properties))
	if err != nil || doc == nil {
		return nil, err
	}
	return a.externalDoc(doc), nil
}

func (a *Alias) Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	combos, err := a.inner.Distinct(ctx, a.internalFields(fields), a.internalCriteria(criteria), allExist)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(combos))
	for i, combo := range combos {
		out[i] = a.externalCombo(combo)
	}
	return out, nil
}

func (a *Alias) GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error) {
	cur, err := a.inner.GroupBy(ctx, a.internalFields(fields), a.internalCriteria(criteria))
	if err != nil {
		return nil, err
	}
	return newTransformCursor(cur, func(group Document) (Document, error) {
		out := Document{}
		if id, ok := group["_id"].(map[string]any); ok {
			out["_id"] = a.externalCombo(id)
		}
		switch docs := group["docs"].(type) {
		case []Document:
			ext := make([]Document, len(docs))
			for i, d := range docs {
				ext[i] = a.externalDoc(d)
			}
			out["docs"] = ext
		case []any:
			ext := make([]any, len(docs))
			for i, d := range docs {
				if m, ok := d.(map[string]any); ok {
					ext[i] = a.externalDoc(m)
				} else {
					ext[i] = d
				}
			}
			out["docs"] = ext
		default:
			out["docs"] = group["docs"]
		}
		return out, nil
	}), nil
}

func (a *Alias) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	internal := make([]Document, len(docs))
	for i, doc := range docs {
		d := docpath.Copy(doc)
		docpath.Substitute(d, a.reverse)
		internal[i] = d
	}
	opts.Key = a.internalFields(opts.Key)
	return a.inner.Update(ctx, internal, opts)
}

func (a *Alias) EnsureIndex(ctx context.Context, fields []string) error {
	return a.inner.EnsureIndex(ctx, a.internalFields(fields))
}

func (a *Alias) ConfirmIndex(ctx context.Context, fields []string) (bool, error) {
	return a.inner.ConfirmIndex(ctx, a.internalFields(fields))
}

// externalDoc re-roots aliased internal paths at their external spelling.
func (a *Alias) externalDoc(doc Document) Document {
	out := docpath.Copy(doc)
	docpath.Substitute(out, a.aliases)
	return out
}

// externalCombo renames the dot-path keys of a distinct/groupby
// combination document.
func (a *Alias) externalCombo(combo Document) Document {
	out := Document{}
	for f, v := range combo {
		if ext, ok := a.reverse[f]; ok {
			out[ext] = v
		} else {
			out[f] = v
		}
	}
	return out
}

func (a *Alias) internalCriteria(criteria Criteria) Criteria {
	if criteria == nil {
		return nil
	}
	out := make(Criteria, len(criteria))
	for path, cond := range criteria {
		out[a.internalField(path)] = cond
	}
	return out
}

func (a *Alias) internalFields(fields []string) []string {
	if fields == nil {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = a.internalField(f)
	}
	return out
}

func (a *Alias) internalField(field string) string {
	if in, ok := a.aliases[field]; ok {
		return in
	}
	return field
}

func (a *Alias) externalFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if ext, ok := a.reverse[f]; ok {
			out[i] = ext
		} else {
			out[i] = f
		}
	}
	return out
}
