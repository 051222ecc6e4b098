package store

import "context"

// sliceCursor adapts an already-materialized result set to the Cursor
// contract. Close simply terminates iteration; there are no server-side
// resources to release.
type sliceCursor struct {
	docs   []Document
	cur    Document
	closed bool
}

func newSliceCursor(docs []Document) *sliceCursor {
	return &sliceCursor{docs: docs}
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.closed || len(c.docs) == 0 || ctx.Err() != nil {
		return false
	}
	c.cur = c.docs[0]
	c.docs = c.docs[1:]
	return true
}

func (c *sliceCursor) Doc() Document { return c.cur }

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(ctx context.Context) error {
	c.closed = true
	c.docs = nil
	return nil
}

// transformCursor applies fn to every document of an inner cursor. A
// transform failure ends iteration and surfaces through Err.
type transformCursor struct {
	inner Cursor
	fn    func(Document) (Document, error)
	cur   Document
	err   error
}

func newTransformCursor(inner Cursor, fn func(Document) (Document, error)) *transformCursor {
	return &transformCursor{inner: inner, fn: fn}
}

func (c *transformCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.inner.Next(ctx) {
		return false
	}
	doc, err := c.fn(c.inner.Doc())
	if err != nil {
		c.err = err
		return false
	}
	c.cur = doc
	return true
}

func (c *transformCursor) Doc() Document { return c.cur }

func (c *transformCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.inner.Err()
}

func (c *transformCursor) Close(ctx context.Context) error {
	return c.inner.Close(ctx)
}

// Collect drains a cursor into a slice, closing it afterwards.
func Collect(ctx context.Context, c Cursor) ([]Document, error) {
	defer c.Close(ctx)
	var out []Document
	for c.Next(ctx) {
		out = append(out, c.Doc())
	}
	return out, c.Err()
}
