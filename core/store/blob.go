package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"docpipe/core/docpath"
	"docpipe/core/storage"

	"github.com/minio/minio-go/v7"
)

// DefaultPayloadField is the document field a blob store treats as the
// binary payload.
const DefaultPayloadField = "data"

// Metadata fields the blob store writes alongside the stripped document.
const (
	blobIDField   = "blob_id"
	blobSizeField = "blob_size"
	blobSumField  = "blob_sha256"
)

// Blob splits document storage between a metadata Store and an
// object-storage bucket holding the binary payloads. Payloads are
// content-addressed by SHA-256, so identical content is stored once and
// an interrupted update can never leave metadata referencing a payload
// that was not durably written: the object is put before the metadata
// document is committed.
type Blob struct {
	base
	meta         Store
	client       storage.Client
	bucket       string
	payloadField string
}

// BlobOptions configures a blob store beyond the common store options.
type BlobOptions struct {
	Options
	// PayloadField is the document field carrying the binary payload.
	// Defaults to "data".
	PayloadField string
}

// NewBlob returns a disconnected blob store writing payloads through
// client into bucket and everything else into meta.
func NewBlob(meta Store, client storage.Client, bucket string, opts BlobOptions) *Blob {
	if opts.PayloadField == "" {
		opts.PayloadField = DefaultPayloadField
	}
	if len(opts.Key) == 0 {
		opts.Key = meta.Key()
	}
	return &Blob{
		base:         newBase("blob:"+meta.Name(), opts.Options),
		meta:         meta,
		client:       client,
		bucket:       bucket,
		payloadField: opts.PayloadField,
	}
}

func (b *Blob) Connect(ctx context.Context) error {
	if b.connected {
		return nil
	}
	if err := b.meta.Connect(ctx); err != nil {
		return err
	}
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return &ConnError{Store: b.name, Err: err}
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return &ConnError{Store: b.name, Err: err}
		}
	}
	b.connected = true
	return nil
}

func (b *Blob) Close(ctx context.Context) error {
	b.connected = false
	return b.meta.Close(ctx)
}

func (b *Blob) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	if err := b.requireConnected(); err != nil {
		return err
	}
	metaDocs := make([]Document, 0, len(docs))
	for _, doc := range docs {
		payload, err := payloadBytes(doc[b.payloadField])
		if err != nil {
			return fmt.Errorf("store %s: update: field %q: %w", b.name, b.payloadField, err)
		}

		sum := sha256.Sum256(payload)
		object := "blobs/" + hex.EncodeToString(sum[:])
		if err := b.putOnce(ctx, object, payload); err != nil {
			return fmt.Errorf("store %s: update: %w", b.name, err)
		}

		stripped := docpath.Copy(doc)
		delete(stripped, b.payloadField)
		stripped[blobIDField] = object
		stripped[blobSizeField] = len(payload)
		stripped[blobSumField] = hex.EncodeToString(sum[:])
		metaDocs = append(metaDocs, stripped)
	}
	// Payloads are durable at this point; committing metadata last keeps
	// every stored reference resolvable.
	if len(opts.Key) == 0 {
		opts.Key = b.key
	}
	return b.meta.Update(ctx, metaDocs, opts)
}

// putOnce uploads the object unless content with the same address is
// already stored.
func (b *Blob) putOnce(ctx context.Context, object string, payload []byte) error {
	if _, err := b.client.StatObject(ctx, b.bucket, object, minio.StatObjectOptions{}); err == nil {
		return nil
	}
	_, err := b.client.PutObject(ctx, b.bucket, object, bytes.NewReader(payload),
		int64(len(payload)), minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

func (b *Blob) Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error) {
	if err := b.requireConnected(); err != nil {
		return nil, err
	}
	// Metadata filtering happens in the backing store; the payload is
	// reattached per document as the cursor advances.
	cur, err := b.meta.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	return newTransformCursor(cur, func(doc Document) (Document, error) {
		return b.attachPayload(ctx, doc)
	}), nil
}

func (b *Blob) QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error) {
	cur, err := b.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		return cur.Doc(), nil
	}
	return nil, cur.Err()
}

func (b *Blob) attachPayload(ctx context.Context, doc Document) (Document, error) {
	object, ok := doc[blobIDField].(string)
	if !ok {
		return doc, nil // projection dropped the reference, nothing to fetch
	}
	rc, err := b.client.GetObject(ctx, b.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store %s: fetch payload %s: %w", b.name, object, err)
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("store %s: fetch payload %s: %w", b.name, object, err)
	}
	out := docpath.Copy(doc)
	out[b.payloadField] = payload
	delete(out, blobIDField)
	delete(out, blobSizeField)
	delete(out, blobSumField)
	return out, nil
}

func (b *Blob) Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	if err := b.requireConnected(); err != nil {
		return nil, err
	}
	return b.meta.Distinct(ctx, fields, criteria, allExist)
}

func (b *Blob) GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error) {
	if err := b.requireConnected(); err != nil {
		return nil, err
	}
	return b.meta.GroupBy(ctx, fields, criteria)
}

func (b *Blob) EnsureIndex(ctx context.Context, fields []string) error {
	if err := b.requireConnected(); err != nil {
		return err
	}
	return b.meta.EnsureIndex(ctx, fields)
}

func (b *Blob) ConfirmIndex(ctx context.Context, fields []string) (bool, error) {
	if err := b.requireConnected(); err != nil {
		return false, err
	}
	return b.meta.ConfirmIndex(ctx, fields)
}

// payloadBytes accepts []byte or string payloads.
func payloadBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case nil:
		return nil, fmt.Errorf("payload is missing")
	default:
		return nil, fmt.Errorf("payload must be bytes or string, got %T", v)
	}
}
