// Package storage provides a thin object-storage client used by blob
// stores to persist large binary payloads outside the document backend.
//
// The Client interface covers exactly the operations the blob store
// performs (bucket checks, put/get/stat/remove of single objects) so
// tests can substitute an in-memory fake. The production implementation
// wraps the Minio S3-compatible client with strict connection-setup
// timeouts; per-operation deadlines are carried by the caller's Context.
package storage
