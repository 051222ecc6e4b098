package store

import (
	"errors"
	"fmt"
)

// Sentinel errors of the store contract. Adapters wrap backend-native
// failures into these rather than leaking driver error types.
var (
	// ErrNotConnected is returned when an operation is attempted before
	// Connect has succeeded.
	ErrNotConnected = errors.New("store is not connected")

	// ErrNotImplemented is returned when a backend does not support an
	// operation, e.g. GroupBy on the memory store or Update on a read-only
	// file store.
	ErrNotImplemented = errors.New("operation not supported by this store")

	// ErrInvalidQuery is returned for malformed criteria or projection
	// expressions.
	ErrInvalidQuery = errors.New("invalid query")
)

// ConnError reports a backend that is unreachable or refused
// authentication. Stores never retry internally; retry policy belongs to
// the caller.
type ConnError struct {
	Store string
	Err   error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("store %s: connection failed: %v", e.Store, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// MissingCredentialError reports a required credential or environment
// input that could not be resolved at construction time. It always names
// the specific missing input so misconfiguration surfaces immediately
// instead of as a deferred connection failure.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential: %s is not set", e.Name)
}
