package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key doesn't exist
	ErrNotFound = errors.New("key not found")

	// ErrStopIteration can be returned from an IterateFunc to end a scan early
	// without reporting an error to the caller.
	ErrStopIteration = errors.New("stop iteration")
)

// IterateFunc receives each key/value pair of a scan in ascending key order.
// The slices are only valid for the duration of the call.
type IterateFunc func(key, value []byte) error

// Store is an ordered key-value store. Keys compare byte-lexicographically.
//
// Writes are independent per key; there is no multi-key transaction.
// A scan must observe a consistent view even while writes are in flight.
type Store interface {
	// Put writes value under key, overwriting any previous value
	Put(ctx context.Context, key, value []byte) error

	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key []byte) error

	// Iterate visits every key with the given prefix in ascending order.
	// An empty prefix visits the whole store.
	Iterate(ctx context.Context, prefix []byte, fn IterateFunc) error

	// Close releases the underlying resources
	Close() error
}
