// Package store abstracts the snapshot/log key-value persistence behind a
// small contract so sessions can run against redis in production and an
// in-memory map in tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errors.New("store: key not found")

// Store is the persistence contract for session snapshots and action logs.
// Values are opaque bytes; callers own serialization.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes key. A zero ttl means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// List returns up to limit keys with the given prefix. limit <= 0 means
	// no cap.
	List(ctx context.Context, prefix string, limit int) ([]string, error)
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
