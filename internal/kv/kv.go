// Package kv defines the string-keyed store the profile and content
// collections persist to, and its backends.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a durable string-keyed store. Each operation is independently
// durable; there are no transactions across keys.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}
