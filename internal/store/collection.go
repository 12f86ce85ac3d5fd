package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bayni/apiserver/internal/kv"
)

// Keys under which the collections are persisted.
const (
	keyUsers         = "users"
	keySession       = "session"
	keyPosts         = "posts"
	keyConsultations = "consultations"
	keySchedules     = "schedules"
	keyAvailability  = "availability"

	keyLegacyUser        = "user"
	keyLegacyCurrentUser = "current_user"
)

// collection is a JSON list stored under a single key. All writes go through
// update, which holds the collection's slot for the whole
// read-modify-write cycle so concurrent writers never lose each other's
// changes.
type collection[T any] struct {
	kv  kv.Store
	key string
	sem chan struct{}
}

func newCollection[T any](store kv.Store, key string) *collection[T] {
	return &collection[T]{
		kv:  store,
		key: key,
		sem: make(chan struct{}, 1),
	}
}

// load returns the stored list. A missing key is an empty list.
func (c *collection[T]) load(ctx context.Context) ([]T, error) {
	items := []T{}
	found, err := getJSON(ctx, c.kv, c.key, &items)
	if err != nil {
		return nil, err
	}
	if !found || items == nil {
		return []T{}, nil
	}
	return items, nil
}

// update applies fn to the current list and stores the result. If fn
// returns an error nothing is written.
func (c *collection[T]) update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return setJSON(ctx, c.kv, c.key, next)
}

func getJSON(ctx context.Context, store kv.Store, key string, dst any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, &StorageError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &StorageError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func setJSON(ctx context.Context, store kv.Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := store.Set(ctx, key, string(data)); err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func removeKey(ctx context.Context, store kv.Store, key string) error {
	if err := store.Remove(ctx, key); err != nil {
		return &StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}
