package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "posts")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "posts", "[]"))
	value, err := store.Get(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	require.NoError(t, store.Set(ctx, "posts", `[{"id":"1"}]`))
	value, err = store.Get(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, value)

	require.NoError(t, store.Remove(ctx, "posts"))
	require.NoError(t, store.Remove(ctx, "posts"))
	_, err = store.Get(ctx, "posts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Set(ctx, "k", "v"), context.Canceled)
	assert.Empty(t, store.Keys())
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestInstrumentCountsResults(t *testing.T) {
	ctx := context.Background()
	store := Instrument(&failingStore{MemoryStore: NewMemoryStore()}, "test-instrument")

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Set(ctx, "k", "v"))
	assert.NoError(t, store.Remove(ctx, "k"))

	assert.Equal(t, 1.0, testutil.ToFloat64(opsTotal.WithLabelValues("test-instrument", "get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(opsTotal.WithLabelValues("test-instrument", "set", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(opsTotal.WithLabelValues("test-instrument", "remove", "ok")))
}
