package store

import (
	"context"
	"errors"
	"testing"

	"github.com/bayni/apiserver/internal/kv"
	"golang.org/x/crypto/bcrypt"
)

var errBackendDown = errors.New("backend down")

// brokenStore fails every call with errBackendDown.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errBackendDown }
func (brokenStore) Set(context.Context, string, string) error   { return errBackendDown }
func (brokenStore) Remove(context.Context, string) error        { return errBackendDown }
func (brokenStore) Close() error                                { return nil }

func newTestDirectory(t *testing.T) (*UserDirectory, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	return NewUserDirectory(mem, WithPasswordCost(bcrypt.MinCost)), mem
}

// hookStore wraps a store and runs onGet once, right before the first read
// of key.
type hookStore struct {
	kv.Store
	key   string
	onGet func()
}

func (s *hookStore) Get(ctx context.Context, key string) (string, error) {
	if key == s.key && s.onGet != nil {
		fn := s.onGet
		s.onGet = nil
		fn()
	}
	return s.Store.Get(ctx, key)
}
