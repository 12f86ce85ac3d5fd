package server

import (
	"context"
	"fmt"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/db"
	"github.com/bayni/apiserver/internal/kv"
)

// OpenStore connects the key-value backend named by cfg.KV.Backend and wraps
// it with operation metrics.
func OpenStore(ctx context.Context, cfg config.Config) (kv.Store, error) {
	var (
		store kv.Store
		err   error
	)

	switch cfg.KV.Backend {
	case "", "memory":
		store = kv.NewMemoryStore()
	case "redis":
		store, err = kv.NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		dbConn, openErr := db.Open(ctx, cfg.Database)
		if openErr != nil {
			return nil, openErr
		}
		store = kv.NewPostgresStore(dbConn)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.KV.Backend)
	}
	if err != nil {
		return nil, err
	}

	backend := cfg.KV.Backend
	if backend == "" {
		backend = "memory"
	}
	return kv.Instrument(store, backend), nil
}
