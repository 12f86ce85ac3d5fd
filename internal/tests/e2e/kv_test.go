//go:build e2e

package e2e

import (
	"context"
	"errors"
	"testing"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/db"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
)

func TestKVBackends(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := context.Background()

	redisStore, err := kv.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = redisStore.Close() })

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	pgStore := kv.NewPostgresStore(conn)
	t.Cleanup(func() { _ = pgStore.Close() })

	for name, s := range map[string]kv.Store{"redis": redisStore, "postgres": pgStore} {
		t.Run(name, func(t *testing.T) {
			key := "e2e_contract_" + name
			if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.Set(ctx, key, "v1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := s.Set(ctx, key, "v2"); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || got != "v2" {
				t.Fatalf("get = %q, %v", got, err)
			}
			if err := s.Remove(ctx, key); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := s.Remove(ctx, key); err != nil {
				t.Fatalf("remove missing: %v", err)
			}
		})
	}
}

func TestLegacyMigrationOnRedis(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Redis.KeyPrefix += "legacy:"
	ctx := context.Background()

	s, err := kv.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	legacy := `{"id":"1730000000000","type":"normal","username":"old_sara","password":"pw"}`
	if err := s.Set(ctx, "user", legacy); err != nil {
		t.Fatalf("seed legacy user: %v", err)
	}

	users := store.NewUserDirectory(s)
	report, err := users.MigrateLegacy(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if report.ImportedUsers != 1 || !report.SessionRestored {
		t.Fatalf("unexpected report %+v", report)
	}

	user, err := users.Authenticate(ctx, "old_sara", "pw")
	if err != nil {
		t.Fatalf("authenticate migrated user: %v", err)
	}
	if user.Type != types.UserTypeNormal {
		t.Fatalf("unexpected type %q", user.Type)
	}
}
