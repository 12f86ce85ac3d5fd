package db

import (
	"errors"
	"fmt"

	"github.com/bayni/apiserver/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrateUp applies every pending migration from sourceURL. Being already
// up to date is not an error.
func MigrateUp(sourceURL string, cfg config.DatabaseConfig) error {
	return runMigrations(sourceURL, cfg, func(m *migrate.Migrate) error {
		return m.Up()
	})
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(sourceURL string, cfg config.DatabaseConfig, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	return runMigrations(sourceURL, cfg, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

func runMigrations(sourceURL string, cfg config.DatabaseConfig, apply func(*migrate.Migrate) error) error {
	migrator, err := migrate.New(sourceURL, URL(cfg))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := apply(migrator); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
