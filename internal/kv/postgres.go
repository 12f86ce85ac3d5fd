package kv

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore keeps entries in the kv_entries table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database. The kv_entries table is created
// by the SQL migrations in internal/db/migrations.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM kv_entries WHERE key = $1`
	var value string
	if err := p.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`
	_, err := p.db.ExecContext(ctx, query, key, value)
	return err
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_entries WHERE key = $1`
	_, err := p.db.ExecContext(ctx, query, key)
	return err
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
