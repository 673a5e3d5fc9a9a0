// Package postgres backs the shared key-value namespace and the order archive
// with PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modulhaus/backoffice/errs"
)

// KVStore persists the shared key-value namespace in the kv_state table.
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore constructs a KVStore backed by the provided pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}

const (
	kvUpsertSQL = `
INSERT INTO kv_state (key, value, updated_at)
VALUES (@key, @value::jsonb, NOW())
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = NOW();
`

	kvSelectSQL = `
SELECT value
FROM kv_state
WHERE key = @key;
`
)

func (s *KVStore) ensurePool() (*pgxpool.Pool, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("kv store: nil pool")
	}
	return s.pool, nil
}

// Get returns the value stored under key, or errs.CodeNotFound.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errs.New("persistence/kv", errs.CodeInvalid, errs.WithMessage("key required"))
	}

	var value []byte
	row := pool.QueryRow(ctx, kvSelectSQL, pgx.NamedArgs{"key": key})
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.New("persistence/kv", errs.CodeNotFound,
				errs.WithMessage("key not found: "+key))
		}
		return nil, fmt.Errorf("kv store: select %q: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key. Values must be valid JSON; the column is jsonb
// so foreign readers of the namespace can query into it.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	pool, err := s.ensurePool()
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errs.New("persistence/kv", errs.CodeInvalid, errs.WithMessage("key required"))
	}
	args := pgx.NamedArgs{
		"key":   key,
		"value": string(value),
	}
	if _, err := pool.Exec(ctx, kvUpsertSQL, args); err != nil {
		return fmt.Errorf("kv store: upsert %q: %w", key, err)
	}
	return nil
}
