// Package postgres keeps catalog documents in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printvault/internal/domain"
	"printvault/internal/ports"
)

var _ ports.CatalogStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &domain.ConnectionError{Backend: "postgres", Host: pool.Config().ConnConfig.Host, Err: err}
	}
	s := &Store{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the documents table. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS catalog_documents (
    key        TEXT PRIMARY KEY,
    data       BYTEA NOT NULL,
    version    BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	var data []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM catalog_documents WHERE key = $1`, key).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, uint64(version), nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte, expectedVersion uint64) (uint64, error) {
	var sql string
	args := []any{key, data}
	if expectedVersion == 0 {
		sql = `INSERT INTO catalog_documents (key, data, version) VALUES ($1, $2, 1)
ON CONFLICT (key) DO NOTHING`
	} else {
		sql = `UPDATE catalog_documents SET data = $2, version = version + 1, updated_at = now()
WHERE key = $1 AND version = $3`
		args = append(args, int64(expectedVersion))
	}

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		_, actual, err := s.Get(ctx, key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		return 0, &domain.ConflictError{Key: key, Expected: expectedVersion, Actual: actual}
	}
	return expectedVersion + 1, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM catalog_documents WHERE key = $1`, key); err != nil {
		return fmt.Errorf("clearing %s: %w", key, err)
	}
	return nil
}
