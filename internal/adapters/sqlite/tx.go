package sqlite

import (
	"context"
	"database/sql"
	"errors"
)

// documentTx wraps the statements of one compare-and-swap write
type documentTx struct {
	tx *sql.Tx
}

// Insert creates key at version 1. It reports false if key already exists.
func (t *documentTx) Insert(ctx context.Context, key string, data []byte) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO documents (key, data, version)
		VALUES (?, ?, 1)
		ON CONFLICT(key) DO NOTHING
	`, key, data)
	return affected(res, err)
}

// Update bumps the version of key if it is still at expected
func (t *documentTx) Update(ctx context.Context, key string, data []byte, expected uint64) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE documents
		SET data = ?, version = version + 1, updated_at = unixepoch()
		WHERE key = ? AND version = ?
	`, data, key, expected)
	return affected(res, err)
}

// Version returns the stored version of key, 0 if absent
func (t *documentTx) Version(ctx context.Context, key string) (uint64, error) {
	var v uint64
	err := t.tx.QueryRowContext(ctx, `SELECT version FROM documents WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Commit commits the transaction
func (t *documentTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *documentTx) Rollback() error {
	return t.tx.Rollback()
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
