package repository

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresKV stores entries in the session_kv table (see internal/db/migrations), scoped by namespace.
type PostgresKV struct {
	db        *sql.DB
	namespace string
}

// NewPostgresKV returns a KV that uses the given db. namespace separates clients sharing one database.
func NewPostgresKV(db *sql.DB, namespace string) *PostgresKV {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresKV{db: db, namespace: namespace}
}

// Get returns the value for key, or ok false if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE namespace = $1 AND key = $2`,
		r.namespace, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Write applies the batch in one transaction.
func (r *PostgresKV) Write(ctx context.Context, b Batch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range b.Set {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_kv (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())
			 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			r.namespace, k, v,
		); err != nil {
			return err
		}
	}
	for _, k := range b.Delete {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_kv WHERE namespace = $1 AND key = $2`,
			r.namespace, k,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Close closes the underlying db.
func (r *PostgresKV) Close() error {
	return r.db.Close()
}
