package storage

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS guardian_documents (
	namespace TEXT NOT NULL,
	doc_key TEXT NOT NULL,
	value JSONB NOT NULL,
	PRIMARY KEY (namespace, doc_key)
)`

func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createDocumentsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return pool, nil
}

// PostgresTable is the Table contract over guardian_documents, for deployments
// that run more than one bot process against shared configuration.
type PostgresTable[V any] struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewPostgresTable[V any](pool *pgxpool.Pool, namespace string) *PostgresTable[V] {
	return &PostgresTable[V]{pool: pool, namespace: namespace}
}

func (t *PostgresTable[V]) Load(ctx context.Context) (map[string]V, error) {
	rows, err := t.pool.Query(ctx, `SELECT doc_key, value FROM guardian_documents WHERE namespace = $1`, t.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := map[string]V{}
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value V
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", t.namespace, key, err)
		}
		entries[key] = value
	}
	return entries, rows.Err()
}

func (t *PostgresTable[V]) Save(ctx context.Context, entries map[string]V) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM guardian_documents WHERE namespace = $1`, t.namespace); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for key, value := range entries {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO guardian_documents (namespace, doc_key, value) VALUES ($1, $2, $3)`, t.namespace, key, string(raw))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
