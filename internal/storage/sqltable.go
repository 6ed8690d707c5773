package storage

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// SQLiteTable stores one document per key in kv_documents under a namespace.
type SQLiteTable[V any] struct {
	store     *Store
	namespace string
}

func NewSQLiteTable[V any](store *Store, namespace string) *SQLiteTable[V] {
	return &SQLiteTable[V]{store: store, namespace: namespace}
}

func (t *SQLiteTable[V]) Load(ctx context.Context) (map[string]V, error) {
	rows, err := t.store.db.QueryContext(ctx, `SELECT doc_key, value FROM kv_documents WHERE namespace = ?`, t.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := map[string]V{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value V
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", t.namespace, key, err)
		}
		entries[key] = value
	}
	return entries, rows.Err()
}

func (t *SQLiteTable[V]) Save(ctx context.Context, entries map[string]V) (err error) {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM kv_documents WHERE namespace = ?`, t.namespace); err != nil {
		return err
	}
	for key, value := range entries {
		var raw []byte
		raw, err = json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO kv_documents (namespace, doc_key, value) VALUES (?, ?, ?)`, t.namespace, key, string(raw)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
