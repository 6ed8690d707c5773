package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Table is a whole-document key-value store. Load returns every entry and Save
// replaces them all. Callers are the single writer of a table.
type Table[V any] interface {
	Load(ctx context.Context) (map[string]V, error)
	Save(ctx context.Context, entries map[string]V) error
}

// JSONTable keeps a table in one pretty-printed JSON file.
type JSONTable[V any] struct {
	path string
	mu   sync.Mutex
}

func NewJSONTable[V any](path string) *JSONTable[V] {
	return &JSONTable[V]{path: path}
}

func (t *JSONTable[V]) Path() string { return t.path }

// Load returns an empty map when the file does not exist yet.
func (t *JSONTable[V]) Load(_ context.Context) (map[string]V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]V{}, nil
		}
		return nil, err
	}
	entries := map[string]V{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.path, err)
	}
	return entries, nil
}

func (t *JSONTable[V]) Save(_ context.Context, entries map[string]V) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entries == nil {
		entries = map[string]V{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(t.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(t.path, data, 0o644)
}
