// Package persistence provides the durable backends behind the in-memory
// engine state: a key-value namespace shared with other back-office surfaces
// and an order archive.
package persistence

import (
	"context"
	"sync"

	"github.com/modulhaus/backoffice/errs"
)

// MemoryKV is an in-process key-value store used in tests and single-node
// deployments without Postgres.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV creates an empty key-value store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

// Get returns the value stored under key, or errs.CodeNotFound.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, errs.New("persistence/memory", errs.CodeNotFound,
			errs.WithMessage("key not found: "+key))
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errs.New("persistence/memory", errs.CodeInvalid, errs.WithMessage("key required"))
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.values[key] = stored
	m.mu.Unlock()
	return nil
}
