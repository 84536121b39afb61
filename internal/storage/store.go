package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidKey is returned for empty client IDs or keys
var ErrInvalidKey = errors.New("client id and key are required")

// Store persists small per-client preference values.
// Absent keys mean "unset"; there is no schema versioning.
type Store interface {
	GetItem(ctx context.Context, clientID, key string) (string, bool, error)
	SetItem(ctx context.Context, clientID, key, value string) error
	// GetAll returns every stored key for the client
	GetAll(ctx context.Context, clientID string) (map[string]string, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by stores that can drop every client's preferences
// at once. It returns the number of clients removed.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// MemoryStore is a process-local Store, used by default and in tests
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]map[string]string)}
}

func (m *MemoryStore) GetItem(ctx context.Context, clientID, key string) (string, bool, error) {
	if clientID == "" || key == "" {
		return "", false, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[clientID][key]
	return v, ok, nil
}

func (m *MemoryStore) SetItem(ctx context.Context, clientID, key, value string) error {
	if clientID == "" || key == "" {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[clientID] == nil {
		m.items[clientID] = make(map[string]string)
	}
	m.items[clientID][key] = value
	return nil
}

func (m *MemoryStore) GetAll(ctx context.Context, clientID string) (map[string]string, error) {
	if clientID == "" {
		return nil, ErrInvalidKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.items[clientID]))
	for k, v := range m.items[clientID] {
		out[k] = v
	}
	return out, nil
}

// Purge removes every client
func (m *MemoryStore) Purge(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.items)
	m.items = make(map[string]map[string]string)
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
