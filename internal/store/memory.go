package store

import "sync"

// MemStore implements Store with an in-memory map.
// It is primarily used for testing but also backs throwaway sessions
// that should not touch disk.
//
// MemStore is safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

// Ensure MemStore implements Store.
var _ Store = (*MemStore)(nil)

// Get returns the value stored under key.
func (m *MemStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", &StoreError{Op: "get", Key: key, Err: ErrClosed}
	}
	v, ok := m.values[key]
	if !ok {
		return "", &StoreError{Op: "get", Key: key, Err: ErrNotFound}
	}
	return v, nil
}

// Set stores value under key.
func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &StoreError{Op: "set", Key: key, Err: ErrClosed}
	}
	m.values[key] = value
	return nil
}

// Remove deletes the value stored under key.
func (m *MemStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &StoreError{Op: "remove", Key: key, Err: ErrClosed}
	}
	delete(m.values, key)
	return nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Len returns the number of stored keys.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
