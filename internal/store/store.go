package store

import (
	"errors"
	"fmt"
)

// Common errors for store operations.
var (
	// ErrNotFound indicates the key has no stored value.
	ErrNotFound = errors.New("key not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")
)

// Store is a durable key-value string store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes the value stored under key. Removing a missing
	// key is not an error.
	Remove(key string) error

	// Close releases the store. Operations after Close fail with
	// ErrClosed.
	Close() error
}

// StoreError represents an error from a store operation.
type StoreError struct {
	Op  string // operation name ("get", "set", "remove")
	Key string // key being accessed
	Err error  // underlying error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
