// Package store provides the durable key-value string store the session
// persists into.
//
// The Store interface allows swapping the underlying persistence
// implementation, enabling testing with an in-memory store and a choice
// of durable backends:
//
//   - MemStore: map-backed, for tests and throwaway sessions
//   - FileStore: a single JSON document written atomically
//   - SQLiteStore: a one-table SQLite database in WAL mode
//
// All backends share the same contract: Get on a missing key returns
// ErrNotFound, Remove of a missing key succeeds, and every operation
// after Close returns ErrClosed. Absence is a legitimate state, not a
// failure; first runs always begin with missing keys.
package store
