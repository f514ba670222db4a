// Package session manages a single reversible text value backed by a
// durable key-value store.
//
// The session owns the live value, the journal of committed snapshots,
// and a history stack reconstructed from that journal. Key concepts:
//
// # Commits
//
// Every user edit arrives as a whole new value. Commit updates the live
// value, appends the snapshot to the journal, persists both store keys,
// and records a manual-push action whose undo restores the prior value.
// Identical consecutive values are still recorded; the session never
// deduplicates.
//
// # Apply modes
//
// All live-value mutation funnels through one routine that takes an
// explicit mode: direct (mutate and sync persisted content, used when an
// undo or redo action fires) or record (the full commit path). An
// undo-applying mutation therefore cannot re-enter history recording;
// there is no reentrancy flag to get wrong.
//
// # Startup
//
// Initialize loads the persisted content and journal. A journal of N
// snapshots replays as N-1 already-applied edit actions, so the undo
// chain from a prior run is immediately available. An absent journal is
// seeded from the loaded content; an unreadable one falls back the same
// way. History may be lost to corruption, content never is.
//
// # Failure policy
//
// No session operation returns an error. Store failures are logged,
// counted in Stats, and absorbed; the in-memory state stays consistent
// and the user keeps editing.
package session
