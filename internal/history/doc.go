// Package history provides a generic two-sided undo/redo stack.
//
// The stack records reversible actions and keeps them in two sequences:
// executed (done, most recent last) and reversed (undone, next to redo
// last). Key concepts:
//
// # Actions
//
// Actions implement the Action interface with Execute, Undo, and
// Description methods. The stack knows nothing about what an action
// mutates; an action must capture every value it needs at creation time
// and own it outright, so later mutation of shared state cannot corrupt
// recorded history. The Func adapter wraps a pair of closures for small
// cases.
//
// # Push vs Record
//
// Push executes the action's forward procedure and then records it.
// Record registers an action the caller has already applied, without
// re-executing it. A text view already reflects a new value through its
// own input event by the time the stack is informed, so re-running the
// forward procedure would apply the edit twice. Both forms discard the
// reversed sequence: redo lineage is valid only until the next new edit.
//
// # Undo and Redo
//
// Undo and Redo are total. With nothing to undo or redo they do nothing;
// the only observable success signal is the availability flags and the
// side effect of the action itself:
//
//	st := history.New()
//	st.Push(action)
//	st.Undo()
//	if st.CanRedo() {
//		st.Redo()
//	}
//
// If an action's procedure fails mid-flight the entry is put back where
// it came from, leaving the stack exactly as it was.
package history
