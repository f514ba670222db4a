package history

import (
	"sync"
	"time"
)

// entry wraps an action with metadata.
type entry struct {
	action    Action
	timestamp time.Time
}

// OperationInfo describes a recorded action for inspection.
type OperationInfo struct {
	Description string
	Timestamp   time.Time
}

// Stack manages undo/redo state for a sequence of reversible actions.
//
// Actions live in exactly one of two sequences: executed (undo pops from
// here) or reversed (redo pops from here). Recording a new action always
// discards the reversed sequence. The zero max-entries setting means the
// executed sequence grows without bound.
type Stack struct {
	mu sync.Mutex

	executed []*entry
	reversed []*entry

	maxEntries int
}

// New creates an empty stack. With no options the stack is unbounded.
func New(opts ...Option) *Stack {
	s := &Stack{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push executes the action and records it on the executed sequence.
// If the action's Execute fails, nothing is recorded and the stack is
// unchanged. Recording discards the reversed sequence.
func (s *Stack) Push(a Action) {
	if err := a.Execute(); err != nil {
		return
	}
	s.Record(a)
}

// Record registers an action the caller has already applied, without
// invoking its Execute. Recording discards the reversed sequence.
func (s *Stack) Record(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executed = append(s.executed, &entry{
		action:    a,
		timestamp: time.Now(),
	})
	s.reversed = nil

	if s.maxEntries > 0 && len(s.executed) > s.maxEntries {
		excess := len(s.executed) - s.maxEntries
		s.executed = s.executed[excess:]
	}
}

// Undo reverses the most recently executed action and moves it to the
// reversed sequence. With nothing to undo it does nothing.
// The lock is released while the action runs so an action may call back
// into availability queries.
func (s *Stack) Undo() {
	s.mu.Lock()
	if len(s.executed) == 0 {
		s.mu.Unlock()
		return
	}

	e := s.executed[len(s.executed)-1]
	s.executed = s.executed[:len(s.executed)-1]
	s.mu.Unlock()

	if err := e.action.Undo(); err != nil {
		// Restore entry on failure
		s.mu.Lock()
		s.executed = append(s.executed, e)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.reversed = append(s.reversed, e)
	s.mu.Unlock()
}

// Redo re-executes the most recently undone action and moves it back to
// the executed sequence. With nothing to redo it does nothing.
func (s *Stack) Redo() {
	s.mu.Lock()
	if len(s.reversed) == 0 {
		s.mu.Unlock()
		return
	}

	e := s.reversed[len(s.reversed)-1]
	s.reversed = s.reversed[:len(s.reversed)-1]
	s.mu.Unlock()

	if err := e.action.Execute(); err != nil {
		// Restore entry on failure
		s.mu.Lock()
		s.reversed = append(s.reversed, e)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.executed = append(s.executed, e)
	s.mu.Unlock()
}

// Clear removes all recorded actions from both sequences without
// invoking any of their procedures.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.executed = nil
	s.reversed = nil
}

// CanUndo returns true if at least one action can be undone.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executed) > 0
}

// CanRedo returns true if at least one action can be redone.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reversed) > 0
}

// UndoCount returns the number of undo steps available.
func (s *Stack) UndoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executed)
}

// RedoCount returns the number of redo steps available.
func (s *Stack) RedoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reversed)
}

// PeekUndo returns info about the next undo step without removing it.
func (s *Stack) PeekUndo() (OperationInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.executed) == 0 {
		return OperationInfo{}, false
	}

	e := s.executed[len(s.executed)-1]
	return OperationInfo{
		Description: e.action.Description(),
		Timestamp:   e.timestamp,
	}, true
}

// PeekRedo returns info about the next redo step without removing it.
func (s *Stack) PeekRedo() (OperationInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reversed) == 0 {
		return OperationInfo{}, false
	}

	e := s.reversed[len(s.reversed)-1]
	return OperationInfo{
		Description: e.action.Description(),
		Timestamp:   e.timestamp,
	}, true
}

// UndoInfo returns info about every available undo step, oldest first.
func (s *Stack) UndoInfo() []OperationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]OperationInfo, len(s.executed))
	for i, e := range s.executed {
		result[i] = OperationInfo{
			Description: e.action.Description(),
			Timestamp:   e.timestamp,
		}
	}
	return result
}

// RedoInfo returns info about every available redo step, next first.
func (s *Stack) RedoInfo() []OperationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]OperationInfo, len(s.reversed))
	for i := range s.reversed {
		e := s.reversed[len(s.reversed)-1-i]
		result[i] = OperationInfo{
			Description: e.action.Description(),
			Timestamp:   e.timestamp,
		}
	}
	return result
}

// SetMaxEntries changes the cap on the executed sequence. Zero or a
// negative value removes the cap. If the current sequence exceeds the
// new cap, oldest entries are evicted.
func (s *Stack) SetMaxEntries(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max < 0 {
		max = 0
	}
	s.maxEntries = max

	if max > 0 && len(s.executed) > max {
		excess := len(s.executed) - max
		s.executed = s.executed[excess:]
	}
}

// MaxEntries returns the current cap, zero meaning unbounded.
func (s *Stack) MaxEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxEntries
}
