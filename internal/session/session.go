package session

import (
	"errors"
	"sync"

	dmp "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dshills/jot/internal/history"
	"github.com/dshills/jot/internal/journal"
	"github.com/dshills/jot/internal/store"
)

// Store keys used by the session.
const (
	// ContentKey holds the latest committed value.
	ContentKey = "content"
	// HistoryKey holds the journal blob of committed snapshots.
	HistoryKey = "history"
)

// DefaultPlaceholder is the value installed by HardReset.
const DefaultPlaceholder = "Enter text here..."

// Logger is the logging surface the session needs.
// *app.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// applyMode selects how a live-value mutation interacts with history.
type applyMode int

const (
	// applyDirect mutates the live value and syncs persisted content
	// without journaling or recording. Undo and redo actions use it.
	applyDirect applyMode = iota
	// applyRecord is the full commit path: mutate, journal, persist,
	// record a manual-push action.
	applyRecord
)

// Session manages one reversible text value.
//
// Session is safe for concurrent use; every operation runs to
// completion, and none of them return errors. Store failures degrade
// the durability, never the in-memory state.
type Session struct {
	mu sync.RWMutex

	value string
	log   []string

	stack  *history.Stack
	st     store.Store
	logger Logger
	differ *dmp.DiffMatchPatch

	placeholder  string
	historyLimit int
	lastSummary  string

	onChange []func(ChangeEvent)

	commits     int
	undos       int
	redos       int
	clears      int
	resets      int
	reloads     int
	storeErrors int
}

// New creates a session over the given store. Call Initialize before
// use.
func New(st store.Store, opts ...Option) *Session {
	s := &Session{
		st:          st,
		logger:      nopLogger{},
		differ:      dmp.New(),
		placeholder: DefaultPlaceholder,
	}
	for _, opt := range opts {
		opt(s)
	}

	var stackOpts []history.Option
	if s.historyLimit > 0 {
		stackOpts = append(stackOpts, history.WithMaxEntries(s.historyLimit))
	}
	s.stack = history.New(stackOpts...)

	return s
}

// Initialize loads persisted content and journal and reconstructs the
// undo chain. It never fails: missing keys are the first-run state and
// an unreadable journal falls back to a fresh single-entry one.
func (s *Session) Initialize() {
	s.load()
	s.logger.Debug("session initialized: %d chars, %d undo steps",
		len(s.Value()), s.stack.UndoCount())
}

// Reload reinitializes from the store, replacing the live value, the
// journal, and the undo chain. Used when the store changed underneath
// the process.
func (s *Session) Reload() {
	old := s.Value()
	s.load()
	now := s.Value()

	s.mu.Lock()
	s.reloads++
	s.lastSummary = s.summarize(old, now)
	s.mu.Unlock()

	s.notify(ChangeReload, old, now)
}

// load is the shared body of Initialize and Reload.
func (s *Session) load() {
	content := ""
	if v, err := s.st.Get(ContentKey); err == nil {
		content = v
	} else if !errors.Is(err, store.ErrNotFound) {
		s.storeWarn("load content", err)
	}

	entries := s.loadJournal(content)

	s.mu.Lock()
	s.value = content
	s.log = entries
	s.mu.Unlock()

	s.stack.Clear()
	for i := 1; i < len(entries); i++ {
		s.stack.Record(s.newEditAction(entries[i-1], entries[i]))
	}
}

// loadJournal returns the persisted journal entries, or a fresh
// single-entry journal seeded from content when the blob is absent,
// empty, or unreadable. The seeded journal is persisted so the stored
// state is well formed again.
func (s *Session) loadJournal(content string) []string {
	seed := func() []string {
		entries := []string{content}
		s.persistJournal(entries)
		return entries
	}

	blob, err := s.st.Get(HistoryKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.storeWarn("load journal", err)
		}
		return seed()
	}

	entries, err := journal.Decode(blob)
	if err != nil {
		s.logger.Warn("journal unreadable, keeping content only: %v", err)
		return seed()
	}
	if len(entries) == 0 {
		return seed()
	}
	return entries
}

// Value returns the current live value.
func (s *Session) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Commit records a new value supplied by the user. The prior value
// becomes the undo target. Equal old and new values are recorded all
// the same.
func (s *Session) Commit(newValue string) {
	old := s.apply(newValue, applyRecord)

	s.mu.Lock()
	s.commits++
	s.lastSummary = s.summarize(old, newValue)
	s.mu.Unlock()

	s.notify(ChangeCommit, old, newValue)
}

// apply is the single mutation path for the live value. It returns the
// value that was replaced.
func (s *Session) apply(value string, mode applyMode) string {
	s.mu.Lock()
	old := s.value
	s.value = value

	var entries []string
	if mode == applyRecord {
		s.log = append(s.log, value)
		entries = make([]string, len(s.log))
		copy(entries, s.log)
	}
	s.mu.Unlock()

	if mode == applyRecord {
		s.persistJournal(entries)
	}
	s.persistContent(value)

	if mode == applyRecord {
		s.stack.Record(s.newEditAction(old, value))
	}
	return old
}

// Undo reverses the most recent action, if any, and syncs persisted
// content. The journal is not rewritten; it records committed values
// only.
func (s *Session) Undo() {
	if !s.stack.CanUndo() {
		return
	}

	old := s.Value()
	s.stack.Undo()
	now := s.Value()

	s.mu.Lock()
	s.undos++
	s.lastSummary = s.summarize(old, now)
	s.mu.Unlock()

	s.notify(ChangeUndo, old, now)
}

// Redo re-applies the most recently undone action, if any.
func (s *Session) Redo() {
	if !s.stack.CanRedo() {
		return
	}

	old := s.Value()
	s.stack.Redo()
	now := s.Value()

	s.mu.Lock()
	s.redos++
	s.lastSummary = s.summarize(old, now)
	s.mu.Unlock()

	s.notify(ChangeRedo, old, now)
}

// CanUndo reports whether an undo step is available.
func (s *Session) CanUndo() bool {
	return s.stack.CanUndo()
}

// CanRedo reports whether a redo step is available.
func (s *Session) CanRedo() bool {
	return s.stack.CanRedo()
}

// ClearContent empties the value and the journal, discards the undo
// chain, and records the clear itself as the single undoable step.
// Undoing it brings the prior value back.
func (s *Session) ClearContent() {
	s.mu.Lock()
	prev := s.value
	s.mu.Unlock()

	s.stack.Clear()
	s.stack.Push(s.newClearAction(prev))

	s.mu.Lock()
	s.clears++
	s.lastSummary = s.summarize(prev, "")
	s.mu.Unlock()

	s.notify(ChangeClear, prev, "")
}

// HardReset wipes both persisted keys, installs the placeholder value,
// and discards all history. It is not undoable; nothing is written back
// until the next commit.
func (s *Session) HardReset() {
	s.mu.Lock()
	prev := s.value
	placeholder := s.placeholder
	s.mu.Unlock()

	s.removeKey(ContentKey)
	s.removeKey(HistoryKey)

	s.mu.Lock()
	s.value = placeholder
	s.log = []string{placeholder}
	s.resets++
	s.lastSummary = s.summarize(prev, placeholder)
	s.mu.Unlock()

	s.stack.Clear()

	s.notify(ChangeReset, prev, placeholder)
}

// LastChange returns a compact summary of the most recent state change,
// empty before any change.
func (s *Session) LastChange() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSummary
}

// UndoDescription returns the description of the next undo step.
func (s *Session) UndoDescription() (string, bool) {
	info, ok := s.stack.PeekUndo()
	if !ok {
		return "", false
	}
	return info.Description, true
}

// RedoDescription returns the description of the next redo step.
func (s *Session) RedoDescription() (string, bool) {
	info, ok := s.stack.PeekRedo()
	if !ok {
		return "", false
	}
	return info.Description, true
}

// OnChange registers a handler invoked after every completed state
// change. Handlers run on the mutating goroutine and must not block.
func (s *Session) OnChange(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Stats returns current counters and depths.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	st := Stats{
		Commits:     s.commits,
		Undos:       s.undos,
		Redos:       s.redos,
		Clears:      s.clears,
		Resets:      s.resets,
		Reloads:     s.reloads,
		StoreErrors: s.storeErrors,
		LogEntries:  len(s.log),
	}
	s.mu.RUnlock()

	st.UndoDepth = s.stack.UndoCount()
	st.RedoDepth = s.stack.RedoCount()
	return st
}

// notify dispatches a change event to registered handlers.
// Handlers are copied under lock before invocation.
func (s *Session) notify(kind ChangeKind, oldValue, newValue string) {
	s.mu.RLock()
	handlers := make([]func(ChangeEvent), len(s.onChange))
	copy(handlers, s.onChange)
	summary := s.lastSummary
	s.mu.RUnlock()

	ev := ChangeEvent{
		Kind:     kind,
		OldValue: oldValue,
		NewValue: newValue,
		Summary:  summary,
	}
	for _, h := range handlers {
		h(ev)
	}
}

// persistContent writes the content key, absorbing failures.
func (s *Session) persistContent(value string) {
	if err := s.st.Set(ContentKey, value); err != nil {
		s.storeWarn("persist content", err)
	}
}

// persistJournal writes the journal blob, absorbing failures.
func (s *Session) persistJournal(entries []string) {
	if err := s.st.Set(HistoryKey, journal.Encode(entries)); err != nil {
		s.storeWarn("persist journal", err)
	}
}

// removeKey deletes a store key, absorbing failures.
func (s *Session) removeKey(key string) {
	if err := s.st.Remove(key); err != nil {
		s.storeWarn("remove "+key, err)
	}
}

// storeWarn logs and counts an absorbed store failure.
func (s *Session) storeWarn(op string, err error) {
	s.mu.Lock()
	s.storeErrors++
	s.mu.Unlock()
	s.logger.Warn("%s: %v", op, err)
}
