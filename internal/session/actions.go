package session

// editAction captures one committed value transition. Both snapshots
// are owned by the action, so later mutation elsewhere cannot corrupt
// recorded history.
type editAction struct {
	session  *Session
	oldValue string
	newValue string
	desc     string
}

func (s *Session) newEditAction(oldValue, newValue string) *editAction {
	return &editAction{
		session:  s,
		oldValue: oldValue,
		newValue: newValue,
		desc:     "edit (" + s.summarize(oldValue, newValue) + ")",
	}
}

// Execute re-applies the edit (used for redo).
func (a *editAction) Execute() error {
	a.session.apply(a.newValue, applyDirect)
	return nil
}

// Undo restores the value the edit replaced.
func (a *editAction) Undo() error {
	a.session.apply(a.oldValue, applyDirect)
	return nil
}

func (a *editAction) Description() string {
	return a.desc
}

// clearAction records an undoable clear of the content.
type clearAction struct {
	session  *Session
	oldValue string
}

func (s *Session) newClearAction(oldValue string) *clearAction {
	return &clearAction{session: s, oldValue: oldValue}
}

// Execute empties the value and resets the journal to one empty
// snapshot.
func (a *clearAction) Execute() error {
	a.session.applyClear()
	return nil
}

// Undo brings the cleared value back and re-appends it to the journal.
func (a *clearAction) Undo() error {
	a.session.restoreCleared(a.oldValue)
	return nil
}

func (a *clearAction) Description() string {
	return "clear"
}

// applyClear is the forward procedure of a clear action.
func (s *Session) applyClear() {
	s.mu.Lock()
	s.value = ""
	s.log = []string{""}
	s.mu.Unlock()

	s.persistJournal([]string{""})
	s.persistContent("")
}

// restoreCleared is the backward procedure of a clear action.
func (s *Session) restoreCleared(value string) {
	s.mu.Lock()
	s.value = value
	s.log = append(s.log, value)
	entries := make([]string, len(s.log))
	copy(entries, s.log)
	s.mu.Unlock()

	s.persistJournal(entries)
	s.persistContent(value)
}
