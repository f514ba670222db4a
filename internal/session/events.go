package session

// ChangeKind identifies what moved the live value.
type ChangeKind int

const (
	// ChangeCommit is a new value committed by the user.
	ChangeCommit ChangeKind = iota
	// ChangeUndo is a value restored by undoing an action.
	ChangeUndo
	// ChangeRedo is a value restored by redoing an undone action.
	ChangeRedo
	// ChangeClear is the undoable clear of the content.
	ChangeClear
	// ChangeReset is the non-undoable hard reset.
	ChangeReset
	// ChangeReload is a reinitialization from the store.
	ChangeReload
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCommit:
		return "commit"
	case ChangeUndo:
		return "undo"
	case ChangeRedo:
		return "redo"
	case ChangeClear:
		return "clear"
	case ChangeReset:
		return "reset"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one completed state change.
type ChangeEvent struct {
	Kind     ChangeKind
	OldValue string
	NewValue string
	Summary  string
}

// Stats reports session counters and current depths.
type Stats struct {
	Commits     int
	Undos       int
	Redos       int
	Clears      int
	Resets      int
	Reloads     int
	StoreErrors int
	LogEntries  int
	UndoDepth   int
	RedoDepth   int
}
