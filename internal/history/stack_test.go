package history

import (
	"errors"
	"testing"
)

// testAction mutates a shared *string and counts its invocations.
type testAction struct {
	target   *string
	oldValue string
	newValue string
	execs    int
	undos    int
	execErr  error
	undoErr  error
}

func (a *testAction) Execute() error {
	if a.execErr != nil {
		return a.execErr
	}
	a.execs++
	*a.target = a.newValue
	return nil
}

func (a *testAction) Undo() error {
	if a.undoErr != nil {
		return a.undoErr
	}
	a.undos++
	*a.target = a.oldValue
	return nil
}

func (a *testAction) Description() string { return "set " + a.newValue }

func setAction(target *string, old, new string) *testAction {
	return &testAction{target: target, oldValue: old, newValue: new}
}

func TestStackPushExecutes(t *testing.T) {
	value := "a"
	st := New()

	act := setAction(&value, "a", "b")
	st.Push(act)

	if value != "b" {
		t.Errorf("value = %q, want %q", value, "b")
	}
	if act.execs != 1 {
		t.Errorf("execs = %d, want 1", act.execs)
	}
	if !st.CanUndo() {
		t.Error("should be able to undo")
	}
}

func TestStackRecordDoesNotExecute(t *testing.T) {
	value := "b" // caller already applied the edit
	st := New()

	act := setAction(&value, "a", "b")
	st.Record(act)

	if act.execs != 0 {
		t.Errorf("execs = %d, want 0", act.execs)
	}
	if value != "b" {
		t.Errorf("value = %q, want %q", value, "b")
	}
	if !st.CanUndo() {
		t.Error("should be able to undo")
	}
}

func TestStackUndoRedo(t *testing.T) {
	value := "a"
	st := New()

	st.Push(setAction(&value, "a", "b"))
	st.Undo()

	if value != "a" {
		t.Errorf("after undo value = %q, want %q", value, "a")
	}
	if st.CanUndo() {
		t.Error("nothing left to undo")
	}
	if !st.CanRedo() {
		t.Error("should be able to redo")
	}

	st.Redo()

	if value != "b" {
		t.Errorf("after redo value = %q, want %q", value, "b")
	}
	if !st.CanUndo() || st.CanRedo() {
		t.Error("redo should move entry back to the executed side")
	}
}

func TestStackUndoEmptyIsNoop(t *testing.T) {
	st := New()
	st.Undo() // must not panic or change state
	if st.CanUndo() || st.CanRedo() {
		t.Error("empty stack should stay empty")
	}
}

func TestStackRedoEmptyIsNoop(t *testing.T) {
	value := "a"
	st := New()
	st.Push(setAction(&value, "a", "b"))

	st.Redo() // nothing undone yet

	if value != "b" {
		t.Errorf("value = %q, want %q", value, "b")
	}
	if st.CanRedo() {
		t.Error("redo should not be available")
	}
}

func TestStackRedoClearedOnPush(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Undo()

	if !st.CanRedo() {
		t.Error("should be able to redo")
	}

	st.Push(setAction(&value, "", "b"))

	if st.CanRedo() {
		t.Error("redo should be cleared after new push")
	}
}

func TestStackRedoClearedOnRecord(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Undo()
	st.Record(setAction(&value, "", "b"))

	if st.CanRedo() {
		t.Error("redo should be cleared after record")
	}
}

func TestStackUndoOrderIsLIFO(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "ab"))
	st.Push(setAction(&value, "ab", "abc"))

	want := []string{"ab", "a", ""}
	for i, w := range want {
		st.Undo()
		if value != w {
			t.Errorf("undo %d: value = %q, want %q", i+1, value, w)
		}
	}

	st.Undo() // past the beginning
	if value != "" {
		t.Errorf("extra undo changed value to %q", value)
	}
}

func TestStackClear(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))
	st.Undo()
	st.Clear()

	if st.CanUndo() || st.CanRedo() {
		t.Error("clear should empty both sequences")
	}
	if value != "a" {
		t.Errorf("clear must not run procedures, value = %q", value)
	}
}

func TestStackCounts(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))
	st.Undo()

	if got := st.UndoCount(); got != 1 {
		t.Errorf("UndoCount() = %d, want 1", got)
	}
	if got := st.RedoCount(); got != 1 {
		t.Errorf("RedoCount() = %d, want 1", got)
	}
}

func TestStackPushExecuteFailure(t *testing.T) {
	value := "a"
	st := New()

	act := setAction(&value, "a", "b")
	act.execErr = errors.New("boom")
	st.Push(act)

	if st.CanUndo() {
		t.Error("failed push must not be recorded")
	}
	if value != "a" {
		t.Errorf("value = %q, want %q", value, "a")
	}
}

func TestStackUndoFailureRestoresEntry(t *testing.T) {
	value := "a"
	st := New()

	act := setAction(&value, "a", "b")
	st.Push(act)
	act.undoErr = errors.New("boom")

	st.Undo()

	if !st.CanUndo() {
		t.Error("entry should be restored after failed undo")
	}
	if st.CanRedo() {
		t.Error("failed undo must not populate the reversed side")
	}
	if value != "b" {
		t.Errorf("value = %q, want %q", value, "b")
	}
}

func TestStackRedoFailureRestoresEntry(t *testing.T) {
	value := "a"
	st := New()

	act := setAction(&value, "a", "b")
	st.Push(act)
	st.Undo()
	act.execErr = errors.New("boom")

	st.Redo()

	if !st.CanRedo() {
		t.Error("entry should be restored after failed redo")
	}
	if st.CanUndo() {
		t.Error("failed redo must not populate the executed side")
	}
}

func TestStackMaxEntries(t *testing.T) {
	value := ""
	st := New(WithMaxEntries(2))

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))
	st.Push(setAction(&value, "b", "c"))

	if got := st.UndoCount(); got != 2 {
		t.Errorf("UndoCount() = %d, want 2", got)
	}

	st.Undo()
	st.Undo()
	if value != "a" {
		t.Errorf("oldest entry should be evicted, value = %q, want %q", value, "a")
	}
}

func TestStackUnboundedByDefault(t *testing.T) {
	value := ""
	st := New()

	for i := 0; i < 5000; i++ {
		st.Record(setAction(&value, "", "x"))
	}
	if got := st.UndoCount(); got != 5000 {
		t.Errorf("UndoCount() = %d, want 5000", got)
	}
	if st.MaxEntries() != 0 {
		t.Errorf("MaxEntries() = %d, want 0", st.MaxEntries())
	}
}

func TestStackSetMaxEntriesShrinks(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))
	st.Push(setAction(&value, "b", "c"))
	st.SetMaxEntries(1)

	if got := st.UndoCount(); got != 1 {
		t.Errorf("UndoCount() = %d, want 1", got)
	}

	st.Undo()
	if value != "b" {
		t.Errorf("only the newest entry should survive, value = %q", value)
	}
}

func TestStackPeekUndo(t *testing.T) {
	value := ""
	st := New()

	if _, ok := st.PeekUndo(); ok {
		t.Error("peek on empty stack should report not ok")
	}

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))

	info, ok := st.PeekUndo()
	if !ok {
		t.Fatal("peek should report ok")
	}
	if info.Description != "set b" {
		t.Errorf("Description = %q, want %q", info.Description, "set b")
	}
	if info.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if got := st.UndoCount(); got != 2 {
		t.Error("peek must not remove the entry")
	}
}

func TestStackPeekRedo(t *testing.T) {
	value := ""
	st := New()

	if _, ok := st.PeekRedo(); ok {
		t.Error("peek on empty reversed side should report not ok")
	}

	st.Push(setAction(&value, "", "a"))
	st.Undo()

	info, ok := st.PeekRedo()
	if !ok {
		t.Fatal("peek should report ok")
	}
	if info.Description != "set a" {
		t.Errorf("Description = %q, want %q", info.Description, "set a")
	}
}

func TestStackInfoOrdering(t *testing.T) {
	value := ""
	st := New()

	st.Push(setAction(&value, "", "a"))
	st.Push(setAction(&value, "a", "b"))
	st.Push(setAction(&value, "b", "c"))
	st.Undo()
	st.Undo()

	undos := st.UndoInfo()
	if len(undos) != 1 || undos[0].Description != "set a" {
		t.Errorf("UndoInfo() = %+v, want single entry for a", undos)
	}

	redos := st.RedoInfo()
	if len(redos) != 2 {
		t.Fatalf("RedoInfo() len = %d, want 2", len(redos))
	}
	if redos[0].Description != "set b" || redos[1].Description != "set c" {
		t.Errorf("RedoInfo() order = %q, %q; want next-to-redo first",
			redos[0].Description, redos[1].Description)
	}
}

func TestFuncAction(t *testing.T) {
	value := ""
	st := New()

	st.Push(Func("set x", func() { value = "x" }, func() { value = "" }))

	if value != "x" {
		t.Errorf("value = %q, want %q", value, "x")
	}

	st.Undo()
	if value != "" {
		t.Errorf("value = %q, want empty", value)
	}

	info, _ := st.PeekRedo()
	if info.Description != "set x" {
		t.Errorf("Description = %q, want %q", info.Description, "set x")
	}
}

func TestFuncActionNilClosures(t *testing.T) {
	st := New()
	st.Push(Func("noop", nil, nil))
	st.Undo()
	st.Redo()

	if !st.CanUndo() {
		t.Error("noop action should still be recorded")
	}
}
