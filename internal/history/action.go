package history

// Action represents a reversible unit of work recorded by the stack.
type Action interface {
	// Execute performs the action and returns an error if it fails.
	Execute() error

	// Undo reverses the action and returns an error if it fails.
	Undo() error

	// Description returns a human-readable description of the action.
	Description() string
}

// funcAction adapts a pair of closures to the Action interface.
type funcAction struct {
	desc string
	do   func()
	undo func()
}

// Func returns an Action backed by a pair of closures. Both procedures
// are treated as total: they run and the action reports success. Nil
// closures are permitted and skipped.
func Func(desc string, do, undo func()) Action {
	return &funcAction{desc: desc, do: do, undo: undo}
}

func (a *funcAction) Execute() error {
	if a.do != nil {
		a.do()
	}
	return nil
}

func (a *funcAction) Undo() error {
	if a.undo != nil {
		a.undo()
	}
	return nil
}

func (a *funcAction) Description() string {
	return a.desc
}
