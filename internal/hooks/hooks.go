// Package hooks hosts an optional user Lua script that observes session
// events.
//
// A script defines plain global functions and the host calls whichever ones
// exist:
//
//	function on_commit(old, new) ... end
//	function on_undo(value) ... end
//	function on_redo(value) ... end
//	function on_clear() ... end
//	function on_reset() ... end
//
// The script also gets a small jot module: jot.log(msg) writes through the
// application logger. Hook failures never propagate to the session; they
// are logged and counted.
package hooks

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Hook function names looked up in the script's globals.
const (
	fnCommit = "on_commit"
	fnUndo   = "on_undo"
	fnRedo   = "on_redo"
	fnClear  = "on_clear"
	fnReset  = "on_reset"
)

// Logger receives hook diagnostics and jot.log output.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger for hook diagnostics and jot.log.
func WithLogger(l Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// Stats reports hook host counters.
type Stats struct {
	// Script is the path of the loaded script.
	Script string

	// Calls is the number of hook functions invoked.
	Calls int64

	// Failures is the number of hook invocations that errored.
	Failures int64
}

// Host owns a single Lua state running one user script.
//
// gopher-lua states are not goroutine-safe; the mutex serializes all
// access, so hooks from different goroutines run one at a time.
type Host struct {
	mu     sync.Mutex
	vm     *lua.LState
	script string
	logger Logger
	closed bool

	calls    int64
	failures int64
}

// Load creates a sandboxed Lua state, installs the jot module, and runs
// the script at path. A script that fails to parse or errors at load time
// returns a non-nil error and no Host.
func Load(path string, opts ...Option) (*Host, error) {
	h := &Host{script: path}
	for _, opt := range opts {
		opt(h)
	}

	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(vm)
	h.vm = vm
	h.installModule()

	if err := h.runFile(path); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load hook script %s: %w", path, err)
	}

	return h, nil
}

// openSafeLibraries opens only Lua libraries with no filesystem or
// process reach. io, os, debug, and package stay closed.
func openSafeLibraries(vm *lua.LState) {
	lua.OpenBase(vm)
	lua.OpenTable(vm)
	lua.OpenString(vm)
	lua.OpenMath(vm)
}

// installModule registers the jot table the script can call into.
func (h *Host) installModule() {
	mod := h.vm.SetFuncs(h.vm.NewTable(), map[string]lua.LGFunction{
		"log": func(vm *lua.LState) int {
			msg := vm.CheckString(1)
			if h.logger != nil {
				h.logger.Info("hook: %s", msg)
			}
			return 0
		},
	})
	h.vm.SetGlobal("jot", mod)
}

// runFile executes the script with panic recovery.
func (h *Host) runFile(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return h.vm.DoFile(path)
}

// Script returns the path of the loaded script.
func (h *Host) Script() string {
	return h.script
}

// OnCommit notifies the script of a committed edit.
func (h *Host) OnCommit(oldValue, newValue string) {
	h.call(fnCommit, lua.LString(oldValue), lua.LString(newValue))
}

// OnUndo notifies the script of a restored value after undo.
func (h *Host) OnUndo(value string) {
	h.call(fnUndo, lua.LString(value))
}

// OnRedo notifies the script of a restored value after redo.
func (h *Host) OnRedo(value string) {
	h.call(fnRedo, lua.LString(value))
}

// OnClear notifies the script of an undoable clear.
func (h *Host) OnClear() {
	h.call(fnClear)
}

// OnReset notifies the script of a hard reset.
func (h *Host) OnReset() {
	h.call(fnReset)
}

// call invokes a global hook function if the script defines one.
// Missing functions are silent no-ops; errors and panics are absorbed.
func (h *Host) call(fn string, args ...lua.LValue) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	fnVal := h.vm.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return
	}

	h.calls++

	h.vm.Push(fnVal)
	for _, arg := range args {
		h.vm.Push(arg)
	}

	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = h.vm.PCall(len(args), 0, nil)
	}()

	if callErr != nil {
		h.failures++
		if h.logger != nil {
			h.logger.Warn("hook %s failed: %v", fn, callErr)
		}
	}
}

// Stats returns hook host counters.
func (h *Host) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Script: h.script, Calls: h.calls, Failures: h.failures}
}

// IsClosed returns true after Close.
func (h *Host) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close releases the Lua state. Safe to call more than once.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.vm.Close()
	h.closed = true
	return nil
}
