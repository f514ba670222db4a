// Package watcher detects external changes to the store file.
//
// The watcher monitors the directory containing the store file and reports
// events that touch the file itself (or a registered sibling such as a
// SQLite WAL file). Rapid bursts of events are coalesced with a debounce
// window so an atomic save (write temp file, rename over target) surfaces
// as a single event. Consumers receive events on the Events channel and
// typically respond by reloading the session from the store.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrClosed         = errors.New("watcher is closed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns a human-readable representation of the operation.
// Coalesced events may carry several bits; they are joined with "|".
func (op Op) String() string {
	if op == 0 {
		return "NONE"
	}
	s := ""
	for _, n := range opNames {
		if op.Has(n.op) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a change to the watched file.
type Event struct {
	// Path is the absolute path of the file that changed.
	Path string

	// Op is the operation (possibly coalesced) that occurred.
	Op Op

	// Timestamp is when the most recent underlying event occurred.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// Target is the absolute path of the watched file.
	Target string

	// Pending is the number of events waiting to be delivered, including
	// an event held open by the debounce window.
	Pending int

	// TotalEvents is the number of events delivered.
	TotalEvents int64

	// Coalesced is the number of raw events merged into a pending event.
	Coalesced int64

	// Errors is the number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window for rapid events.
// Values <= 0 keep the default of 100ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBufferSize sets the event and error channel capacity.
func WithBufferSize(size int) Option {
	return func(w *Watcher) {
		if size > 0 {
			w.bufSize = size
		}
	}
}

// WithSiblings registers additional file names (relative to the target's
// directory) whose changes also count as changes to the target. Used for
// SQLite's -wal companion file.
func WithSiblings(names ...string) Option {
	return func(w *Watcher) {
		w.siblings = append(w.siblings, names...)
	}
}

// Watcher monitors a single file for external modification.
//
// It watches the parent directory rather than the file itself so that
// atomic saves (which replace the inode) do not silently drop the watch.
type Watcher struct {
	target   string
	dir      string
	accept   map[string]bool
	siblings []string
	debounce time.Duration
	bufSize  int

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending *pendingEvent
	started bool
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup

	events chan Event
	errors chan error

	startTime   time.Time
	totalEvents int64
	coalesced   int64
	totalErrors int64
	lastError   error
}

// pendingEvent holds an event open during the debounce window.
type pendingEvent struct {
	event Event
	timer *time.Timer
	ops   Op
}

// New creates a watcher for the given file path. The file does not need to
// exist yet; its parent directory is created on Start if missing.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		target:   abs,
		dir:      filepath.Dir(abs),
		debounce: 100 * time.Millisecond,
		bufSize:  16,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.accept = map[string]bool{filepath.Base(abs): true}
	for _, name := range w.siblings {
		w.accept[name] = true
	}
	w.events = make(chan Event, w.bufSize)
	w.errors = make(chan error, w.bufSize)
	w.closeCh = make(chan struct{})

	return w, nil
}

// Target returns the absolute path of the watched file.
func (w *Watcher) Target() string {
	return w.target
}

// Start begins watching. Returns ErrAlreadyStarted on a second call and
// ErrClosed after Stop.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.started {
		return ErrAlreadyStarted
	}

	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	w.fsw = fsw
	w.started = true
	w.startTime = time.Now()

	w.wg.Add(1)
	go w.processLoop()

	return nil
}

// Events returns the channel of coalesced file change events.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and closes both channels. Safe to call more than
// once and safe to call on a watcher that was never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)

	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
	started := w.started
	w.mu.Unlock()

	var err error
	if started {
		w.wg.Wait()
		err = w.fsw.Close()
	}

	// The channels close under the lock so a timer-goroutine fire that
	// already passed the closed check cannot send into them afterwards.
	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()
	return err
}

// Running returns true between Start and Stop.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started && !w.closed
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	pending := len(w.events)
	if w.pending != nil {
		pending++
	}
	lastErr := w.lastError
	start := w.startTime
	w.mu.Unlock()

	return Stats{
		Target:      w.target,
		Pending:     pending,
		TotalEvents: atomic.LoadInt64(&w.totalEvents),
		Coalesced:   atomic.LoadInt64(&w.coalesced),
		Errors:      atomic.LoadInt64(&w.totalErrors),
		LastError:   lastErr,
		StartTime:   start,
	}
}

// Flush immediately fires any event held open by the debounce window.
func (w *Watcher) Flush() {
	w.fire()
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

// handleFSEvent filters and debounces a raw fsnotify event.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	if !w.accept[filepath.Base(fsEvent.Name)] {
		return
	}

	event := Event{
		Path:      filepath.Clean(fsEvent.Name),
		Op:        op,
		Timestamp: time.Now(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if p := w.pending; p != nil {
		p.ops |= op
		p.event.Op = p.ops
		p.event.Path = event.Path
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(w.debounce)
		atomic.AddInt64(&w.coalesced, 1)
		return
	}

	p := &pendingEvent{event: event, ops: op}
	p.timer = time.AfterFunc(w.debounce, w.fire)
	w.pending = p
}

// fire delivers the pending event, if any. It runs on the debounce
// timer's goroutine, so the non-blocking send happens under the lock to
// serialize with the channel close in Stop.
func (w *Watcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.pending
	w.pending = nil
	if p == nil {
		return
	}
	p.timer.Stop()
	if w.closed {
		return
	}

	select {
	case w.events <- p.event:
		atomic.AddInt64(&w.totalEvents, 1)
	default:
		atomic.AddInt64(&w.totalErrors, 1)
		w.lastError = errors.New("event channel full, dropping event")
	}
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// sendError sends an error to the output channel.
func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	case <-w.closeCh:
	default:
	}
}

// recordError records an error in stats.
func (w *Watcher) recordError(err error) {
	atomic.AddInt64(&w.totalErrors, 1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
}
