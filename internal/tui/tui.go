// Package tui renders the scratchpad in a full-screen terminal view.
//
// The UI owns a local copy of the session value plus an insertion
// point; every buffer-changing keystroke commits the whole new value
// back to the session as one undoable step. All mutable state belongs
// to the Run goroutine, so there are no locks here: other goroutines
// reach the loop only through channels.
package tui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/jot/internal/app"
	"github.com/dshills/jot/internal/session"
)

// UI is the tcell presentation layer for a session.
type UI struct {
	screen tcell.Screen
	sess   *session.Session

	buf  buffer
	top  int // first visible line
	left int // first visible column

	flash        string
	flashAt      time.Time
	resetArmedAt time.Time

	textStyle   tcell.Style
	statusStyle tcell.Style

	done      chan struct{}
	closeOnce sync.Once

	// refresh wakes the loop after a session change; a single token is
	// enough since the handler re-reads the session.
	refresh chan struct{}
}

// New creates a UI bound to sess. The terminal screen is created when
// Run starts and released when it returns.
func New(sess *session.Session) *UI {
	return newUI(sess, nil)
}

// NewWithScreen creates a UI rendering to a caller-owned screen, which
// the caller must initialize before Run and finalize afterwards. Used
// with tcell's SimulationScreen in tests.
func NewWithScreen(sess *session.Session, screen tcell.Screen) *UI {
	return newUI(sess, screen)
}

func newUI(sess *session.Session, screen tcell.Screen) *UI {
	u := &UI{
		screen:      screen,
		sess:        sess,
		done:        make(chan struct{}),
		refresh:     make(chan struct{}, 1),
		textStyle:   tcell.StyleDefault,
		statusStyle: tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite),
	}
	u.buf.setText(sess.Value())
	u.buf.cursor = len(u.buf.text)

	sess.OnChange(func(session.ChangeEvent) {
		select {
		case u.refresh <- struct{}{}:
		default:
		}
	})
	return u
}

// Run enters the event loop and blocks until the user quits, Stop is
// called, or the screen is finalized. A user quit surfaces as
// app.ErrQuit; Stop returns nil.
func (u *UI) Run() error {
	select {
	case <-u.done:
		return nil
	default:
	}

	if u.screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := s.Init(); err != nil {
			return err
		}
		s.SetStyle(u.textStyle)
		s.Clear()
		u.screen = s
		defer u.screen.Fini()
	}

	events := make(chan tcell.Event, 16)
	go u.screen.ChannelEvents(events, u.done)

	u.syncFromSession()
	u.draw()

	for {
		select {
		case <-u.done:
			return nil
		case <-u.refresh:
			if u.syncFromSession() {
				u.draw()
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if u.handleKey(ev) {
					return app.ErrQuit
				}
				u.draw()
			case *tcell.EventResize:
				u.screen.Sync()
				u.draw()
			}
		}
	}
}

// Stop requests the event loop to exit. Safe to call at any time and
// more than once.
func (u *UI) Stop() {
	u.closeOnce.Do(func() { close(u.done) })
}

// syncFromSession adopts the session value when it no longer matches
// the buffer, as after an external reload. It reports whether the
// buffer changed.
func (u *UI) syncFromSession() bool {
	v := u.sess.Value()
	if v == u.buf.text {
		return false
	}
	u.buf.setText(v)
	return true
}

// adoptValue replaces the buffer with the session's value after an
// undo, redo, clear, or reset, keeping the cursor clamped.
func (u *UI) adoptValue() {
	u.buf.setText(u.sess.Value())
}

// commit pushes the whole buffer as one undoable step.
func (u *UI) commit() {
	u.sess.Commit(u.buf.text)
}

func (u *UI) setFlash(msg string) {
	u.flash = msg
	u.flashAt = time.Now()
}

// flashActive reports whether a flash message should still be shown.
func (u *UI) flashActive() bool {
	return u.flash != "" && time.Since(u.flashAt) <= flashTimeout
}

// resetArmed reports whether a hard reset was requested within the
// confirmation window.
func (u *UI) resetArmed() bool {
	return !u.resetArmedAt.IsZero() && time.Since(u.resetArmedAt) <= resetConfirmWindow
}
