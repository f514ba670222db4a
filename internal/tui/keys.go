package tui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
)

const (
	// resetConfirmWindow is how long a hard reset stays armed waiting
	// for the confirming second press.
	resetConfirmWindow = 2 * time.Second

	// flashTimeout is how long a status flash stays visible.
	flashTimeout = 4 * time.Second
)

// handleKey processes one key event. It returns true if the event
// signals the loop should quit. Every handled combination consumes the
// event; nothing falls through to text insertion.
func (u *UI) handleKey(ev *tcell.EventKey) bool {
	armed := u.resetArmed()
	u.resetArmedAt = time.Time{}
	u.flash = ""

	switch {
	case matchCtrl(ev, tcell.KeyCtrlQ, 'q'), ev.Key() == tcell.KeyEsc:
		return true

	case matchCtrl(ev, tcell.KeyCtrlZ, 'z'):
		// Terminals that report Shift turn Ctrl+Shift+Z into redo.
		if ev.Modifiers()&tcell.ModShift != 0 {
			u.sess.Redo()
		} else {
			u.sess.Undo()
		}
		u.adoptValue()

	case matchCtrl(ev, tcell.KeyCtrlY, 'y'):
		u.sess.Redo()
		u.adoptValue()

	case matchCtrl(ev, tcell.KeyCtrlL, 'l'):
		u.sess.ClearContent()
		u.adoptValue()

	case matchCtrl(ev, tcell.KeyCtrlN, 'n'):
		if armed {
			u.sess.HardReset()
			u.adoptValue()
			u.setFlash("reset")
		} else {
			u.resetArmedAt = time.Now()
			u.setFlash("press Ctrl+N again to reset everything")
		}

	case matchCtrl(ev, tcell.KeyCtrlC, 'c'):
		if err := clipboard.WriteAll(u.buf.text); err != nil {
			u.setFlash("clipboard: " + err.Error())
		} else {
			u.setFlash("copied")
		}

	case matchCtrl(ev, tcell.KeyCtrlV, 'v'):
		u.paste()

	case ev.Key() == tcell.KeyLeft:
		u.buf.left()
	case ev.Key() == tcell.KeyRight:
		u.buf.right()
	case ev.Key() == tcell.KeyUp:
		u.buf.moveVertical(-1)
	case ev.Key() == tcell.KeyDown:
		u.buf.moveVertical(1)
	case ev.Key() == tcell.KeyHome:
		u.buf.home()
	case ev.Key() == tcell.KeyEnd:
		u.buf.end()

	case ev.Key() == tcell.KeyBackspace, ev.Key() == tcell.KeyBackspace2:
		if u.buf.backspace() {
			u.commit()
		}
	case ev.Key() == tcell.KeyDelete:
		if u.buf.deleteForward() {
			u.commit()
		}
	case ev.Key() == tcell.KeyEnter:
		u.buf.insert("\n")
		u.commit()
	case ev.Key() == tcell.KeyTab:
		u.buf.insert("\t")
		u.commit()

	case ev.Key() == tcell.KeyRune && ev.Modifiers()&^tcell.ModShift == 0:
		u.buf.insert(string(ev.Rune()))
		u.commit()
	}

	return false
}

// matchCtrl reports whether ev is the given control key, accepting both
// tcell's dedicated constant and the rune+ModCtrl form terminals vary
// between.
func matchCtrl(ev *tcell.EventKey, key tcell.Key, r rune) bool {
	if ev.Key() == key {
		return true
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == r && ev.Modifiers()&tcell.ModCtrl != 0
}

// paste inserts the system clipboard at the cursor as one step.
func (u *UI) paste() {
	s, err := clipboard.ReadAll()
	if err != nil {
		u.setFlash("clipboard: " + err.Error())
		return
	}
	if s == "" {
		return
	}
	u.buf.insert(strings.ReplaceAll(s, "\r\n", "\n"))
	u.commit()
}
