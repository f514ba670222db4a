package tui

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

const statusBarHeight = 1

// draw repaints the scratchpad and the status bar.
func (u *UI) draw() {
	width, height := u.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}
	viewHeight := height - statusBarHeight
	u.scrollIntoView(width, viewHeight)

	lines := strings.Split(u.buf.text, "\n")
	for screenY := 0; screenY < viewHeight; screenY++ {
		for x := 0; x < width; x++ {
			u.screen.SetContent(x, screenY, ' ', nil, u.textStyle)
		}
		idx := u.top + screenY
		if idx < 0 || idx >= len(lines) {
			continue
		}
		u.drawLine(lines[idx], screenY, width)
	}

	u.drawStatus(width, height-1)
	u.drawCursor(width, viewHeight)
	u.screen.Show()
}

// scrollIntoView adjusts the viewport so the cursor cell is visible.
func (u *UI) scrollIntoView(width, viewHeight int) {
	if width <= 0 || viewHeight <= 0 {
		return
	}
	line, col := u.buf.position()

	if line < u.top {
		u.top = line
	}
	if line >= u.top+viewHeight {
		u.top = line - viewHeight + 1
	}
	if col < u.left {
		u.left = col
	}
	if col >= u.left+width {
		u.left = col - width + 1
	}
}

// drawLine renders one buffer line at screenY, offset by the horizontal
// scroll. Clusters that start left of the viewport are skipped; wide
// clusters fill their extra cells with spaces so stale content never
// shows through.
func (u *UI) drawLine(line string, screenY, width int) {
	x := 0
	gr := uniseg.NewGraphemes(line)
	for gr.Next() {
		cw := clusterWidth(gr)
		if x+cw > u.left+width {
			break
		}
		if x >= u.left {
			screenX := x - u.left
			runes := gr.Runes()
			if runes[0] == '\t' {
				for i := 0; i < cw && screenX+i < width; i++ {
					u.screen.SetContent(screenX+i, screenY, ' ', nil, u.textStyle)
				}
			} else {
				u.screen.SetContent(screenX, screenY, runes[0], runes[1:], u.textStyle)
				for i := 1; i < cw && screenX+i < width; i++ {
					u.screen.SetContent(screenX+i, screenY, ' ', nil, u.textStyle)
				}
			}
		}
		x += cw
	}
}

// drawStatus renders the bottom bar: name, size, undo/redo
// availability, and the latest change summary or flash message. The
// availability flags are read fresh from the session on every draw.
func (u *UI) drawStatus(width, y int) {
	change := u.sess.LastChange()
	if u.flashActive() {
		change = u.flash
	}
	text := statusLine(graphemeCount(u.buf.text), u.sess.CanUndo(), u.sess.CanRedo(), change)

	for x := 0; x < width; x++ {
		u.screen.SetContent(x, y, ' ', nil, u.statusStyle)
	}
	x := 0
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		cw := clusterWidth(gr)
		if x+cw > width {
			break
		}
		runes := gr.Runes()
		u.screen.SetContent(x, y, runes[0], runes[1:], u.statusStyle)
		x += cw
	}
}

// drawCursor positions the terminal cursor, hiding it when scrolled
// out of view.
func (u *UI) drawCursor(width, viewHeight int) {
	line, col := u.buf.position()
	x := col - u.left
	y := line - u.top
	if x < 0 || x >= width || y < 0 || y >= viewHeight {
		u.screen.HideCursor()
		return
	}
	u.screen.ShowCursor(x, y)
}

// statusLine builds the status bar text.
func statusLine(chars int, canUndo, canRedo bool, change string) string {
	s := fmt.Sprintf("jot · %d chars · undo:%s redo:%s", chars, yesNo(canUndo), yesNo(canRedo))
	if change != "" {
		s += " · " + change
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
