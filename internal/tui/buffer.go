package tui

import (
	"strings"

	"github.com/rivo/uniseg"
)

// tabWidth is the fixed cell width used for tab characters. uniseg
// assigns control characters zero width, which would leave the cursor
// stuck on a column that never advances.
const tabWidth = 4

// buffer is the editable scratchpad text plus an insertion point. The
// cursor is a byte offset into text and stays on a grapheme cluster
// boundary.
type buffer struct {
	text   string
	cursor int
}

// setText replaces the text and clamps the cursor to the new length,
// snapping it back to the nearest cluster boundary.
func (b *buffer) setText(s string) {
	b.text = s
	if b.cursor > len(s) {
		b.cursor = len(s)
	}
	b.cursor = snapBoundary(s, b.cursor)
}

// insert places s at the cursor and moves the cursor past it.
func (b *buffer) insert(s string) {
	b.text = b.text[:b.cursor] + s + b.text[b.cursor:]
	b.cursor += len(s)
}

// backspace removes the grapheme cluster before the cursor. It reports
// whether the text changed.
func (b *buffer) backspace() bool {
	if b.cursor == 0 {
		return false
	}
	prev := prevBoundary(b.text, b.cursor)
	b.text = b.text[:prev] + b.text[b.cursor:]
	b.cursor = prev
	return true
}

// deleteForward removes the grapheme cluster at the cursor. It reports
// whether the text changed.
func (b *buffer) deleteForward() bool {
	if b.cursor >= len(b.text) {
		return false
	}
	next := nextBoundary(b.text, b.cursor)
	b.text = b.text[:b.cursor] + b.text[next:]
	return true
}

func (b *buffer) left() {
	b.cursor = prevBoundary(b.text, b.cursor)
}

func (b *buffer) right() {
	b.cursor = nextBoundary(b.text, b.cursor)
}

func (b *buffer) home() {
	b.cursor = lineStart(b.text, b.cursor)
}

func (b *buffer) end() {
	b.cursor = lineEnd(b.text, b.cursor)
}

// moveVertical moves the cursor delta lines up or down, landing on the
// cluster boundary closest to the current visual column. At the top or
// bottom edge it does nothing.
func (b *buffer) moveVertical(delta int) {
	lines := strings.Split(b.text, "\n")
	line := strings.Count(b.text[:b.cursor], "\n")
	target := line + delta
	if target < 0 || target >= len(lines) {
		return
	}

	start := lineStart(b.text, b.cursor)
	want := visualWidth(b.text[start:b.cursor])

	offset := 0
	for i := 0; i < target; i++ {
		offset += len(lines[i]) + 1
	}
	b.cursor = offset + colForWidth(lines[target], want)
}

// position returns the cursor's line index and visual column.
func (b *buffer) position() (line, col int) {
	line = strings.Count(b.text[:b.cursor], "\n")
	start := lineStart(b.text, b.cursor)
	col = visualWidth(b.text[start:b.cursor])
	return line, col
}

// lineStart returns the byte offset of the first byte of the line
// containing offset.
func lineStart(s string, offset int) int {
	return strings.LastIndex(s[:offset], "\n") + 1
}

// lineEnd returns the byte offset just past the last byte of the line
// containing offset, excluding the trailing newline.
func lineEnd(s string, offset int) int {
	if i := strings.IndexByte(s[offset:], '\n'); i >= 0 {
		return offset + i
	}
	return len(s)
}

// nextBoundary returns the byte offset of the cluster boundary after
// offset, or len(s) when offset is at the end.
func nextBoundary(s string, offset int) int {
	if offset >= len(s) {
		return len(s)
	}
	gr := uniseg.NewGraphemes(s[offset:])
	if gr.Next() {
		_, end := gr.Positions()
		return offset + end
	}
	return len(s)
}

// prevBoundary returns the byte offset of the cluster boundary before
// offset, or 0 when offset is at the start.
func prevBoundary(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset > len(s) {
		offset = len(s)
	}
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		start, end := gr.Positions()
		if end >= offset {
			return start
		}
	}
	return 0
}

// snapBoundary moves offset back to the nearest cluster boundary at or
// before it.
func snapBoundary(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	if offset >= len(s) {
		return len(s)
	}
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		start, end := gr.Positions()
		if end > offset {
			return start
		}
		if end == offset {
			return offset
		}
	}
	return len(s)
}

// clusterWidth returns the cell width of the iterator's current
// cluster, substituting the fixed tab width for tabs.
func clusterWidth(gr *uniseg.Graphemes) int {
	if runes := gr.Runes(); len(runes) == 1 && runes[0] == '\t' {
		return tabWidth
	}
	return gr.Width()
}

// visualWidth returns the number of terminal cells needed to render s.
func visualWidth(s string) int {
	w := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		w += clusterWidth(gr)
	}
	return w
}

// graphemeCount returns the number of user-perceived characters in s.
func graphemeCount(s string) int {
	n := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n++
	}
	return n
}

// colForWidth returns the byte offset within line of the cluster
// boundary closest to, without exceeding, the wanted visual column.
func colForWidth(line string, want int) int {
	w := 0
	gr := uniseg.NewGraphemes(line)
	for gr.Next() {
		cw := clusterWidth(gr)
		if w+cw > want {
			start, _ := gr.Positions()
			return start
		}
		w += cw
	}
	return len(line)
}
