package session

import (
	"fmt"
	"unicode/utf8"

	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// summarize renders the rune-level delta between two values in a
// compact "+3 -1" form.
func (s *Session) summarize(oldValue, newValue string) string {
	diffs := s.differ.DiffMain(oldValue, newValue, false)

	var ins, del int
	for _, d := range diffs {
		switch d.Type {
		case dmp.DiffInsert:
			ins += utf8.RuneCountInString(d.Text)
		case dmp.DiffDelete:
			del += utf8.RuneCountInString(d.Text)
		}
	}

	switch {
	case ins == 0 && del == 0:
		return "no change"
	case del == 0:
		return fmt.Sprintf("+%d", ins)
	case ins == 0:
		return fmt.Sprintf("-%d", del)
	default:
		return fmt.Sprintf("+%d -%d", ins, del)
	}
}
