// Package journal encodes the session's persisted log as a single
// string blob: a JSON array of string snapshots, oldest first. The
// codec never guesses at damaged input; a blob that is not exactly an
// array of strings decodes to ErrMalformed so the caller can fall back
// to a fresh log.
package journal

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformed indicates a blob that is not a JSON array of strings.
var ErrMalformed = errors.New("malformed journal blob")

// Encode serializes entries into the blob form. A nil or empty slice
// encodes as the empty array.
func Encode(entries []string) string {
	blob := "[]"
	for _, e := range entries {
		// The -1 path appends to the array; Set only fails on an
		// invalid path, which a literal index never is.
		blob, _ = sjson.Set(blob, "-1", e)
	}
	return blob
}

// Decode parses a blob back into its entries. The empty blob decodes to
// (nil, nil), matching an absent log. Any other input that is not a
// JSON array holding only strings returns ErrMalformed.
func Decode(blob string) ([]string, error) {
	if blob == "" {
		return nil, nil
	}
	if !gjson.Valid(blob) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	root := gjson.Parse(blob)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}

	elems := root.Array()
	entries := make([]string, 0, len(elems))
	for i, el := range elems {
		if el.Type != gjson.String {
			return nil, fmt.Errorf("%w: element %d is %s", ErrMalformed, i, el.Type)
		}
		entries = append(entries, el.String())
	}
	return entries, nil
}
