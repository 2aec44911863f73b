// Package mention implements inline @-mention autocomplete parsing.
//
// Everything here is a pure, synchronous text transform: detection of an
// active trigger from text plus cursor position, rewriting on selection,
// and keyboard navigation over a candidate list. No I/O, no state.
package mention

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Query describes an active mention trigger.
type Query struct {
	// TriggerOffset is the byte offset of the '@' in the text.
	TriggerOffset int

	// Text is the partial name typed between the '@' and the cursor.
	Text string
}

// Detect scans text for an active mention trigger at the cursor.
//
// An '@' only starts a mention when it sits at the start of the text or
// directly after whitespace. The scan walks backward from the cursor and
// aborts on the first whitespace, so "hello @bob" with the cursor at the
// end yields {6, "bob"} while "hello@bob" yields nothing.
func Detect(text string, cursor int) (Query, bool) {
	if cursor < 0 || cursor > len(text) {
		return Query{}, false
	}

	i := cursor
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if unicode.IsSpace(r) {
			return Query{}, false
		}
		i -= size
		if r == '@' {
			// Trigger only counts at text start or after whitespace.
			if i > 0 {
				prev, _ := utf8.DecodeLastRuneInString(text[:i])
				if !unicode.IsSpace(prev) {
					return Query{}, false
				}
			}
			return Query{TriggerOffset: i, Text: text[i+1 : cursor]}, true
		}
	}
	return Query{}, false
}

// Select rewrites text by replacing the active mention span with the chosen
// candidate. Spaces in the candidate name become underscores and a trailing
// space is appended, so the mention reads as one token.
func Select(candidate, text string, q Query) string {
	end := q.TriggerOffset + 1 + len(q.Text)
	if q.TriggerOffset < 0 || end > len(text) {
		return text
	}
	name := strings.ReplaceAll(candidate, " ", "_")
	return text[:q.TriggerOffset] + "@" + name + " " + text[end:]
}

// Key is a navigation key in the suggestion list.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyEnter
	KeyTab
	KeyEscape
)

// Action is the outcome of a navigation keypress.
type Action int

const (
	// ActionNone means the active index may have moved but the list stays open.
	ActionNone Action = iota

	// ActionConfirm means the active candidate was selected.
	ActionConfirm

	// ActionDismiss means the suggestion list was dismissed.
	ActionDismiss
)

// Navigate applies a keypress to a suggestion list of listLen candidates with
// the given active index. Arrow keys wrap around at both ends.
func Navigate(key Key, listLen, active int) (int, Action) {
	if listLen <= 0 {
		if key == KeyEscape {
			return active, ActionDismiss
		}
		return active, ActionNone
	}

	switch key {
	case KeyDown:
		next := active + 1
		if next >= listLen {
			next = 0
		}
		return next, ActionNone
	case KeyUp:
		next := active - 1
		if next < 0 {
			next = listLen - 1
		}
		return next, ActionNone
	case KeyEnter, KeyTab:
		return active, ActionConfirm
	case KeyEscape:
		return active, ActionDismiss
	}
	return active, ActionNone
}

// Filter returns the candidates whose name contains the query text,
// case-insensitively. An empty query matches everything.
func Filter(candidates []string, query string) []string {
	if query == "" {
		return candidates
	}
	q := strings.ToLower(query)
	var out []string
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), q) {
			out = append(out, c)
		}
	}
	return out
}
