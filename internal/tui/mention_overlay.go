package tui

import (
	"strings"

	"github.com/chancore/chancore/internal/mention"
)

// mentionOverlay tracks the @-mention suggestion popup over the input field.
type mentionOverlay struct {
	active     bool
	query      mention.Query
	candidates []string
	filtered   []string
	index      int
}

// sync re-evaluates the overlay against the current input text and cursor.
// Candidates are the full roster; the visible list is filtered by the query.
func (o *mentionOverlay) sync(text string, cursor int, candidates []string) {
	q, ok := mention.Detect(text, cursor)
	if !ok {
		o.dismiss()
		return
	}
	filtered := mention.Filter(candidates, q.Text)
	if len(filtered) == 0 {
		o.dismiss()
		return
	}
	if !o.active || o.query != q {
		o.index = 0
	}
	if o.index >= len(filtered) {
		o.index = len(filtered) - 1
	}
	o.active = true
	o.query = q
	o.candidates = candidates
	o.filtered = filtered
}

// handleKey routes a navigation key through the overlay. When a candidate is
// confirmed it is returned along with ActionConfirm.
func (o *mentionOverlay) handleKey(key mention.Key) (string, mention.Action) {
	if !o.active {
		return "", mention.ActionNone
	}
	next, action := mention.Navigate(key, len(o.filtered), o.index)
	switch action {
	case mention.ActionConfirm:
		candidate := o.filtered[o.index]
		o.dismiss()
		return candidate, mention.ActionConfirm
	case mention.ActionDismiss:
		o.dismiss()
		return "", mention.ActionDismiss
	}
	o.index = next
	return "", mention.ActionNone
}

func (o *mentionOverlay) dismiss() {
	o.active = false
	o.filtered = nil
	o.index = 0
}

// view renders the suggestion list, active row highlighted.
func (o *mentionOverlay) view() string {
	if !o.active {
		return ""
	}
	var b strings.Builder
	for i, name := range o.filtered {
		if i > 0 {
			b.WriteString("\n")
		}
		if i == o.index {
			b.WriteString(popupActiveStyle.Render("@" + name))
		} else {
			b.WriteString("@" + name)
		}
	}
	return popupStyle.Render(b.String())
}
