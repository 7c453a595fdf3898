// Package selection implements anchor-based range selection over the rows of
// the last render.
package selection

import (
	"log/slog"
	"sort"
)

// Item is one selectable row. Key identifies the row (the visit id) and URL is
// what a deletion acts on.
type Item struct {
	Key string
	URL string
}

// Result describes the effect of a click.
type Result struct {
	// Index is the clicked row.
	Index int

	// Checked is the clicked row's state after the click.
	Checked bool

	// From and To bound the rows that were set, inclusive. For a plain click
	// both equal Index.
	From, To int

	// Range is true when the click extended from the anchor.
	Range bool
}

// Tracker holds the visible selectable rows, their checked state and the range
// anchor. It is not safe for concurrent use; the UI event loop owns it.
type Tracker struct {
	visible []Item
	index   map[string]int
	checked map[string]bool
	anchor  int
	extent  int
	refresh func() []Item
	logger  *slog.Logger
}

// NewTracker creates a Tracker. refresh, if non-nil, recomputes the visible rows
// from the current rendered output when a clicked key cannot be found.
func NewTracker(refresh func() []Item, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		index:   make(map[string]int),
		checked: make(map[string]bool),
		anchor:  -1,
		extent:  -1,
		refresh: refresh,
		logger:  logger,
	}
}

// SetVisible replaces the visible rows after a render. The anchor is left as it
// is, even if it now points at a different row or past the end. Checked state
// is kept for keys that are still visible and dropped for the rest.
func (t *Tracker) SetVisible(items []Item) {
	t.visible = append(t.visible[:0:0], items...)
	t.index = make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := t.index[it.Key]; !dup {
			t.index[it.Key] = i
		}
	}
	for key := range t.checked {
		if _, ok := t.index[key]; !ok {
			delete(t.checked, key)
		}
	}
}

// Visible returns the current rows.
func (t *Tracker) Visible() []Item {
	return t.visible
}

// Len returns the number of visible rows.
func (t *Tracker) Len() int {
	return len(t.visible)
}

// Anchor returns the anchor index and whether it is set.
func (t *Tracker) Anchor() (int, bool) {
	return t.anchor, t.anchor >= 0
}

// Checked reports whether the row with key is checked.
func (t *Tracker) Checked(key string) bool {
	return t.checked[key]
}

// CheckedAt reports whether row i is checked.
func (t *Tracker) CheckedAt(i int) bool {
	if i < 0 || i >= len(t.visible) {
		return false
	}
	return t.checked[t.visible[i].Key]
}

// Count returns the number of checked rows.
func (t *Tracker) Count() int {
	return len(t.checked)
}

// Click toggles the row with key. If the key is not among the visible rows the
// rows are refreshed once and the lookup retried; if it is still missing the
// click is dropped and false is returned.
func (t *Tracker) Click(key string, shift bool) (Result, bool) {
	i, ok := t.index[key]
	if !ok && t.refresh != nil {
		t.SetVisible(t.refresh())
		i, ok = t.index[key]
	}
	if !ok {
		t.logger.Debug("selection click on unknown row", "key", key)
		return Result{}, false
	}
	return t.apply(i, shift), true
}

// ClickAt toggles row i, extending from the anchor when shift is set.
func (t *Tracker) ClickAt(i int, shift bool) (Result, bool) {
	if i < 0 || i >= len(t.visible) {
		t.logger.Debug("selection click out of range", "index", i, "rows", len(t.visible))
		return Result{}, false
	}
	return t.apply(i, shift), true
}

func (t *Tracker) apply(i int, shift bool) Result {
	state := !t.checked[t.visible[i].Key]
	t.set(i, state)
	t.extent = -1

	if shift && t.anchor >= 0 && t.anchor < len(t.visible) {
		from, to := t.anchor, i
		if from > to {
			from, to = to, from
		}
		for j := from; j <= to; j++ {
			t.set(j, state)
		}
		return Result{Index: i, Checked: state, From: from, To: to, Range: true}
	}

	t.anchor = i
	return Result{Index: i, Checked: state, From: i, To: i}
}

// ExtendTo makes rows anchor..i carry the anchor's state, the way a keyboard
// range grows and shrinks. Rows covered by the previous ExtendTo but outside
// the new range are unchecked. Without a usable anchor it is a plain click.
func (t *Tracker) ExtendTo(i int) (Result, bool) {
	if i < 0 || i >= len(t.visible) {
		t.logger.Debug("selection extend out of range", "index", i, "rows", len(t.visible))
		return Result{}, false
	}
	if t.anchor < 0 || t.anchor >= len(t.visible) {
		return t.apply(i, false), true
	}

	state := t.checked[t.visible[t.anchor].Key]
	from, to := span(t.anchor, i)
	if t.extent >= 0 && t.extent < len(t.visible) {
		prevFrom, prevTo := span(t.anchor, t.extent)
		for j := prevFrom; j <= prevTo; j++ {
			if j < from || j > to {
				t.set(j, false)
			}
		}
	}
	for j := from; j <= to; j++ {
		t.set(j, state)
	}
	t.extent = i
	return Result{Index: i, Checked: state, From: from, To: to, Range: true}, true
}

func span(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func (t *Tracker) set(i int, state bool) {
	key := t.visible[i].Key
	if state {
		t.checked[key] = true
	} else {
		delete(t.checked, key)
	}
}

// SetAll checks or unchecks every visible row. The anchor is not moved.
func (t *Tracker) SetAll(state bool) {
	for i := range t.visible {
		t.set(i, state)
	}
}

// Clear unchecks everything and unsets the anchor.
func (t *Tracker) Clear() {
	t.checked = make(map[string]bool)
	t.anchor = -1
	t.extent = -1
}

// SelectedURLs returns the distinct URLs of the checked rows, sorted.
func (t *Tracker) SelectedURLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, it := range t.visible {
		if !t.checked[it.Key] || seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		urls = append(urls, it.URL)
	}
	sort.Strings(urls)
	return urls
}
