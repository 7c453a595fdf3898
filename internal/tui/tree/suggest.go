package tree

import "strings"

// maxSuggestions caps the dropdown under the search box.
const maxSuggestions = 5

// SuggestSource returns candidate completions for the current input.
type SuggestSource func(input string, limit int) []string

// Suggestions manages the dropdown of completions under the search box.
type Suggestions struct {
	source   SuggestSource
	visible  bool
	index    int
	filtered []string
}

// NewSuggestions creates a Suggestions backed by source. A nil source never
// suggests anything.
func NewSuggestions(source SuggestSource) *Suggestions {
	return &Suggestions{source: source}
}

// Update recomputes the dropdown for input. Nothing is shown for blank input.
func (s *Suggestions) Update(input string) {
	if s.source == nil || strings.TrimSpace(input) == "" {
		s.visible = false
		s.filtered = nil
		s.index = 0
		return
	}

	s.filtered = s.source(input, maxSuggestions)
	s.visible = len(s.filtered) > 0

	if s.index >= len(s.filtered) {
		s.index = max(0, len(s.filtered)-1)
	}
}

// Visible returns whether the dropdown is showing.
func (s *Suggestions) Visible() bool {
	return s.visible
}

// Hide hides the dropdown.
func (s *Suggestions) Hide() {
	s.visible = false
}

// Up moves the highlight up.
func (s *Suggestions) Up() {
	if s.index > 0 {
		s.index--
	}
}

// Down moves the highlight down.
func (s *Suggestions) Down() {
	if s.index < len(s.filtered)-1 {
		s.index++
	}
}

// Select returns the highlighted suggestion, or "" if there is none.
func (s *Suggestions) Select() string {
	if s.index < len(s.filtered) {
		return s.filtered[s.index]
	}
	return ""
}

// Index returns the highlighted position.
func (s *Suggestions) Index() int {
	return s.index
}

// Filtered returns the current suggestions.
func (s *Suggestions) Filtered() []string {
	return s.filtered
}
