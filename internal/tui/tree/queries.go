package tree

import "strings"

// QueryNavigator walks recent search queries from the search box. When the
// box holds a draft, only queries containing it are visited.
type QueryNavigator struct {
	// queries is oldest first
	queries []string

	// matches indexes queries that contain the draft
	matches []int

	// pos is the position in matches (-1 = not browsing)
	pos int

	draft string
}

// NewQueryNavigator creates a QueryNavigator over queries, oldest first.
func NewQueryNavigator(queries []string) *QueryNavigator {
	return &QueryNavigator{
		queries: append([]string(nil), queries...),
		pos:     -1,
	}
}

// IsBrowsing returns true if currently browsing recent queries.
func (q *QueryNavigator) IsBrowsing() bool {
	return q.pos >= 0
}

// Position returns the 1-based position counted from the newest match, and
// the number of matches.
func (q *QueryNavigator) Position() (int, int) {
	if q.pos < 0 {
		return 0, len(q.matches)
	}
	return len(q.matches) - q.pos, len(q.matches)
}

// Len returns the number of stored queries.
func (q *QueryNavigator) Len() int {
	return len(q.queries)
}

// Up moves to an older query. The first press remembers current as the draft.
// It returns the query to show and false when there is nothing to show.
func (q *QueryNavigator) Up(current string) (string, bool) {
	if q.pos == -1 {
		q.draft = current
		q.matches = q.match(current)
		if len(q.matches) == 0 {
			return "", false
		}
		q.pos = len(q.matches) - 1
	} else if q.pos > 0 {
		q.pos--
	}
	return q.queries[q.matches[q.pos]], true
}

// Down moves to a newer query, restoring the draft past the newest one.
func (q *QueryNavigator) Down() (string, bool) {
	if q.pos == -1 {
		return "", false
	}
	if q.pos < len(q.matches)-1 {
		q.pos++
		return q.queries[q.matches[q.pos]], true
	}
	draft := q.draft
	q.Reset()
	return draft, true
}

// Reset leaves browsing mode.
func (q *QueryNavigator) Reset() {
	q.pos = -1
	q.draft = ""
	q.matches = nil
}

// Add appends a query, skipping blanks and consecutive duplicates.
func (q *QueryNavigator) Add(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	if n := len(q.queries); n == 0 || q.queries[n-1] != query {
		q.queries = append(q.queries, query)
	}
}

func (q *QueryNavigator) match(draft string) []int {
	draft = strings.ToLower(strings.TrimSpace(draft))
	var out []int
	for i, s := range q.queries {
		if draft == "" || strings.Contains(strings.ToLower(s), draft) {
			out = append(out, i)
		}
	}
	return out
}
