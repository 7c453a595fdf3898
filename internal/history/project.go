package history

import "strings"

// Project returns the part of forest matching query.
//
// A node is kept when its title or URL contains the query (case-insensitive) or
// when any of its descendants is kept. Kept nodes are fresh copies sharing the
// original record, each with a newly built children slice, so later changes to
// the canonical forest cannot leak into a projection. An empty query returns
// forest itself.
func Project(forest Forest, query string) Forest {
	q := NormalizeQuery(query)
	if q == "" {
		return forest
	}
	return Forest(projectNodes(forest, q))
}

func projectNodes(nodes []*TreeNode, q string) []*TreeNode {
	var out []*TreeNode
	for _, n := range nodes {
		if n == nil {
			continue
		}
		children := projectNodes(n.Children, q)
		if len(children) == 0 && !Matches(n.Record, q) {
			continue
		}
		out = append(out, &TreeNode{
			ID:       n.ID,
			Record:   n.Record,
			Children: children,
		})
	}
	return out
}

// NormalizeQuery trims and lower-cases a query the way Project does before
// matching.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Matches reports whether the record's title or URL contains the lower-cased
// query q.
func Matches(rec Record, q string) bool {
	return strings.Contains(strings.ToLower(rec.Page.Title), q) ||
		strings.Contains(strings.ToLower(rec.Page.URL), q)
}
