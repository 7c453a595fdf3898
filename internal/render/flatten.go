package render

import (
	"strings"

	"github.com/vstratful/histree/internal/selection"
)

// Row is one line of a flattened render.
type Row struct {
	Node  *Node
	Depth int

	// Last is true when the node is the last of its siblings.
	Last bool

	// Prefix is the tree drawing for the row, empty for roots.
	Prefix string
}

// Flatten lists nodes depth-first, parents before children, with tree prefixes.
func Flatten(nodes []*Node) []Row {
	var rows []Row
	var walk func(nodes []*Node, depth int, rails []bool)
	walk = func(nodes []*Node, depth int, rails []bool) {
		for i, n := range nodes {
			last := i == len(nodes)-1
			rows = append(rows, Row{
				Node:   n,
				Depth:  depth,
				Last:   last,
				Prefix: prefix(rails, depth, last),
			})
			if len(n.Children) > 0 {
				// Roots draw no rail.
				next := rails
				if depth > 0 {
					next = append(rails[:len(rails):len(rails)], !last)
				}
				walk(n.Children, depth+1, next)
			}
		}
	}
	walk(nodes, 0, nil)
	return rows
}

func prefix(rails []bool, depth int, last bool) string {
	if depth == 0 {
		return ""
	}
	var sb strings.Builder
	for _, open := range rails {
		if open {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if last {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return sb.String()
}

// Items returns the selection items for the selectable rows, in row order.
func Items(rows []Row) []selection.Item {
	items := make([]selection.Item, 0, len(rows))
	for _, r := range rows {
		if r.Node.Selectable == nil {
			continue
		}
		items = append(items, selection.Item{
			Key: string(r.Node.Selectable.VisitID),
			URL: r.Node.Selectable.URL,
		})
	}
	return items
}
