// Package render turns a history forest into display nodes: sorted, titled,
// timestamped and optionally tagged for selection.
package render

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vstratful/histree/internal/history"
)

// TimestampLayout is the format of Node.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Options controls Render.
type Options struct {
	// Selectable tags every node with a Selectable control.
	Selectable bool

	// Location formats timestamps. Defaults to time.Local.
	Location *time.Location

	// Now anchors relative times. Defaults to time.Now().
	Now time.Time
}

// Icon is the decorative icon for a node.
type Icon struct {
	// Favicon is a chrome://favicon reference for the page.
	Favicon string

	// Glyph is a single-cell marker chosen by transition.
	Glyph string
}

// Selectable tags a node as a deletion candidate.
type Selectable struct {
	URL     string
	VisitID history.VisitID
}

// Node is a display node. Children are already sorted.
type Node struct {
	ID         history.VisitID
	URL        string
	Title      string
	Icon       Icon
	Time       time.Time
	Timestamp  string
	Relative   string
	Link       string
	Transition history.Transition
	Selectable *Selectable
	Children   []*Node
}

// Render converts forest into display nodes. Roots are ordered newest first and
// every children list oldest first. The forest itself is not reordered.
func Render(forest history.Forest, opts Options) []*Node {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	roots := sortedCopy(forest, func(a, b *history.TreeNode) bool {
		return a.Record.Time().After(b.Record.Time())
	})
	out := make([]*Node, 0, len(roots))
	for _, n := range roots {
		out = append(out, renderNode(n, opts))
	}
	return out
}

func renderNode(n *history.TreeNode, opts Options) *Node {
	url := n.URL()
	title := n.Title()
	if title == "" {
		title = url
	}
	t := n.Record.Time()

	node := &Node{
		ID:         n.ID,
		URL:        url,
		Title:      title,
		Icon:       Icon{Favicon: "chrome://favicon/" + url, Glyph: Glyph(n.Record.Visit.Transition)},
		Time:       t,
		Timestamp:  t.In(opts.Location).Format(TimestampLayout),
		Relative:   humanize.RelTime(t, opts.Now, "ago", "from now"),
		Link:       url,
		Transition: n.Record.Visit.Transition,
	}
	if opts.Selectable {
		node.Selectable = &Selectable{URL: url, VisitID: n.ID}
	}

	children := sortedCopy(n.Children, func(a, b *history.TreeNode) bool {
		return a.Record.Time().Before(b.Record.Time())
	})
	if len(children) > 0 {
		node.Children = make([]*Node, 0, len(children))
		for _, c := range children {
			node.Children = append(node.Children, renderNode(c, opts))
		}
	}
	return node
}

func sortedCopy(nodes []*history.TreeNode, less func(a, b *history.TreeNode) bool) []*history.TreeNode {
	out := make([]*history.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Glyph returns the marker for a transition.
func Glyph(t history.Transition) string {
	switch t {
	case history.TransitionTyped, history.TransitionKeyword, history.TransitionKeywordGenerated:
		return "⌨"
	case history.TransitionAutoBookmark:
		return "★"
	case history.TransitionFormSubmit:
		return "⇪"
	case history.TransitionGenerated:
		return "⌕"
	case history.TransitionAutoSubframe, history.TransitionManualSubframe:
		return "▫"
	case history.TransitionAutoToplevel:
		return "↻"
	default:
		return "•"
	}
}

// Count returns the total number of nodes.
func Count(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		n += 1 + Count(node.Children)
	}
	return n
}
