package history

// TreeNode is one visit in a navigation tree. Children are owned exclusively by
// their parent; a node never appears under two parents.
type TreeNode struct {
	ID       VisitID
	Record   Record
	Children []*TreeNode
}

// URL returns the node's page URL.
func (n *TreeNode) URL() string { return n.Record.URL() }

// Title returns the node's page title.
func (n *TreeNode) Title() string { return n.Record.Title() }

// hasChild reports whether id is already a direct child of n.
func (n *TreeNode) hasChild(id VisitID) bool {
	for _, c := range n.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Forest is an ordered sequence of root nodes.
type Forest []*TreeNode

// Walk visits every node depth-first, parents before children. Returning false
// from fn skips the node's subtree.
func (f Forest) Walk(fn func(n *TreeNode, depth int) bool) {
	var walk func(nodes []*TreeNode, depth int)
	walk = func(nodes []*TreeNode, depth int) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if fn(n, depth) {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(f, 0)
}

// Count returns the total number of nodes.
func (f Forest) Count() int {
	count := 0
	f.Walk(func(*TreeNode, int) bool {
		count++
		return true
	})
	return count
}

// IDs returns every node ID in depth-first order.
func (f Forest) IDs() []VisitID {
	var ids []VisitID
	f.Walk(func(n *TreeNode, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Find returns the node with the given id, or nil.
func (f Forest) Find(id VisitID) *TreeNode {
	var found *TreeNode
	f.Walk(func(n *TreeNode, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// URLs returns the distinct URLs in the forest in depth-first order.
func (f Forest) URLs() []string {
	seen := make(map[string]bool)
	var urls []string
	f.Walk(func(n *TreeNode, _ int) bool {
		if !seen[n.URL()] {
			seen[n.URL()] = true
			urls = append(urls, n.URL())
		}
		return true
	})
	return urls
}
