package history

// BuildForest links the records of set into navigation trees.
//
// A record becomes a child of the record named by its referrer when that
// referrer is part of the same set. Roots are the nodes that were never attached
// to any parent, in insertion order. A referrer outside the set truncates the
// ancestry and the node starts a tree of its own.
func BuildForest(set *VisitSet) Forest {
	if set.Len() == 0 {
		return Forest{}
	}

	nodes := make(map[VisitID]*TreeNode, set.Len())
	order := make([]*TreeNode, 0, set.Len())
	set.Each(func(rec Record) {
		n := &TreeNode{ID: rec.Visit.ID, Record: rec}
		nodes[n.ID] = n
		order = append(order, n)
	})

	// parentOf records attached edges; it drives both the root post-pass and
	// the cycle guard.
	parentOf := make(map[VisitID]VisitID, len(order))
	for _, n := range order {
		ref := n.Record.Visit.ReferringID
		if !n.Record.Visit.HasReferrer() {
			continue
		}
		parent, ok := nodes[ref]
		if !ok || createsCycle(parentOf, n.ID, ref) {
			continue
		}
		if !parent.hasChild(n.ID) {
			parent.Children = append(parent.Children, n)
		}
		parentOf[n.ID] = ref
	}

	roots := make(Forest, 0, len(order)-len(parentOf))
	for _, n := range order {
		if _, attached := parentOf[n.ID]; !attached {
			roots = append(roots, n)
		}
	}
	return roots
}

// createsCycle reports whether making parent the parent of child would close a
// loop, i.e. child is already an ancestor of parent.
func createsCycle(parentOf map[VisitID]VisitID, child, parent VisitID) bool {
	for p, steps := parent, 0; p != ""; steps++ {
		if p == child {
			return true
		}
		next, ok := parentOf[p]
		if !ok || steps > len(parentOf) {
			return false
		}
		p = next
	}
	return false
}
