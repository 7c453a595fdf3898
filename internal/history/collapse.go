package history

// CollapseDuplicates removes runs of adjacent siblings that share a URL, keeping
// the last node of each run. It applies to the root sequence and, recursively,
// to every children list. Only adjacency in the current order counts: repeats
// separated by another URL survive.
//
// The forest is modified in place and returned; callers must own it. A removed
// node takes its subtree with it.
func CollapseDuplicates(forest Forest) Forest {
	return Forest(collapseRuns(forest))
}

func collapseRuns(nodes []*TreeNode) []*TreeNode {
	if len(nodes) > 1 {
		var marked []int
		for i := 0; i < len(nodes)-1; i++ {
			if nodes[i].URL() == nodes[i+1].URL() {
				marked = append(marked, i)
			}
		}
		// Highest index first so earlier indices stay valid.
		for j := len(marked) - 1; j >= 0; j-- {
			i := marked[j]
			nodes = append(nodes[:i], nodes[i+1:]...)
		}
	}
	for _, n := range nodes {
		n.Children = collapseRuns(n.Children)
	}
	return nodes
}
