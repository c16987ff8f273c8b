package topology

// HopCounts walks the edge set breadth-first from root and returns each
// reachable node's distance. The root maps to 0. Nodes not reachable from
// root are absent from the result; callers decide what absence means.
func HopCounts(edges []Edge, root string) map[string]int {
	children := make(map[string][]string, len(edges))
	for _, e := range edges {
		children[e.Parent] = append(children[e.Parent], e.Child)
	}

	type item struct {
		node string
		hops int
	}

	counts := map[string]int{root: 0}
	queue := []item{{node: root, hops: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, child := range children[cur.node] {
			if _, seen := counts[child]; seen {
				continue
			}
			counts[child] = cur.hops + 1
			queue = append(queue, item{node: child, hops: cur.hops + 1})
		}
	}

	return counts
}
