package analyze

// Arc is a directed connection between two emitted node ids.
type Arc struct {
	From, To string
}

// Reachable returns the ids reachable from root over arcs, root included.
func Reachable(root string, arcs []Arc) map[string]bool {
	adj := make(map[string][]string)
	for _, a := range arcs {
		adj[a.From] = append(adj[a.From], a.To)
	}

	seen := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

// Unreachable returns the members of nodes not reachable from root over
// arcs, in the order given.
func Unreachable(root string, nodes []string, arcs []Arc) []string {
	seen := Reachable(root, arcs)
	var out []string
	for _, id := range nodes {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// Terminals returns the members of nodes with no outgoing arc, in the order
// given.
func Terminals(nodes []string, arcs []Arc) []string {
	hasOut := make(map[string]bool, len(arcs))
	for _, a := range arcs {
		hasOut[a.From] = true
	}
	var out []string
	for _, id := range nodes {
		if !hasOut[id] {
			out = append(out, id)
		}
	}
	return out
}
