// Package analyze computes the structural facts the converter decides on:
// BFS depth from the start node, branch points and their routing
// eligibility, orphan nodes, and reachability and terminals of the emitted
// graph.
//
// Every function is pure and deterministic. Results that are lists follow
// source declaration order.
package analyze

import (
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
)

// DepthUnreachable is the depth of a branch point not reachable from start.
const DepthUnreachable = -1

// Depths returns the BFS distance of every node reachable from start.
// Nodes not reachable from start are absent. An empty start yields an empty
// map.
func Depths(g *source.Graph, start string) map[string]int {
	depths := make(map[string]int)
	if start == "" {
		return depths
	}

	adj := adjacency(g.Edges)
	depths[start] = 0
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if _, seen := depths[next]; seen {
				continue
			}
			depths[next] = depths[current] + 1
			queue = append(queue, next)
		}
	}
	return depths
}

// BranchPoint is a source node with two or more outgoing edges.
type BranchPoint struct {
	Name string
	// Depth is the BFS distance from start, or DepthUnreachable.
	Depth int
	// Edges are the outgoing edges in declaration order. Position i carries
	// decision number i+1.
	Edges []source.Edge
}

// Width is the number of branches.
func (bp BranchPoint) Width() int { return len(bp.Edges) }

// BranchPoints groups edges by origin and keeps the groups with at least two
// members, ordered by the first declaration of each origin. Depth is left as
// DepthUnreachable; Classify fills it.
func BranchPoints(edges []source.Edge) []BranchPoint {
	groups := make(map[string][]source.Edge)
	var order []string
	for _, e := range edges {
		if _, ok := groups[e.From]; !ok {
			order = append(order, e.From)
		}
		groups[e.From] = append(groups[e.From], e)
	}

	var out []BranchPoint
	for _, name := range order {
		if len(groups[name]) < 2 {
			continue
		}
		out = append(out, BranchPoint{Name: name, Depth: DepthUnreachable, Edges: groups[name]})
	}
	return out
}

// Classify partitions branch points into those compiled with routing
// (depth <= maxDepth) and those passed through as direct edges (deeper or
// unreachable). Both results carry their depths and keep input order.
func Classify(bps []BranchPoint, depths map[string]int, maxDepth int) (routed, direct []BranchPoint) {
	for _, bp := range bps {
		d, ok := depths[bp.Name]
		if !ok {
			d = DepthUnreachable
		}
		bp.Depth = d
		if d != DepthUnreachable && d <= maxDepth {
			routed = append(routed, bp)
		} else {
			direct = append(direct, bp)
		}
	}
	return routed, direct
}

// Orphans returns the nodes with no incoming edge other than start, in
// declaration order.
func Orphans(g *source.Graph, start string) []string {
	incoming := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		incoming[e.To] = true
	}

	var out []string
	for _, n := range g.Nodes {
		if n.Name != start && !incoming[n.Name] {
			out = append(out, n.Name)
		}
	}
	return out
}

func adjacency(edges []source.Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}
