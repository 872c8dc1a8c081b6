package target

import (
	"encoding/json"
	"io"
)

// Flow is a complete target graph.
type Flow struct {
	ID          string
	Name        string
	Description string
	Nodes       []*Node
	Edges       []Edge
}

// AddNode appends a node.
func (f *Flow) AddNode(n *Node) {
	f.Nodes = append(f.Nodes, n)
}

// AddEdge appends an edge.
func (f *Flow) AddEdge(e Edge) {
	f.Edges = append(f.Edges, e)
}

// Node returns the node with the given id, or nil.
func (f *Flow) Node(id string) *Node {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// NodesByRole returns the nodes with the given role in declaration order.
func (f *Flow) NodesByRole(role Role) []*Node {
	var out []*Node
	for _, n := range f.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Outgoing returns the edges leaving id in declaration order.
func (f *Flow) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges arriving at id in declaration order.
func (f *Flow) Incoming(id string) []Edge {
	var out []Edge
	for _, e := range f.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON writes the importable flow document.
func (f *Flow) MarshalJSON() ([]byte, error) {
	nodes := f.Nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	edges := f.Edges
	if edges == nil {
		edges = []Edge{}
	}
	return json.Marshal(map[string]any{
		"id":            f.ID,
		"name":          f.Name,
		"description":   f.Description,
		"icon":          nil,
		"icon_bg_color": nil,
		"gradient":      nil,
		"is_component":  false,
		"data": map[string]any{
			"nodes":    nodes,
			"edges":    edges,
			"viewport": map[string]any{"x": 0, "y": 0, "zoom": 1},
		},
	})
}

// Encode writes the flow as indented JSON.
func (f *Flow) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
