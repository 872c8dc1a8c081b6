// Package source models VAPI workflows, the input of a conversion.
//
// A Graph is read-only once parsed. Sanitize produces the cleaned copy the
// converter works on; nothing else in the module mutates a Graph.
package source

import (
	"fmt"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

// Kind is the kind of a source node.
type Kind string

// Node kinds. Unrecognized kinds parse as KindOther.
const (
	KindConversation Kind = "conversation"
	KindTool         Kind = "tool"
	KindOther        Kind = "other"
)

// ParseKind maps a wire type to a Kind.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindConversation, KindTool:
		return Kind(s)
	default:
		return KindOther
	}
}

// Variable is one entry of a variable extraction plan.
type Variable struct {
	Title       string `validate:"required"`
	Description string
	Type        string
	Enum        []string
}

// Position is a layout hint.
type Position struct {
	X, Y float64
}

// Node is a workflow node.
type Node struct {
	Name         string `validate:"required"`
	Kind         Kind
	Prompt       string
	FirstMessage string
	Variables    []Variable
	Position     *Position
	IsStart      bool
	// ToolType is the tool's type for KindTool nodes.
	ToolType string
}

// ConditionKind is how a transition condition is evaluated.
type ConditionKind string

// Condition kinds. Other values are carried through verbatim.
const (
	ConditionAlways ConditionKind = "always"
	ConditionAI     ConditionKind = "ai"
)

// Condition guards a transition.
type Condition struct {
	Kind   ConditionKind
	Prompt string
}

// Edge is a transition between two nodes, by name.
type Edge struct {
	From      string `validate:"required"`
	To        string `validate:"required"`
	Condition *Condition
}

// Graph is a workflow.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].Name == name {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Outgoing returns the edges leaving name in declaration order.
func (g *Graph) Outgoing(name string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == name {
			out = append(out, e)
		}
	}
	return out
}

// Start resolves the start node. An empty graph has none and is valid.
//
// Exactly one node must be flagged IsStart. Otherwise Start fails with a
// fatal *MalformedSourceGraphError, unless lenient is set: then the first
// flagged node, or the first declared node when none is flagged, is returned
// together with a recoverable error describing the violation.
func (g *Graph) Start(lenient bool) (*Node, error) {
	if len(g.Nodes) == 0 {
		return nil, nil
	}

	var flagged []int
	for i := range g.Nodes {
		if g.Nodes[i].IsStart {
			flagged = append(flagged, i)
		}
	}
	if len(flagged) == 1 {
		return &g.Nodes[flagged[0]], nil
	}

	msg := "no node is marked isStart"
	pick := 0
	if len(flagged) > 1 {
		msg = fmt.Sprintf("%d nodes are marked isStart", len(flagged))
		pick = flagged[0]
	}
	err := &fcerrors.MalformedSourceGraphError{Field: "nodes", Msg: msg, Fatal: !lenient}
	if !lenient {
		return nil, err
	}
	return &g.Nodes[pick], err
}
