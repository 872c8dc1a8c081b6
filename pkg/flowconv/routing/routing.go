// Package routing compiles a branch point into a routing subgraph.
//
// A branch point with k outgoing transitions becomes one decision agent,
// which answers with a number from 1 to k, followed by k-1 decision gates.
// Gate i tests for number i: its true output goes to transition i's
// destination and its false output to gate i+1. The last gate's false
// output goes to transition k's destination, so the last transition is the
// untested default. For k == 2 this is a single gate.
//
// Numbers follow the transitions' declaration order.
package routing

import (
	"fmt"
	"strconv"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/analyze"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/library"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/ports"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/prompt"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

// Gate configuration.
const (
	GateMaxIterations = 10
	GateDefaultRoute  = "false_result"

	outputTrue  = "true_result"
	outputFalse = "false_result"
)

// EqualsWidth is the branch width from which gates always use
// OperatorEquals: at ten branches "contains 1" would also match "10".
const EqualsWidth = 10

// PromptSlots are the configuration slots that take a model node's
// instructions, in order of preference.
var PromptSlots = []string{"system_message", "system_prompt", "agent_description", "prompt"}

// Gate is one binary decision node of a subgraph.
type Gate struct {
	Node *target.Node
	// Index is the 1-based decision number the gate tests for.
	Index         int
	Match         string
	Operator      Operator
	CaseSensitive bool
}

// Test reports whether the gate's true output fires for output.
func (g *Gate) Test(output string) bool {
	return g.Operator.Match(output, g.Match, g.CaseSensitive)
}

// Branch is one compiled transition.
type Branch struct {
	// Index is the 1-based decision number.
	Index     int
	Condition string
	// To is the destination source node name.
	To string
	// Target is the destination target node id.
	Target string
}

// Subgraph is the compiled form of one branch point.
type Subgraph struct {
	// Origin is the branch point's source node name.
	Origin   string
	Agent    *target.Node
	Gates    []*Gate
	Edges    []target.Edge
	Branches []Branch
}

// Nodes returns the agent followed by the gates.
func (s *Subgraph) Nodes() []*target.Node {
	out := make([]*target.Node, 0, 1+len(s.Gates))
	out = append(out, s.Agent)
	for _, g := range s.Gates {
		out = append(out, g.Node)
	}
	return out
}

// Route follows the gate cascade for a decision agent output and returns
// the destination target id.
func (s *Subgraph) Route(output string) string {
	for i, g := range s.Gates {
		if g.Test(output) {
			return s.Branches[i].Target
		}
	}
	return s.Branches[len(s.Branches)-1].Target
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithOperator sets the gate operator for branch widths below EqualsWidth.
// Default: OperatorContains.
func WithOperator(op Operator) Option {
	return func(c *Compiler) { c.operator = op }
}

// WithAgentType sets the component type of decision agents. The library's
// fallback chain applies. Default: "Agent".
func WithAgentType(typ string) Option {
	return func(c *Compiler) { c.agentType = typ }
}

// WithGateType sets the component type of decision gates.
// Default: "ConditionalRouter".
func WithGateType(typ string) Option {
	return func(c *Compiler) { c.gateType = typ }
}

// WithAgentConfig sets extra configuration written into every decision
// agent, such as credentials.
func WithAgentConfig(cfg map[string]any) Option {
	return func(c *Compiler) { c.agentConfig = cfg }
}

// Compiler builds routing subgraphs. It holds no per-conversion state and is
// safe for concurrent use.
type Compiler struct {
	lib         *library.Library
	ports       *ports.Registry
	operator    Operator
	agentType   string
	gateType    string
	agentConfig map[string]any
}

// NewCompiler creates a Compiler that clones from lib and wires through pr.
func NewCompiler(lib *library.Library, pr *ports.Registry, opts ...Option) *Compiler {
	c := &Compiler{
		lib:       lib,
		ports:     pr,
		operator:  OperatorContains,
		agentType: "Agent",
		gateType:  "ConditionalRouter",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile builds the subgraph for bp. nodes maps source node names to their
// target nodes and must contain every destination of bp. at is the layout
// position of the branch point's own node.
//
// The edge into the decision agent is not part of the subgraph; the caller
// wires it from whatever precedes the branch point.
func (c *Compiler) Compile(bp analyze.BranchPoint, nodes map[string]*target.Node, at target.Position) (*Subgraph, error) {
	k := bp.Width()
	if k < 2 {
		return nil, &fcerrors.RoutingCompilationError{
			BranchPoint: bp.Name,
			Msg:         fmt.Sprintf("need at least 2 transitions, have %d", k),
		}
	}

	sg := &Subgraph{Origin: bp.Name}
	dests := make([]*target.Node, k)
	conditions := prompt.Conditions(bp.Edges)
	for i, e := range bp.Edges {
		dst, ok := nodes[e.To]
		if !ok || dst == nil {
			return nil, &fcerrors.RoutingCompilationError{
				BranchPoint: bp.Name,
				Msg:         fmt.Sprintf("transition %d: no target node for %q", i+1, e.To),
			}
		}
		dests[i] = dst
		sg.Branches = append(sg.Branches, Branch{Index: i + 1, Condition: conditions[i], To: e.To, Target: dst.ID})
	}

	agent, err := c.lib.Clone(c.agentType)
	if err != nil {
		return nil, fmt.Errorf("decision agent for %s: %w", bp.Name, err)
	}
	agent.Role = target.RoleDecisionAgent
	agent.Origin = bp.Name
	agent.Position = target.Position{X: at.X + 300, Y: at.Y}
	agent.SetDisplayName(fmt.Sprintf("Router (%s)", bp.Name))
	agent.SetFirst(PromptSlots, prompt.Decision(conditions))
	for name, v := range c.agentConfig {
		if agent.HasField(name) {
			agent.SetField(name, v)
		}
	}
	sg.Agent = agent

	op := c.operator
	if k >= EqualsWidth {
		op = OperatorEquals
	}
	for i := 0; i < k-1; i++ {
		node, err := c.lib.Clone(c.gateType)
		if err != nil {
			return nil, fmt.Errorf("decision gate %d for %s: %w", i+1, bp.Name, err)
		}
		g := &Gate{Node: node, Index: i + 1, Match: strconv.Itoa(i + 1), Operator: op}
		node.Role = target.RoleDecisionGate
		node.Origin = bp.Name
		node.Position = target.Position{X: at.X + 600 + float64(i)*300, Y: at.Y + float64(i)*150}
		node.SetDisplayName(fmt.Sprintf("Route Check %d (%s)", g.Index, bp.Name))
		node.SetField("operator", string(g.Operator))
		node.SetField("match_text", g.Match)
		node.SetField("case_sensitive", g.CaseSensitive)
		node.SetField("max_iterations", GateMaxIterations)
		node.SetField("default_route", GateDefaultRoute)
		sg.Gates = append(sg.Gates, g)
	}

	if err := c.wire(sg, bp, dests); err != nil {
		return nil, err
	}
	return sg, nil
}

// Retarget moves every subgraph edge that lands on the node with id from
// onto to, re-resolving the input port for the new destination.
func (c *Compiler) Retarget(sg *Subgraph, from string, to *target.Node) error {
	byID := make(map[string]*target.Node)
	for _, n := range sg.Nodes() {
		byID[n.ID] = n
	}
	for i, e := range sg.Edges {
		if e.Target != from {
			continue
		}
		src, ok := byID[e.Source]
		if !ok {
			return fmt.Errorf("routing %s: edge source %s not in subgraph", sg.Origin, e.Source)
		}
		ne, err := c.ports.Connect(src, e.SourceHandle.Name, to)
		if err != nil {
			return fmt.Errorf("routing %s: %w", sg.Origin, err)
		}
		ne.Origin = e.Origin
		ne.Condition = e.Condition
		sg.Edges[i] = ne
	}
	for i := range sg.Branches {
		if sg.Branches[i].Target == from {
			sg.Branches[i].Target = to.ID
		}
	}
	return nil
}

func (c *Compiler) wire(sg *Subgraph, bp analyze.BranchPoint, dests []*target.Node) error {
	connect := func(src *target.Node, output string, dst *target.Node, cond *target.Condition) error {
		e, err := c.ports.Connect(src, output, dst)
		if err != nil {
			return fmt.Errorf("routing %s: %w", bp.Name, err)
		}
		e.Origin = bp.Name
		e.Condition = cond
		sg.Edges = append(sg.Edges, e)
		return nil
	}

	if err := connect(sg.Agent, "", sg.Gates[0].Node, nil); err != nil {
		return err
	}
	last := len(sg.Gates) - 1
	for i, g := range sg.Gates {
		if err := connect(g.Node, outputTrue, dests[i], condition(bp, i)); err != nil {
			return err
		}
		if i < last {
			if err := connect(g.Node, outputFalse, sg.Gates[i+1].Node, nil); err != nil {
				return err
			}
			continue
		}
		if err := connect(g.Node, outputFalse, dests[i+1], condition(bp, i+1)); err != nil {
			return err
		}
	}
	return nil
}

func condition(bp analyze.BranchPoint, i int) *target.Condition {
	c := bp.Edges[i].Condition
	if c == nil {
		return nil
	}
	return &target.Condition{Type: string(c.Kind), Prompt: c.Prompt}
}
