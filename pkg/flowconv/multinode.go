package flowconv

import (
	"errors"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/analyze"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/observability"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/prompt"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/routing"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"
)

// multiNode emits one component per reachable source node and compiles the
// shallow branch points into routing subgraphs.
func (a *assembly) multiNode(g *source.Graph) error {
	clean, start, err := a.validate(g)
	if err != nil {
		return err
	}
	startName := ""
	if start != nil {
		startName = start.Name
	}

	depths := analyze.Depths(clean, startName)
	routed, direct := analyze.Classify(analyze.BranchPoints(clean.Edges), depths, a.c.cfg.maxDepth)
	for _, bp := range direct {
		observability.LogBranchPassThrough(a.logger, bp.Name, bp.Depth)
	}
	a.stats.Routed = len(routed)
	a.stats.PassThrough = len(direct)

	orphans := make(map[string]bool)
	for _, name := range analyze.Orphans(clean, startName) {
		orphans[name] = true
	}
	a.stats.Orphans = len(orphans)

	if err := a.addEntry(); err != nil {
		return err
	}
	if err := a.convertNodes(clean, orphans); err != nil {
		return err
	}
	if err := a.addExit(); err != nil {
		return err
	}
	if err := a.compileRouting(routed, startName); err != nil {
		return err
	}
	if err := a.wire(clean, startName); err != nil {
		return err
	}
	return a.wireExit(startName)
}

// convertNodes converts the source nodes in declaration order.
func (a *assembly) convertNodes(g *source.Graph, orphans map[string]bool) error {
	_, span := a.c.cfg.spans.StartPhaseSpan(a.ctx, PhaseNodes)
	defer span.End()

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if orphans[n.Name] {
			observability.LogNodeSkipped(a.logger, n.Name, "no incoming transition")
			continue
		}

		tn, err := a.convertNode(n, i)
		if err != nil {
			return &ConversionError{Phase: PhaseNodes, Node: n.Name, Err: err}
		}
		a.ids[n.Name] = tn.ID
		a.nodes[n.Name] = tn
		observability.LogNodeConverted(a.logger, n.Name, tn.ID, tn.Type)
	}
	return nil
}

func (a *assembly) convertNode(n *source.Node, index int) (*target.Node, error) {
	tn, err := a.c.lib.Clone(a.c.cfg.nodeTypes[n.Kind])
	if err != nil {
		return nil, err
	}
	if err := a.c.configure(tn); err != nil {
		return nil, err
	}
	tn.Role = target.RoleStep
	tn.Origin = n.Name
	tn.SetDisplayName(n.Name)

	switch n.Kind {
	case source.KindConversation:
		tn.SetFirst(routing.PromptSlots, prompt.Augment(n))
	case source.KindTool:
		tool := n.ToolType
		if tool == "" {
			tool = "unknown"
		}
		tn.SetDescription("Tool: " + tool)
	}

	if n.Position != nil {
		tn.Position = target.Position{X: n.Position.X, Y: n.Position.Y}
	} else {
		tn.Position = target.Position{X: -400 + float64(index)*300, Y: 100}
	}

	a.flow.AddNode(tn)
	return tn, nil
}

// compileRouting builds a subgraph for every routed branch point. When the
// start node is itself routed, transitions back to it land on its decision
// agent, since the start node's own component is never fed.
func (a *assembly) compileRouting(routed []analyze.BranchPoint, startName string) error {
	_, span := a.c.cfg.spans.StartPhaseSpan(a.ctx, PhaseRouting)
	defer span.End()

	subgraphs := make([]*routing.Subgraph, 0, len(routed))
	for _, bp := range routed {
		origin, ok := a.nodes[bp.Name]
		if !ok {
			return &ConversionError{Phase: PhaseRouting, Node: bp.Name, Err: errors.New("branch point has no target node")}
		}
		sg, err := a.c.router.Compile(bp, a.nodes, origin.Position)
		if err != nil {
			return &ConversionError{Phase: PhaseRouting, Node: bp.Name, Err: err}
		}
		a.routing[bp.Name] = sg
		subgraphs = append(subgraphs, sg)
	}

	if start, ok := a.routing[startName]; ok {
		from := a.nodes[startName].ID
		for _, sg := range subgraphs {
			if err := a.c.router.Retarget(sg, from, start.Agent); err != nil {
				return &ConversionError{Phase: PhaseRouting, Node: sg.Origin, Err: err}
			}
		}
	}

	for i, sg := range subgraphs {
		for _, n := range sg.Nodes() {
			if err := a.c.configure(n); err != nil {
				return &ConversionError{Phase: PhaseRouting, Node: sg.Origin, Err: err}
			}
			a.flow.AddNode(n)
		}
		for _, e := range sg.Edges {
			a.flow.AddEdge(e)
		}

		observability.LogRoutingCompiled(a.logger, sg.Origin, routed[i].Width(), len(sg.Gates))
		a.c.cfg.metrics.RecordRouting(a.ctx, routed[i].Width())
	}
	return nil
}

// wire connects the entry adapter, the routed branch points and every
// remaining source edge.
func (a *assembly) wire(g *source.Graph, startName string) error {
	_, span := a.c.cfg.spans.StartPhaseSpan(a.ctx, PhaseWiring)
	defer span.End()

	if startName != "" {
		dst := a.nodes[startName]
		if sg, ok := a.routing[startName]; ok {
			dst = sg.Agent
		}
		if err := a.connect(a.entry, "", dst, startName, nil); err != nil {
			return err
		}
	}

	// Routed branch points feed their decision agent. The start node's
	// agent is fed by the entry adapter instead.
	for _, n := range g.Nodes {
		sg, ok := a.routing[n.Name]
		if !ok || n.Name == startName {
			continue
		}
		if err := a.connect(a.nodes[n.Name], "", sg.Agent, n.Name, nil); err != nil {
			return err
		}
	}

	for _, e := range g.Edges {
		if _, ok := a.routing[e.From]; ok {
			continue
		}
		src, dst := a.nodes[e.From], a.nodes[e.To]
		if sg, ok := a.routing[e.To]; ok && e.To == startName {
			dst = sg.Agent
		}
		if src == nil || dst == nil {
			observability.LogEdgeDropped(a.logger, e.From, e.To, "endpoint not converted")
			a.stats.DroppedEdges++
			continue
		}
		var cond *target.Condition
		if e.Condition != nil {
			cond = &target.Condition{Type: string(e.Condition.Kind), Prompt: e.Condition.Prompt}
		}
		if err := a.connect(src, "", dst, e.From, cond); err != nil {
			return err
		}
	}
	return nil
}

// wireExit connects every reachable terminal step to the exit adapter.
// A start node superseded by its router has no incoming edges and is
// left unwired.
func (a *assembly) wireExit(startName string) error {
	arcs := make([]analyze.Arc, 0, len(a.flow.Edges))
	for _, e := range a.flow.Edges {
		arcs = append(arcs, analyze.Arc{From: e.Source, To: e.Target})
	}

	var steps []string
	names := make(map[string]string)
	for _, n := range a.flow.Nodes {
		if n.Role == target.RoleStep {
			steps = append(steps, n.ID)
			names[n.ID] = n.Origin
		}
	}

	unreachable := make(map[string]bool)
	for _, id := range analyze.Unreachable(a.entry.ID, steps, arcs) {
		unreachable[id] = true
	}
	superseded := ""
	if _, ok := a.routing[startName]; ok {
		superseded = a.nodes[startName].ID
	}

	for _, id := range analyze.Terminals(steps, arcs) {
		switch {
		case id == superseded:
			observability.LogNodeSkipped(a.logger, names[id], "superseded by router")
			continue
		case unreachable[id]:
			observability.LogNodeSkipped(a.logger, names[id], "unreachable from entry")
			continue
		}
		if err := a.connect(a.flow.Node(id), "", a.exit, names[id], nil); err != nil {
			return err
		}
		a.stats.ExitWired++
	}
	return nil
}
