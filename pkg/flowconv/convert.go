package flowconv

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/library"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/observability"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/placeholder"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/routing"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

// RoutingRegistry maps a branch point's source node name to its compiled
// routing subgraph.
type RoutingRegistry map[string]*routing.Subgraph

// Stats summarizes one conversion.
type Stats struct {
	SourceNodes int
	SourceEdges int
	TargetNodes int
	TargetEdges int
	// Orphans is the number of source nodes skipped for having no incoming
	// transition.
	Orphans int
	// Routed and PassThrough count branch points compiled into subgraphs and
	// branch points left as plain edges.
	Routed      int
	PassThrough int
	// DroppedEdges counts source edges with an endpoint that has no target
	// node.
	DroppedEdges int
	// ExitWired counts terminal nodes connected to the exit adapter.
	ExitWired int
}

// Result is the outcome of a successful conversion.
type Result struct {
	Flow *target.Flow
	// IDs maps converted source node names to target node ids. Orphans are
	// absent.
	IDs     map[string]string
	Routing RoutingRegistry
	Stats   Stats
	// Warnings holds the recoverable problems found in the workflow.
	Warnings []error
	Mode     Mode
}

// Converter turns source graphs into target flows. It keeps no state between
// conversions and is safe for concurrent use.
type Converter struct {
	lib    *library.Library
	cfg    convertConfig
	router *routing.Compiler
	expand *placeholder.Expander
}

// New creates a Converter cloning components from lib.
func New(lib *library.Library, opts ...Option) *Converter {
	cfg := defaultConvertConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Converter{
		lib:    lib,
		cfg:    cfg,
		expand: placeholder.New(),
	}
	c.router = routing.NewCompiler(lib, cfg.ports,
		routing.WithOperator(cfg.gateOperator),
		routing.WithAgentConfig(c.keySlots()),
	)
	return c
}

// Convert converts g. ctx is only checked before work starts; a conversion
// either completes or fails without returning a partial flow.
func (c *Converter) Convert(ctx context.Context, g *source.Graph) (res *Result, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNilGraph
	}

	name := c.flowName(g)
	logger := observability.EnrichLogger(c.cfg.logger, name, string(c.cfg.mode))
	elapsed := observability.TimedOperation()
	start := time.Now()
	observability.LogConversionStart(logger, len(g.Nodes), len(g.Edges))

	ctx, span := c.cfg.spans.StartConversionSpan(ctx, name, string(c.cfg.mode))
	defer func() {
		c.cfg.spans.EndSpanWithError(span, err)
	}()

	a := &assembly{
		c:       c,
		ctx:     ctx,
		logger:  logger,
		ids:     make(map[string]string),
		nodes:   make(map[string]*target.Node),
		routing: make(RoutingRegistry),
		flow: &target.Flow{
			ID:          c.lib.IDs().FlowID(),
			Name:        name,
			Description: "Converted from VAPI: " + name,
		},
	}
	a.stats.SourceNodes = len(g.Nodes)
	a.stats.SourceEdges = len(g.Edges)

	if c.cfg.mode == ModeConsolidated {
		err = a.consolidated(g)
	} else {
		err = a.multiNode(g)
	}

	c.cfg.metrics.RecordConversion(ctx, string(c.cfg.mode), err == nil, time.Since(start))
	if err != nil {
		observability.LogConversionError(logger, err, elapsed())
		return nil, err
	}

	a.stats.TargetNodes = len(a.flow.Nodes)
	a.stats.TargetEdges = len(a.flow.Edges)
	for role, count := range countRoles(a.flow) {
		c.cfg.metrics.RecordNodes(ctx, string(role), count)
	}
	observability.LogConversionComplete(logger, elapsed(), a.stats.TargetNodes, a.stats.TargetEdges, len(a.warnings))

	return &Result{
		Flow:     a.flow,
		IDs:      a.ids,
		Routing:  a.routing,
		Stats:    a.stats,
		Warnings: a.warnings,
		Mode:     c.cfg.mode,
	}, nil
}

func (c *Converter) flowName(g *source.Graph) string {
	switch {
	case c.cfg.flowName != "":
		return c.cfg.flowName
	case g.Name != "":
		return g.Name
	default:
		return source.DefaultName
	}
}

// keySlots returns the key slot values written into model nodes.
func (c *Converter) keySlots() map[string]any {
	key := c.cfg.credentials[CredentialOpenAIKey]
	if key == "" {
		return nil
	}
	return map[string]any{"api_key": key, "openai_api_key": key}
}

// configure applies credentials to a cloned node.
func (c *Converter) configure(n *target.Node) error {
	if cfg := n.Config(); len(c.cfg.credentials) > 0 && cfg != nil {
		// Prompt slots carry workflow text, which is never a credential site.
		slots := make(map[string]any, len(cfg))
		for name, v := range cfg {
			if !slices.Contains(routing.PromptSlots, name) {
				slots[name] = v
			}
		}
		expanded, err := c.expand.ExpandMap(slots, placeholder.Strings(c.cfg.credentials))
		if err != nil {
			return err
		}
		for _, name := range routing.PromptSlots {
			if v, ok := cfg[name]; ok {
				expanded[name] = v
			}
		}
		n.SetConfig(expanded)
	}
	for slot, v := range c.keySlots() {
		if n.HasField(slot) {
			n.SetField(slot, v)
		}
	}
	return nil
}

func countRoles(f *target.Flow) map[target.Role]int {
	counts := make(map[target.Role]int)
	for _, n := range f.Nodes {
		counts[n.Role]++
	}
	return counts
}

// assembly is the state of one conversion.
type assembly struct {
	c      *Converter
	ctx    context.Context
	logger *slog.Logger

	flow    *target.Flow
	ids     map[string]string
	nodes   map[string]*target.Node
	routing RoutingRegistry

	entry, exit *target.Node

	stats    Stats
	warnings []error
}

// validate sanitizes g and resolves its start node.
func (a *assembly) validate(g *source.Graph) (*source.Graph, *source.Node, error) {
	_, span := a.c.cfg.spans.StartPhaseSpan(a.ctx, PhaseValidate)
	defer span.End()

	clean, warns := source.Sanitize(g)
	for _, w := range warns {
		a.warn(w)
	}

	start, err := clean.Start(a.c.cfg.lenientStart)
	if err != nil {
		if fcerrors.IsFatal(err) {
			return nil, nil, &ConversionError{Phase: PhaseValidate, Err: err}
		}
		a.warn(err)
	}
	return clean, start, nil
}

func (a *assembly) warn(err error) {
	observability.LogWarning(a.logger, err)
	a.warnings = append(a.warnings, err)
}

// clone clones a component, applies credentials and adds it to the flow.
func (a *assembly) clone(componentType string, role target.Role, origin string) (*target.Node, error) {
	n, err := a.c.lib.Clone(componentType)
	if err != nil {
		return nil, err
	}
	n.Role = role
	n.Origin = origin
	if err := a.c.configure(n); err != nil {
		return nil, err
	}
	a.flow.AddNode(n)
	return n, nil
}

func (a *assembly) addEntry() error {
	n, err := a.clone(DefaultEntryType, target.RoleEntry, "")
	if err != nil {
		return &ConversionError{Phase: PhaseNodes, Err: err}
	}
	n.Position = target.Position{X: -800, Y: 0}
	a.entry = n
	return nil
}

// addExit places the exit adapter right of every node added so far.
func (a *assembly) addExit() error {
	maxX := 0.0
	for i, n := range a.flow.Nodes {
		if i == 0 || n.Position.X > maxX {
			maxX = n.Position.X
		}
	}
	n, err := a.clone(DefaultExitType, target.RoleExit, "")
	if err != nil {
		return &ConversionError{Phase: PhaseNodes, Err: err}
	}
	n.Position = target.Position{X: maxX + 400, Y: 0}
	a.exit = n
	return nil
}

// connect wires src's output to dst's primary input.
func (a *assembly) connect(src *target.Node, output string, dst *target.Node, origin string, cond *target.Condition) error {
	e, err := a.c.cfg.ports.Connect(src, output, dst)
	if err != nil {
		return &ConversionError{Phase: PhaseWiring, Node: origin, Err: err}
	}
	e.Origin = origin
	e.Condition = cond
	a.flow.AddEdge(e)
	return nil
}

// IsWarning reports whether err is a recoverable workflow problem.
func IsWarning(err error) bool {
	return err != nil && errors.Is(err, fcerrors.ErrMalformedSourceGraph) && !fcerrors.IsFatal(err)
}
