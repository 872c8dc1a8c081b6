package routing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/analyze"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/library"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/ports"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

func setup(t *testing.T) (*library.Library, *ports.Registry) {
	t.Helper()
	lib := library.New(library.WithIDGenerator(target.NewSequenceGenerator()))
	_, err := lib.LoadFile("../testdata/library.json")
	require.NoError(t, err)
	return lib, ports.Default()
}

// branch builds a branch point "hub" with k transitions to d1..dk and the
// target nodes they resolve to.
func branch(t *testing.T, lib *library.Library, k int) (analyze.BranchPoint, map[string]*target.Node) {
	t.Helper()
	bp := analyze.BranchPoint{Name: "hub", Depth: 0}
	nodes := make(map[string]*target.Node)
	for i := 1; i <= k; i++ {
		name := fmt.Sprintf("d%d", i)
		bp.Edges = append(bp.Edges, source.Edge{
			From:      "hub",
			To:        name,
			Condition: &source.Condition{Kind: source.ConditionAI, Prompt: fmt.Sprintf("C%d", i)},
		})
		n, err := lib.Clone("OpenAIModel")
		require.NoError(t, err)
		nodes[name] = n
	}
	return bp, nodes
}

func TestCompile_TwoWay(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 2)

	sg, err := NewCompiler(lib, pr).Compile(bp, nodes, target.Position{X: 100, Y: 50})
	require.NoError(t, err)

	require.Len(t, sg.Gates, 1)
	require.Len(t, sg.Edges, 3)
	assert.Len(t, sg.Nodes(), 2)

	assert.Equal(t, "Agent", sg.Agent.Type)
	assert.Equal(t, target.RoleDecisionAgent, sg.Agent.Role)
	assert.Equal(t, "Router (hub)", sg.Agent.DisplayName())
	assert.Equal(t, target.Position{X: 400, Y: 50}, sg.Agent.Position)

	g := sg.Gates[0]
	assert.Equal(t, target.Position{X: 700, Y: 50}, g.Node.Position)
	for field, want := range map[string]any{
		"operator":       "contains",
		"match_text":     "1",
		"case_sensitive": false,
		"max_iterations": 10,
		"default_route":  "false_result",
	} {
		v, ok := g.Node.Field(field)
		require.True(t, ok, field)
		assert.Equal(t, want, v, field)
	}

	assert.Equal(t, sg.Agent.ID, sg.Edges[0].Source)
	assert.Equal(t, g.Node.ID, sg.Edges[0].Target)
	assert.Equal(t, "true_result", sg.Edges[1].SourceHandle.Name)
	assert.Equal(t, nodes["d1"].ID, sg.Edges[1].Target)
	assert.Equal(t, "false_result", sg.Edges[2].SourceHandle.Name)
	assert.Equal(t, nodes["d2"].ID, sg.Edges[2].Target)

	assert.Equal(t, nodes["d1"].ID, sg.Route("1"))
	assert.Equal(t, nodes["d2"].ID, sg.Route("2"))
}

func TestCompile_FourWayCascade(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 4)

	sg, err := NewCompiler(lib, pr).Compile(bp, nodes, target.Position{})
	require.NoError(t, err)

	require.Len(t, sg.Gates, 3)
	assert.Len(t, sg.Edges, 7)

	tests := []struct {
		output string
		want   string
	}{
		{"1", "d1"},
		{"2", "d2"},
		{"3", "d3"},
		{"4", "d4"},
		{"", "d4"},
		{"none of these", "d4"},
		{" 3\n", "d3"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.output), func(t *testing.T) {
			assert.Equal(t, nodes[tt.want].ID, sg.Route(tt.output))
		})
	}

	for i, g := range sg.Gates {
		assert.Equal(t, i+1, g.Index)
		assert.Equal(t, target.Position{X: 600 + float64(i)*300, Y: float64(i) * 150}, g.Node.Position)
	}

	// gate i false -> gate i+1; last gate false -> default destination
	assert.Equal(t, sg.Gates[1].Node.ID, falseTarget(sg, sg.Gates[0]))
	assert.Equal(t, sg.Gates[2].Node.ID, falseTarget(sg, sg.Gates[1]))
	assert.Equal(t, nodes["d4"].ID, falseTarget(sg, sg.Gates[2]))

	byID := map[string]*target.Node{}
	for _, n := range append(sg.Nodes(), nodes["d1"], nodes["d2"], nodes["d3"], nodes["d4"]) {
		byID[n.ID] = n
	}
	for _, e := range sg.Edges {
		assert.Equal(t, "hub", e.Origin)
		assert.NoError(t, pr.Check(e, byID[e.Source], byID[e.Target]))
	}

	p, ok := sg.Agent.Field("system_prompt")
	require.True(t, ok)
	assert.Contains(t, p, "1. C1\n2. C2\n3. C3\n4. C4")

	require.Len(t, sg.Branches, 4)
	assert.Equal(t, Branch{Index: 4, Condition: "C4", To: "d4", Target: nodes["d4"].ID}, sg.Branches[3])
}

func falseTarget(sg *Subgraph, g *Gate) string {
	for _, e := range sg.Edges {
		if e.Source == g.Node.ID && e.SourceHandle.Name == "false_result" {
			return e.Target
		}
	}
	return ""
}

func TestCompile_WideBranchUsesEquals(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 11)

	sg, err := NewCompiler(lib, pr).Compile(bp, nodes, target.Position{})
	require.NoError(t, err)
	require.Len(t, sg.Gates, 10)
	for _, g := range sg.Gates {
		assert.Equal(t, OperatorEquals, g.Operator)
	}
	assert.Equal(t, nodes["d10"].ID, sg.Route("10"))
	assert.Equal(t, nodes["d1"].ID, sg.Route("1"))
	assert.Equal(t, nodes["d11"].ID, sg.Route("11"))
}

func TestCompile_WideBranchToleratesAnswerFormatting(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 12)

	sg, err := NewCompiler(lib, pr).Compile(bp, nodes, target.Position{})
	require.NoError(t, err)
	for _, out := range []string{" 3", "3\n", "3.", "3"} {
		assert.Equal(t, nodes["d3"].ID, sg.Route(out), "%q", out)
	}
	assert.Equal(t, nodes["d11"].ID, sg.Route(" 11.\n"))
	assert.Equal(t, nodes["d12"].ID, sg.Route("13"))
}

func TestCompile_EqualsOperatorOption(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 3)

	sg, err := NewCompiler(lib, pr, WithOperator(OperatorEquals)).Compile(bp, nodes, target.Position{})
	require.NoError(t, err)
	assert.Equal(t, nodes["d3"].ID, sg.Route("answer: 1"))
	assert.Equal(t, nodes["d1"].ID, sg.Route("1"))
}

func TestCompile_AgentConfig(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 2)

	sg, err := NewCompiler(lib, pr, WithAgentConfig(map[string]any{"api_key": "sk-1", "not_a_slot": "x"})).
		Compile(bp, nodes, target.Position{})
	require.NoError(t, err)
	v, _ := sg.Agent.Field("api_key")
	assert.Equal(t, "sk-1", v)
	assert.False(t, sg.Agent.HasField("not_a_slot"))
}

func TestRetarget(t *testing.T) {
	lib, pr := setup(t)
	bp, nodes := branch(t, lib, 3)
	c := NewCompiler(lib, pr)

	sg, err := c.Compile(bp, nodes, target.Position{})
	require.NoError(t, err)
	to, err := lib.Clone("Agent")
	require.NoError(t, err)

	old := nodes["d2"].ID
	require.NoError(t, c.Retarget(sg, old, to))

	byID := map[string]*target.Node{to.ID: to}
	for _, n := range append(sg.Nodes(), nodes["d1"], nodes["d3"]) {
		byID[n.ID] = n
	}
	var hits int
	for _, e := range sg.Edges {
		assert.NotEqual(t, old, e.Target)
		require.Contains(t, byID, e.Target)
		assert.NoError(t, pr.Check(e, byID[e.Source], byID[e.Target]))
		if e.Target == to.ID {
			hits++
			assert.Equal(t, "hub", e.Origin)
			require.NotNil(t, e.Condition)
			assert.Equal(t, "C2", e.Condition.Prompt)
		}
	}
	assert.Equal(t, 1, hits)
	assert.Equal(t, to.ID, sg.Branches[1].Target)
	assert.Equal(t, to.ID, sg.Route("2"))
	assert.Equal(t, nodes["d3"].ID, sg.Route("9"))
}

func TestCompile_Errors(t *testing.T) {
	lib, pr := setup(t)
	c := NewCompiler(lib, pr)

	t.Run("single transition", func(t *testing.T) {
		bp, nodes := branch(t, lib, 1)
		_, err := c.Compile(bp, nodes, target.Position{})
		assert.True(t, errors.Is(err, fcerrors.ErrRoutingCompilation))
		assert.True(t, fcerrors.IsFatal(err))
	})

	t.Run("missing destination", func(t *testing.T) {
		bp, nodes := branch(t, lib, 3)
		delete(nodes, "d2")
		_, err := c.Compile(bp, nodes, target.Position{})
		var rce *fcerrors.RoutingCompilationError
		require.True(t, errors.As(err, &rce))
		assert.Equal(t, "hub", rce.BranchPoint)
	})

	t.Run("no gate template", func(t *testing.T) {
		bp, nodes := branch(t, lib, 2)
		_, err := NewCompiler(lib, pr, WithGateType("Missing")).Compile(bp, nodes, target.Position{})
		assert.True(t, errors.Is(err, fcerrors.ErrUnknownComponentType))
	})
}

func TestOperator(t *testing.T) {
	assert.True(t, OperatorContains.Match("Option 2", "2", false))
	assert.True(t, OperatorEquals.Match("ABC", "abc", false))
	assert.False(t, OperatorEquals.Match("ABC", "abc", true))
	assert.False(t, Operator("regex").Match("a", "a", false))

	for _, out := range []string{"3", " 3", "3\n", "3.", "\"3\"", " (3)! "} {
		assert.True(t, OperatorEquals.Match(out, "3", false), "%q", out)
	}
	for _, out := range []string{"13", "3 or 4", "", "."} {
		assert.False(t, OperatorEquals.Match(out, "3", false), "%q", out)
	}

	op, err := ParseOperator("")
	require.NoError(t, err)
	assert.Equal(t, OperatorContains, op)
	_, err = ParseOperator("startswith")
	assert.Error(t, err)
}
