package target

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modelDoc() map[string]any {
	return map[string]any{
		"id":   "OpenAIModel-old",
		"type": "genericNode",
		"data": map[string]any{
			"id":   "OpenAIModel-old",
			"type": "OpenAIModel",
			"node": map[string]any{
				"display_name": "OpenAI",
				"template": map[string]any{
					"system_message": map[string]any{"value": ""},
					"model_name":     map[string]any{"value": "gpt-4o-mini"},
				},
			},
		},
	}
}

func TestNode_Fields(t *testing.T) {
	n := NewNode("OpenAIModel-1", "OpenAIModel", modelDoc())

	assert.True(t, n.HasField("system_message"))
	assert.False(t, n.HasField("api_key"))

	n.SetField("system_message", "hello")
	v, ok := n.Field("system_message")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	n.SetField("api_key", "sk-test")
	v, ok = n.Field("api_key")
	require.True(t, ok)
	assert.Equal(t, "sk-test", v)

	assert.Equal(t, []string{"api_key", "model_name", "system_message"}, n.Fields())
}

func TestNode_SetFieldWithoutTemplate(t *testing.T) {
	n := NewNode("X-1", "X", nil)
	n.SetField("operator", "contains")

	v, ok := n.Field("operator")
	require.True(t, ok)
	assert.Equal(t, "contains", v)
}

func TestNode_DisplayNameAndDescription(t *testing.T) {
	n := NewNode("OpenAIModel-1", "OpenAIModel", modelDoc())
	assert.Equal(t, "OpenAI", n.DisplayName())

	n.SetDisplayName("Router (start)")
	n.SetDescription("Tool: transferCall")
	assert.Equal(t, "Router (start)", n.DisplayName())
	assert.Equal(t, "Tool: transferCall", n.Description())
}

func TestNode_MarshalJSON_SyncsIdentity(t *testing.T) {
	n := NewNode("OpenAIModel-abcde", "OpenAIModel", modelDoc())
	n.Position = Position{X: 100, Y: 50}

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "OpenAIModel-abcde", out["id"])
	assert.Equal(t, "genericNode", out["type"])
	assert.Equal(t, map[string]any{"x": 100.0, "y": 50.0}, out["position"])

	inner := out["data"].(map[string]any)
	assert.Equal(t, "OpenAIModel-abcde", inner["id"])
	assert.Equal(t, "OpenAIModel", inner["type"])
}

func TestNode_SyncIdentity_ReplacesStaleIDs(t *testing.T) {
	doc := map[string]any{
		"id":   "Agent-stale",
		"data": map[string]any{"id": "Agent-stale"},
	}
	n := NewNode("Agent-fresh", "Agent", doc)
	n.SyncIdentity()

	assert.Equal(t, "Agent-fresh", doc["id"])
	inner := doc["data"].(map[string]any)
	assert.Equal(t, "Agent-fresh", inner["id"])
	assert.Equal(t, "Agent", inner["type"])
}

func TestEdge_MarshalJSON(t *testing.T) {
	e := Edge{
		Source: "ChatInput-1",
		Target: "OpenAIModel-2",
		SourceHandle: SourceHandle{
			DataType: "ChatInput", ID: "ChatInput-1", Name: "message", OutputTypes: []string{"Message"},
		},
		TargetHandle: TargetHandle{
			FieldName: "input_value", ID: "OpenAIModel-2", InputTypes: []string{"Message"}, Type: "str",
		},
		Condition: &Condition{Type: "ai", Prompt: "user wants billing"},
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, e.ID(), out["id"])
	assert.True(t, strings.HasPrefix(out["id"].(string), "xy-edge__ChatInput-1{"))

	var sh SourceHandle
	require.NoError(t, json.Unmarshal([]byte(out["sourceHandle"].(string)), &sh))
	assert.Equal(t, e.SourceHandle, sh)

	inner := out["data"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "ai", "prompt": "user wants billing"}, inner["vapiCondition"])
}

func TestEdge_MarshalJSON_NoCondition(t *testing.T) {
	data, err := json.Marshal(Edge{Source: "a", Target: "b"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "vapiCondition")
}

func TestFlow_Queries(t *testing.T) {
	f := &Flow{}
	in := NewNode("ChatInput-1", "ChatInput", nil)
	in.Role = RoleEntry
	step := NewNode("OpenAIModel-2", "OpenAIModel", nil)
	step.Role = RoleStep
	out := NewNode("ChatOutput-3", "ChatOutput", nil)
	out.Role = RoleExit
	f.AddNode(in)
	f.AddNode(step)
	f.AddNode(out)
	f.AddEdge(Edge{Source: in.ID, Target: step.ID})
	f.AddEdge(Edge{Source: step.ID, Target: out.ID})

	assert.Same(t, step, f.Node("OpenAIModel-2"))
	assert.Nil(t, f.Node("missing"))
	assert.Equal(t, []*Node{out}, f.NodesByRole(RoleExit))
	assert.Len(t, f.Outgoing(in.ID), 1)
	assert.Len(t, f.Incoming(out.ID), 1)
	assert.Empty(t, f.Outgoing(out.ID))
}

func TestFlow_Encode(t *testing.T) {
	f := &Flow{ID: "flow-1", Name: "Support", Description: "Converted from VAPI: Support"}

	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "flow-1", out["id"])
	assert.Equal(t, "Support", out["name"])
	data := out["data"].(map[string]any)
	assert.Equal(t, []any{}, data["nodes"])
	assert.Equal(t, []any{}, data["edges"])
}

func buildFlow(gen IDGenerator) *Flow {
	f := &Flow{ID: gen.FlowID(), Name: "wf"}
	a := NewNode(gen.NodeID("ChatInput"), "ChatInput", nil)
	b := NewNode(gen.NodeID("OpenAIModel"), "OpenAIModel", modelDoc())
	b.SetField("system_message", "Greet")
	f.AddNode(a)
	f.AddNode(b)
	f.AddEdge(Edge{
		Source:       a.ID,
		Target:       b.ID,
		SourceHandle: SourceHandle{ID: a.ID, Name: "message"},
		TargetHandle: TargetHandle{ID: b.ID, FieldName: "input_value"},
	})
	return f
}

func TestFingerprint_IgnoresIdentities(t *testing.T) {
	f1 := buildFlow(NewSequenceGenerator())
	f2 := buildFlow(NewUUIDGenerator())

	h1, err := Fingerprint(f1)
	require.NoError(t, err)
	h2, err := Fingerprint(f2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestFingerprint_DetectsChanges(t *testing.T) {
	f1 := buildFlow(NewSequenceGenerator())
	f2 := buildFlow(NewSequenceGenerator())
	f2.Nodes[1].SetField("system_message", "Different")

	h1, err := Fingerprint(f1)
	require.NoError(t, err)
	h2, err := Fingerprint(f2)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestFingerprint_DanglingEdge(t *testing.T) {
	f := &Flow{Edges: []Edge{{Source: "a", Target: "b"}}}
	_, err := Fingerprint(f)
	assert.Error(t, err)
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator()
	assert.Equal(t, "ChatInput-00001", g.NodeID("ChatInput"))
	assert.Equal(t, "Agent-00002", g.NodeID("Agent"))
	assert.Equal(t, "flow-00003", g.FlowID())
}

func TestUUIDGenerator_Unique(t *testing.T) {
	g := NewUUIDGenerator()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := g.NodeID("Agent")
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
	for id := range seen {
		assert.Regexp(t, `^Agent-[0-9a-f]{5}$`, id)
	}
	assert.Len(t, g.FlowID(), 36)
}

func TestNode_SetFirst(t *testing.T) {
	n := NewNode("OpenAIModel-1", "OpenAIModel", modelDoc())
	assert.Equal(t, "system_message", n.SetFirst([]string{"system_prompt", "system_message"}, "p"))
	v, _ := n.Field("system_message")
	assert.Equal(t, "p", v)

	assert.Equal(t, "prompt", n.SetFirst([]string{"prompt", "agent_description"}, "q"))
	assert.True(t, n.HasField("prompt"))

	assert.Equal(t, "", n.SetFirst(nil, "x"))
}
