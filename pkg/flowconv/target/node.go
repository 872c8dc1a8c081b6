// Package target models the Langflow flow produced by a conversion.
//
// A Node wraps a cloned platform component document. The converter only
// touches a few well-known parts of it: the id (top-level and data.id), the
// position, the display name and description, and the configuration slots
// under data.node.template.<field>.value. Everything else in the document is
// carried through verbatim.
package target

import (
	"encoding/json"
	"sort"
)

// Position is a layout hint. It carries no semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Role tags what a node does in the compiled graph.
type Role string

// Node roles.
const (
	RoleEntry         Role = "entry"
	RoleExit          Role = "exit"
	RoleStep          Role = "step"
	RoleDecisionAgent Role = "decision-agent"
	RoleDecisionGate  Role = "decision-gate"
	RoleConsolidated  Role = "consolidated"
)

// Node is a target graph node.
type Node struct {
	// ID is the generated, globally unique identity.
	ID string
	// Type is the component type the node was cloned from.
	Type string
	// Role is what the node does in the compiled graph.
	Role Role
	// Origin is the source node name the node was generated for, if any.
	Origin string
	// Position is the layout hint.
	Position Position

	doc map[string]any
}

// NewNode wraps a component document. doc is owned by the node afterwards.
func NewNode(id, componentType string, doc map[string]any) *Node {
	if doc == nil {
		doc = make(map[string]any)
	}
	return &Node{ID: id, Type: componentType, doc: doc}
}

// SyncIdentity writes the node's ID into the document's top-level id and
// its self-referencing data.id, and fills data.type when missing.
func (n *Node) SyncIdentity() {
	n.doc["id"] = n.ID
	data := n.data()
	data["id"] = n.ID
	if _, ok := data["type"]; !ok {
		data["type"] = n.Type
	}
}

// Document returns the underlying component document with identity fields
// synchronized. The returned map is shared with the node.
func (n *Node) Document() map[string]any {
	n.SyncIdentity()
	return n.doc
}

// Config returns the configuration slot map (data.node.template).
// Returns nil when the document has none.
func (n *Node) Config() map[string]any {
	node, _ := n.data()["node"].(map[string]any)
	if node == nil {
		return nil
	}
	tpl, _ := node["template"].(map[string]any)
	return tpl
}

// SetConfig replaces the configuration slot map.
func (n *Node) SetConfig(cfg map[string]any) {
	n.nodeSection()["template"] = cfg
}

// HasField reports whether the configuration slot exists.
func (n *Node) HasField(name string) bool {
	_, ok := n.Config()[name]
	return ok
}

// Field returns the value of a configuration slot.
func (n *Node) Field(name string) (any, bool) {
	slot, ok := n.Config()[name].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := slot["value"]
	return v, ok
}

// SetField sets the value of a configuration slot, creating the slot when
// the template does not declare it.
func (n *Node) SetField(name string, value any) {
	cfg := n.Config()
	if cfg == nil {
		cfg = make(map[string]any)
		n.SetConfig(cfg)
	}
	slot, ok := cfg[name].(map[string]any)
	if !ok {
		slot = make(map[string]any)
		cfg[name] = slot
	}
	slot["value"] = value
}

// SetFirst sets the first of names the template declares and returns it.
// When none is declared, names[0] is created.
func (n *Node) SetFirst(names []string, value any) string {
	for _, name := range names {
		if n.HasField(name) {
			n.SetField(name, value)
			return name
		}
	}
	if len(names) == 0 {
		return ""
	}
	n.SetField(names[0], value)
	return names[0]
}

// Fields returns the configuration slot names in sorted order.
func (n *Node) Fields() []string {
	cfg := n.Config()
	names := make([]string, 0, len(cfg))
	for k := range cfg {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DisplayName returns data.node.display_name.
func (n *Node) DisplayName() string {
	s, _ := n.nodeSection()["display_name"].(string)
	return s
}

// SetDisplayName sets data.node.display_name.
func (n *Node) SetDisplayName(name string) {
	n.nodeSection()["display_name"] = name
}

// Description returns data.node.description.
func (n *Node) Description() string {
	s, _ := n.nodeSection()["description"].(string)
	return s
}

// SetDescription sets data.node.description.
func (n *Node) SetDescription(desc string) {
	n.nodeSection()["description"] = desc
}

// MarshalJSON writes the component document with id and position applied.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.doc)+3)
	for k, v := range n.Document() {
		out[k] = v
	}
	out["position"] = n.Position
	if _, ok := out["type"]; !ok {
		out["type"] = "genericNode"
	}
	return json.Marshal(out)
}

func (n *Node) data() map[string]any {
	data, _ := n.doc["data"].(map[string]any)
	if data == nil {
		data = make(map[string]any)
		n.doc["data"] = data
	}
	return data
}

func (n *Node) nodeSection() map[string]any {
	data := n.data()
	node, _ := data["node"].(map[string]any)
	if node == nil {
		node = make(map[string]any)
		data["node"] = node
	}
	return node
}
