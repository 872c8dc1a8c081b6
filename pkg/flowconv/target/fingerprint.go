package target

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type canonicalNode struct {
	Type        string         `json:"type"`
	Role        Role           `json:"role"`
	Origin      string         `json:"origin"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	Position    Position       `json:"position"`
	Config      map[string]any `json:"config"`
}

type canonicalEdge struct {
	Source    int        `json:"source"`
	Output    string     `json:"output"`
	Target    int        `json:"target"`
	Input     string     `json:"input"`
	Condition *Condition `json:"condition,omitempty"`
}

type canonicalFlow struct {
	Name  string          `json:"name"`
	Nodes []canonicalNode `json:"nodes"`
	Edges []canonicalEdge `json:"edges"`
}

// Fingerprint computes a stable hash of the flow's structure.
//
// Every node id is replaced by the node's declaration index before hashing,
// so two conversions of the same input produce the same fingerprint no matter
// which ids were generated. Encoding/json sorts map keys, which keeps the
// configuration part canonical.
func Fingerprint(f *Flow) (string, error) {
	index := make(map[string]int, len(f.Nodes))
	c := canonicalFlow{Name: f.Name}
	for i, n := range f.Nodes {
		index[n.ID] = i
		c.Nodes = append(c.Nodes, canonicalNode{
			Type:        n.Type,
			Role:        n.Role,
			Origin:      n.Origin,
			DisplayName: n.DisplayName(),
			Description: n.Description(),
			Position:    n.Position,
			Config:      n.Config(),
		})
	}
	for i, e := range f.Edges {
		src, ok := index[e.Source]
		if !ok {
			return "", fmt.Errorf("edge %d: unknown source node %s", i, e.Source)
		}
		dst, ok := index[e.Target]
		if !ok {
			return "", fmt.Errorf("edge %d: unknown target node %s", i, e.Target)
		}
		c.Edges = append(c.Edges, canonicalEdge{
			Source:    src,
			Output:    e.SourceHandle.Name,
			Target:    dst,
			Input:     e.TargetHandle.FieldName,
			Condition: e.Condition,
		})
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("serialize flow for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
