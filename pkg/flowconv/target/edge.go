package target

import (
	"encoding/json"
)

// SourceHandle names the output port an edge leaves from.
type SourceHandle struct {
	DataType    string   `json:"dataType"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	OutputTypes []string `json:"output_types"`
}

// TargetHandle names the input port an edge arrives at.
type TargetHandle struct {
	FieldName  string   `json:"fieldName"`
	ID         string   `json:"id"`
	InputTypes []string `json:"inputTypes"`
	Type       string   `json:"type"`
}

// Condition is the source transition condition carried on an edge as
// non-functional metadata.
type Condition struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// Edge connects an output port of one node to an input port of another.
type Edge struct {
	Source       string
	Target       string
	SourceHandle SourceHandle
	TargetHandle TargetHandle

	// Condition is copied from the source edge for direct edges.
	Condition *Condition
	// Origin is the source node name the edge was generated for.
	Origin string
}

// ID returns the platform edge id, derived from both handles.
func (e Edge) ID() string {
	return "xy-edge__" + e.Source + encodeHandle(e.SourceHandle) + "-" + e.Target + encodeHandle(e.TargetHandle)
}

// MarshalJSON writes the edge with JSON-stringified handles.
func (e Edge) MarshalJSON() ([]byte, error) {
	data := map[string]any{
		"sourceHandle": e.SourceHandle,
		"targetHandle": e.TargetHandle,
	}
	if e.Condition != nil {
		data["vapiCondition"] = e.Condition
	}
	return json.Marshal(map[string]any{
		"id":           e.ID(),
		"source":       e.Source,
		"sourceHandle": encodeHandle(e.SourceHandle),
		"target":       e.Target,
		"targetHandle": encodeHandle(e.TargetHandle),
		"data":         data,
		"selected":     false,
		"animated":     false,
		"className":    "",
	})
}

func encodeHandle(h any) string {
	// Handles contain only strings and string slices.
	b, _ := json.Marshal(h)
	return string(b)
}
