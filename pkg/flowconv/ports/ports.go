// Package ports knows the typed input and output ports of each target
// component and builds type-checked edges between them.
//
// Every component exposes one primary input field and one or more named
// outputs. An edge is valid only when the output's declared types intersect
// the input's accepted types, or the input accepts TypeAny.
package ports

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/registry"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

// Port type names.
const (
	TypeMessage   = "Message"
	TypeData      = "Data"
	TypeDataFrame = "DataFrame"
	// TypeAny in an input's accepted set admits every output type.
	TypeAny = "other"
)

// Output is a named output port.
type Output struct {
	Name  string
	Types []string
}

// Input is the primary input port.
type Input struct {
	Field   string
	Accepts []string
	// Kind is the platform's field kind, "str" or "other".
	Kind string
}

// Spec describes the ports of one component type.
type Spec struct {
	Type    string
	Input   Input
	Outputs []Output
}

// Output returns the named output. An empty name selects the first output.
func (s Spec) Output(name string) (Output, bool) {
	if len(s.Outputs) == 0 {
		return Output{}, false
	}
	if name == "" {
		return s.Outputs[0], true
	}
	for _, o := range s.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}

// Compatible reports whether out may feed in.
func Compatible(out Output, in Input) bool {
	if slices.Contains(in.Accepts, TypeAny) {
		return len(out.Types) > 0
	}
	for _, t := range out.Types {
		if slices.Contains(in.Accepts, t) {
			return true
		}
	}
	return false
}

// Registry maps component types to port specs. Unregistered types use the
// fallback spec. Safe for concurrent reads.
type Registry struct {
	specs    *registry.Registry[string, Spec]
	fallback Spec
}

// New creates an empty registry with the given fallback.
func New(fallback Spec) *Registry {
	return &Registry{specs: registry.New[string, Spec](), fallback: fallback}
}

// Default returns the registry for the platform components the converter
// emits.
func Default() *Registry {
	msg := []string{TypeMessage}
	strInput := func(field string) Input {
		return Input{Field: field, Accepts: msg, Kind: "str"}
	}

	r := New(Spec{
		Type:    "Component",
		Input:   strInput("input_value"),
		Outputs: []Output{{Name: "output", Types: msg}},
	})
	r.Register(Spec{
		Type:    "ChatInput",
		Input:   strInput("input_value"),
		Outputs: []Output{{Name: "message", Types: msg}},
	})
	r.Register(Spec{
		Type:    "ChatOutput",
		Input:   Input{Field: "input_value", Accepts: []string{TypeData, TypeDataFrame, TypeMessage}, Kind: "other"},
		Outputs: []Output{{Name: "message", Types: msg}},
	})
	for _, model := range []string{"OpenAIModel", "OpenAI"} {
		r.Register(Spec{
			Type:    model,
			Input:   strInput("input_value"),
			Outputs: []Output{{Name: "text_output", Types: msg}},
		})
	}
	r.Register(Spec{
		Type:    "Agent",
		Input:   strInput("input_value"),
		Outputs: []Output{{Name: "response", Types: msg}},
	})
	r.Register(Spec{
		Type:  "ConditionalRouter",
		Input: strInput("input_text"),
		Outputs: []Output{
			{Name: "true_result", Types: msg},
			{Name: "false_result", Types: msg},
		},
	})
	return r
}

// Register adds or replaces the spec for s.Type.
func (r *Registry) Register(s Spec) {
	r.specs.Put(s.Type, s)
}

// Lookup returns the spec for componentType, or the fallback.
func (r *Registry) Lookup(componentType string) Spec {
	if s, ok := r.specs.Get(componentType); ok {
		return s
	}
	return r.fallback
}

// Has reports whether componentType has its own spec.
func (r *Registry) Has(componentType string) bool {
	return r.specs.Has(componentType)
}

// Connect builds the edge from src's named output to dst's primary input.
// An empty output selects src's first output.
func (r *Registry) Connect(src *target.Node, output string, dst *target.Node) (target.Edge, error) {
	ss := r.Lookup(src.Type)
	ds := r.Lookup(dst.Type)

	out, ok := ss.Output(output)
	if !ok {
		return target.Edge{}, &fcerrors.PortError{
			SourceType: src.Type, Output: output, TargetType: dst.Type,
			Msg: fmt.Sprintf("%s has no output %q", src.Type, output),
		}
	}
	if !Compatible(out, ds.Input) {
		return target.Edge{}, &fcerrors.PortError{
			SourceType: src.Type, Output: out.Name, TargetType: dst.Type,
			Msg: fmt.Sprintf("output types %v not accepted by %s %v", out.Types, ds.Input.Field, ds.Input.Accepts),
		}
	}

	return target.Edge{
		Source: src.ID,
		Target: dst.ID,
		SourceHandle: target.SourceHandle{
			DataType:    src.Type,
			ID:          src.ID,
			Name:        out.Name,
			OutputTypes: slices.Clone(out.Types),
		},
		TargetHandle: target.TargetHandle{
			FieldName:  ds.Input.Field,
			ID:         dst.ID,
			InputTypes: slices.Clone(ds.Input.Accepts),
			Type:       ds.Input.Kind,
		},
	}, nil
}

// Check verifies that an existing edge joins compatible ports of the nodes it
// names.
func (r *Registry) Check(e target.Edge, src, dst *target.Node) error {
	out, ok := r.Lookup(src.Type).Output(e.SourceHandle.Name)
	if !ok {
		return &fcerrors.PortError{SourceType: src.Type, Output: e.SourceHandle.Name, TargetType: dst.Type, Msg: "unknown output"}
	}
	in := r.Lookup(dst.Type).Input
	if e.TargetHandle.FieldName != in.Field {
		return &fcerrors.PortError{SourceType: src.Type, Output: out.Name, TargetType: dst.Type,
			Msg: fmt.Sprintf("edge targets %q, primary input is %q", e.TargetHandle.FieldName, in.Field)}
	}
	if !Compatible(out, in) {
		return &fcerrors.PortError{SourceType: src.Type, Output: out.Name, TargetType: dst.Type, Msg: "types do not intersect"}
	}
	return nil
}
