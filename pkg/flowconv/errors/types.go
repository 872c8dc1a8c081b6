package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrUnknownComponentType indicates no template (or fallback) exists for a type.
	ErrUnknownComponentType = errors.New("unknown component type")

	// ErrMalformedSourceGraph indicates invalid input in the source workflow.
	ErrMalformedSourceGraph = errors.New("malformed source graph")

	// ErrRoutingCompilation indicates a routing invariant was violated.
	ErrRoutingCompilation = errors.New("routing compilation failed")

	// ErrIncompatiblePorts indicates an edge would join ports of different types.
	ErrIncompatiblePorts = errors.New("incompatible ports")
)

// UnknownComponentTypeError reports a missing template type.
type UnknownComponentTypeError struct {
	// Type is the requested component type.
	Type string
	// Tried lists the fallback types that were also missing.
	Tried []string
}

// Error implements the error interface.
func (e *UnknownComponentTypeError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("%s: %s (tried %s)", ErrUnknownComponentType, e.Type, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrUnknownComponentType, e.Type)
}

// Unwrap returns ErrUnknownComponentType.
func (e *UnknownComponentTypeError) Unwrap() error { return ErrUnknownComponentType }

// MalformedSourceGraphError reports a problem in the source workflow.
type MalformedSourceGraphError struct {
	// Field locates the problem, e.g. "nodes[2].name" or "edges[0].to".
	Field string
	// Msg describes the problem.
	Msg string
	// Fatal is set for graph-level violations such as a missing start node.
	Fatal bool
}

// Error implements the error interface.
func (e *MalformedSourceGraphError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedSourceGraph, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedSourceGraph, e.Msg)
}

// Unwrap returns ErrMalformedSourceGraph.
func (e *MalformedSourceGraphError) Unwrap() error { return ErrMalformedSourceGraph }

// RoutingCompilationError reports an internal invariant violation while
// compiling a branch point.
type RoutingCompilationError struct {
	// BranchPoint is the source node name being compiled.
	BranchPoint string
	// Msg describes the violation.
	Msg string
}

// Error implements the error interface.
func (e *RoutingCompilationError) Error() string {
	return fmt.Sprintf("%s: branch %s: %s", ErrRoutingCompilation, e.BranchPoint, e.Msg)
}

// Unwrap returns ErrRoutingCompilation.
func (e *RoutingCompilationError) Unwrap() error { return ErrRoutingCompilation }

// PortError reports an edge that cannot be typed.
type PortError struct {
	SourceType string
	Output     string
	TargetType string
	Msg        string
}

// Error implements the error interface.
func (e *PortError) Error() string {
	return fmt.Sprintf("%s: %s.%s -> %s: %s", ErrIncompatiblePorts, e.SourceType, e.Output, e.TargetType, e.Msg)
}

// Unwrap returns ErrIncompatiblePorts.
func (e *PortError) Unwrap() error { return ErrIncompatiblePorts }
