package flowconv

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion input.
var (
	// ErrNilContext indicates Convert was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilGraph indicates Convert was called without a source graph.
	ErrNilGraph = errors.New("source graph cannot be nil")
)

// Conversion phases reported by ConversionError.
const (
	PhaseValidate = "validate"
	PhaseNodes    = "nodes"
	PhaseRouting  = "routing"
	PhaseWiring   = "wiring"
)

// ConversionError wraps a fatal error with the phase and source node it
// occurred at.
type ConversionError struct {
	// Phase is the conversion phase that failed.
	Phase string
	// Node is the source node being processed, if any.
	Node string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("convert (%s): %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("convert (%s) at node %s: %v", e.Phase, e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConversionError) Unwrap() error {
	return e.Err
}
