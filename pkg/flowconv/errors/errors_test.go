package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		expected string
	}{
		{CategoryFatal, "fatal"},
		{CategoryRecoverable, "recoverable"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.category.String(); got != tt.expected {
				t.Errorf("Category(%d).String() = %s, want %s", tt.category, got, tt.expected)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Category
	}{
		{"nil error", nil, CategoryFatal},
		{"unknown component", &UnknownComponentTypeError{Type: "Agent"}, CategoryFatal},
		{"malformed edge", &MalformedSourceGraphError{Field: "edges[0].to", Msg: "unknown node"}, CategoryRecoverable},
		{"missing start", &MalformedSourceGraphError{Msg: "no start node", Fatal: true}, CategoryFatal},
		{"wrapped malformed", fmt.Errorf("parse: %w", &MalformedSourceGraphError{Msg: "x"}), CategoryRecoverable},
		{"routing", &RoutingCompilationError{BranchPoint: "a", Msg: "k < 2"}, CategoryFatal},
		{"ports", &PortError{Msg: "type mismatch"}, CategoryFatal},
		{"categorized override", Recoverable(errors.New("boom"), "convert"), CategoryRecoverable},
		{"plain error", errors.New("unknown"), CategoryFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.expected {
				t.Errorf("Categorize() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("IsFatal(nil) = true, want false")
	}
	if !IsFatal(&UnknownComponentTypeError{Type: "ChatInput"}) {
		t.Error("unknown component type should be fatal")
	}
	if IsFatal(&MalformedSourceGraphError{Msg: "dangling edge"}) {
		t.Error("dangling edge should not be fatal")
	}
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"unknown component", &UnknownComponentTypeError{Type: "X"}, ErrUnknownComponentType},
		{"malformed", &MalformedSourceGraphError{Msg: "x"}, ErrMalformedSourceGraph},
		{"routing", &RoutingCompilationError{Msg: "x"}, ErrRoutingCompilation},
		{"ports", &PortError{Msg: "x"}, ErrIncompatiblePorts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			"unknown with fallbacks",
			&UnknownComponentTypeError{Type: "OpenAIModel", Tried: []string{"OpenAI", "Agent"}},
			"unknown component type: OpenAIModel (tried OpenAI, Agent)",
		},
		{
			"malformed with field",
			&MalformedSourceGraphError{Field: "nodes[1].name", Msg: "required"},
			"malformed source graph: nodes[1].name: required",
		},
		{
			"routing",
			&RoutingCompilationError{BranchPoint: "start", Msg: "needs at least 2 edges"},
			"routing compilation failed: branch start: needs at least 2 edges",
		},
		{
			"categorized",
			Fatal(errors.New("failed"), "clone"),
			"clone: failed (category: fatal)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}
