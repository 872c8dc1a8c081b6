// Package placeholder substitutes ${name} references in strings and in
// nested component configuration.
//
// Only the brace form is recognized unless WithBareNames is set; prompts
// routinely contain dollar amounts, and "$20" must survive rendering.
// Substitution is a single pass: a value that itself contains "${x}" is
// inserted verbatim and never expanded again.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bracePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	// Bare names must end on a word boundary, so $port does not match $portNumber.
	combinedPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)\b`)
)

// Missing selects what happens to a reference with no value.
type Missing int

const (
	// MissingKeep leaves the reference in place.
	MissingKeep Missing = iota
	// MissingEmpty removes the reference.
	MissingEmpty
	// MissingError fails with an *UndefinedError.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissing sets the policy for unresolved references. Default MissingKeep.
func WithMissing(m Missing) Option {
	return func(e *Expander) { e.missing = m }
}

// WithBareNames also expands $name references.
func WithBareNames(enabled bool) Option {
	return func(e *Expander) { e.bare = enabled }
}

// Expander substitutes references. Safe for concurrent use.
type Expander struct {
	missing Missing
	bare    bool
}

// New creates an Expander.
func New(opts ...Option) *Expander {
	e := &Expander{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UndefinedError lists references that had no value, in order of appearance.
type UndefinedError struct {
	Names []string
}

func (e *UndefinedError) Error() string {
	if len(e.Names) == 1 {
		return "undefined placeholder: " + e.Names[0]
	}
	return "undefined placeholders: " + strings.Join(e.Names, ", ")
}

// Expand substitutes references in s.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}
	pattern := bracePattern
	if e.bare {
		pattern = combinedPattern
	}

	var undefined []string
	out := pattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.TrimPrefix(ref, "$")
		name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
		if v, ok := vars[name]; ok {
			return fmt.Sprint(v)
		}
		switch e.missing {
		case MissingEmpty:
			return ""
		case MissingError:
			undefined = append(undefined, name)
		}
		return ref
	})
	if len(undefined) > 0 {
		return out, &UndefinedError{Names: undefined}
	}
	return out, nil
}

// ExpandMap returns a copy of m with every string expanded, descending into
// nested maps and slices. Other values are shared with m.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		x, err := e.expandValue(v, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = x
	}
	return out, nil
}

func (e *Expander) expandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			x, err := e.expandValue(item, vars)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	default:
		return v, nil
	}
}

var std = New()

// Expand substitutes ${name} references, keeping unresolved ones.
func Expand(s string, vars map[string]any) string {
	out, _ := std.Expand(s, vars)
	return out
}

// Strings converts a string map into expansion variables.
func Strings(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
