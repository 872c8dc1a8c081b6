package source

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

var validate = validator.New()

// Sanitize returns a copy of g with malformed occurrences removed, plus one
// recoverable *MalformedSourceGraphError per removal:
//   - nodes without a name
//   - later nodes repeating an earlier name
//   - variables without a title
//   - edges with an empty endpoint or naming an unknown node
//
// Order of the surviving nodes and edges is preserved.
func Sanitize(g *Graph) (*Graph, []error) {
	out := &Graph{Name: g.Name}
	var warnings []error
	warn := func(field, format string, args ...any) {
		warnings = append(warnings, &fcerrors.MalformedSourceGraphError{
			Field: field,
			Msg:   fmt.Sprintf(format, args...),
		})
	}

	seen := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if err := validate.Struct(n); err != nil {
			warn(field, "node dropped: %s", describe(err))
			continue
		}
		if seen[n.Name] {
			warn(field, "node dropped: duplicate name %q", n.Name)
			continue
		}
		seen[n.Name] = true

		vars := make([]Variable, 0, len(n.Variables))
		for j, v := range n.Variables {
			if err := validate.Struct(v); err != nil {
				warn(fmt.Sprintf("%s.variables[%d]", field, j), "variable dropped: %s", describe(err))
				continue
			}
			vars = append(vars, v)
		}
		if len(vars) == 0 {
			vars = nil
		}
		n.Variables = vars
		out.Nodes = append(out.Nodes, n)
	}

	for i, e := range g.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if err := validate.Struct(e); err != nil {
			warn(field, "edge dropped: %s", describe(err))
			continue
		}
		if !seen[e.From] {
			warn(field+".from", "edge dropped: unknown node %q", e.From)
			continue
		}
		if !seen[e.To] {
			warn(field+".to", "edge dropped: unknown node %q", e.To)
			continue
		}
		out.Edges = append(out.Edges, e)
	}

	return out, warnings
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
