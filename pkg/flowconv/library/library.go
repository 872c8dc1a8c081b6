// Package library holds the component templates a conversion clones target
// nodes from.
//
// Templates are discovered from reference flow documents: every node in the
// document is indexed by its data.type, and the first occurrence of a type
// wins. Loading several documents layers them; types already present are
// kept.
package library

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/registry"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/target"

	fcerrors "github.com/randalmurphal/vapiflow/pkg/flowconv/errors"
)

// Template is one component prototype.
type Template struct {
	Type string
	Doc  map[string]any
}

// DefaultFallbacks are the substitutions tried when a chat model type is
// missing.
func DefaultFallbacks() map[string][]string {
	return map[string][]string{
		"OpenAIModel": {"OpenAI", "Agent"},
		"OpenAI":      {"OpenAIModel", "Agent"},
		"Agent":       {"OpenAIModel", "OpenAI"},
	}
}

// Library is a read-mostly template index. Safe for concurrent use.
type Library struct {
	templates *registry.Registry[string, Template]
	fallbacks map[string][]string
	ids       target.IDGenerator
}

// Option configures a Library.
type Option func(*Library)

// WithIDGenerator sets the identity hook used by Clone.
// Default: target.NewUUIDGenerator().
func WithIDGenerator(g target.IDGenerator) Option {
	return func(l *Library) { l.ids = g }
}

// WithFallbacks replaces the fallback chains. Default: DefaultFallbacks().
func WithFallbacks(fb map[string][]string) Option {
	return func(l *Library) { l.fallbacks = fb }
}

// New creates an empty library.
func New(opts ...Option) *Library {
	l := &Library{
		templates: registry.New[string, Template](),
		fallbacks: DefaultFallbacks(),
		ids:       target.NewUUIDGenerator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IDs returns the library's identity generator.
func (l *Library) IDs() target.IDGenerator {
	return l.ids
}

type referenceDoc struct {
	Data *struct {
		Nodes []map[string]any `json:"nodes"`
	} `json:"data"`
	Nodes []map[string]any `json:"nodes"`
}

// Load indexes the nodes of a reference document shaped either as a flow
// ({"data": {"nodes": [...]}}) or as a bare node list holder
// ({"nodes": [...]}). It returns the number of types added.
func (l *Library) Load(r io.Reader) (int, error) {
	var doc referenceDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("decode component library: %w", err)
	}
	nodes := doc.Nodes
	if doc.Data != nil && len(doc.Data.Nodes) > 0 {
		nodes = doc.Data.Nodes
	}

	added := 0
	for _, n := range nodes {
		data, _ := n["data"].(map[string]any)
		typ, _ := data["type"].(string)
		if typ == "" {
			continue
		}
		if l.Register(Template{Type: typ, Doc: n}) {
			added++
		}
	}
	return added, nil
}

// LoadFile loads a reference document from disk.
func (l *Library) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open component library: %w", err)
	}
	defer f.Close()

	n, err := l.Load(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Register adds t unless its type is already present, and reports whether
// it did. The template document is copied.
func (l *Library) Register(t Template) bool {
	return l.templates.Add(t.Type, Template{Type: t.Type, Doc: deepCopyMap(t.Doc)})
}

// Has reports whether typ is present, without fallbacks.
func (l *Library) Has(typ string) bool {
	return l.templates.Has(typ)
}

// Types returns the indexed types in discovery order.
func (l *Library) Types() []string {
	return l.templates.Keys()
}

// Len returns the number of indexed types.
func (l *Library) Len() int {
	return l.templates.Len()
}

// Resolve returns the type that Get would use for typ.
func (l *Library) Resolve(typ string) (string, error) {
	if l.templates.Has(typ) {
		return typ, nil
	}
	tried := l.fallbacks[typ]
	for _, alt := range tried {
		if l.templates.Has(alt) {
			return alt, nil
		}
	}
	return "", &fcerrors.UnknownComponentTypeError{Type: typ, Tried: tried}
}

// Get returns the template for typ, following its fallback chain.
// The returned document is shared with the library and must not be
// modified; use Clone for a mutable copy.
func (l *Library) Get(typ string) (Template, error) {
	resolved, err := l.Resolve(typ)
	if err != nil {
		return Template{}, err
	}
	t, _ := l.templates.Get(resolved)
	return t, nil
}

// Clone returns an independent node built from the template for typ, with a
// fresh id. The node's Type is the resolved template type.
func (l *Library) Clone(typ string) (*target.Node, error) {
	t, err := l.Get(typ)
	if err != nil {
		return nil, err
	}
	n := target.NewNode(l.ids.NodeID(t.Type), t.Type, deepCopyMap(t.Doc))
	n.SyncIdentity()
	return n, nil
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		// JSON scalars are immutable.
		return v
	}
}
