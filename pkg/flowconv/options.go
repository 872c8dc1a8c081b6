package flowconv

import (
	"log/slog"

	"github.com/randalmurphal/vapiflow/pkg/flowconv/observability"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/ports"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/routing"
	"github.com/randalmurphal/vapiflow/pkg/flowconv/source"
)

// Mode selects the conversion strategy.
type Mode string

// Conversion modes.
const (
	ModeMultiNode    Mode = "multinode"
	ModeConsolidated Mode = "consolidated"
)

// Component types used when no override is configured.
const (
	DefaultEntryType = "ChatInput"
	DefaultExitType  = "ChatOutput"
	DefaultModelType = "OpenAIModel"
	DefaultModelName = "gpt-4o"
)

// CredentialOpenAIKey names the credential written into model key slots.
const CredentialOpenAIKey = "OPENAI_API_KEY"

// convertConfig holds converter configuration.
type convertConfig struct {
	mode         Mode
	maxDepth     int
	lenientStart bool
	flowName     string
	modelName    string
	nodeTypes    map[source.Kind]string
	credentials  map[string]string
	gateOperator routing.Operator
	ports        *ports.Registry

	logger         *slog.Logger
	metricsEnabled bool
	metrics        observability.MetricsRecorder
	tracingEnabled bool
	spans          observability.SpanManager
}

// defaultConvertConfig returns the default configuration.
func defaultConvertConfig() convertConfig {
	return convertConfig{
		mode:      ModeMultiNode,
		maxDepth:  1,
		modelName: DefaultModelName,
		nodeTypes: map[source.Kind]string{
			source.KindConversation: DefaultModelType,
			source.KindTool:         DefaultExitType,
			source.KindOther:        DefaultModelType,
		},
		gateOperator: routing.OperatorContains,
		ports:        ports.Default(),
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
	}
}

// Option configures a Converter.
type Option func(*convertConfig)

// WithMode sets the conversion mode. Default: ModeMultiNode.
func WithMode(m Mode) Option {
	return func(c *convertConfig) {
		if m != "" {
			c.mode = m
		}
	}
}

// WithMaxDepth sets the deepest branch point, counted in transitions from
// the start node, that is compiled into a routing subgraph. Deeper or
// unreachable branch points keep their transitions as plain edges.
// Default: 1. Negative values disable routing.
func WithMaxDepth(n int) Option {
	return func(c *convertConfig) {
		c.maxDepth = n
	}
}

// WithLenientStart accepts workflows with zero or several start nodes,
// picking the first flagged node, else the first declared one, and
// reporting a warning. Without it such workflows are rejected.
func WithLenientStart(enabled bool) Option {
	return func(c *convertConfig) {
		c.lenientStart = enabled
	}
}

// WithFlowName overrides the emitted flow's name. Default: the workflow name.
func WithFlowName(name string) Option {
	return func(c *convertConfig) {
		c.flowName = name
	}
}

// WithModelName sets the model name of the consolidated model node.
// Default: "gpt-4o".
func WithModelName(name string) Option {
	return func(c *convertConfig) {
		if name != "" {
			c.modelName = name
		}
	}
}

// WithNodeType sets the component type emitted for a source node kind.
func WithNodeType(kind source.Kind, componentType string) Option {
	return func(c *convertConfig) {
		if componentType != "" {
			c.nodeTypes[kind] = componentType
		}
	}
}

// WithNodeTypes sets several node kind mappings at once. Keys are kind names.
func WithNodeTypes(types map[string]string) Option {
	return func(c *convertConfig) {
		for kind, typ := range types {
			if typ != "" {
				c.nodeTypes[source.ParseKind(kind)] = typ
			}
		}
	}
}

// WithCredentials sets values substituted for ${NAME} references in node
// configuration. The OPENAI_API_KEY credential is also written to the
// api_key or openai_api_key slot of every node that declares one.
func WithCredentials(creds map[string]string) Option {
	return func(c *convertConfig) {
		c.credentials = creds
	}
}

// WithGateOperator sets the decision gate operator for branch widths where
// it is free to choose. Default: routing.OperatorContains.
func WithGateOperator(op routing.Operator) Option {
	return func(c *convertConfig) {
		if op != "" {
			c.gateOperator = op
		}
	}
}

// WithPorts replaces the port type table used for wiring.
func WithPorts(r *ports.Registry) Option {
	return func(c *convertConfig) {
		if r != nil {
			c.ports = r
		}
	}
}

// WithLogger sets the structured logger. Nil disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *convertConfig) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// Default: false.
func WithMetrics(enabled bool) Option {
	return func(c *convertConfig) {
		c.metricsEnabled = enabled
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry tracing.
// Default: false.
func WithTracing(enabled bool) Option {
	return func(c *convertConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
