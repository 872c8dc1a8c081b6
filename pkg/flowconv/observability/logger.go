// Package observability carries the converter's logging, metrics, and
// tracing helpers.
//
// Logging uses log/slog. Metrics and tracing use OpenTelemetry through the
// global providers; both have no-op implementations for when they are
// disabled. Every helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// Log attribute keys.
const (
	KeyFlow       = "flow"
	KeyMode       = "mode"
	KeyNode       = "node"
	KeyNodeID     = "node_id"
	KeyBranch     = "branch"
	KeyWidth      = "width"
	KeyDurationMs = "duration_ms"
)

// EnrichLogger scopes a logger to one conversion.
func EnrichLogger(logger *slog.Logger, flow, mode string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String(KeyFlow, flow), slog.String(KeyMode, mode))
}

// LogConversionStart logs the start of a conversion.
func LogConversionStart(logger *slog.Logger, nodes, edges int) {
	if logger == nil {
		return
	}
	logger.Info("conversion starting",
		slog.Int("source_nodes", nodes),
		slog.Int("source_edges", edges),
	)
}

// LogConversionComplete logs a successful conversion.
func LogConversionComplete(logger *slog.Logger, durationMs float64, nodes, edges, warnings int) {
	if logger == nil {
		return
	}
	logger.Info("conversion completed",
		slog.Float64(KeyDurationMs, durationMs),
		slog.Int("target_nodes", nodes),
		slog.Int("target_edges", edges),
		slog.Int("warnings", warnings),
	)
}

// LogConversionError logs a failed conversion.
func LogConversionError(logger *slog.Logger, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("conversion failed",
		slog.String("error", err.Error()),
		slog.Float64(KeyDurationMs, durationMs),
	)
}

// LogNodeConverted logs a source node turned into a target node.
func LogNodeConverted(logger *slog.Logger, name, id, componentType string) {
	if logger == nil {
		return
	}
	logger.Debug("node converted",
		slog.String(KeyNode, name),
		slog.String(KeyNodeID, id),
		slog.String("type", componentType),
	)
}

// LogNodeSkipped logs a source node that produced no target node.
func LogNodeSkipped(logger *slog.Logger, name, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("node skipped",
		slog.String(KeyNode, name),
		slog.String("reason", reason),
	)
}

// LogEdgeDropped logs a source edge that was not wired.
func LogEdgeDropped(logger *slog.Logger, from, to, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("edge dropped",
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
	)
}

// LogWarning logs a recoverable input problem.
func LogWarning(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("malformed input", slog.String("error", err.Error()))
}

// LogRoutingCompiled logs a compiled branch point.
func LogRoutingCompiled(logger *slog.Logger, branch string, width, gates int) {
	if logger == nil {
		return
	}
	logger.Debug("routing compiled",
		slog.String(KeyBranch, branch),
		slog.Int(KeyWidth, width),
		slog.Int("gates", gates),
	)
}

// LogBranchPassThrough logs a branch point wired with direct edges.
func LogBranchPassThrough(logger *slog.Logger, branch string, depth int) {
	if logger == nil {
		return
	}
	logger.Debug("branch passed through",
		slog.String(KeyBranch, branch),
		slog.Int("depth", depth),
	)
}

// TimedOperation returns a function reporting the milliseconds elapsed since
// TimedOperation was called.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
