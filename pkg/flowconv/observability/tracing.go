package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles span lifecycle.
// Use NewSpanManager for OpenTelemetry or NoopSpanManager when disabled.
type SpanManager interface {
	// StartConversionSpan starts the span covering one conversion.
	StartConversionSpan(ctx context.Context, flow, mode string) (context.Context, trace.Span)

	// StartPhaseSpan starts a child span for one conversion phase.
	StartPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span)

	// EndSpanWithError ends span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager on the global tracer provider.
// The tracer is looked up per span, so providers installed later apply.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func (otelSpanManager) StartConversionSpan(ctx context.Context, flow, mode string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "vapiflow.convert",
		trace.WithAttributes(
			attribute.String("flow.name", flow),
			attribute.String("conversion.mode", mode),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "vapiflow."+phase,
		trace.WithAttributes(attribute.String("conversion.phase", phase)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
