package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ModelMeta identifies a model client for telemetry purposes.
type ModelMeta struct {
	Provider string // provider name, e.g. "openai"
	Model    string // model name, e.g. "gpt-4"
}

// SpanName returns the deterministic span name for an operation against
// this model. Format: llm.<operation>.<model>
func (m ModelMeta) SpanName(operation string) string {
	return "llm." + operation + "." + m.Model
}

// Attributes returns the common telemetry attributes for this model.
func (m ModelMeta) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("llm.provider", m.Provider),
		attribute.String("llm.model", m.Model),
	}
}

// StartSpan starts a span for a model operation with identity attributes
// attached.
func StartSpan(ctx context.Context, tracer trace.Tracer, meta ModelMeta, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, meta.SpanName(operation),
		trace.WithAttributes(meta.Attributes()...),
		trace.WithAttributes(attribute.String("llm.operation", operation)),
	)
}

// EndSpan ends the span, recording err if non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
