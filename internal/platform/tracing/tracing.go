// Package tracing holds the span helpers and attribute keys of the HOS
// engine. Spans go to the global tracer provider, a no-op unless the operator
// installs an SDK.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "fleetops/hos"

var (
	AttrDriverID    = attribute.Key("hos.driver.id")
	AttrEntryID     = attribute.Key("hos.entry.id")
	AttrAmendmentID = attribute.Key("hos.amendment.id")
	AttrStatus      = attribute.Key("hos.duty_status")
	AttrRuleSet     = attribute.Key("hos.rule_set")
	AttrSequence    = attribute.Key("hos.sequence")
	AttrViolations  = attribute.Key("hos.violations")
	AttrCanDrive    = attribute.Key("hos.can_drive")
)

// Start opens a span on the engine's tracer.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
