package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskdesk"

// StartTransitionSpan starts a span for one task lifecycle transition.
func StartTransitionSpan(ctx context.Context, operation, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task."+operation,
		trace.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
}

// StartQuerySpan starts a span for one list/count query execution.
func StartQuerySpan(ctx context.Context, entity string, filterCount int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query."+entity,
		trace.WithAttributes(
			attribute.Int("query.filters", filterCount),
		),
	)
}

// StartBulkSpan starts a span for one bulk batch.
func StartBulkSpan(ctx context.Context, operation string, size int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bulk."+operation,
		trace.WithAttributes(
			attribute.Int("bulk.size", size),
		),
	)
}
