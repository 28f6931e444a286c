package observability

import (
	"context"
	"log/slog"
	"time"

	"chirp/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartOperation opens a span for a service operation and returns a finish
// function to defer with a pointer to the operation's named error result.
// Finishing records latency, an outcome counter labelled with the AppError
// code, and logs failures that are not caller mistakes.
func StartOperation(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := Tracer.Start(ctx, component+"."+operation, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attrs...)

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}

		outcome := "ok"
		if err != nil {
			outcome = models.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		OperationsTotal.WithLabelValues(component, operation, outcome).Inc()
		OperationLatency.WithLabelValues(component, operation).Observe(time.Since(start).Seconds())

		switch outcome {
		case "ok", models.CodeValidation, models.CodeNotFound, models.CodeConflict, models.CodePermissionDenied:
		default:
			Logger.ErrorContext(ctx, "operation failed",
				slog.String("component", component),
				slog.String("operation", operation),
				slog.String("code", outcome),
				slog.String("error", err.Error()),
			)
		}
	}
}
