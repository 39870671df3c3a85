package sim

import (
	"context"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"

// StartTickSpan starts the span covering one controller tick. A nil tracer
// falls back to the global provider.
func StartTickSpan(ctx context.Context, tracer trace.Tracer, tick uint64, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	attrs := make([]attribute.KeyValue, 0, len(extra)+2)
	attrs = append(attrs, attribute.Int64("sim.tick", int64(tick)))
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}
	attrs = append(attrs, extra...)
	return tracer.Start(ctx, "Sim/Tick", trace.WithAttributes(attrs...))
}

// StartChildSpan starts a span for one phase of a tick.
func StartChildSpan(ctx context.Context, tracer trace.Tracer, name string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(extra...))
}
