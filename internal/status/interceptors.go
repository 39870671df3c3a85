package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	runIDMetadataKey = "x-run-id"
	tracerName       = "github.com/AnastasyaSeveryukhina/interval-and-networks/internal/status"
)

// LoggingUnaryServerInterceptor attaches a per-call logger annotated with
// the method and run_id. A run_id in inbound metadata is kept; otherwise
// the server's run id is used.
func LoggingUnaryServerInterceptor(base logging.Logger, runID string) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		id := runID
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if incoming := firstHeader(md, runIDMetadataKey); incoming != "" {
				id = incoming
			}
		}
		if id != "" {
			ctx = logging.ContextWithRunID(ctx, id)
		}

		ctx, callLog := logging.WithRunLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, callLog)

		resp, err := handler(ctx, req)
		if err != nil {
			callLog.Debug(ctx, "status call failed", logging.Err(err))
		}
		return resp, err
	}
}

// TracingUnaryServerInterceptor names and annotates the server span, starting
// one when no stats handler created it.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		spanName := fmt.Sprintf("Status/%s/%s", service, method)
		span := trace.SpanFromContext(ctx)
		created := false
		if !span.SpanContext().IsValid() {
			ctx, span = tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
			created = true
		} else {
			span.SetName(spanName)
		}

		attrs := []attribute.KeyValue{
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("rpc.full_method", strings.TrimPrefix(info.FullMethod, "/")),
		}
		if runID := logging.RunIDFromContext(ctx); runID != "" {
			attrs = append(attrs, attribute.String("run_id", runID))
		}
		span.SetAttributes(attrs...)

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return resp, err
	}
}

func firstHeader(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
