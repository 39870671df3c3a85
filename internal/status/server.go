package status

import (
	"context"
	"net"
	"sync"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service reporting whether the transfer has a
// path. The empty service reports process liveness.
const ServiceName = "netsim.Transfer"

// Server is a gRPC health endpoint driven by simulation frames. It is a
// sim.Renderer: every frame updates the transfer service status.
type Server struct {
	log    logging.Logger
	health *health.Server
	grpc   *grpc.Server

	mu      sync.Mutex
	serving bool
	known   bool
}

// NewServer builds the gRPC server. interceptors run after the logging and
// tracing interceptors, typically the metrics interceptor.
func NewServer(ctx context.Context, log logging.Logger, interceptors ...grpc.UnaryServerInterceptor) *Server {
	if log == nil {
		log = logging.Noop()
	}
	chain := append([]grpc.UnaryServerInterceptor{
		LoggingUnaryServerInterceptor(log, logging.RunIDFromContext(ctx)),
		TracingUnaryServerInterceptor(),
	}, interceptors...)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{log: log, health: hs, grpc: srv}
}

// Render maps the frame status onto the transfer service: SERVING while a
// path exists, NOT_SERVING otherwise.
func (s *Server) Render(ctx context.Context, f sim.Frame) error {
	serving := f.Status != sim.StatusNoPath

	s.mu.Lock()
	changed := !s.known || serving != s.serving
	s.serving, s.known = serving, true
	s.mu.Unlock()
	if !changed {
		return nil
	}

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.log.Debug(ctx, "transfer health changed",
		logging.Uint64("tick", f.Tick),
		logging.String("status", st.String()),
	)
	return nil
}

// Serve blocks serving gRPC on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
