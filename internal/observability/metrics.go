package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// SimCollector bundles Prometheus metrics for the simulation loop: router
// churn, the per-tick topology and the routed path. It also counts RPCs on
// the status server.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	RouterEvents *prometheus.CounterVec
	FailedRouter prometheus.Gauge
	Links        prometheus.Gauge
	PathHops     prometheus.Gauge
	PathChanges  prometheus.Counter
	NoPathTicks  prometheus.Counter

	PathComputationDuration prometheus.Histogram

	RPCRequests *prometheus.CounterVec
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_ticks_total",
		Help: "Number of simulation ticks executed.",
	}), "netsim_ticks_total")
	if err != nil {
		return nil, err
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netsim_router_events_total",
		Help: "Router failure and recovery events, labeled by event.",
	}, []string{"event"}), "netsim_router_events_total")
	if err != nil {
		return nil, err
	}

	failed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_routers_failed",
		Help: "Routers currently marked failed.",
	}), "netsim_routers_failed")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_links",
		Help: "Links in the current topology snapshot.",
	}), "netsim_links")
	if err != nil {
		return nil, err
	}
	hops, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_path_hops",
		Help: "Hop count of the current source-destination path; -1 when there is none.",
	}), "netsim_path_hops")
	if err != nil {
		return nil, err
	}

	changes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_path_changes_total",
		Help: "Ticks on which the routed path differed from the previous tick.",
	}), "netsim_path_changes_total")
	if err != nil {
		return nil, err
	}
	noPath, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_no_path_ticks_total",
		Help: "Ticks on which the destination was unreachable.",
	}), "netsim_no_path_ticks_total")
	if err != nil {
		return nil, err
	}

	pathHistogram, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netsim_path_computation_duration_seconds",
		Help:    "Duration of topology rebuild plus shortest-path search per tick.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "netsim_path_computation_duration_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netsim_status_requests_total",
		Help: "Total number of handled status RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "netsim_status_requests_total")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:                gatherer,
		Ticks:                   ticks,
		RouterEvents:            events,
		FailedRouter:            failed,
		Links:                   links,
		PathHops:                hops,
		PathChanges:             changes,
		NoPathTicks:             noPath,
		PathComputationDuration: pathHistogram,
		RPCRequests:             requests,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one executed tick with its topology size.
func (c *SimCollector) ObserveTick(links, failed int) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Links.Set(float64(links))
	c.FailedRouter.Set(float64(failed))
}

// RouterFailed counts one injected failure.
func (c *SimCollector) RouterFailed(int) {
	if c == nil {
		return
	}
	c.RouterEvents.WithLabelValues("failed").Inc()
}

// RouterRecovered counts one recovery.
func (c *SimCollector) RouterRecovered(int) {
	if c == nil {
		return
	}
	c.RouterEvents.WithLabelValues("recovered").Inc()
}

// ObservePath records the hop count of this tick's path and whether it
// differs from the previous tick's.
func (c *SimCollector) ObservePath(hops int, changed bool) {
	if c == nil {
		return
	}
	c.PathHops.Set(float64(hops))
	if changed {
		c.PathChanges.Inc()
	}
}

// ObserveNoPath records a tick with an unreachable destination.
func (c *SimCollector) ObserveNoPath() {
	if c == nil {
		return
	}
	c.PathHops.Set(-1)
	c.NoPathTicks.Inc()
}

// ObservePathComputation records how long the rebuild and search took.
func (c *SimCollector) ObservePathComputation(d time.Duration) {
	if c == nil || c.PathComputationDuration == nil {
		return
	}
	c.PathComputationDuration.Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts for unary status RPCs.
func (c *SimCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)

		if c == nil || c.RPCRequests == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		return resp, err
	}
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
