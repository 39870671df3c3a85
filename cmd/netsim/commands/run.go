package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/core"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/config"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/observability"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/render"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/sim"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/status"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/timectrl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type runFlags struct {
	configPath     string
	nodes          int
	seed           int64
	maxTicks       uint64
	accelerated    bool
	stopOnComplete bool
	logLevel       string
	metricsAddr    string
	wsAddr         string
	statusAddr     string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "config file (defaults to $"+configEnv+")")
	flags.IntVar(&f.nodes, "nodes", 0, "number of routers")
	flags.Int64Var(&f.seed, "seed", 0, "random seed (0 seeds from the clock)")
	flags.Uint64Var(&f.maxTicks, "max-ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	flags.BoolVar(&f.accelerated, "accelerated", false, "run ticks without wall-clock pacing")
	flags.BoolVar(&f.stopOnComplete, "stop-on-complete", false, "stop when a transfer completes")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&f.wsAddr, "ws-addr", "", "stream frames over WebSocket on this address")
	flags.StringVar(&f.statusAddr, "status-addr", "", "serve gRPC health on this address")
	return cmd
}

// apply overlays flags the user set explicitly.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("nodes") {
		cfg.Simulation.Nodes = f.nodes
	}
	if changed("seed") {
		cfg.Simulation.Seed = f.seed
	}
	if changed("max-ticks") {
		cfg.Runtime.MaxTicks = f.maxTicks
	}
	if changed("accelerated") && f.accelerated {
		cfg.Runtime.Mode = timectrl.Accelerated.String()
	}
	if changed("stop-on-complete") {
		cfg.Runtime.StopOnComplete = f.stopOnComplete
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("metrics-addr") {
		cfg.Metrics.Enabled, cfg.Metrics.Listen = true, f.metricsAddr
	}
	if changed("ws-addr") {
		cfg.Render.WebSocket, cfg.Render.Listen = true, f.wsAddr
	}
	if changed("status-addr") {
		cfg.Status.Enabled, cfg.Status.Listen = true, f.statusAddr
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// run wires the simulation and its servers and blocks until the engine
// stops or ctx is cancelled. cfg must be validated.
func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	log := logging.NewWithWriter(cfg.LoggingConfig(), logOut)
	ctx, runID := logging.EnsureRunID(ctx)
	ctx = logging.ContextWithLogger(ctx, log.With(logging.String("run_id", runID)))

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	simCfg := cfg.SimConfig()
	routers, err := initialRouters(cfg.Simulation.LayoutFile, simCfg.NodeCount, rng)
	if err != nil {
		return err
	}
	controller, err := sim.NewController(simCfg, routers,
		sim.WithRand(rng),
		sim.WithLogger(log),
		sim.WithRecorder(collector),
		sim.WithTracer(otel.Tracer("netsim")),
	)
	if err != nil {
		return err
	}

	clock := timectrl.NewTimeController(cfg.Runtime.TickInterval, cfg.Mode())
	engine := sim.NewEngine(controller, clock, log)
	engine.StopOnComplete = cfg.Runtime.StopOnComplete

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Render.Console {
		engine.RegisterRenderer(render.NewConsole(log))
	}
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
		if err := serveHTTP(gctx, g, "metrics", cfg.Metrics.Listen, mux, log); err != nil {
			return err
		}
	}
	if cfg.Render.WebSocket {
		hub := render.NewHub(log)
		engine.RegisterRenderer(hub)
		g.Go(func() error { return hub.Run(gctx) })
		mux := http.NewServeMux()
		mux.Handle(cfg.Render.Path, hub)
		if err := serveHTTP(gctx, g, "websocket", cfg.Render.Listen, mux, log); err != nil {
			return err
		}
	}
	if cfg.Status.Enabled {
		lis, err := net.Listen("tcp", cfg.Status.Listen)
		if err != nil {
			return fmt.Errorf("status listen: %w", err)
		}
		srv := status.NewServer(gctx, log, collector.UnaryServerInterceptor())
		engine.RegisterRenderer(srv)
		log.Info(ctx, "serving gRPC health", logging.String("addr", lis.Addr().String()))
		g.Go(func() error { return srv.Serve(lis) })
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
	}

	log.Info(ctx, "network initialised",
		logging.Int("routers", simCfg.NodeCount),
		logging.Int("source", simCfg.Source),
		logging.Int("destination", simCfg.Destination),
		logging.Any("seed", seed),
	)

	g.Go(func() error {
		defer cancel()
		return engine.Run(gctx, cfg.Runtime.MaxTicks)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	last := engine.LastFrame()
	log.Info(ctx, "run finished",
		logging.Uint64("ticks", last.Tick),
		logging.String("status", string(last.Status)),
		logging.Float("progress", last.Progress),
	)
	return nil
}

// initialRouters loads the layout file when one is configured and places
// routers at random otherwise.
func initialRouters(path string, n int, rng sim.Rand) ([]model.Router, error) {
	if path == "" {
		return sim.RandomLayout(n, rng), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer f.Close()
	return core.LoadLayout(f)
}

// serveHTTP listens on addr and serves handler until ctx is done.
func serveHTTP(ctx context.Context, g *errgroup.Group, name, addr string, handler http.Handler, log logging.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s listen: %w", name, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	log.Info(ctx, "serving "+name, logging.String("addr", lis.Addr().String()))

	g.Go(func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return nil
}
