package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/core"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/kb"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	discardNoPath      = "no_path"
	discardPathChanged = "path_changed"
)

// Option customises a Controller.
type Option func(*Controller)

// WithRand injects the random source used for failure and recovery draws
// and for channel shuffling.
func WithRand(rng Rand) Option {
	return func(c *Controller) { c.rng = rng }
}

// WithLogger sets the controller logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithTracer sets the tracer used for tick spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// Controller owns all mutable simulation state and advances it one tick per
// Step call. It is not safe for concurrent use.
type Controller struct {
	cfg          Config
	kb           *kb.KnowledgeBase
	connectivity *core.ConnectivityService
	topology     *core.Topology
	injector     *FailureInjector

	rng      Rand
	log      logging.Logger
	recorder Recorder
	tracer   trace.Tracer

	tick     uint64
	state    TransferState
	prevPath []int
}

// NewController validates cfg and the initial routers. routers must hold
// exactly cfg.NodeCount routers with ids 0..NodeCount-1.
func NewController(cfg Config, routers []model.Router, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(routers) != cfg.NodeCount {
		return nil, fmt.Errorf("%w: got %d routers, want %d", ErrRouterMismatch, len(routers), cfg.NodeCount)
	}

	store := kb.NewKnowledgeBase()
	for _, r := range routers {
		if r.ID < 0 || r.ID >= cfg.NodeCount {
			return nil, fmt.Errorf("%w: router id %d", ErrRouterMismatch, r.ID)
		}
		if r.Failed && (r.ID == cfg.Source || r.ID == cfg.Destination) {
			return nil, fmt.Errorf("%w: endpoint %d starts failed", ErrRouterMismatch, r.ID)
		}
		if err := store.AddRouter(r); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRouterMismatch, err)
		}
	}
	store.Protect(cfg.Source, cfg.Destination)

	c := &Controller{
		cfg:          cfg,
		kb:           store,
		connectivity: core.NewConnectivityService(cfg.Radius),
		topology:     core.NewTopology(),
		state:        Suspended{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.log == nil {
		c.log = logging.Noop()
	}
	if c.recorder == nil {
		c.recorder = noopRecorder{}
	}
	c.injector = NewFailureInjector(c.rng, cfg.FailureProbability, cfg.RecoveryProbability)

	store.Subscribe(func(e kb.Event) {
		switch e.Type {
		case kb.EventRouterFailed:
			c.recorder.RouterFailed(e.Router.ID)
		case kb.EventRouterRecovered:
			c.recorder.RouterRecovered(e.Router.ID)
		}
	})
	return c, nil
}

// Config returns the validated configuration.
func (c *Controller) Config() Config { return c.cfg }

// Tick returns the number of completed steps.
func (c *Controller) Tick() uint64 { return c.tick }

// State returns the current transfer state.
func (c *Controller) State() TransferState { return c.state }

// Routers returns a copy of the current router state.
func (c *Controller) Routers() []model.Router { return c.kb.Routers() }

// Step runs one tick: failure injection, recovery, topology rebuild, path
// query, then either continues the current transfer or starts a new one.
func (c *Controller) Step(ctx context.Context) Frame {
	c.tick++
	ctx, span := StartTickSpan(ctx, c.tracer, c.tick)
	defer span.End()
	ctx = logging.ContextWithTick(ctx, c.tick)

	c.injectFailure(ctx)
	c.injectRecovery(ctx)

	routers := c.kb.Routers()
	start := time.Now()
	_, rebuildSpan := StartChildSpan(ctx, c.tracer, "Sim/Rebuild")
	nodes, links := c.connectivity.Snapshot(routers)
	c.topology.Rebuild(nodes, links)
	path := c.topology.PathTo(c.cfg.Source, c.cfg.Destination)
	rebuildSpan.SetAttributes(attribute.Int("sim.links", len(links)))
	rebuildSpan.End()
	c.recorder.ObservePathComputation(time.Since(start))
	c.recorder.ObserveTick(len(links), c.kb.FailedCount())

	frame := Frame{
		Tick:    c.tick,
		Routers: routerViews(routers, c.cfg.Source, c.cfg.Destination),
	}

	if len(path) == 0 {
		c.suspend(ctx)
		c.recorder.ObserveNoPath()
		c.recorder.SetProgress(0)
		frame.Status = StatusNoPath
		span.SetAttributes(attribute.String("sim.status", string(frame.Status)))
		c.log.Debug(ctx, "no path to destination",
			logging.Int("links", len(links)),
		)
		return frame
	}

	frame.Links = links
	frame.Path = append([]int(nil), path...)
	frame.PathLength = core.PathLength(path, positions(routers))

	changed := !core.SamePath(path, c.prevPath)
	c.recorder.ObservePath(len(path)-1, changed)
	if changed {
		c.restart(ctx, path)
		frame.Status = StatusStarted
	} else {
		frame.Status = c.advance(ctx)
	}
	c.prevPath = append([]int(nil), path...)

	active := c.state.(*Active)
	frame.Progress = active.Progress()
	frame.TransferID = active.ID.String()
	c.recorder.SetProgress(frame.Progress)

	span.SetAttributes(
		attribute.String("sim.status", string(frame.Status)),
		attribute.Int("sim.path_hops", frame.Hops()),
		attribute.String("transfer.id", frame.TransferID),
	)
	c.log.Debug(ctx, "tick",
		logging.Int("links", len(links)),
		logging.Int("hops", frame.Hops()),
		logging.Float("progress", frame.Progress),
	)
	return frame
}

func positions(routers []model.Router) map[int]model.Position {
	out := make(map[int]model.Position, len(routers))
	for _, r := range routers {
		out[r.ID] = r.Position
	}
	return out
}

func (c *Controller) injectFailure(ctx context.Context) {
	id, ok := c.injector.PickFailure(c.kb.Candidates(false))
	if !ok {
		return
	}
	if err := c.kb.SetFailed(id, true); err != nil {
		c.log.Warn(ctx, "failure injection rejected", logging.Int("router", id), logging.Err(err))
		return
	}
	c.log.Info(ctx, "router failed", logging.Int("router", id))
}

func (c *Controller) injectRecovery(ctx context.Context) {
	id, ok := c.injector.PickRecovery(c.kb.Candidates(true))
	if !ok {
		return
	}
	if err := c.kb.SetFailed(id, false); err != nil {
		c.log.Warn(ctx, "recovery rejected", logging.Int("router", id), logging.Err(err))
		return
	}
	c.log.Info(ctx, "router recovered", logging.Int("router", id))
}

// suspend discards any transfer. Progress shows 0.0 until a path returns,
// and the returning path always counts as a change.
func (c *Controller) suspend(ctx context.Context) {
	if _, ok := c.state.(Suspended); ok {
		return
	}
	c.discard(ctx, discardNoPath)
	c.state = Suspended{Since: c.tick}
	c.prevPath = nil
	c.log.Info(ctx, "transfer suspended")
}

func (c *Controller) discard(ctx context.Context, reason string) {
	active, ok := c.state.(*Active)
	if !ok || active.Done() {
		return
	}
	c.recorder.TransferDiscarded(reason)
	c.log.Info(ctx, "transfer discarded",
		logging.String("transfer_id", active.ID.String()),
		logging.String("reason", reason),
		logging.Float("progress", active.Progress()),
	)
}

// restart replaces any transfer with a fresh one bound to path. The new
// transfer is not stepped on the tick it starts.
func (c *Controller) restart(ctx context.Context, path []int) {
	c.discard(ctx, discardPathChanged)

	cfg := c.cfg.Transfer
	if len(path) == 1 {
		// Source and destination coincide: the whole stream fits in one
		// window and completes in a single exchange. In flight may exceed
		// the configured window only for this loopback transfer.
		cfg.WindowSize = cfg.MessageCount
	}
	var opts []arq.Option
	if c.cfg.ShuffleChannels {
		if s, ok := c.rng.(arq.Shuffler); ok {
			opts = append(opts, arq.WithShuffle(s))
		}
	}
	transfer, err := arq.NewTransfer(cfg, opts...)
	if err != nil {
		// cfg.Transfer was validated in NewController and widening the
		// window keeps it valid.
		panic(fmt.Sprintf("sim: building transfer: %v", err))
	}

	active := &Active{
		ID:       uuid.New(),
		Path:     append([]int(nil), path...),
		Started:  c.tick,
		Transfer: transfer,
	}
	c.state = active
	c.recorder.TransferStarted()
	c.log.Info(ctx, "transfer started",
		logging.String("transfer_id", active.ID.String()),
		logging.Int("hops", len(path)-1),
		logging.Any("path", path),
	)
}

// advance steps the active transfer once on an unchanged path.
func (c *Controller) advance(ctx context.Context) Status {
	active := c.state.(*Active)
	if active.completed {
		return StatusComplete
	}

	before := active.Transfer.Stats()
	active.Transfer.Step()
	after := active.Transfer.Stats()
	c.recorder.ObserveTransferStep(
		after.Retransmissions-before.Retransmissions,
		after.Duplicates-before.Duplicates,
	)

	if !active.Done() {
		return StatusTransferring
	}
	active.completed = true
	c.recorder.TransferCompleted()
	c.log.Info(ctx, "transfer complete",
		logging.String("transfer_id", active.ID.String()),
		logging.Int("rounds", after.Rounds),
		logging.Int("retransmissions", after.Retransmissions),
	)
	return StatusComplete
}
