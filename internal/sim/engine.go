package sim

import (
	"context"
	"sync"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/logging"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/timectrl"
)

// Renderer consumes frames. Render runs on the tick goroutine; it must not
// block for long.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, f Frame) error

func (fn RendererFunc) Render(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Engine binds a Controller to a clock: one Step per tick, with the
// resulting frame handed to every registered renderer.
type Engine struct {
	Controller *Controller
	Clock      *timectrl.TimeController

	// StopOnComplete ends the run on the first tick a transfer completes.
	StopOnComplete bool

	log       logging.Logger
	renderers []Renderer

	mu   sync.RWMutex
	last Frame
}

func NewEngine(controller *Controller, clock *timectrl.TimeController, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	e := &Engine{Controller: controller, Clock: clock, log: log}
	clock.AddListener(e.onTick)
	return e
}

// RegisterRenderer adds a frame consumer. Renderers run in registration order.
func (e *Engine) RegisterRenderer(r Renderer) {
	e.renderers = append(e.renderers, r)
}

// Run drives the clock until ctx is done, maxTicks ticks have run (0 for no
// limit), or StopOnComplete triggers.
func (e *Engine) Run(ctx context.Context, maxTicks uint64) error {
	ctx, _ = logging.EnsureRunID(ctx)
	e.log.Info(ctx, "simulation starting",
		logging.String("run_id", logging.RunIDFromContext(ctx)),
		logging.String("mode", e.Clock.Mode.String()),
		logging.Uint64("max_ticks", maxTicks),
	)
	err := e.Clock.Run(ctx, maxTicks)
	last := e.LastFrame()
	e.log.Info(ctx, "simulation stopped",
		logging.Uint64("ticks", last.Tick),
		logging.String("status", string(last.Status)),
		logging.Float("progress", last.Progress),
	)
	return err
}

// LastFrame returns the most recent frame. Safe for concurrent use.
func (e *Engine) LastFrame() Frame {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

func (e *Engine) onTick(ctx context.Context, _ uint64) error {
	frame := e.Controller.Step(ctx)

	e.mu.Lock()
	e.last = frame
	e.mu.Unlock()

	for _, r := range e.renderers {
		if err := r.Render(ctx, frame); err != nil {
			e.log.Warn(ctx, "renderer failed", logging.Uint64("tick", frame.Tick), logging.Err(err))
		}
	}
	if e.StopOnComplete && frame.Status == StatusComplete {
		return timectrl.ErrStop
	}
	return nil
}
