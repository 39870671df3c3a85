package sim

import (
	"context"
	"testing"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
)

// scriptedRand replays fixed draws. Once a script runs out, Float64 returns
// 0.99 (no event for any probability below that) and Intn returns 0.
type scriptedRand struct {
	floats []float64
	ints   []int

	floatCalls int
	intCalls   int
}

func (r *scriptedRand) Float64() float64 {
	r.floatCalls++
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	r.intCalls++
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0] % n
	r.ints = r.ints[1:]
	return v
}

func router(id int, x, y float64) model.Router {
	return model.Router{ID: id, Position: model.Position{X: x, Y: y}}
}

func testConfig(nodes, source, destination int) Config {
	return Config{
		NodeCount:   nodes,
		Radius:      0.4,
		Source:      source,
		Destination: destination,
		Transfer: arq.Config{
			WindowSize:   4,
			MessageSize:  8,
			TimeoutTicks: 3,
			MessageCount: 20,
		},
	}
}

func newTestController(t *testing.T, cfg Config, routers []model.Router, opts ...Option) *Controller {
	t.Helper()
	c, err := NewController(cfg, routers, opts...)
	if err != nil {
		t.Fatalf("NewController error: %v", err)
	}
	return c
}

func stepN(c *Controller, n int) []Frame {
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		frames = append(frames, c.Step(context.Background()))
	}
	return frames
}
