package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/core"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/observability"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewControllerRejectsInvalidConfig(t *testing.T) {
	routers := []model.Router{router(0, 0, 0), router(1, 0.1, 0)}

	tests := []struct {
		name    string
		mutate  func(*Config)
		routers []model.Router
		want    error
	}{
		{name: "zero window", mutate: func(c *Config) { c.Transfer.WindowSize = 0 }, want: arq.ErrInvalidWindow},
		{name: "zero messages", mutate: func(c *Config) { c.Transfer.MessageCount = 0 }, want: arq.ErrInvalidMessageCount},
		{name: "source out of range", mutate: func(c *Config) { c.Source = 2 }, want: ErrEndpointOutOfRange},
		{name: "negative destination", mutate: func(c *Config) { c.Destination = -1 }, want: ErrEndpointOutOfRange},
		{name: "no nodes", mutate: func(c *Config) { c.NodeCount = 0 }, want: ErrInvalidNodeCount},
		{name: "bad probability", mutate: func(c *Config) { c.FailureProbability = 1.5 }, want: ErrInvalidProbability},
		{name: "zero radius", mutate: func(c *Config) { c.Radius = 0 }, want: ErrInvalidRadius},
		{name: "router count mismatch", routers: routers[:1], want: ErrRouterMismatch},
		{name: "duplicate router", routers: []model.Router{router(0, 0, 0), router(0, 1, 1)}, want: ErrRouterMismatch},
		{name: "failed endpoint", routers: []model.Router{{ID: 0, Failed: true}, router(1, 0.1, 0)}, want: ErrRouterMismatch},
		{name: "failed destination", routers: []model.Router{router(0, 0, 0), {ID: 1, Position: model.Position{X: 0.1}, Failed: true}}, want: ErrRouterMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(2, 0, 1)
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			rs := routers
			if tt.routers != nil {
				rs = tt.routers
			}
			_, err := NewController(cfg, rs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewController error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestControllerSourceEqualsDestination(t *testing.T) {
	cfg := testConfig(1, 0, 0)
	cfg.Transfer.MessageCount = 10
	c := newTestController(t, cfg, []model.Router{router(0, 0, 0)}, WithRand(&scriptedRand{}))

	frames := stepN(c, 2)

	if !core.SamePath(frames[0].Path, []int{0}) {
		t.Fatalf("path = %v, want [0]", frames[0].Path)
	}
	if frames[0].Status != StatusStarted || frames[0].Progress != 0 {
		t.Fatalf("first frame = %s/%v, want started/0", frames[0].Status, frames[0].Progress)
	}
	if frames[1].Status != StatusComplete || frames[1].Progress != 1.0 {
		t.Fatalf("second frame = %s/%v, want complete/1.0", frames[1].Status, frames[1].Progress)
	}
	active, ok := c.State().(*Active)
	if !ok {
		t.Fatalf("state = %T, want *Active", c.State())
	}
	if rounds := active.Transfer.Stats().Rounds; rounds != 1 {
		t.Fatalf("rounds = %d, want 1", rounds)
	}
	if w := active.Transfer.Config().WindowSize; w != cfg.Transfer.MessageCount {
		t.Fatalf("loopback window = %d, want %d", w, cfg.Transfer.MessageCount)
	}
}

func TestControllerFramePathIsIndependent(t *testing.T) {
	cfg := testConfig(2, 0, 1)
	cfg.Transfer.MessageCount = 100
	c := newTestController(t, cfg, []model.Router{router(0, 0, 0), router(1, 0.2, 0)}, WithRand(&scriptedRand{}))

	first := c.Step(context.Background())
	first.Path[0] = 99
	active := c.State().(*Active)
	if active.Path[0] != 0 {
		t.Fatalf("active path = %v, changed through the frame", active.Path)
	}

	second := c.Step(context.Background())
	if second.Status == StatusStarted {
		t.Fatalf("second frame restarted the transfer after a frame edit")
	}
	if second.TransferID != first.TransferID {
		t.Fatalf("transfer id = %s, want %s", second.TransferID, first.TransferID)
	}
	if !core.SamePath(second.Path, []int{0, 1}) {
		t.Fatalf("path = %v, want [0 1]", second.Path)
	}
}

func TestControllerStaticPathCompletes(t *testing.T) {
	cfg := testConfig(2, 0, 1)
	cfg.Transfer.MessageCount = 10
	c := newTestController(t, cfg, []model.Router{router(0, 0, 0), router(1, 0.2, 0)}, WithRand(&scriptedRand{}))

	frames := stepN(c, 6)
	prev := -1.0
	for _, f := range frames {
		if f.Progress < prev {
			t.Fatalf("tick %d: progress decreased from %v to %v", f.Tick, prev, f.Progress)
		}
		prev = f.Progress
		if f.TransferID != frames[0].TransferID {
			t.Fatalf("tick %d: transfer restarted on a static path", f.Tick)
		}
	}
	// Start on tick 1, then three rounds of four, four and two messages.
	if frames[3].Status != StatusComplete || frames[3].Progress != 1.0 {
		t.Fatalf("tick 4 = %s/%v, want complete/1.0", frames[3].Status, frames[3].Progress)
	}
	if frames[5].Status != StatusComplete {
		t.Fatalf("tick 6 status = %s, want complete", frames[5].Status)
	}
	if math.Abs(frames[0].PathLength-0.2) > 1e-9 {
		t.Fatalf("path length = %v, want 0.2", frames[0].PathLength)
	}
	if len(frames[0].Links) != 1 || frames[0].Links[0] != core.NewLink(0, 1) {
		t.Fatalf("links = %v, want [0-1]", frames[0].Links)
	}
}

func TestControllerPathChangeResetsTransfer(t *testing.T) {
	routers := []model.Router{
		router(0, 0, 0),
		router(1, 0.3, 0),
		router(2, 0.6, 0),
		router(3, 0.3, 0.1),
	}
	cfg := testConfig(4, 0, 2)
	cfg.FailureProbability = 0.5
	rng := &scriptedRand{floats: []float64{0.99, 0.99, 0.99, 0.99, 0.1}, ints: []int{0}}

	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	if err != nil {
		t.Fatalf("NewCollector error: %v", err)
	}
	c := newTestController(t, cfg, routers, WithRand(rng), WithRecorder(collector))

	frames := stepN(c, 6)
	if !core.SamePath(frames[0].Path, []int{0, 1, 2}) {
		t.Fatalf("initial path = %v, want [0 1 2]", frames[0].Path)
	}
	if frames[3].Progress != 0.6 {
		t.Fatalf("tick 4 progress = %v, want 0.6", frames[3].Progress)
	}

	rerouted := frames[4]
	if !core.SamePath(rerouted.Path, []int{0, 3, 2}) {
		t.Fatalf("rerouted path = %v, want [0 3 2]", rerouted.Path)
	}
	if rerouted.Status != StatusStarted || rerouted.Progress != 0 {
		t.Fatalf("rerouted frame = %s/%v, want started/0", rerouted.Status, rerouted.Progress)
	}
	if rerouted.TransferID == frames[3].TransferID {
		t.Fatalf("transfer id reused after path change")
	}
	active := c.State().(*Active)
	if base := active.Transfer.Sender().Base(); base != cfg.Transfer.WindowSize {
		t.Fatalf("base after one step on new path = %d, want %d", base, cfg.Transfer.WindowSize)
	}
	if frames[5].Progress != 0.2 {
		t.Fatalf("tick 6 progress = %v, want 0.2", frames[5].Progress)
	}
	if r := rerouted.Routers[1]; !r.Failed || r.Role != model.RoleFailed {
		t.Fatalf("router 1 view = %+v, want failed", r)
	}

	if got := testutil.ToFloat64(collector.Started); got != 2 {
		t.Fatalf("transfers started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Discarded.WithLabelValues("path_changed")); got != 1 {
		t.Fatalf("path_changed discards = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RouterEvents.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.PathChanges); got != 2 {
		t.Fatalf("path changes = %v, want 2", got)
	}
}

func TestControllerOutageShowsZeroProgress(t *testing.T) {
	routers := []model.Router{router(0, 0, 0), router(1, 0.3, 0), router(2, 0.6, 0)}
	cfg := testConfig(3, 0, 2)
	cfg.FailureProbability = 0.5
	cfg.RecoveryProbability = 0.5
	rng := &scriptedRand{floats: []float64{
		0.99, 0.99, 0.99, // ticks 1-3: no failure
		0.1, 0.99, // tick 4: router 1 fails, no recovery
		0.99, 0.99, 0.99, 0.99, // ticks 5-8: no recovery
		0.1, // tick 9: router 1 recovers
	}}
	c := newTestController(t, cfg, routers, WithRand(rng))

	frames := stepN(c, 10)
	before := frames[2]
	if before.Progress != 0.4 {
		t.Fatalf("tick 3 progress = %v, want 0.4", before.Progress)
	}

	for _, f := range frames[3:8] {
		if f.Status != StatusNoPath {
			t.Fatalf("tick %d status = %s, want no_path", f.Tick, f.Status)
		}
		if f.Progress != 0 || f.Path != nil || f.Links != nil || f.TransferID != "" {
			t.Fatalf("tick %d frame = %+v, want empty no-path frame", f.Tick, f)
		}
		if f.Hops() != -1 {
			t.Fatalf("tick %d hops = %d, want -1", f.Tick, f.Hops())
		}
	}

	reconnected := frames[8]
	if reconnected.Status != StatusStarted || reconnected.Progress != 0 {
		t.Fatalf("reconnected frame = %s/%v, want started/0", reconnected.Status, reconnected.Progress)
	}
	if reconnected.TransferID == before.TransferID {
		t.Fatalf("transfer resumed instead of restarting")
	}
	if frames[9].Progress != 0.2 {
		t.Fatalf("tick 10 progress = %v, want 0.2", frames[9].Progress)
	}
}

func TestControllerSuspendedState(t *testing.T) {
	routers := []model.Router{router(0, 0, 0), router(1, 0.9, 0.9)}
	c := newTestController(t, testConfig(2, 0, 1), routers, WithRand(&scriptedRand{}))

	if _, ok := c.State().(Suspended); !ok {
		t.Fatalf("initial state = %T, want Suspended", c.State())
	}
	f := stepN(c, 1)[0]
	if f.Status != StatusNoPath || Progress(c.State()) != 0 {
		t.Fatalf("frame status = %s, progress = %v", f.Status, Progress(c.State()))
	}
	// No transfer ever started, so the suspension dates from construction.
	if s, ok := c.State().(Suspended); !ok || s.Since != 0 {
		t.Fatalf("state = %#v, want Suspended{Since: 0}", c.State())
	}
}

func TestControllerAtMostOneFailurePerTick(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := testConfig(30, 0, 29)
	cfg.FailureProbability = 1
	cfg.RecoveryProbability = 0.3
	c := newTestController(t, cfg, RandomLayout(30, rng), WithRand(rng))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	prev := c.Routers()
	for i := 0; i < 200; i++ {
		c.Step(ctx)
		cur := c.Routers()
		failed, recovered := 0, 0
		for j := range cur {
			switch {
			case cur[j].Failed && !prev[j].Failed:
				failed++
			case !cur[j].Failed && prev[j].Failed:
				recovered++
			}
		}
		if failed > 1 || recovered > 1 {
			t.Fatalf("tick %d: %d failures and %d recoveries, want at most one each", c.Tick(), failed, recovered)
		}
		if cur[0].Failed || cur[29].Failed {
			t.Fatalf("tick %d: endpoint failed", c.Tick())
		}
		prev = cur
	}
}

func TestControllerShuffledChannelsComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cfg := testConfig(2, 0, 1)
	cfg.ShuffleChannels = true
	c := newTestController(t, cfg, []model.Router{router(0, 0, 0), router(1, 0.1, 0)}, WithRand(rng))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var last Frame
	for i := 0; i < 20 && last.Status != StatusComplete; i++ {
		last = c.Step(ctx)
	}
	if last.Status != StatusComplete {
		t.Fatalf("transfer did not complete, last status %s", last.Status)
	}
}
