package timectrl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStop may be returned by a listener to end Run without error.
var ErrStop = errors.New("timectrl: stop")

// Clock reports how far the simulation has advanced. Components that only
// need to read time depend on this rather than on TimeController.
type Clock interface {
	// Ticks returns the number of ticks emitted so far.
	Ticks() uint64
	// Elapsed returns the simulated time covered by those ticks.
	Elapsed() time.Duration
}

// Mode describes how the TimeController paces ticks.
type Mode int

const (
	// RealTime paces ticks against the wall clock.
	RealTime Mode = iota
	// Accelerated emits ticks as fast as listeners return.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "realtime":
		return RealTime, nil
	case "accelerated":
		return Accelerated, nil
	default:
		return RealTime, errors.New("timectrl: unknown mode " + s)
	}
}

// Listener is invoked once per tick with the 1-based tick number.
type Listener func(ctx context.Context, tick uint64) error

// TimeController drives the simulation tick and notifies registered listeners.
type TimeController struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	ticks     uint64
	listeners []Listener
}

// NewTimeController constructs a controller.
func NewTimeController(tick time.Duration, mode Mode) *TimeController {
	return &TimeController{Tick: tick, Mode: mode}
}

// Ticks implements Clock.
func (tc *TimeController) Ticks() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.ticks
}

// Elapsed implements Clock.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return time.Duration(tc.ticks) * tc.Tick
}

// AddListener registers a callback invoked on every tick, in registration order.
func (tc *TimeController) AddListener(fn Listener) {
	tc.listeners = append(tc.listeners, fn)
}

// Run emits ticks until ctx is cancelled, maxTicks ticks have been emitted
// (0 means no limit), or a listener returns an error. A listener returning
// ErrStop ends the run with a nil error.
func (tc *TimeController) Run(ctx context.Context, maxTicks uint64) error {
	var ticker *time.Ticker
	if tc.Mode == RealTime && tc.Tick > 0 {
		ticker = time.NewTicker(tc.Tick)
		defer ticker.Stop()
	}

	for emitted := uint64(0); maxTicks == 0 || emitted < maxTicks; emitted++ {
		if ctx.Err() != nil {
			return nil
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}

		tc.mu.Lock()
		tc.ticks++
		tick := tc.ticks
		tc.mu.Unlock()

		for _, fn := range tc.listeners {
			if err := fn(ctx, tick); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}
