package sim

import (
	"errors"
	"fmt"

	"github.com/AnastasyaSeveryukhina/interval-and-networks/core"
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
)

var (
	ErrInvalidNodeCount   = errors.New("node count must be positive")
	ErrInvalidRadius      = errors.New("radius must be positive")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	ErrEndpointOutOfRange = errors.New("endpoint id out of range")
	ErrRouterMismatch     = errors.New("routers do not match configuration")
)

// Config holds everything the controller needs before the first tick.
// Router ids are 0..NodeCount-1.
type Config struct {
	NodeCount   int
	Radius      float64
	Source      int
	Destination int

	FailureProbability  float64
	RecoveryProbability float64

	// ShuffleChannels reorders every batch crossing the transfer channels
	// using the controller's random source.
	ShuffleChannels bool

	Transfer arq.Config
}

// DefaultConfig is a 50-router network with the first router sending to
// the last one.
func DefaultConfig() Config {
	return Config{
		NodeCount:           50,
		Radius:              core.DefaultRadius,
		Source:              0,
		Destination:         49,
		FailureProbability:  0.01,
		RecoveryProbability: 0.01,
		Transfer:            arq.DefaultConfig(),
	}
}

// Validate rejects configurations that must never reach the first tick.
// Source and Destination may be equal.
func (c Config) Validate() error {
	if c.NodeCount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNodeCount, c.NodeCount)
	}
	if c.Radius <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidRadius, c.Radius)
	}
	if c.Source < 0 || c.Source >= c.NodeCount {
		return fmt.Errorf("%w: source %d not in [0, %d)", ErrEndpointOutOfRange, c.Source, c.NodeCount)
	}
	if c.Destination < 0 || c.Destination >= c.NodeCount {
		return fmt.Errorf("%w: destination %d not in [0, %d)", ErrEndpointOutOfRange, c.Destination, c.NodeCount)
	}
	if c.FailureProbability < 0 || c.FailureProbability > 1 {
		return fmt.Errorf("%w: failure %g", ErrInvalidProbability, c.FailureProbability)
	}
	if c.RecoveryProbability < 0 || c.RecoveryProbability > 1 {
		return fmt.Errorf("%w: recovery %g", ErrInvalidProbability, c.RecoveryProbability)
	}
	if err := c.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}
