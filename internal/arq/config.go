package arq

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWindow       = errors.New("window size must be positive")
	ErrInvalidMessageSize  = errors.New("message size must be positive")
	ErrInvalidTimeout      = errors.New("timeout must be at least one tick")
	ErrInvalidMessageCount = errors.New("message count must be positive")
	ErrInvalidAckDelay     = errors.New("ack delay must not be negative")
)

// Config parameterises one transfer. All durations are logical ticks.
type Config struct {
	WindowSize   int // W: maximum unacknowledged messages in flight
	MessageSize  int // payload bytes per message
	TimeoutTicks int // T: ticks before an unacknowledged message is resent
	MessageCount int // N: messages in the stream

	// AckDelayTicks holds each acknowledgment at the receiver for this many
	// receiver updates before it is sent. Zero acknowledges immediately.
	AckDelayTicks int
}

// DefaultConfig mirrors the reference simulation: a window of 16 messages
// of 32 bytes and a 0.2s timeout at 60 ticks per second.
func DefaultConfig() Config {
	return Config{
		WindowSize:   16,
		MessageSize:  32,
		TimeoutTicks: 12,
		MessageCount: 512,
	}
}

// Validate rejects configurations that cannot produce a transfer.
func (c Config) Validate() error {
	switch {
	case c.WindowSize <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidWindow, c.WindowSize)
	case c.MessageSize <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidMessageSize, c.MessageSize)
	case c.TimeoutTicks <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidTimeout, c.TimeoutTicks)
	case c.MessageCount <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidMessageCount, c.MessageCount)
	case c.AckDelayTicks < 0:
		return fmt.Errorf("%w: %d", ErrInvalidAckDelay, c.AckDelayTicks)
	}
	return nil
}

// invariant aborts on internal-consistency faults. These indicate a bug in
// the sender or receiver, never bad input, and continuing would corrupt the
// delivery guarantees.
func invariant(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("arq: invariant violated: "+format, args...))
	}
}
