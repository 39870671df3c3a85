package arq

// Shuffler permutes a batch of n queued messages. *math/rand.Rand satisfies
// it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Channel is a one-way, lossless message queue with no ordering guarantee.
// Loss and delay never originate here; they are produced by the window and
// timeout logic on either end.
type Channel[T any] struct {
	queue   []T
	shuffle Shuffler
}

// NewChannel returns a FIFO channel. With a non-nil shuffler every Drain
// returns the batch in a shuffled order.
func NewChannel[T any](shuffle Shuffler) *Channel[T] {
	return &Channel[T]{shuffle: shuffle}
}

// Send enqueues a message.
func (c *Channel[T]) Send(msg T) {
	c.queue = append(c.queue, msg)
}

// Len returns the number of queued messages.
func (c *Channel[T]) Len() int { return len(c.queue) }

// HasMessages reports whether anything is queued.
func (c *Channel[T]) HasMessages() bool { return len(c.queue) > 0 }

// Drain removes and returns everything queued.
func (c *Channel[T]) Drain() []T {
	out := c.queue
	c.queue = nil
	if c.shuffle != nil && len(out) > 1 {
		c.shuffle.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}
