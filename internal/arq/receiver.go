package arq

// DeliverFunc receives each message exactly once, in sequence order.
type DeliverFunc func(seq int, payload []byte)

type pendingAck struct {
	ack       Ack
	remaining int
}

// Receiver is the receiving half of a Selective-Repeat transfer. It accepts
// sequences inside [expected, expected+WindowSize), buffers out-of-order
// arrivals, delivers the contiguous prefix upward and acknowledges every
// arrival, duplicates included.
type Receiver struct {
	cfg     Config
	deliver DeliverFunc

	expected int
	buffer   map[int][]byte

	delivered  int
	duplicates int

	pending  []pendingAck
	outbound *Channel[Ack]
	inbound  *Channel[Packet]
}

// NewReceiver validates cfg and returns a receiver expecting sequence zero.
func NewReceiver(cfg Config, deliver DeliverFunc, shuffle Shuffler) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:      cfg,
		deliver:  deliver,
		buffer:   make(map[int][]byte, cfg.WindowSize),
		outbound: NewChannel[Ack](shuffle),
		inbound:  NewChannel[Packet](nil),
	}, nil
}

// Outbound is the queue of acknowledgments waiting for the next exchange.
func (r *Receiver) Outbound() *Channel[Ack] { return r.outbound }

// Inbound is the queue of packets delivered by the last exchange.
func (r *Receiver) Inbound() *Channel[Packet] { return r.inbound }

// Update releases delayed acknowledgments whose delay has elapsed. With the
// default immediate policy the receiver is purely reactive and Update does
// nothing.
func (r *Receiver) Update() {
	if len(r.pending) == 0 {
		return
	}
	kept := r.pending[:0]
	for _, p := range r.pending {
		p.remaining--
		if p.remaining <= 0 {
			r.outbound.Send(p.ack)
			continue
		}
		kept = append(kept, p)
	}
	r.pending = kept
}

// Poll consumes every queued packet.
func (r *Receiver) Poll() {
	for _, p := range r.inbound.Drain() {
		r.Receive(p)
	}
}

// Receive handles one packet. Sequences already delivered or buffered are
// re-acknowledged but not delivered again.
func (r *Receiver) Receive(p Packet) {
	if p.Seq < r.expected {
		r.duplicates++
		r.acknowledge(p.Seq)
		return
	}
	if _, ok := r.buffer[p.Seq]; ok {
		r.duplicates++
		r.acknowledge(p.Seq)
		return
	}
	invariant(p.Seq < r.expected+r.cfg.WindowSize,
		"sequence %d outside receive window [%d,%d)", p.Seq, r.expected, r.expected+r.cfg.WindowSize)

	payload := make([]byte, len(p.Payload))
	copy(payload, p.Payload)
	r.buffer[p.Seq] = payload

	for {
		data, ok := r.buffer[r.expected]
		if !ok {
			break
		}
		delete(r.buffer, r.expected)
		if r.deliver != nil {
			r.deliver(r.expected, data)
		}
		r.delivered++
		r.expected++
	}
	r.acknowledge(p.Seq)
}

func (r *Receiver) acknowledge(seq int) {
	ack := Ack{Cumulative: r.expected - 1, Seq: seq}
	if r.cfg.AckDelayTicks > 0 {
		r.pending = append(r.pending, pendingAck{ack: ack, remaining: r.cfg.AckDelayTicks})
		return
	}
	r.outbound.Send(ack)
}

// Expected is the next in-order sequence the receiver is waiting for.
func (r *Receiver) Expected() int { return r.expected }

// Delivered counts messages handed upward; duplicates never add to it.
func (r *Receiver) Delivered() int { return r.delivered }

// Duplicates counts arrivals that were already delivered or buffered.
func (r *Receiver) Duplicates() int { return r.duplicates }

// Buffered counts out-of-order messages waiting for a gap to fill.
func (r *Receiver) Buffered() int { return len(r.buffer) }

// Has reports whether seq has been received, delivered or buffered.
func (r *Receiver) Has(seq int) bool {
	if seq < r.expected {
		return true
	}
	_, ok := r.buffer[seq]
	return ok
}
