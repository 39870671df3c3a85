package arq

// inflight tracks one unacknowledged message.
type inflight struct {
	timer int // ticks since last (re)transmission
}

// Sender is the transmitting half of a Selective-Repeat transfer. It keeps
// at most WindowSize messages in flight, each with its own retransmission
// timer, and retires them as acknowledgments arrive.
type Sender struct {
	cfg     Config
	payload PayloadFunc

	base     int // lowest unacknowledged sequence
	next     int // next sequence to send for the first time
	inFlight map[int]*inflight
	acked    map[int]bool // acknowledged sequences at or above base

	ackCount    int
	sent        int
	retransmits int
	retries     map[int]int

	outbound *Channel[Packet]
	inbound  *Channel[Ack]
}

// NewSender validates cfg and returns a sender positioned at sequence zero.
func NewSender(cfg Config, payload PayloadFunc, shuffle Shuffler) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = PatternPayload
	}
	return &Sender{
		cfg:      cfg,
		payload:  payload,
		inFlight: make(map[int]*inflight, cfg.WindowSize),
		acked:    make(map[int]bool),
		retries:  make(map[int]int),
		outbound: NewChannel[Packet](shuffle),
		inbound:  NewChannel[Ack](nil),
	}, nil
}

// Outbound is the queue of packets waiting for the next exchange.
func (s *Sender) Outbound() *Channel[Packet] { return s.outbound }

// Inbound is the queue of acknowledgments delivered by the last exchange.
func (s *Sender) Inbound() *Channel[Ack] { return s.inbound }

// Update advances every in-flight timer by one tick and retransmits the
// messages whose timer reached the timeout. It then fills the window with
// new messages. Retransmission is what guarantees eventual delivery when
// acknowledgments are late; the receiver absorbs the resulting duplicates.
func (s *Sender) Update() {
	for seq := s.base; seq < s.next; seq++ {
		e, ok := s.inFlight[seq]
		if !ok {
			continue
		}
		e.timer++
		if e.timer >= s.cfg.TimeoutTicks {
			e.timer = 0
			s.retries[seq]++
			s.retransmits++
			s.transmit(seq)
		}
	}

	for s.next < s.base+s.cfg.WindowSize && s.next < s.cfg.MessageCount {
		s.inFlight[s.next] = &inflight{}
		s.transmit(s.next)
		s.sent++
		s.next++
	}
	s.checkInvariants()
}

func (s *Sender) transmit(seq int) {
	s.outbound.Send(Packet{Seq: seq, Payload: s.payload(seq, s.cfg.MessageSize)})
}

// Poll consumes every queued acknowledgment.
func (s *Sender) Poll() {
	for _, ack := range s.inbound.Drain() {
		s.Receive(ack)
	}
}

// Receive applies one acknowledgment: everything up to ack.Cumulative plus
// ack.Seq is retired, and base slides over the acknowledged prefix.
// Acknowledgments for sequences below base are stale and ignored.
func (s *Sender) Receive(ack Ack) {
	invariant(ack.Cumulative < s.next, "ack %v covers unsent sequence (next=%d)", ack, s.next)
	invariant(ack.Seq < s.next, "ack %v names unsent sequence (next=%d)", ack, s.next)

	for seq := s.base; seq <= ack.Cumulative; seq++ {
		s.markAcked(seq)
	}
	s.markAcked(ack.Seq)

	for s.base < s.next && s.acked[s.base] {
		delete(s.acked, s.base)
		s.base++
	}
	s.checkInvariants()
}

func (s *Sender) markAcked(seq int) {
	if seq < s.base || s.acked[seq] {
		return
	}
	s.acked[seq] = true
	delete(s.inFlight, seq)
	s.ackCount++
}

func (s *Sender) checkInvariants() {
	invariant(s.base <= s.next, "base %d past next %d", s.base, s.next)
	invariant(s.next <= s.cfg.MessageCount, "next %d past message count %d", s.next, s.cfg.MessageCount)
	invariant(len(s.inFlight) <= s.cfg.WindowSize, "%d in flight exceeds window %d", len(s.inFlight), s.cfg.WindowSize)
}

// Done reports whether every message has been acknowledged.
func (s *Sender) Done() bool { return s.base == s.cfg.MessageCount }

// Progress is the acknowledged fraction of the stream, saturating at 1.0.
// It is for display only.
func (s *Sender) Progress() float64 {
	if s.Done() {
		return 1.0
	}
	p := float64(s.ackCount) / float64(s.cfg.MessageCount)
	if p > 1 {
		p = 1
	}
	return p
}

func (s *Sender) Base() int            { return s.base }
func (s *Sender) Next() int            { return s.next }
func (s *Sender) InFlight() int        { return len(s.inFlight) }
func (s *Sender) Acked() int           { return s.ackCount }
func (s *Sender) Sent() int            { return s.sent }
func (s *Sender) Retransmissions() int { return s.retransmits }

// Retries returns how often seq has been retransmitted so far.
func (s *Sender) Retries(seq int) int { return s.retries[seq] }
