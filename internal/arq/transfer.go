package arq

// Stats is a point-in-time summary of a transfer.
type Stats struct {
	Base            int
	Next            int
	InFlight        int
	Acked           int
	Sent            int
	Retransmissions int
	Delivered       int
	Duplicates      int
	Rounds          int
}

// Option customises a Transfer.
type Option func(*options)

type options struct {
	payload PayloadFunc
	deliver DeliverFunc
	shuffle Shuffler
}

// WithPayload replaces the default payload generator.
func WithPayload(fn PayloadFunc) Option {
	return func(o *options) { o.payload = fn }
}

// WithDeliver registers the application sink for in-order messages.
func WithDeliver(fn DeliverFunc) Option {
	return func(o *options) { o.deliver = fn }
}

// WithShuffle reorders every batch crossing the channels, exercising the
// unordered-delivery contract.
func WithShuffle(s Shuffler) Option {
	return func(o *options) { o.shuffle = s }
}

// Transfer couples a Sender and a Receiver through two one-way channels. A
// transfer is bound to one path: once done, or once the path changes, it is
// discarded and never reused. There is no teardown handshake.
type Transfer struct {
	cfg      Config
	sender   *Sender
	receiver *Receiver
	rounds   int
}

// NewTransfer validates cfg and builds a fresh transfer at sequence zero.
func NewTransfer(cfg Config, opts ...Option) (*Transfer, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	sender, err := NewSender(cfg, o.payload, o.shuffle)
	if err != nil {
		return nil, err
	}
	receiver, err := NewReceiver(cfg, o.deliver, o.shuffle)
	if err != nil {
		return nil, err
	}
	return &Transfer{cfg: cfg, sender: sender, receiver: receiver}, nil
}

// Update ticks both endpoints: sender timers and retransmissions, then any
// delayed receiver acknowledgments.
func (t *Transfer) Update() {
	t.sender.Update()
	t.receiver.Update()
}

// Exchange gives the transfer one round trip: every queued packet crosses to
// the receiver, then every queued acknowledgment crosses back to the
// sender. It must follow Update so this tick's retransmissions travel too.
func (t *Transfer) Exchange() {
	for _, p := range t.sender.Outbound().Drain() {
		t.receiver.Inbound().Send(p)
	}
	t.receiver.Poll()

	for _, a := range t.receiver.Outbound().Drain() {
		t.sender.Inbound().Send(a)
	}
	t.sender.Poll()
	t.rounds++
}

// Step is one tick of an active transfer.
func (t *Transfer) Step() {
	t.Update()
	t.Exchange()
}

func (t *Transfer) Done() bool          { return t.sender.Done() }
func (t *Transfer) Progress() float64   { return t.sender.Progress() }
func (t *Transfer) Config() Config      { return t.cfg }
func (t *Transfer) Sender() *Sender     { return t.sender }
func (t *Transfer) Receiver() *Receiver { return t.receiver }

// Stats summarises both endpoints.
func (t *Transfer) Stats() Stats {
	return Stats{
		Base:            t.sender.Base(),
		Next:            t.sender.Next(),
		InFlight:        t.sender.InFlight(),
		Acked:           t.sender.Acked(),
		Sent:            t.sender.Sent(),
		Retransmissions: t.sender.Retransmissions(),
		Delivered:       t.receiver.Delivered(),
		Duplicates:      t.receiver.Duplicates(),
		Rounds:          t.rounds,
	}
}
