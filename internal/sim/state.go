package sim

import (
	"github.com/AnastasyaSeveryukhina/interval-and-networks/internal/arq"
	"github.com/google/uuid"
)

// TransferState is either Active or Suspended. Callers switch on the
// concrete type; there is no nil "no transfer" value.
type TransferState interface {
	isTransferState()
}

// Active is a transfer bound to the path it was started on.
type Active struct {
	ID       uuid.UUID
	Path     []int
	Started  uint64
	Transfer *arq.Transfer

	completed bool
}

// Suspended means the destination is unreachable, or no tick has run yet.
// No transfer instance exists.
type Suspended struct {
	Since uint64
}

func (*Active) isTransferState()   {}
func (Suspended) isTransferState() {}

// Progress is 1.0 once the transfer is done.
func (a *Active) Progress() float64 { return a.Transfer.Progress() }

// Done reports whether every message has been acknowledged.
func (a *Active) Done() bool { return a.Transfer.Done() }

// Progress reports the displayed progress for a state. A suspended transfer
// shows 0.0.
func Progress(s TransferState) float64 {
	if a, ok := s.(*Active); ok {
		return a.Progress()
	}
	return 0
}
