package observability

import "github.com/prometheus/client_golang/prometheus"

// Collector is the full metrics surface the simulation controller records
// into: loop/topology metrics plus transfer metrics on one registry.
type Collector struct {
	*SimCollector
	*TransferCollector
}

// NewCollector registers both collectors on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	sim, err := NewSimCollector(reg)
	if err != nil {
		return nil, err
	}
	transfer, err := NewTransferCollector(reg)
	if err != nil {
		return nil, err
	}
	return &Collector{SimCollector: sim, TransferCollector: transfer}, nil
}

// Gatherer returns the registry both collectors were registered on.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.SimCollector.Gatherer()
}
