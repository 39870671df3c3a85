package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TransferCollector exposes metrics for the reliable-transfer instances the
// controller starts, steps and discards.
type TransferCollector struct {
	gatherer prometheus.Gatherer

	Started         prometheus.Counter
	Completed       prometheus.Counter
	Discarded       *prometheus.CounterVec
	Retransmissions prometheus.Counter
	Duplicates      prometheus.Counter
	Progress        prometheus.Gauge
}

// NewTransferCollector registers transfer metrics against the provided
// registerer.
func NewTransferCollector(reg prometheus.Registerer) (*TransferCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	started, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_transfers_started_total",
		Help: "Transfer instances created, one per distinct path.",
	}), "netsim_transfers_started_total")
	if err != nil {
		return nil, err
	}
	completed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_transfers_completed_total",
		Help: "Transfer instances whose every message was acknowledged.",
	}), "netsim_transfers_completed_total")
	if err != nil {
		return nil, err
	}
	discarded, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netsim_transfers_discarded_total",
		Help: "Unfinished transfer instances dropped, labeled by reason (path_changed, no_path).",
	}, []string{"reason"}), "netsim_transfers_discarded_total")
	if err != nil {
		return nil, err
	}
	retransmissions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_retransmissions_total",
		Help: "Messages resent after their retransmission timer expired.",
	}), "netsim_retransmissions_total")
	if err != nil {
		return nil, err
	}
	duplicates, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "netsim_duplicate_deliveries_total",
		Help: "Messages the receiver had already recorded.",
	}), "netsim_duplicate_deliveries_total")
	if err != nil {
		return nil, err
	}
	progress, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netsim_transfer_progress_ratio",
		Help: "Acknowledged fraction of the current transfer, as shown to renderers.",
	}), "netsim_transfer_progress_ratio")
	if err != nil {
		return nil, err
	}

	return &TransferCollector{
		gatherer:        gatherer,
		Started:         started,
		Completed:       completed,
		Discarded:       discarded,
		Retransmissions: retransmissions,
		Duplicates:      duplicates,
		Progress:        progress,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *TransferCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// TransferStarted counts a fresh instance.
func (c *TransferCollector) TransferStarted() {
	if c == nil {
		return
	}
	c.Started.Inc()
}

// TransferCompleted counts an instance that reached the end of its stream.
func (c *TransferCollector) TransferCompleted() {
	if c == nil {
		return
	}
	c.Completed.Inc()
}

// TransferDiscarded counts an unfinished instance dropped for reason.
func (c *TransferCollector) TransferDiscarded(reason string) {
	if c == nil {
		return
	}
	c.Discarded.WithLabelValues(reason).Inc()
}

// ObserveTransferStep adds the retransmissions and duplicates produced by
// one step.
func (c *TransferCollector) ObserveTransferStep(retransmissions, duplicates int) {
	if c == nil {
		return
	}
	if retransmissions > 0 {
		c.Retransmissions.Add(float64(retransmissions))
	}
	if duplicates > 0 {
		c.Duplicates.Add(float64(duplicates))
	}
}

// SetProgress updates the progress gauge, clamped to [0, 1].
func (c *TransferCollector) SetProgress(p float64) {
	if c == nil || c.Progress == nil {
		return
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	c.Progress.Set(p)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
