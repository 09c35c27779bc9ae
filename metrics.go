package hftcore

import (
	"errors"

	"github.com/0x5487/hftcore/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	opAdd = iota
	opCancel
	opModify
	opTrade
	opReset
	opCount
)

var opNames = [opCount]string{"add", "cancel", "modify", "trade", "reset"}

const (
	poolOrder = iota
	poolLevel
	poolCount
)

var poolNames = [poolCount]string{"order", "level"}

// Metrics holds the prometheus collectors fed by an OrderBook and a Drainer.
// Label children are resolved up front so recording is a single atomic add.
// A nil *Metrics records nothing.
type Metrics struct {
	Operations     *prometheus.CounterVec
	Rejects        *prometheus.CounterVec
	PoolExhausted  *prometheus.CounterVec
	DroppedUpdates prometheus.Counter
	Fills          prometheus.Counter
	Drained        prometheus.Counter
	RingDepth      prometheus.Gauge

	ops     [opCount]prometheus.Counter
	rejects []prometheus.Counter
	pools   [poolCount]prometheus.Counter
}

// NewMetrics creates the collectors under the given namespace. Nothing is
// registered until Register is called.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "book_operations_total",
				Help:      "Successful order book mutations by kind",
			},
			[]string{"kind"},
		),
		Rejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "book_rejects_total",
				Help:      "Rejected order book mutations by reason",
			},
			[]string{"reason"},
		),
		PoolExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_exhausted_total",
				Help:      "Acquire calls that found the slot pool empty",
			},
			[]string{"pool"},
		),
		DroppedUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "book_updates_dropped_total",
				Help:      "Notifications dropped because the update ring was full",
			},
		),
		Fills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "book_fills_total",
				Help:      "Resting orders that received a fill",
			},
		),
		Drained: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_drained_total",
				Help:      "Notifications handed to the update handler",
			},
		),
		RingDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "update_ring_depth",
				Help:      "Notifications waiting in the update ring",
			},
		),
	}

	for i, name := range opNames {
		m.ops[i] = m.Operations.WithLabelValues(name)
	}
	reasons := protocol.RejectReasons()
	m.rejects = make([]prometheus.Counter, len(reasons)+1)
	for _, r := range reasons {
		m.rejects[r] = m.Rejects.WithLabelValues(r.String())
	}
	for i, name := range poolNames {
		m.pools[i] = m.PoolExhausted.WithLabelValues(name)
	}
	return m
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{
		m.Operations, m.Rejects, m.PoolExhausted,
		m.DroppedUpdates, m.Fills, m.Drained, m.RingDepth,
	} {
		if err := r.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Metrics) incOp(op int) {
	if m == nil {
		return
	}
	m.ops[op].Inc()
}

func (m *Metrics) incReject(r RejectReason) {
	if m == nil || int(r) >= len(m.rejects) || m.rejects[r] == nil {
		return
	}
	m.rejects[r].Inc()
}

func (m *Metrics) incPoolExhausted(pool int) {
	if m == nil {
		return
	}
	m.pools[pool].Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.DroppedUpdates.Inc()
}

func (m *Metrics) addFills(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Fills.Add(float64(n))
}

func (m *Metrics) addDrained(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Drained.Add(float64(n))
}

func (m *Metrics) setRingDepth(n int) {
	if m == nil {
		return
	}
	m.RingDepth.Set(float64(n))
}
