// Package metrics exposes prometheus collectors for dapp operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "madao"

// Result labels.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultDegraded = "degraded"
)

// Metrics collectors shared by services.
type Metrics struct {
	Operations   *prometheus.CounterVec
	PriceSources *prometheus.CounterVec
	Transactions *prometheus.CounterVec
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Dapp operations by name and result.",
		}, []string{"operation", "result"}),
		PriceSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_price_source_total",
			Help:      "Market price resolutions by the source that answered.",
		}, []string{"source"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Submitted transactions by pending category and outcome.",
		}, []string{"type", "result"}),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Operations, m.PriceSources, m.Transactions} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Operation counts one operation outcome. Safe on a nil receiver.
func (m *Metrics) Operation(name, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(name, result).Inc()
}

// PriceSource counts one price resolution. Safe on a nil receiver.
func (m *Metrics) PriceSource(source string) {
	if m == nil {
		return
	}
	m.PriceSources.WithLabelValues(source).Inc()
}

// Transaction counts one submitted transaction outcome. Safe on a nil receiver.
func (m *Metrics) Transaction(txnType, result string) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(txnType, result).Inc()
}
