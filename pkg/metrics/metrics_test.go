package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	require.NoError(t, m.Register(prometheus.NewRegistry()))

	m.Operation("load_account_details", ResultOK)
	m.Operation("load_account_details", ResultOK)
	m.Operation("load_account_details", ResultError)
	m.PriceSource("pool")
	m.Transaction("staking", ResultOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("load_account_details", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("load_account_details", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceSources.WithLabelValues("pool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("staking", ResultOK)))
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()
	require.NoError(t, m.Register(reg))
	assert.Error(t, New().Register(reg))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("x", ResultOK)
		m.PriceSource("pool")
		m.Transaction("staking", ResultOK)
	})
}
