package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSignal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordSignal("BUY")
	m.RecordSignal("BUY")
	m.RecordSignal("HOLD")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("HOLD")))
}

func TestRecordTrade(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RecordTrade(true)
	m.RecordTrade(false)
	m.RecordTrade(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("win")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("loss")))
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.RealizedPnL.Set(42.5)
	m.ActivePositions.Set(1)

	assert.Equal(t, 42.5, testutil.ToFloat64(m.RealizedPnL))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActivePositions))
}
