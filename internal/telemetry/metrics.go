// Package telemetry exposes Prometheus metrics for the decision loop.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors. A single instance is created at startup
// and threaded through the orchestrator; tests use NewMetricsWithRegistry
// to avoid duplicate registration on the default registerer.
type Metrics struct {
	SignalsTotal    *prometheus.CounterVec
	TradesTotal     *prometheus.CounterVec
	OrderFailures   prometheus.Counter
	GateTripsTotal  *prometheus.CounterVec
	RealizedPnL     prometheus.Gauge
	OpenPnL         prometheus.Gauge
	ActivePositions prometheus.Gauge
	CycleDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orb_signals_total",
			Help: "Signals emitted by the strategy engine, by action.",
		}, []string{"action"}),
		TradesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orb_trades_total",
			Help: "Completed round trips, by outcome.",
		}, []string{"outcome"}),
		OrderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "orb_order_failures_total",
			Help: "Orders that were rejected or never confirmed filled.",
		}),
		GateTripsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orb_risk_gate_trips_total",
			Help: "Risk gate halts, by reason.",
		}, []string{"reason"}),
		RealizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orb_realized_pnl",
			Help: "Realized PnL booked so far today.",
		}),
		OpenPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orb_open_pnl",
			Help: "Mark-to-market PnL of the active position.",
		}),
		ActivePositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orb_active_positions",
			Help: "Number of open positions (0 or 1).",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orb_cycle_duration_seconds",
			Help:    "Wall time of one full scan-and-decide cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordSignal increments the per-action signal counter.
func (m *Metrics) RecordSignal(action string) {
	m.SignalsTotal.WithLabelValues(action).Inc()
}

// RecordTrade books a completed trade under "win" or "loss".
func (m *Metrics) RecordTrade(win bool) {
	outcome := "loss"
	if win {
		outcome = "win"
	}
	m.TradesTotal.WithLabelValues(outcome).Inc()
}
