// Package risk enforces the daily loss, profit and trade-count limits that
// gate new entries.
package risk

import (
	"sync"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	"orb_trader/internal/telemetry"
)

// Halt reasons reported by the gate.
const (
	ReasonMaxLoss           = "daily max loss reached"
	ReasonConsecutiveLosses = "max consecutive losses reached"
	ReasonProfitTarget      = "daily profit target reached"
	ReasonMaxTrades         = "max trades per day reached"
	ReasonForceExit         = "force exit time reached"
)

// Limits are the daily kill-switch thresholds.
type Limits struct {
	DailyProfitTarget    decimal.Decimal
	DailyMaxLoss         decimal.Decimal
	MaxTradesPerDay      int
	MaxConsecutiveLosses int
}

// Gate tracks one trading day's PnL and decides whether new entries are
// allowed. Loss-side halts are sticky: once tripped the gate stays shut for
// the rest of the day even if open PnL later recovers.
type Gate struct {
	mu      sync.RWMutex
	limits  Limits
	logger  core.ILogger
	metrics *telemetry.Metrics

	tradeDate         string
	realizedPnL       decimal.Decimal
	openPnL           decimal.Decimal
	trades            []core.TradeRecord
	consecutiveLosses int

	halted     bool
	haltReason string
}

// NewGate builds a gate for the given trade date ("2006-01-02"). metrics
// may be nil in tests.
func NewGate(limits Limits, tradeDate string, logger core.ILogger, metrics *telemetry.Metrics) *Gate {
	return &Gate{
		limits:    limits,
		tradeDate: tradeDate,
		logger:    logger.WithField("component", "risk_gate"),
		metrics:   metrics,
	}
}

// StartDay resets all counters when the date rolls over. Same-date calls
// are no-ops, so the orchestrator can invoke it every cycle.
func (g *Gate) StartDay(tradeDate string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if tradeDate == g.tradeDate {
		return
	}
	g.logger.Info("New trading day, resetting risk state", "from", g.tradeDate, "to", tradeDate)
	g.tradeDate = tradeDate
	g.realizedPnL = decimal.Zero
	g.openPnL = decimal.Zero
	g.trades = nil
	g.consecutiveLosses = 0
	g.halted = false
	g.haltReason = ""
}

// RecordTrade books a completed round trip and trips the loss-side kill
// switches when thresholds are crossed.
func (g *Gate) RecordTrade(trade core.TradeRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.realizedPnL = g.realizedPnL.Add(trade.PnL)
	g.trades = append(g.trades, trade)

	if trade.PnL.IsNegative() {
		g.consecutiveLosses++
	} else {
		g.consecutiveLosses = 0
	}

	if g.metrics != nil {
		g.metrics.RecordTrade(!trade.PnL.IsNegative())
		pnl, _ := g.realizedPnL.Float64()
		g.metrics.RealizedPnL.Set(pnl)
	}

	if g.halted {
		return
	}
	if g.limits.MaxConsecutiveLosses > 0 && g.consecutiveLosses >= g.limits.MaxConsecutiveLosses {
		g.trip(ReasonConsecutiveLosses)
		return
	}
	if g.maxLossHitLocked() {
		g.trip(ReasonMaxLoss)
	}
}

// UpdateOpenPnL marks the active position's PnL into the day totals. A
// mark-to-market breach of the max loss trips the sticky halt.
func (g *Gate) UpdateOpenPnL(pnl decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.openPnL = pnl
	if g.metrics != nil {
		v, _ := pnl.Float64()
		g.metrics.OpenPnL.Set(v)
	}
	if !g.halted && g.maxLossHitLocked() {
		g.trip(ReasonMaxLoss)
	}
}

// Halt trips the gate manually. Used on the force-exit path.
func (g *Gate) Halt(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.halted {
		g.trip(reason)
	}
}

func (g *Gate) trip(reason string) {
	g.halted = true
	g.haltReason = reason
	g.logger.Warn("Risk gate tripped", "reason", reason, "realized_pnl", g.realizedPnL.String(), "open_pnl", g.openPnL.String())
	if g.metrics != nil {
		g.metrics.GateTripsTotal.WithLabelValues(reason).Inc()
	}
}

func (g *Gate) totalPnLLocked() decimal.Decimal {
	return g.realizedPnL.Add(g.openPnL)
}

func (g *Gate) maxLossHitLocked() bool {
	return g.limits.DailyMaxLoss.IsPositive() && g.totalPnLLocked().LessThanOrEqual(g.limits.DailyMaxLoss.Neg())
}

// The profit target counts booked PnL only; an open position's paper gain
// can still evaporate.
func (g *Gate) profitTargetHitLocked() bool {
	return g.limits.DailyProfitTarget.IsPositive() && g.realizedPnL.GreaterThanOrEqual(g.limits.DailyProfitTarget)
}

// ProfitTargetHit reports whether realized PnL has reached the daily
// target.
func (g *Gate) ProfitTargetHit() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.profitTargetHitLocked()
}

// MaxLossHit reports whether total PnL has breached the daily max loss.
func (g *Gate) MaxLossHit() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.maxLossHitLocked()
}

// MaxTradesHit reports whether today's trade count has reached the cap.
func (g *Gate) MaxTradesHit() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limits.MaxTradesPerDay > 0 && len(g.trades) >= g.limits.MaxTradesPerDay
}

// ConsecutiveLossHit reports whether the losing streak has reached the cap.
func (g *Gate) ConsecutiveLossHit() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limits.MaxConsecutiveLosses > 0 && g.consecutiveLosses >= g.limits.MaxConsecutiveLosses
}

// CanTrade reports whether a new entry is allowed right now, with the
// blocking reason when it is not.
func (g *Gate) CanTrade() (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.halted {
		return false, g.haltReason
	}
	if g.profitTargetHitLocked() {
		return false, ReasonProfitTarget
	}
	if g.limits.MaxTradesPerDay > 0 && len(g.trades) >= g.limits.MaxTradesPerDay {
		return false, ReasonMaxTrades
	}
	return true, ""
}

// Halted reports whether a sticky halt is in effect.
func (g *Gate) Halted() (bool, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.halted, g.haltReason
}

// RealizedPnL returns booked PnL for the day.
func (g *Gate) RealizedPnL() decimal.Decimal {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.realizedPnL
}

// TradeCount returns the number of completed trades today.
func (g *Gate) TradeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.trades)
}

// Summary snapshots the day for reporting.
func (g *Gate) Summary() core.DaySummary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	wins := 0
	for _, tr := range g.trades {
		if !tr.PnL.IsNegative() {
			wins++
		}
	}
	trades := make([]core.TradeRecord, len(g.trades))
	copy(trades, g.trades)

	return core.DaySummary{
		Date:          g.tradeDate,
		RealizedPnL:   g.realizedPnL,
		OpenPnL:       g.openPnL,
		TotalPnL:      g.totalPnLLocked(),
		TotalTrades:   len(g.trades),
		WinningTrades: wins,
		Trades:        trades,
		ProfitHit:     g.profitTargetHitLocked(),
		MaxLossHit:    g.maxLossHitLocked(),
	}
}
