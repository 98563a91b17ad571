package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_trader/internal/core"
	"orb_trader/internal/logging"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testLimits() Limits {
	return Limits{
		DailyProfitTarget:    d(50),
		DailyMaxLoss:         d(50),
		MaxTradesPerDay:      5,
		MaxConsecutiveLosses: 3,
	}
}

func newTestGate() *Gate {
	return NewGate(testLimits(), "2026-08-28", logging.NewLogger(logging.ErrorLevel, nil), nil)
}

func trade(pnl float64) core.TradeRecord {
	return core.TradeRecord{
		Instrument: "NSE_EQ|DEMO",
		Side:       core.SideLong,
		EntryPrice: d(100),
		ExitPrice:  d(100 + pnl/10),
		Quantity:   10,
		PnL:        d(pnl),
		EntryTime:  time.Now(),
		ExitTime:   time.Now(),
	}
}

func TestFreshGateAllowsTrading(t *testing.T) {
	g := newTestGate()
	ok, reason := g.CanTrade()
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestRecordTradeBooksPnL(t *testing.T) {
	g := newTestGate()

	// LONG 100 -> 105 x 10 = +50.
	g.RecordTrade(core.TradeRecord{
		Side: core.SideLong, EntryPrice: d(100), ExitPrice: d(105), Quantity: 10, PnL: d(50),
	})
	assert.True(t, g.RealizedPnL().Equal(d(50)))
	assert.Equal(t, 1, g.TradeCount())
}

func TestProfitTargetBlocksNewEntries(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(50))

	assert.True(t, g.ProfitTargetHit())
	ok, reason := g.CanTrade()
	assert.False(t, ok)
	assert.Equal(t, ReasonProfitTarget, reason)

	// Profit target is not a sticky halt.
	halted, _ := g.Halted()
	assert.False(t, halted)
}

func TestProfitTargetIgnoresOpenPnL(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(30))
	g.UpdateOpenPnL(d(40)) // total 70, realized only 30

	assert.False(t, g.ProfitTargetHit())
	ok, _ := g.CanTrade()
	assert.True(t, ok)

	// Booking the gain is what trips the target.
	g.UpdateOpenPnL(decimal.Zero)
	g.RecordTrade(trade(25))
	assert.True(t, g.ProfitTargetHit())
}

func TestMaxLossHaltIsSticky(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(-55))

	assert.True(t, g.MaxLossHit())
	halted, reason := g.Halted()
	require.True(t, halted)
	assert.Equal(t, ReasonMaxLoss, reason)

	// A recovering mark must not reopen the gate.
	g.UpdateOpenPnL(d(100))
	ok, blockReason := g.CanTrade()
	assert.False(t, ok)
	assert.Equal(t, ReasonMaxLoss, blockReason)
}

func TestOpenPnLBreachTripsMaxLoss(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(-20))
	g.UpdateOpenPnL(d(-35)) // total -55

	halted, reason := g.Halted()
	require.True(t, halted)
	assert.Equal(t, ReasonMaxLoss, reason)
}

func TestConsecutiveLossHalt(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(-5))
	g.RecordTrade(trade(-5))

	ok, _ := g.CanTrade()
	assert.True(t, ok, "two losses should not halt")

	g.RecordTrade(trade(-5))
	assert.True(t, g.ConsecutiveLossHit())
	halted, reason := g.Halted()
	require.True(t, halted)
	assert.Equal(t, ReasonConsecutiveLosses, reason)
}

func TestWinResetsLossStreak(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(-5))
	g.RecordTrade(trade(-5))
	g.RecordTrade(trade(10))
	g.RecordTrade(trade(-5))

	assert.False(t, g.ConsecutiveLossHit())
	ok, _ := g.CanTrade()
	assert.True(t, ok)
}

func TestMaxTradesBlocksEntries(t *testing.T) {
	g := newTestGate()
	for i := 0; i < 5; i++ {
		g.RecordTrade(trade(1))
	}

	assert.True(t, g.MaxTradesHit())
	ok, reason := g.CanTrade()
	assert.False(t, ok)
	assert.Equal(t, ReasonMaxTrades, reason)
}

func TestManualHalt(t *testing.T) {
	g := newTestGate()
	g.Halt(ReasonForceExit)

	ok, reason := g.CanTrade()
	assert.False(t, ok)
	assert.Equal(t, ReasonForceExit, reason)
}

func TestStartDayResetsState(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(-55))
	halted, _ := g.Halted()
	require.True(t, halted)

	g.StartDay("2026-08-29")

	halted, _ = g.Halted()
	assert.False(t, halted)
	assert.Equal(t, 0, g.TradeCount())
	assert.True(t, g.RealizedPnL().IsZero())
	ok, _ := g.CanTrade()
	assert.True(t, ok)
}

func TestStartDaySameDateIsNoop(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(10))
	g.StartDay("2026-08-28")
	assert.Equal(t, 1, g.TradeCount())
}

func TestSummary(t *testing.T) {
	g := newTestGate()
	g.RecordTrade(trade(30))
	g.RecordTrade(trade(-10))
	g.UpdateOpenPnL(d(5))

	s := g.Summary()
	assert.Equal(t, "2026-08-28", s.Date)
	assert.True(t, s.RealizedPnL.Equal(d(20)))
	assert.True(t, s.TotalPnL.Equal(d(25)))
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.WinningTrades)
	assert.False(t, s.ProfitHit)
	assert.False(t, s.MaxLossHit)
}
