package mock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_trader/internal/core"
	apperrors "orb_trader/pkg/errors"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func simBars(n int) []core.Bar {
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{
			Time:  time.Date(2026, 8, 28, 9, 15+i, 0, 0, time.UTC),
			Close: d(100 + float64(i)),
		}
	}
	return bars
}

func TestFetchBarsRevealsOnAdvance(t *testing.T) {
	b := NewSimBroker()
	b.LoadBars("A", simBars(5))
	ctx := context.Background()

	bars, err := b.FetchBars(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, bars)

	b.Advance("A", 3)
	bars, err = b.FetchBars(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	// Advancing past the end clamps.
	b.Advance("A", 10)
	bars, _ = b.FetchBars(ctx, "A")
	assert.Len(t, bars, 5)
}

func TestFetchBarsUnknownInstrument(t *testing.T) {
	b := NewSimBroker()
	_, err := b.FetchBars(context.Background(), "MISSING")
	assert.ErrorIs(t, err, apperrors.ErrNoData)
}

func TestLastTradedPrice(t *testing.T) {
	b := NewSimBroker()
	b.LoadBars("A", simBars(5))

	_, err := b.LastTradedPrice(context.Background(), "A")
	assert.ErrorIs(t, err, apperrors.ErrPriceUnknown)

	b.Advance("A", 2)
	price, err := b.LastTradedPrice(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, price.Equal(d(101)))
}

func submitEntry(t *testing.T, b *SimBroker) string {
	t.Helper()
	intent, err := core.NewEntryIntent("A", core.SideLong, 10, d(100), d(97), d(105), "breakout")
	require.NoError(t, err)
	orderID, err := b.SubmitOrder(context.Background(), intent)
	require.NoError(t, err)
	return orderID
}

func TestInstantFillWithSlippage(t *testing.T) {
	b := NewSimBroker()
	b.Slippage = d(0.05)

	orderID := submitEntry(t, b)
	report, err := b.OrderStatus(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusComplete, report.Status)
	assert.True(t, report.AverageFill.Equal(d(100.05)), "fill = %s", report.AverageFill)
	assert.Equal(t, int64(10), report.FilledQty)
	assert.Len(t, b.Submitted, 1)
}

func TestDelayedFill(t *testing.T) {
	b := NewSimBroker()
	b.Mode = FillDelayed
	b.FillAfterPolls = 2

	orderID := submitEntry(t, b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		report, err := b.OrderStatus(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, core.OrderStatusPending, report.Status)
	}
	report, err := b.OrderStatus(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusComplete, report.Status)
}

func TestRejectMode(t *testing.T) {
	b := NewSimBroker()
	b.Mode = FillReject

	orderID := submitEntry(t, b)
	report, err := b.OrderStatus(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusRejected, report.Status)
	assert.NotEmpty(t, report.RejectReason)
}

func TestExitSlippageIsAdverse(t *testing.T) {
	b := NewSimBroker()
	b.Slippage = d(0.05)

	// Closing a long sells, so slippage cuts the price.
	intent, err := core.NewExitIntent("A", core.SideLong, 10, d(104), "target")
	require.NoError(t, err)
	orderID, err := b.SubmitOrder(context.Background(), intent)
	require.NoError(t, err)

	report, err := b.OrderStatus(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, report.AverageFill.Equal(d(103.95)))
}
