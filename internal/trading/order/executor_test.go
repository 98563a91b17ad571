package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_trader/internal/core"
	"orb_trader/internal/logging"
	apperrors "orb_trader/pkg/errors"
)

// scriptedBroker lets each test control submission and status behavior.
type scriptedBroker struct {
	mu          sync.Mutex
	submitErrs  []error // consumed per call; nil entry = success
	submitCalls int
	statuses    []core.OrderReport // consumed per status poll; last repeats
	statusCalls int
}

func (b *scriptedBroker) FetchBars(ctx context.Context, instrument string) ([]core.Bar, error) {
	return nil, nil
}

func (b *scriptedBroker) LastTradedPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (b *scriptedBroker) SubmitOrder(ctx context.Context, intent core.OrderIntent) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.submitCalls
	b.submitCalls++
	if idx < len(b.submitErrs) && b.submitErrs[idx] != nil {
		return "", b.submitErrs[idx]
	}
	return "oid-1", nil
}

func (b *scriptedBroker) OrderStatus(ctx context.Context, orderID string) (core.OrderReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.statusCalls
	b.statusCalls++
	if idx >= len(b.statuses) {
		idx = len(b.statuses) - 1
	}
	return b.statuses[idx], nil
}

func (b *scriptedBroker) FlattenAll(ctx context.Context) error { return nil }

func testIntent(t *testing.T) core.OrderIntent {
	t.Helper()
	intent, err := core.NewEntryIntent("NSE_EQ|DEMO", core.SideLong, 10,
		decimal.NewFromInt(100), decimal.NewFromInt(97), decimal.NewFromInt(105), "breakout")
	require.NoError(t, err)
	return intent
}

func newTestExecutor(b *scriptedBroker) *Executor {
	return NewExecutor(b, Config{
		FillWait:        200 * time.Millisecond,
		FillPoll:        10 * time.Millisecond,
		RateLimitPerSec: 1000,
		RateLimitBurst:  10,
		MaxRetries:      2,
	}, logging.NewLogger(logging.ErrorLevel, nil), nil)
}

func TestExecuteFilled(t *testing.T) {
	b := &scriptedBroker{
		statuses: []core.OrderReport{
			{OrderID: "oid-1", Status: core.OrderStatusPending},
			{OrderID: "oid-1", Status: core.OrderStatusComplete, AverageFill: decimal.NewFromFloat(100.05), FilledQty: 10},
		},
	}
	ex := newTestExecutor(b)

	report, err := ex.Execute(context.Background(), testIntent(t))
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusComplete, report.Status)
	assert.True(t, report.AverageFill.Equal(decimal.NewFromFloat(100.05)))
	assert.Equal(t, int64(10), report.FilledQty)
}

func TestExecuteRetriesTransientSubmitErrors(t *testing.T) {
	b := &scriptedBroker{
		submitErrs: []error{apperrors.ErrNetwork, apperrors.ErrRateLimited, nil},
		statuses: []core.OrderReport{
			{OrderID: "oid-1", Status: core.OrderStatusComplete, AverageFill: decimal.NewFromInt(100), FilledQty: 10},
		},
	}
	ex := newTestExecutor(b)

	_, err := ex.Execute(context.Background(), testIntent(t))
	require.NoError(t, err)
	assert.Equal(t, 3, b.submitCalls)
}

func TestExecuteGivesUpAfterMaxRetries(t *testing.T) {
	b := &scriptedBroker{
		submitErrs: []error{apperrors.ErrNetwork, apperrors.ErrNetwork, apperrors.ErrNetwork, apperrors.ErrNetwork},
	}
	ex := newTestExecutor(b)

	_, err := ex.Execute(context.Background(), testIntent(t))
	require.Error(t, err)
	assert.Equal(t, 3, b.submitCalls) // initial attempt + 2 retries
}

func TestExecuteRejected(t *testing.T) {
	b := &scriptedBroker{
		statuses: []core.OrderReport{
			{OrderID: "oid-1", Status: core.OrderStatusRejected, RejectReason: "insufficient funds"},
		},
	}
	ex := newTestExecutor(b)

	_, err := ex.Execute(context.Background(), testIntent(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOrderRejected)
}

func TestExecuteUnfilledAfterWindow(t *testing.T) {
	b := &scriptedBroker{
		statuses: []core.OrderReport{
			{OrderID: "oid-1", Status: core.OrderStatusPending},
		},
	}
	ex := newTestExecutor(b)

	_, err := ex.Execute(context.Background(), testIntent(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnfilled)
}

func TestExecuteContextCancelled(t *testing.T) {
	b := &scriptedBroker{
		statuses: []core.OrderReport{
			{OrderID: "oid-1", Status: core.OrderStatusPending},
		},
	}
	ex := newTestExecutor(b)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := ex.Execute(ctx, testIntent(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
