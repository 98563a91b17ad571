package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_trader/internal/core"
	"orb_trader/internal/logging"
	"orb_trader/pkg/concurrency"
)

type fakeBars struct {
	bars map[string][]core.Bar
	errs map[string]error
}

func (f *fakeBars) FetchBars(ctx context.Context, instrument string) ([]core.Bar, error) {
	if err := f.errs[instrument]; err != nil {
		return nil, err
	}
	return f.bars[instrument], nil
}

func (f *fakeBars) LastTradedPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeBars) SubmitOrder(ctx context.Context, intent core.OrderIntent) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeBars) OrderStatus(ctx context.Context, orderID string) (core.OrderReport, error) {
	return core.OrderReport{}, errors.New("not implemented")
}

func (f *fakeBars) FlattenAll(ctx context.Context) error { return nil }

func barsWith(close, atr float64, n int) []core.Bar {
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{
			Time:  time.Now(),
			Close: decimal.NewFromFloat(close),
			ATR:   decimal.NewFromFloat(atr),
		}
	}
	return bars
}

func newTestScreener(f *fakeBars) (*Screener, *concurrency.WorkerPool) {
	logger := logging.NewLogger(logging.ErrorLevel, nil)
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "screener", MaxWorkers: 4, MaxCapacity: 64}, logger)
	return NewScreener(f, pool, logger), pool
}

func TestRankOrdersByATRPct(t *testing.T) {
	f := &fakeBars{bars: map[string][]core.Bar{
		"LOW":  barsWith(100, 1, 30), // 1%
		"HIGH": barsWith(100, 4, 30), // 4%
		"MID":  barsWith(200, 5, 30), // 2.5%
	}}
	s, pool := newTestScreener(f)
	defer pool.Stop()

	ranked := s.Rank(context.Background(), []string{"LOW", "HIGH", "MID"}, Config{TopN: 10, MinBars: 10})

	require.Len(t, ranked, 3)
	assert.Equal(t, "HIGH", ranked[0].Instrument)
	assert.Equal(t, "MID", ranked[1].Instrument)
	assert.Equal(t, "LOW", ranked[2].Instrument)
	assert.InDelta(t, 4.0, ranked[0].ATRPct, 1e-9)
}

func TestRankTopNCap(t *testing.T) {
	f := &fakeBars{bars: map[string][]core.Bar{
		"A": barsWith(100, 1, 30),
		"B": barsWith(100, 2, 30),
		"C": barsWith(100, 3, 30),
	}}
	s, pool := newTestScreener(f)
	defer pool.Stop()

	ranked := s.Rank(context.Background(), []string{"A", "B", "C"}, Config{TopN: 2, MinBars: 10})
	require.Len(t, ranked, 2)
	assert.Equal(t, "C", ranked[0].Instrument)
}

func TestRankSkipsFailuresAndThinData(t *testing.T) {
	f := &fakeBars{
		bars: map[string][]core.Bar{
			"OK":   barsWith(100, 2, 30),
			"THIN": barsWith(100, 2, 3),
			"COLD": barsWith(100, 0, 30), // ATR not warmed up
		},
		errs: map[string]error{"BROKEN": errors.New("fetch failed")},
	}
	s, pool := newTestScreener(f)
	defer pool.Stop()

	ranked := s.Rank(context.Background(), []string{"OK", "THIN", "COLD", "BROKEN"}, Config{TopN: 10, MinBars: 10})
	require.Len(t, ranked, 1)
	assert.Equal(t, "OK", ranked[0].Instrument)
}

func TestRankFiltersUnaffordable(t *testing.T) {
	f := &fakeBars{bars: map[string][]core.Bar{
		"CHEAP":  barsWith(50, 2, 30),
		"PRICEY": barsWith(5000, 100, 30),
	}}
	s, pool := newTestScreener(f)
	defer pool.Stop()

	ranked := s.Rank(context.Background(), []string{"CHEAP", "PRICEY"},
		Config{TopN: 10, MinBars: 10, MaxPrice: decimal.NewFromInt(1000)})
	require.Len(t, ranked, 1)
	assert.Equal(t, "CHEAP", ranked[0].Instrument)
}
