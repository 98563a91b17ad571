// Package mock provides a simulated broker for tests and dry runs.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	apperrors "orb_trader/pkg/errors"
)

// FillMode controls how the sim broker resolves submitted orders.
type FillMode int

const (
	// FillInstant completes orders on the first status poll.
	FillInstant FillMode = iota
	// FillDelayed stays PENDING for FillAfterPolls status polls.
	FillDelayed
	// FillReject rejects every order.
	FillReject
	// FillNever leaves orders PENDING forever.
	FillNever
)

type simOrder struct {
	intent    core.OrderIntent
	polls     int
	fillPrice decimal.Decimal
}

// SimBroker implements core.IBroker against scripted bar data. Bars are
// revealed one at a time through Advance, mimicking the intraday feed.
type SimBroker struct {
	mu sync.RWMutex

	bars   map[string][]core.Bar
	cursor map[string]int

	orders     map[string]*simOrder
	Submitted  []core.OrderIntent
	orderSeq   atomic.Int64
	fetchCalls atomic.Int64

	// Fill behavior.
	Mode           FillMode
	FillAfterPolls int
	// Slippage is applied against the order: buys fill higher, sells
	// fill lower.
	Slippage decimal.Decimal

	FlattenCalls int
	SubmitErr    error
}

func NewSimBroker() *SimBroker {
	return &SimBroker{
		bars:   make(map[string][]core.Bar),
		cursor: make(map[string]int),
		orders: make(map[string]*simOrder),
	}
}

// LoadBars installs the full day's scripted bars for an instrument. None
// are visible until Advance is called.
func (s *SimBroker) LoadBars(instrument string, bars []core.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[instrument] = bars
	s.cursor[instrument] = 0
}

// Advance reveals the next n bars for an instrument.
func (s *SimBroker) Advance(instrument string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.cursor[instrument] + n
	if c > len(s.bars[instrument]) {
		c = len(s.bars[instrument])
	}
	s.cursor[instrument] = c
}

// AdvanceAll reveals the next n bars for every loaded instrument.
func (s *SimBroker) AdvanceAll(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for instrument := range s.bars {
		c := s.cursor[instrument] + n
		if c > len(s.bars[instrument]) {
			c = len(s.bars[instrument])
		}
		s.cursor[instrument] = c
	}
}

func (s *SimBroker) FetchBars(ctx context.Context, instrument string) ([]core.Bar, error) {
	s.fetchCalls.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.bars[instrument]
	if !ok {
		return nil, fmt.Errorf("sim broker: unknown instrument %s: %w", instrument, apperrors.ErrNoData)
	}
	visible := bars[:s.cursor[instrument]]
	out := make([]core.Bar, len(visible))
	copy(out, visible)
	return out, nil
}

// FetchCount reports how many FetchBars calls the broker has served.
func (s *SimBroker) FetchCount() int {
	return int(s.fetchCalls.Load())
}

func (s *SimBroker) LastTradedPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.cursor[instrument]
	if c == 0 {
		return decimal.Zero, apperrors.ErrPriceUnknown
	}
	return s.bars[instrument][c-1].Close, nil
}

func (s *SimBroker) SubmitOrder(ctx context.Context, intent core.OrderIntent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SubmitErr != nil {
		return "", s.SubmitErr
	}

	fill := intent.RefPrice
	if s.Slippage.IsPositive() {
		if intent.TransactionSide() == "BUY" {
			fill = fill.Add(s.Slippage)
		} else {
			fill = fill.Sub(s.Slippage)
		}
	}

	orderID := fmt.Sprintf("sim-%d", s.orderSeq.Add(1))
	s.orders[orderID] = &simOrder{intent: intent, fillPrice: fill}
	s.Submitted = append(s.Submitted, intent)
	return orderID, nil
}

func (s *SimBroker) OrderStatus(ctx context.Context, orderID string) (core.OrderReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return core.OrderReport{}, fmt.Errorf("sim broker: unknown order %s", orderID)
	}
	o.polls++

	switch s.Mode {
	case FillReject:
		return core.OrderReport{OrderID: orderID, Status: core.OrderStatusRejected, RejectReason: "simulated rejection"}, nil
	case FillNever:
		return core.OrderReport{OrderID: orderID, Status: core.OrderStatusPending}, nil
	case FillDelayed:
		if o.polls <= s.FillAfterPolls {
			return core.OrderReport{OrderID: orderID, Status: core.OrderStatusPending}, nil
		}
	}

	return core.OrderReport{
		OrderID:     orderID,
		Status:      core.OrderStatusComplete,
		AverageFill: o.fillPrice,
		FilledQty:   o.intent.Quantity,
	}, nil
}

func (s *SimBroker) FlattenAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FlattenCalls++
	return nil
}
