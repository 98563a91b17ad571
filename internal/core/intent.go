package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// IntentKind tags an OrderIntent as a fresh entry or a position close.
type IntentKind string

const (
	IntentEntry IntentKind = "ENTRY"
	IntentExit  IntentKind = "EXIT"
)

// OrderIntent is the only value the order path accepts. Entry and exit
// intents carry different required fields, so they are built through the
// constructors below rather than struct literals.
type OrderIntent struct {
	Kind       IntentKind
	Instrument string
	Side       Side
	Quantity   int64
	// RefPrice is the last price seen when the intent was formed. It is a
	// display fallback only and never becomes booked P&L.
	RefPrice decimal.Decimal
	Reason   string

	// Entry intents only.
	StopLoss decimal.Decimal
	Target   decimal.Decimal
}

// NewEntryIntent builds an order intent that opens a position.
func NewEntryIntent(instrument string, side Side, qty int64, refPrice, stop, target decimal.Decimal, reason string) (OrderIntent, error) {
	if qty < 1 {
		return OrderIntent{}, fmt.Errorf("entry intent for %s: quantity must be >= 1, got %d", instrument, qty)
	}
	if side == SideLong && (stop.GreaterThanOrEqual(refPrice) || target.LessThanOrEqual(refPrice)) {
		return OrderIntent{}, fmt.Errorf("entry intent for %s: long stop/target on wrong side of %s", instrument, refPrice)
	}
	if side == SideShort && (stop.LessThanOrEqual(refPrice) || target.GreaterThanOrEqual(refPrice)) {
		return OrderIntent{}, fmt.Errorf("entry intent for %s: short stop/target on wrong side of %s", instrument, refPrice)
	}
	return OrderIntent{
		Kind:       IntentEntry,
		Instrument: instrument,
		Side:       side,
		Quantity:   qty,
		RefPrice:   refPrice,
		StopLoss:   stop,
		Target:     target,
		Reason:     reason,
	}, nil
}

// NewExitIntent builds an order intent that closes an open position. side is
// the side of the position being closed, not the closing transaction.
func NewExitIntent(instrument string, side Side, qty int64, refPrice decimal.Decimal, reason string) (OrderIntent, error) {
	if qty < 1 {
		return OrderIntent{}, fmt.Errorf("exit intent for %s: quantity must be >= 1, got %d", instrument, qty)
	}
	return OrderIntent{
		Kind:       IntentExit,
		Instrument: instrument,
		Side:       side,
		Quantity:   qty,
		RefPrice:   refPrice,
		Reason:     reason,
	}, nil
}

// TransactionSide is the broker-facing buy/sell direction for this intent.
func (oi OrderIntent) TransactionSide() string {
	long := oi.Side == SideLong
	if oi.Kind == IntentExit {
		long = !long
	}
	if long {
		return "BUY"
	}
	return "SELL"
}
