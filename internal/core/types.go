package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of a position or entry.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the closing direction for a side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Bar is one enriched OHLCV bar. Indicator fields are populated by the data
// collaborator before the bar reaches the decision engine; a zero ATR or
// VolumeMA means the indicator has not warmed up yet.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal

	EMAFast  decimal.Decimal
	EMASlow  decimal.Decimal
	RSI      float64
	ATR      decimal.Decimal
	VolumeMA decimal.Decimal
	VWAP     decimal.Decimal
}

// Action is the intent emitted by the signal engine for one poll cycle.
type Action string

const (
	ActionHold  Action = "HOLD"
	ActionBuy   Action = "BUY"
	ActionShort Action = "SHORT"
	ActionExit  Action = "EXIT"
)

// Signal is the per-cycle output of the signal engine. Produced fresh every
// cycle, never persisted.
type Signal struct {
	Action     Action
	Instrument string
	Reason     string
	Price      decimal.Decimal
	Quantity   int64

	// Entry signals only.
	Side     Side
	StopLoss decimal.Decimal
	Target   decimal.Decimal
}

// Hold builds a HOLD signal with a reason.
func Hold(instrument, reason string, price decimal.Decimal) Signal {
	return Signal{Action: ActionHold, Instrument: instrument, Reason: reason, Price: price}
}

// OrderStatus is the lifecycle state of a submitted order as reported by the
// broker collaborator.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusComplete  OrderStatus = "COMPLETE"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

// OrderReport is the broker's view of one order.
type OrderReport struct {
	OrderID      string
	Status       OrderStatus
	AverageFill  decimal.Decimal
	FilledQty    int64
	RejectReason string
}

// TradeRecord is one completed round trip, booked by the risk gate and the
// journal.
type TradeRecord struct {
	ID         string
	Instrument string
	Side       Side
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Quantity   int64
	PnL        decimal.Decimal
	Reason     string
	EntryTime  time.Time
	ExitTime   time.Time
}

// RankedInstrument is one screener result: an instrument plus the volatility
// stats used to order the daily scan.
type RankedInstrument struct {
	Instrument string
	LastPrice  decimal.Decimal
	ATR        decimal.Decimal
	ATRPct     float64
	VolumeMA   decimal.Decimal
}

// DaySummary is the end-of-day rollup produced by the risk gate.
type DaySummary struct {
	Date          string
	RealizedPnL   decimal.Decimal
	OpenPnL       decimal.Decimal
	TotalPnL      decimal.Decimal
	TotalTrades   int
	WinningTrades int
	Trades        []TradeRecord
	ProfitHit     bool
	MaxLossHit    bool
}
