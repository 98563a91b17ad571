// Package core defines the shared types and cross-component contracts for
// the trading engine.
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IBroker is the external broker collaborator: market data retrieval with
// indicator enrichment, order placement, and fill reporting. The decision
// engine never talks HTTP itself; adapters implement this interface.
type IBroker interface {
	// FetchBars returns today's enriched bars for an instrument, oldest
	// first. An empty slice is valid and means "no data yet".
	FetchBars(ctx context.Context, instrument string) ([]Bar, error)

	// LastTradedPrice returns the most recent trade price.
	LastTradedPrice(ctx context.Context, instrument string) (decimal.Decimal, error)

	// SubmitOrder places a market order for the intent and returns the
	// broker order id.
	SubmitOrder(ctx context.Context, intent OrderIntent) (string, error)

	// OrderStatus reports the current state of a submitted order.
	OrderStatus(ctx context.Context, orderID string) (OrderReport, error)

	// FlattenAll closes every open position known to the broker. Best
	// effort; used only on force-exit and kill-switch paths.
	FlattenAll(ctx context.Context) error
}

// ILogger is the structured logging contract used by every component.
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// ITradeJournal records completed trades and the daily summary. Write-only
// during the session; decision state never reads back from it.
type ITradeJournal interface {
	RecordTrade(ctx context.Context, trade TradeRecord) error
	RecordSummary(ctx context.Context, summary DaySummary) error
	Close() error
}
