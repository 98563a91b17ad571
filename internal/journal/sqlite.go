// Package journal persists completed trades and daily summaries to SQLite.
// The journal is write-only during the session: nothing in the decision
// path reads it back.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"orb_trader/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id          TEXT PRIMARY KEY,
	trade_date  TEXT NOT NULL,
	instrument  TEXT NOT NULL,
	side        TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price  TEXT NOT NULL,
	quantity    INTEGER NOT NULL,
	pnl         TEXT NOT NULL,
	reason      TEXT NOT NULL,
	entry_time  INTEGER NOT NULL,
	exit_time   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS day_summaries (
	trade_date     TEXT PRIMARY KEY,
	realized_pnl   TEXT NOT NULL,
	total_trades   INTEGER NOT NULL,
	winning_trades INTEGER NOT NULL,
	profit_hit     INTEGER NOT NULL,
	max_loss_hit   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trade_date);
`

// SQLiteJournal implements core.ITradeJournal on a local SQLite file.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	// WAL keeps writes durable across crashes without blocking readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// RecordTrade inserts one completed round trip.
func (j *SQLiteJournal) RecordTrade(ctx context.Context, trade core.TradeRecord) error {
	query := `INSERT OR REPLACE INTO trades
		(id, trade_date, instrument, side, entry_price, exit_price, quantity, pnl, reason, entry_time, exit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		trade.ID,
		trade.ExitTime.Format("2006-01-02"),
		trade.Instrument,
		string(trade.Side),
		trade.EntryPrice.String(),
		trade.ExitPrice.String(),
		trade.Quantity,
		trade.PnL.String(),
		trade.Reason,
		trade.EntryTime.UnixNano(),
		trade.ExitTime.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record trade %s: %w", trade.ID, err)
	}
	return nil
}

// RecordSummary upserts the end-of-day rollup.
func (j *SQLiteJournal) RecordSummary(ctx context.Context, summary core.DaySummary) error {
	query := `INSERT OR REPLACE INTO day_summaries
		(trade_date, realized_pnl, total_trades, winning_trades, profit_hit, max_loss_hit)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, query,
		summary.Date,
		summary.RealizedPnL.String(),
		summary.TotalTrades,
		summary.WinningTrades,
		boolToInt(summary.ProfitHit),
		boolToInt(summary.MaxLossHit),
	)
	if err != nil {
		return fmt.Errorf("failed to record summary for %s: %w", summary.Date, err)
	}
	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NopJournal discards everything. Used when the journal is disabled.
type NopJournal struct{}

func (NopJournal) RecordTrade(ctx context.Context, trade core.TradeRecord) error    { return nil }
func (NopJournal) RecordSummary(ctx context.Context, summary core.DaySummary) error { return nil }
func (NopJournal) Close() error                                                     { return nil }
