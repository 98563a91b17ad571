// Package alert fans trade-lifecycle notifications out to configured
// channels. Delivery is fire-and-forget so a slow webhook never blocks the
// decision loop.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
)

type Level string

const (
	Info     Level = "INFO"
	Warning  Level = "WARNING"
	Error    Level = "ERROR"
	Critical Level = "CRITICAL"
)

type Payload struct {
	Level     Level
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

type Channel interface {
	Send(ctx context.Context, alert Payload) error
	Name() string
}

type Manager struct {
	channels []Channel
	logger   core.ILogger
	mu       sync.RWMutex
}

func NewManager(logger core.ILogger) *Manager {
	return &Manager{
		channels: make([]Channel, 0),
		logger:   logger.WithField("component", "alert_manager"),
	}
}

func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
	m.logger.Info("Added alert channel", "name", ch.Name())
}

// Notify dispatches the alert to every channel concurrently and returns
// immediately. Per-channel failures are logged, never propagated.
func (m *Manager) Notify(ctx context.Context, level Level, title, message string, fields map[string]string) {
	payload := Payload{
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    fields,
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.channels {
		go func(c Channel) {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := c.Send(sendCtx, payload); err != nil {
				m.logger.Error("Failed to send alert", "channel", c.Name(), "error", err)
			}
		}(ch)
	}
}

// NotifyEntry reports a new position.
func (m *Manager) NotifyEntry(ctx context.Context, instrument string, side core.Side, qty int64, price, stop, target decimal.Decimal) {
	m.Notify(ctx, Info, "Position opened",
		fmt.Sprintf("%s %d x %s @ %s", side, qty, instrument, price.StringFixed(2)),
		map[string]string{
			"stop_loss": stop.StringFixed(2),
			"target":    target.StringFixed(2),
		})
}

// NotifyExit reports a closed position and its realized PnL.
func (m *Manager) NotifyExit(ctx context.Context, instrument, reason string, side core.Side, exitPrice, pnl decimal.Decimal) {
	level := Info
	if pnl.IsNegative() {
		level = Warning
	}
	m.Notify(ctx, level, "Position closed",
		fmt.Sprintf("%s %s exited @ %s (%s)", side, instrument, exitPrice.StringFixed(2), reason),
		map[string]string{
			"pnl": pnl.StringFixed(2),
		})
}

// NotifyHalt reports the daily risk gate tripping. Halts are terminal for
// the trading day, so they go out at critical severity.
func (m *Manager) NotifyHalt(ctx context.Context, reason string, realizedPnL decimal.Decimal) {
	m.Notify(ctx, Critical, "Trading halted", reason,
		map[string]string{
			"realized_pnl": realizedPnL.StringFixed(2),
		})
}

// NotifyDaySummary reports the end-of-day recap.
func (m *Manager) NotifyDaySummary(ctx context.Context, s core.DaySummary) {
	level := Info
	if s.RealizedPnL.IsNegative() {
		level = Warning
	}
	m.Notify(ctx, level, "Session summary",
		fmt.Sprintf("%s: %d trades, %d winners", s.Date, s.TotalTrades, s.WinningTrades),
		map[string]string{
			"realized_pnl":  s.RealizedPnL.StringFixed(2),
			"profit_target": fmt.Sprintf("%t", s.ProfitHit),
			"max_loss":      fmt.Sprintf("%t", s.MaxLossHit),
		})
}
