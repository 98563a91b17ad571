package alert

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
)

type captureChannel struct {
	name string
	mu   sync.Mutex
	sent []Payload
}

func (c *captureChannel) Name() string { return c.name }

func (c *captureChannel) Send(ctx context.Context, alert Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, alert)
	return nil
}

func (c *captureChannel) wait(t *testing.T, n int) []Payload {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.sent) >= n {
			out := make([]Payload, len(c.sent))
			copy(out, c.sent)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d alerts on %s", n, c.name)
	return nil
}

func newTestManager() (*Manager, *captureChannel) {
	m := NewManager(logging.NewLogger(logging.ErrorLevel, nil))
	ch := &captureChannel{name: "capture"}
	m.AddChannel(ch)
	return m, ch
}

func TestNotifyFansOutToAllChannels(t *testing.T) {
	m, ch1 := newTestManager()
	ch2 := &captureChannel{name: "second"}
	m.AddChannel(ch2)

	m.Notify(context.Background(), Info, "Test", "body", map[string]string{"k": "v"})

	sent := ch1.wait(t, 1)
	require.Len(t, sent, 1)
	assert.Equal(t, "Test", sent[0].Title)
	assert.Equal(t, Info, sent[0].Level)
	assert.Equal(t, "v", sent[0].Fields["k"])

	ch2.wait(t, 1)
}

func TestNotifyEntry(t *testing.T) {
	m, ch := newTestManager()

	m.NotifyEntry(context.Background(), "NSE_EQ|DEMO", core.SideLong, 10,
		decimal.NewFromInt(100), decimal.NewFromInt(97), decimal.NewFromInt(105))

	sent := ch.wait(t, 1)
	assert.Equal(t, "Position opened", sent[0].Title)
	assert.Contains(t, sent[0].Message, "NSE_EQ|DEMO")
	assert.Equal(t, "97.00", sent[0].Fields["stop_loss"])
	assert.Equal(t, "105.00", sent[0].Fields["target"])
}

func TestNotifyExitLevelTracksPnL(t *testing.T) {
	m, ch := newTestManager()

	m.NotifyExit(context.Background(), "NSE_EQ|DEMO", "target", core.SideLong,
		decimal.NewFromInt(105), decimal.NewFromInt(50))
	m.NotifyExit(context.Background(), "NSE_EQ|DEMO", "stop_loss", core.SideShort,
		decimal.NewFromInt(101), decimal.NewFromInt(-10))

	sent := ch.wait(t, 2)
	levels := map[Level]int{}
	for _, p := range sent {
		levels[p.Level]++
	}
	assert.Equal(t, 1, levels[Info])
	assert.Equal(t, 1, levels[Warning])
}

func TestNotifyHaltIsCritical(t *testing.T) {
	m, ch := newTestManager()

	m.NotifyHalt(context.Background(), "daily max loss reached", decimal.NewFromInt(-55))

	sent := ch.wait(t, 1)
	assert.Equal(t, Critical, sent[0].Level)
	assert.Equal(t, "-55.00", sent[0].Fields["realized_pnl"])
}

func TestNotifyDaySummary(t *testing.T) {
	m, ch := newTestManager()

	m.NotifyDaySummary(context.Background(), core.DaySummary{
		Date:          "2026-08-28",
		RealizedPnL:   decimal.NewFromInt(52),
		TotalTrades:   3,
		WinningTrades: 2,
		ProfitHit:     true,
	})

	sent := ch.wait(t, 1)
	assert.Equal(t, "Session summary", sent[0].Title)
	assert.Contains(t, sent[0].Message, "3 trades")
	assert.Equal(t, "true", sent[0].Fields["profit_target"])
}
