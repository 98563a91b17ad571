// Package config handles configuration management with validation. The
// loaded Config is immutable after startup and passed explicitly into every
// component constructor; nothing reads tunables from ambient state.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Trading     TradingConfig     `yaml:"trading"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	RiskControl RiskControlConfig `yaml:"risk_control"`
	Session     SessionConfig     `yaml:"session"`
	Orders      OrdersConfig      `yaml:"orders"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Journal     JournalConfig     `yaml:"journal"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`
	Broker   string `yaml:"broker"` // "sim" or a real adapter name
}

// TradingConfig contains capital and universe parameters.
type TradingConfig struct {
	Capital          float64  `yaml:"capital"`
	IntradayLeverage float64  `yaml:"intraday_leverage"`
	RiskPerTradePct  float64  `yaml:"risk_per_trade_pct"`
	Instruments      []string `yaml:"instruments"`
	TopN             int      `yaml:"top_n"`
}

// EffectiveCapital is the leveraged buying power for intraday orders.
func (t TradingConfig) EffectiveCapital() float64 {
	lev := t.IntradayLeverage
	if lev <= 0 {
		lev = 1
	}
	return t.Capital * lev
}

// RiskBudgetPerTrade is the cash amount risked on a single trade.
func (t TradingConfig) RiskBudgetPerTrade() float64 {
	return t.EffectiveCapital() * t.RiskPerTradePct
}

// StrategyConfig contains the breakout and exit tunables.
type StrategyConfig struct {
	OpeningRangeBars int `yaml:"opening_range_bars"`
	EMAFast          int `yaml:"ema_fast"`
	EMASlow          int `yaml:"ema_slow"`
	RSIPeriod        int `yaml:"rsi_period"`
	ATRWindow        int `yaml:"atr_window"`

	RSILongMin  float64 `yaml:"rsi_long_min"`
	RSILongMax  float64 `yaml:"rsi_long_max"`
	RSIShortMin float64 `yaml:"rsi_short_min"`
	RSIShortMax float64 `yaml:"rsi_short_max"`

	// Exit-side RSI thresholds for the trend-reversal filter.
	RSIReversalLong  float64 `yaml:"rsi_reversal_long"`
	RSIReversalShort float64 `yaml:"rsi_reversal_short"`

	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	VWAPFilter       bool    `yaml:"vwap_filter"`

	StopLossPct         float64 `yaml:"stop_loss_pct"`
	TargetPct           float64 `yaml:"target_pct"`
	ATRStopMultiplier   float64 `yaml:"atr_stop_multiplier"`
	ATRTargetMultiplier float64 `yaml:"atr_target_multiplier"`
	TrailATRMultiplier  float64 `yaml:"trail_atr_multiplier"`
	BreakevenBufferPct  float64 `yaml:"breakeven_buffer_pct"`
}

// WarmupBars is the minimum bar count before signals are evaluated.
func (s StrategyConfig) WarmupBars() int {
	return s.EMASlow + 5
}

// RiskControlConfig contains the daily kill-switch thresholds.
type RiskControlConfig struct {
	DailyProfitTarget    float64 `yaml:"daily_profit_target"`
	DailyMaxLoss         float64 `yaml:"daily_max_loss"`
	MaxTradesPerDay      int     `yaml:"max_trades_per_day"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
}

// TimeWindow is an intraday wall-clock window in "HH:MM" form.
type TimeWindow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// SessionConfig contains the trading-day timetable.
type SessionConfig struct {
	MarketOpen       string       `yaml:"market_open"`
	RangeEnd         string       `yaml:"range_end"`
	EntryCutoff      string       `yaml:"entry_cutoff"`
	ForceExit        string       `yaml:"force_exit"`
	NoEntryWindows   []TimeWindow `yaml:"no_entry_windows"`
	PollIntervalSecs int          `yaml:"poll_interval_secs"`
	Holidays         []string     `yaml:"holidays"` // "2006-01-02" dates
}

// OrdersConfig contains order-path settings.
type OrdersConfig struct {
	FillWaitSecs    int     `yaml:"fill_wait_secs"`
	FillPollSecs    int     `yaml:"fill_poll_secs"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	MaxRetries      int     `yaml:"max_retries"`
}

// AlertsConfig contains notification sink settings.
type AlertsConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// JournalConfig contains trade journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`
}

// ConcurrencyConfig contains worker pool settings.
type ConcurrencyConfig struct {
	ScreenerPoolSize   int `yaml:"screener_pool_size"`
	ScreenerPoolBuffer int `yaml:"screener_pool_buffer"`
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable
// expansion.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	var errs []string

	for _, check := range []func() error{
		c.validateApp,
		c.validateTrading,
		c.validateStrategy,
		c.validateRiskControl,
		c.validateSession,
		c.validateOrders,
	} {
		if err := check(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (c *Config) validateApp() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.App.LogLevel)) {
		return ValidationError{
			Field:   "app.log_level",
			Value:   c.App.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	if c.App.Timezone == "" {
		return ValidationError{Field: "app.timezone", Message: "timezone is required"}
	}
	if c.App.Broker == "" {
		return ValidationError{Field: "app.broker", Message: "broker is required"}
	}
	return nil
}

func (c *Config) validateTrading() error {
	if c.Trading.Capital <= 0 {
		return ValidationError{Field: "trading.capital", Value: c.Trading.Capital, Message: "capital must be positive"}
	}
	if c.Trading.RiskPerTradePct <= 0 || c.Trading.RiskPerTradePct > 1 {
		return ValidationError{Field: "trading.risk_per_trade_pct", Value: c.Trading.RiskPerTradePct, Message: "must be in (0, 1]"}
	}
	if len(c.Trading.Instruments) == 0 {
		return ValidationError{Field: "trading.instruments", Message: "at least one instrument is required"}
	}
	if c.Trading.TopN <= 0 {
		return ValidationError{Field: "trading.top_n", Value: c.Trading.TopN, Message: "top_n must be positive"}
	}
	return nil
}

func (c *Config) validateStrategy() error {
	s := c.Strategy
	if s.OpeningRangeBars < 1 {
		return ValidationError{Field: "strategy.opening_range_bars", Value: s.OpeningRangeBars, Message: "must be at least 1"}
	}
	if s.EMAFast <= 0 || s.EMASlow <= 0 || s.EMAFast >= s.EMASlow {
		return ValidationError{
			Field:   "strategy.ema_fast/ema_slow",
			Value:   fmt.Sprintf("%d/%d", s.EMAFast, s.EMASlow),
			Message: "ema_fast must be positive and less than ema_slow",
		}
	}
	if s.RSIPeriod <= 0 || s.ATRWindow <= 0 {
		return ValidationError{
			Field:   "strategy.rsi_period/atr_window",
			Value:   fmt.Sprintf("%d/%d", s.RSIPeriod, s.ATRWindow),
			Message: "indicator periods must be positive",
		}
	}
	if s.RSILongMin >= s.RSILongMax {
		return ValidationError{Field: "strategy.rsi_long_min", Value: s.RSILongMin, Message: "long RSI band is empty"}
	}
	if s.RSIShortMin >= s.RSIShortMax {
		return ValidationError{Field: "strategy.rsi_short_min", Value: s.RSIShortMin, Message: "short RSI band is empty"}
	}
	if s.VolumeMultiplier <= 0 {
		return ValidationError{Field: "strategy.volume_multiplier", Value: s.VolumeMultiplier, Message: "must be positive"}
	}
	if s.StopLossPct <= 0 || s.TargetPct <= 0 {
		return ValidationError{Field: "strategy.stop_loss_pct/target_pct", Message: "fallback stop and target percentages must be positive"}
	}
	if s.ATRStopMultiplier <= 0 || s.ATRTargetMultiplier <= 0 || s.TrailATRMultiplier <= 0 {
		return ValidationError{Field: "strategy.atr_multipliers", Message: "ATR multipliers must be positive"}
	}
	return nil
}

func (c *Config) validateRiskControl() error {
	r := c.RiskControl
	if r.DailyProfitTarget <= 0 {
		return ValidationError{Field: "risk_control.daily_profit_target", Value: r.DailyProfitTarget, Message: "must be positive"}
	}
	if r.DailyMaxLoss <= 0 {
		return ValidationError{Field: "risk_control.daily_max_loss", Value: r.DailyMaxLoss, Message: "must be positive"}
	}
	if r.MaxTradesPerDay <= 0 {
		return ValidationError{Field: "risk_control.max_trades_per_day", Value: r.MaxTradesPerDay, Message: "must be positive"}
	}
	if r.MaxConsecutiveLosses <= 0 {
		return ValidationError{Field: "risk_control.max_consecutive_losses", Value: r.MaxConsecutiveLosses, Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateSession() error {
	times := map[string]string{
		"session.market_open":  c.Session.MarketOpen,
		"session.range_end":    c.Session.RangeEnd,
		"session.entry_cutoff": c.Session.EntryCutoff,
		"session.force_exit":   c.Session.ForceExit,
	}
	for field, v := range times {
		if !validClock(v) {
			return ValidationError{Field: field, Value: v, Message: "must be HH:MM"}
		}
	}
	for i, w := range c.Session.NoEntryWindows {
		if !validClock(w.Start) || !validClock(w.End) {
			return ValidationError{
				Field:   fmt.Sprintf("session.no_entry_windows[%d]", i),
				Value:   fmt.Sprintf("%s-%s", w.Start, w.End),
				Message: "window bounds must be HH:MM",
			}
		}
	}
	if c.Session.PollIntervalSecs <= 0 {
		return ValidationError{Field: "session.poll_interval_secs", Value: c.Session.PollIntervalSecs, Message: "must be positive"}
	}
	return nil
}

func (c *Config) validateOrders() error {
	if c.Orders.FillWaitSecs <= 0 {
		return ValidationError{Field: "orders.fill_wait_secs", Value: c.Orders.FillWaitSecs, Message: "must be positive"}
	}
	if c.Orders.FillPollSecs <= 0 || c.Orders.FillPollSecs > c.Orders.FillWaitSecs {
		return ValidationError{Field: "orders.fill_poll_secs", Value: c.Orders.FillPollSecs, Message: "must be positive and not exceed fill_wait_secs"}
	}
	return nil
}

func validClock(v string) bool {
	if len(v) != 5 || v[2] != ':' {
		return false
	}
	h := int(v[0]-'0')*10 + int(v[1]-'0')
	m := int(v[3]-'0')*10 + int(v[4]-'0')
	for _, ch := range []byte{v[0], v[1], v[3], v[4]} {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return h >= 0 && h < 24 && m >= 0 && m < 60
}

// String returns a string representation of the configuration with
// sensitive data masked.
func (c *Config) String() string {
	copied := *c
	copied.Alerts.SlackWebhookURL = maskString(copied.Alerts.SlackWebhookURL)
	copied.Alerts.TelegramBotToken = maskString(copied.Alerts.TelegramBotToken)
	data, _ := yaml.Marshal(copied)
	return string(data)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// DefaultConfig returns a default configuration for testing.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel: "INFO",
			Timezone: "Asia/Kolkata",
			Broker:   "sim",
		},
		Trading: TradingConfig{
			Capital:          2500,
			IntradayLeverage: 5,
			RiskPerTradePct:  0.02,
			Instruments:      []string{"NSE_EQ|DEMO1", "NSE_EQ|DEMO2"},
			TopN:             5,
		},
		Strategy: StrategyConfig{
			OpeningRangeBars:    3,
			EMAFast:             9,
			EMASlow:             21,
			RSIPeriod:           14,
			ATRWindow:           14,
			RSILongMin:          40,
			RSILongMax:          75,
			RSIShortMin:         25,
			RSIShortMax:         60,
			RSIReversalLong:     40,
			RSIReversalShort:    60,
			VolumeMultiplier:    1.2,
			VWAPFilter:          true,
			StopLossPct:         0.005,
			TargetPct:           0.010,
			ATRStopMultiplier:   1.5,
			ATRTargetMultiplier: 2.5,
			TrailATRMultiplier:  1.0,
			BreakevenBufferPct:  0.0005,
		},
		RiskControl: RiskControlConfig{
			DailyProfitTarget:    50,
			DailyMaxLoss:         50,
			MaxTradesPerDay:      5,
			MaxConsecutiveLosses: 3,
		},
		Session: SessionConfig{
			MarketOpen:       "09:15",
			RangeEnd:         "09:30",
			EntryCutoff:      "15:02",
			ForceExit:        "15:10",
			PollIntervalSecs: 300,
		},
		Orders: OrdersConfig{
			FillWaitSecs:    30,
			FillPollSecs:    2,
			RateLimitPerSec: 5,
			RateLimitBurst:  5,
			MaxRetries:      3,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "orb_trader.db",
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: false,
			MetricsPort:   9090,
		},
		Concurrency: ConcurrencyConfig{
			ScreenerPoolSize:   8,
			ScreenerPoolBuffer: 64,
		},
	}
}
