package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"orb_trader/internal/alert"
	"orb_trader/internal/bootstrap"
	"orb_trader/internal/config"
	"orb_trader/internal/core"
	"orb_trader/internal/journal"
	"orb_trader/internal/mock"
	"orb_trader/internal/risk"
	"orb_trader/internal/telemetry"
	"orb_trader/internal/trading/order"
	"orb_trader/internal/trading/orchestrator"
	"orb_trader/internal/trading/position"
	"orb_trader/internal/trading/screener"
	"orb_trader/internal/trading/strategy"
	"orb_trader/pkg/concurrency"
	"orb_trader/pkg/indicators"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/orb_trader.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("orb_trader version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	app, err := bootstrap.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	cfg := app.Cfg
	logger := app.Logger

	logger.Info("Starting orb_trader",
		"version", version,
		"broker", cfg.App.Broker,
		"instruments", len(cfg.Trading.Instruments),
	)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Fatal("Invalid timezone", "timezone", cfg.App.Timezone, "error", err)
	}

	clock, err := orchestrator.NewSessionClock(cfg.Session, loc)
	if err != nil {
		logger.Fatal("Invalid session config", "error", err)
	}

	var metrics *telemetry.Metrics
	var metricsSrv *telemetry.Server
	if cfg.Telemetry.EnableMetrics {
		metrics = telemetry.NewMetrics()
		metricsSrv = telemetry.NewServer(cfg.Telemetry.MetricsPort, logger)
		metricsSrv.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Stop(ctx); err != nil {
				logger.Error("Metrics server shutdown failed", "error", err)
			}
		}()
	}

	var tradeJournal core.ITradeJournal = journal.NopJournal{}
	if cfg.Journal.Enabled {
		j, err := journal.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			logger.Fatal("Failed to open trade journal", "path", cfg.Journal.Path, "error", err)
		}
		tradeJournal = j
	}
	defer tradeJournal.Close()

	alerts := alert.NewManager(logger)
	if cfg.Alerts.SlackWebhookURL != "" {
		alerts.AddChannel(alert.NewSlackChannel(cfg.Alerts.SlackWebhookURL))
	}
	if cfg.Alerts.TelegramBotToken != "" {
		alerts.AddChannel(alert.NewTelegramChannel(cfg.Alerts.TelegramBotToken, cfg.Alerts.TelegramChatID))
	}

	broker, feeder, err := buildBroker(cfg, clock, logger)
	if err != nil {
		logger.Fatal("Failed to build broker", "error", err)
	}

	gate := risk.NewGate(risk.Limits{
		DailyProfitTarget:    decimal.NewFromFloat(cfg.RiskControl.DailyProfitTarget),
		DailyMaxLoss:         decimal.NewFromFloat(cfg.RiskControl.DailyMaxLoss),
		MaxTradesPerDay:      cfg.RiskControl.MaxTradesPerDay,
		MaxConsecutiveLosses: cfg.RiskControl.MaxConsecutiveLosses,
	}, clock.TradeDate(time.Now()), logger, metrics)

	engine := strategy.NewEngine(strategy.Params{
		WarmupBars:       cfg.Strategy.WarmupBars(),
		RSILongMin:       cfg.Strategy.RSILongMin,
		RSILongMax:       cfg.Strategy.RSILongMax,
		RSIShortMin:      cfg.Strategy.RSIShortMin,
		RSIShortMax:      cfg.Strategy.RSIShortMax,
		RSIReversalLong:  cfg.Strategy.RSIReversalLong,
		RSIReversalShort: cfg.Strategy.RSIReversalShort,
		VolumeMultiplier: decimal.NewFromFloat(cfg.Strategy.VolumeMultiplier),
		VWAPFilter:       cfg.Strategy.VWAPFilter,
		Exit: strategy.ExitParams{
			StopLossPct:         decimal.NewFromFloat(cfg.Strategy.StopLossPct),
			TargetPct:           decimal.NewFromFloat(cfg.Strategy.TargetPct),
			ATRStopMultiplier:   decimal.NewFromFloat(cfg.Strategy.ATRStopMultiplier),
			ATRTargetMultiplier: decimal.NewFromFloat(cfg.Strategy.ATRTargetMultiplier),
		},
		Trail: position.TrailParams{
			TrailATRMultiplier: decimal.NewFromFloat(cfg.Strategy.TrailATRMultiplier),
			BreakevenBufferPct: decimal.NewFromFloat(cfg.Strategy.BreakevenBufferPct),
		},
	}, logger)

	executor := order.NewExecutor(broker, order.Config{
		FillWait:        time.Duration(cfg.Orders.FillWaitSecs) * time.Second,
		FillPoll:        time.Duration(cfg.Orders.FillPollSecs) * time.Second,
		RateLimitPerSec: cfg.Orders.RateLimitPerSec,
		RateLimitBurst:  cfg.Orders.RateLimitBurst,
		MaxRetries:      cfg.Orders.MaxRetries,
	}, logger, metrics)

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "screener",
		MaxWorkers:  cfg.Concurrency.ScreenerPoolSize,
		MaxCapacity: cfg.Concurrency.ScreenerPoolBuffer,
	}, logger)
	defer pool.Stop()

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Broker:   broker,
		Engine:   engine,
		Executor: executor,
		Gate:     gate,
		Screener: screener.NewScreener(broker, pool, logger),
		Clock:    clock,
		Journal:  tradeJournal,
		Alerts:   alerts,
		Metrics:  metrics,
		Logger:   logger,
	})

	runners := []bootstrap.Runner{orch}
	if feeder != nil {
		runners = append(runners, feeder)
	}

	if err := app.Run(runners...); err != nil {
		logger.Error("Trader exited with error", "error", err)
		os.Exit(1)
	}
}

// buildBroker returns the broker adapter for the configured mode, plus an
// optional feeder runner that drives simulated data.
func buildBroker(cfg *config.Config, clock *orchestrator.SessionClock, logger core.ILogger) (core.IBroker, bootstrap.Runner, error) {
	switch cfg.App.Broker {
	case "sim":
		return buildSimBroker(cfg, clock, logger)
	default:
		return nil, nil, fmt.Errorf("unknown broker %q (only \"sim\" is built in)", cfg.App.Broker)
	}
}

// buildSimBroker seeds a simulated broker with one synthetic trading day
// per instrument and a feeder that reveals a bar per poll interval.
func buildSimBroker(cfg *config.Config, clock *orchestrator.SessionClock, logger core.ILogger) (core.IBroker, bootstrap.Runner, error) {
	broker := mock.NewSimBroker()
	broker.Slippage = decimal.NewFromFloat(0.05)

	enrich := indicators.EnrichConfig{
		EMAFast:   cfg.Strategy.EMAFast,
		EMASlow:   cfg.Strategy.EMASlow,
		RSIPeriod: cfg.Strategy.RSIPeriod,
		ATRWindow: cfg.Strategy.ATRWindow,
		VolumeMA:  10,
	}

	start := clock.NextOpen(time.Now().Add(-24 * time.Hour))
	interval := time.Duration(cfg.Session.PollIntervalSecs) * time.Second
	const barsPerDay = 75

	for i, instrument := range cfg.Trading.Instruments {
		open := 80 + float64(i*37%400)
		bars := mock.GenerateDay(int64(i)+1, open, barsPerDay, start, interval, enrich)
		broker.LoadBars(instrument, bars)
	}

	feeder := bootstrap.RunnerFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				broker.AdvanceAll(1)
			}
		}
	})

	logger.Info("Simulated broker ready", "instruments", len(cfg.Trading.Instruments), "bars_per_day", barsPerDay)
	return broker, feeder, nil
}
