// Package orchestrator runs the intraday decision loop: screen the
// universe, track opening ranges, evaluate signals and manage the single
// position slot.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orb_trader/internal/alert"
	"orb_trader/internal/config"
	"orb_trader/internal/core"
	"orb_trader/internal/risk"
	"orb_trader/internal/telemetry"
	"orb_trader/internal/trading/openrange"
	"orb_trader/internal/trading/order"
	"orb_trader/internal/trading/position"
	"orb_trader/internal/trading/screener"
	"orb_trader/internal/trading/strategy"
	apperrors "orb_trader/pkg/errors"
	"orb_trader/pkg/retry"
)

// Deps are the orchestrator's collaborators. Alerts, journal and metrics
// may be nil; everything else is required.
type Deps struct {
	Broker   core.IBroker
	Engine   *strategy.Engine
	Executor *order.Executor
	Gate     *risk.Gate
	Screener *screener.Screener
	Clock    *SessionClock
	Journal  core.ITradeJournal
	Alerts   *alert.Manager
	Metrics  *telemetry.Metrics
	Logger   core.ILogger
}

// Orchestrator owns the single active-position slot and all per-day scan
// state. One instance runs one trading session at a time; it is not safe
// for concurrent Cycle calls.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps
	log  core.ILogger

	// Day-scoped state, reset on rollover.
	trackers    map[string]*openrange.Tracker
	active      *position.Position
	ranked      []core.RankedInstrument
	currentDate string
	summaryDone bool

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg *config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger.WithField("component", "orchestrator"),
		trackers: make(map[string]*openrange.Tracker),
		now:      time.Now,
	}
}

// ActivePosition exposes the current slot for inspection. Nil when flat.
func (o *Orchestrator) ActivePosition() *position.Position {
	return o.active
}

// Run drives poll cycles until the context is cancelled. Outside session
// hours it sleeps toward the next open instead of spinning.
func (o *Orchestrator) Run(ctx context.Context) error {
	interval := time.Duration(o.cfg.Session.PollIntervalSecs) * time.Second
	o.log.Info("Starting decision loop", "poll_interval", interval.String())

	for {
		now := o.now()
		if !o.deps.Clock.InSession(now) {
			if o.deps.Clock.ForceExitDue(now) {
				o.endOfSession(ctx, now)
			}
			next := o.deps.Clock.NextOpen(now)
			wait := time.Until(next)
			if wait > interval {
				wait = interval
			}
			if wait < time.Second {
				wait = time.Second
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		o.Cycle(ctx, now)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Cycle runs one scan-and-decide pass at the given instant.
func (o *Orchestrator) Cycle(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		if o.deps.Metrics != nil {
			o.deps.Metrics.CycleDuration.Observe(time.Since(start).Seconds())
		}
	}()

	o.rollDay(now)

	if o.deps.Clock.ForceExitDue(now) {
		o.endOfSession(ctx, now)
		return
	}

	if o.active != nil {
		o.manageActive(ctx, now)
		return
	}

	o.scanForEntry(ctx, now)
}

// rollDay resets the per-day state when the trade date changes.
func (o *Orchestrator) rollDay(now time.Time) {
	date := o.deps.Clock.TradeDate(now)
	if date == o.currentDate {
		return
	}
	o.log.Info("Trading day rollover", "date", date)
	o.currentDate = date
	o.trackers = make(map[string]*openrange.Tracker)
	o.active = nil
	o.ranked = nil
	o.summaryDone = false
	o.deps.Gate.StartDay(date)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ActivePositions.Set(0)
		o.deps.Metrics.OpenPnL.Set(0)
	}
}

// fetchBars pulls today's bars with retries on transient data errors.
func (o *Orchestrator) fetchBars(ctx context.Context, instrument string) ([]core.Bar, error) {
	var bars []core.Bar
	err := retry.Do(ctx, retry.DefaultPolicy, apperrors.IsRetryable, func() error {
		var ferr error
		bars, ferr = o.deps.Broker.FetchBars(ctx, instrument)
		return ferr
	})
	return bars, err
}

// manageActive evaluates exit conditions for the open position. A sticky
// risk halt overrides the normal exit checks and flattens immediately.
func (o *Orchestrator) manageActive(ctx context.Context, now time.Time) {
	pos := o.active

	// A halt left over from an earlier cycle (e.g. an exit that could not
	// be confirmed before the trip) short-circuits straight to the flatten.
	if halted, reason := o.deps.Gate.Halted(); halted {
		o.log.Warn("Risk halt with position open, force exiting", "reason", reason)
		o.forceExitActive(ctx, now)
		return
	}

	bars, err := o.fetchBars(ctx, pos.Instrument)
	if err != nil || len(bars) == 0 {
		o.log.Warn("No bars for active position, holding", "instrument", pos.Instrument, "error", err)
		return
	}
	last := bars[len(bars)-1]

	rng := o.rangeFor(pos.Instrument, bars)
	sig := o.deps.Engine.Evaluate(pos.Instrument, bars, rng, pos, o.riskBudget(), o.capital())
	o.countSignal(sig.Action)

	o.deps.Gate.UpdateOpenPnL(pos.UnrealizedPnL(last.Close))

	if sig.Action == core.ActionExit {
		o.closePosition(ctx, sig, now)
		return
	}

	// A mark-to-market breach of the daily loss limit cannot wait for the
	// stop or the session close; the position goes now.
	if halted, reason := o.deps.Gate.Halted(); halted {
		o.log.Warn("Open position breached the daily loss limit, force exiting", "reason", reason)
		o.forceExitActive(ctx, now)
	}
}

// scanForEntry walks the ranked universe looking for one breakout to take.
func (o *Orchestrator) scanForEntry(ctx context.Context, now time.Time) {
	if ok, reason := o.deps.Gate.CanTrade(); !ok {
		o.log.Debug("Entries blocked by risk gate", "reason", reason)
		return
	}
	if !o.deps.Clock.EntryAllowed(now) {
		o.log.Debug("Outside entry window")
		return
	}

	// The ranking holds for the whole session; re-rank only until the
	// universe has warmed up enough to produce one.
	if len(o.ranked) == 0 {
		o.ranked = o.deps.Screener.Rank(ctx, o.cfg.Trading.Instruments, screener.Config{
			TopN:     o.cfg.Trading.TopN,
			MinBars:  o.cfg.Strategy.WarmupBars(),
			MaxPrice: o.capital(),
		})
	}

	for _, candidate := range o.ranked {
		if ctx.Err() != nil {
			return
		}
		// The gate can trip mid-scan (mark-to-market breach from a
		// parallel day); re-check before each instrument.
		if ok, _ := o.deps.Gate.CanTrade(); !ok {
			return
		}
		if o.evaluateCandidate(ctx, candidate.Instrument, now) {
			return // single position slot filled
		}
	}
}

// evaluateCandidate checks one instrument and opens a position when a
// confirmed entry comes back. Returns true when the slot was filled.
func (o *Orchestrator) evaluateCandidate(ctx context.Context, instrument string, now time.Time) (opened bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Panic while evaluating instrument", "instrument", instrument, "panic", r)
			opened = false
		}
	}()

	bars, err := o.fetchBars(ctx, instrument)
	if err != nil {
		o.log.Warn("Fetch failed, skipping instrument", "instrument", instrument, "error", err)
		return false
	}

	rng := o.rangeFor(instrument, bars)
	sig := o.deps.Engine.Evaluate(instrument, bars, rng, nil, o.riskBudget(), o.capital())
	o.countSignal(sig.Action)

	if sig.Action != core.ActionBuy && sig.Action != core.ActionShort {
		return false
	}

	intent, err := core.NewEntryIntent(instrument, sig.Side, sig.Quantity, sig.Price, sig.StopLoss, sig.Target, sig.Reason)
	if err != nil {
		o.log.Error("Invalid entry intent", "instrument", instrument, "error", err)
		return false
	}

	report, err := o.deps.Executor.Execute(ctx, intent)
	if err != nil {
		// Unconfirmed or rejected entry: no position exists. The broker
		// may still fill a lost order; FlattenAll at session end is the
		// backstop.
		o.log.Warn("Entry not confirmed, no position booked", "instrument", instrument, "error", err)
		return false
	}

	// Recompute the bracket off the confirmed fill price so the stop
	// distance matches what was actually paid.
	levels := strategy.CalcLevels(report.AverageFill, bars[len(bars)-1].ATR, sig.Side, o.engineExitParams())
	pos, err := position.Open(uuid.NewString(), instrument, sig.Side, report.AverageFill, report.FilledQty, levels.StopLoss, levels.Target, now)
	if err != nil {
		o.log.Error("Fill produced an unopenable position, flattening", "instrument", instrument, "error", err)
		if ferr := o.deps.Broker.FlattenAll(ctx); ferr != nil {
			o.log.Error("Flatten after bad fill failed", "error", ferr)
		}
		return false
	}

	o.active = pos
	if o.deps.Metrics != nil {
		o.deps.Metrics.ActivePositions.Set(1)
	}
	o.log.Info("Position opened",
		"instrument", instrument,
		"side", sig.Side,
		"qty", report.FilledQty,
		"fill", report.AverageFill.String(),
		"stop", levels.StopLoss.String(),
		"target", levels.Target.String(),
	)
	if o.deps.Alerts != nil {
		o.deps.Alerts.NotifyEntry(ctx, instrument, sig.Side, report.FilledQty, report.AverageFill, levels.StopLoss, levels.Target)
	}
	return true
}

// closePosition executes an exit signal and books the trade off the
// confirmed exit fill.
func (o *Orchestrator) closePosition(ctx context.Context, sig core.Signal, now time.Time) {
	pos := o.active

	intent, err := core.NewExitIntent(pos.Instrument, pos.Side, pos.Quantity, sig.Price, sig.Reason)
	if err != nil {
		o.log.Error("Invalid exit intent", "instrument", pos.Instrument, "error", err)
		return
	}

	report, err := o.deps.Executor.Execute(ctx, intent)
	if err != nil {
		// The position is still open until the close is confirmed; the
		// next cycle retries.
		o.log.Warn("Exit not confirmed, position stays open", "instrument", pos.Instrument, "error", err)
		return
	}

	o.bookTrade(ctx, pos, report.AverageFill, sig.Reason, now)
}

func (o *Orchestrator) bookTrade(ctx context.Context, pos *position.Position, exitFill decimal.Decimal, reason string, now time.Time) {
	pnl := pos.UnrealizedPnL(exitFill)
	trade := core.TradeRecord{
		ID:         pos.ID,
		Instrument: pos.Instrument,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitFill,
		Quantity:   pos.Quantity,
		PnL:        pnl,
		Reason:     reason,
		EntryTime:  pos.EntryTime,
		ExitTime:   now,
	}

	o.active = nil
	o.deps.Gate.RecordTrade(trade)
	o.deps.Gate.UpdateOpenPnL(decimal.Zero)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ActivePositions.Set(0)
	}

	o.log.Info("Position closed",
		"instrument", trade.Instrument,
		"reason", reason,
		"exit", exitFill.String(),
		"pnl", pnl.String(),
	)

	if o.deps.Journal != nil {
		if err := o.deps.Journal.RecordTrade(ctx, trade); err != nil {
			o.log.Error("Journal write failed", "trade_id", trade.ID, "error", err)
		}
	}
	if o.deps.Alerts != nil {
		o.deps.Alerts.NotifyExit(ctx, trade.Instrument, reason, trade.Side, exitFill, pnl)
		if halted, haltReason := o.deps.Gate.Halted(); halted {
			o.deps.Alerts.NotifyHalt(ctx, haltReason, o.deps.Gate.RealizedPnL())
		}
	}
}

// forceExitActive closes the open position unconditionally. When the close
// cannot be confirmed it flattens at the broker and drops the slot without
// booking a trade; the mismatch needs manual review.
func (o *Orchestrator) forceExitActive(ctx context.Context, now time.Time) {
	pos := o.active
	if pos == nil {
		return
	}

	price, err := o.deps.Broker.LastTradedPrice(ctx, pos.Instrument)
	if err != nil {
		// Exit anyway at the last known reference; the fill price is
		// what gets booked.
		o.log.Warn("No last price for force exit, using entry reference", "instrument", pos.Instrument, "error", err)
		price = pos.EntryPrice
	}
	sig := o.deps.Engine.ForceExit(pos.Instrument, pos, price)
	o.countSignal(sig.Action)
	o.closePosition(ctx, sig, now)

	if o.active == nil {
		return
	}
	o.log.Error("Force exit unconfirmed, flattening at broker", "instrument", pos.Instrument)
	if err := o.deps.Broker.FlattenAll(ctx); err != nil {
		o.log.Error("FlattenAll failed", "error", err)
	}
	o.active = nil
	o.deps.Gate.UpdateOpenPnL(decimal.Zero)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ActivePositions.Set(0)
	}
	if o.deps.Alerts != nil {
		o.deps.Alerts.NotifyHalt(ctx, "force exit unconfirmed, flattened at broker", o.deps.Gate.RealizedPnL())
	}
}

// endOfSession force-exits any open position, halts the gate and writes the
// daily summary. Idempotent within a day.
func (o *Orchestrator) endOfSession(ctx context.Context, now time.Time) {
	o.rollDay(now)
	o.forceExitActive(ctx, now)
	o.deps.Gate.Halt(risk.ReasonForceExit)

	if o.summaryDone {
		return
	}
	o.summaryDone = true

	summary := o.deps.Gate.Summary()
	o.log.Info("Session complete",
		"date", summary.Date,
		"trades", summary.TotalTrades,
		"realized_pnl", summary.RealizedPnL.String(),
	)
	if o.deps.Journal != nil {
		if err := o.deps.Journal.RecordSummary(ctx, summary); err != nil {
			o.log.Error("Summary write failed", "date", summary.Date, "error", err)
		}
	}
	if o.deps.Alerts != nil {
		o.deps.Alerts.NotifyDaySummary(ctx, summary)
	}
}

// rangeFor updates and returns the instrument's opening range, or nil while
// it is still forming.
func (o *Orchestrator) rangeFor(instrument string, bars []core.Bar) *openrange.Range {
	tr, ok := o.trackers[instrument]
	if !ok {
		tr = openrange.NewTracker(o.cfg.Strategy.OpeningRangeBars)
		o.trackers[instrument] = tr
	}
	if err := tr.Update(bars); err != nil {
		return nil
	}
	rng := tr.Range()
	return &rng
}

func (o *Orchestrator) riskBudget() decimal.Decimal {
	return decimal.NewFromFloat(o.cfg.Trading.RiskBudgetPerTrade())
}

func (o *Orchestrator) capital() decimal.Decimal {
	return decimal.NewFromFloat(o.cfg.Trading.EffectiveCapital())
}

func (o *Orchestrator) engineExitParams() strategy.ExitParams {
	s := o.cfg.Strategy
	return strategy.ExitParams{
		StopLossPct:         decimal.NewFromFloat(s.StopLossPct),
		TargetPct:           decimal.NewFromFloat(s.TargetPct),
		ATRStopMultiplier:   decimal.NewFromFloat(s.ATRStopMultiplier),
		ATRTargetMultiplier: decimal.NewFromFloat(s.ATRTargetMultiplier),
	}
}

func (o *Orchestrator) countSignal(action core.Action) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordSignal(string(action))
	}
}

// SetClockFunc overrides the time source. Test hook.
func (o *Orchestrator) SetClockFunc(fn func() time.Time) {
	o.now = fn
}
