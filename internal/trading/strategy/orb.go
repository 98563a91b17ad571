// Package strategy implements the opening-range-breakout signal engine: a
// per-cycle decision over the latest enriched bar, the established opening
// range and the current position.
package strategy

import (
	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	"orb_trader/internal/trading/openrange"
	"orb_trader/internal/trading/position"
)

// Exit reasons carried on signals and trade records.
const (
	ReasonStopLoss  = "stop_loss"
	ReasonTarget    = "target"
	ReasonReversal  = "trend_reversal"
	ReasonForceExit = "force_exit"
)

// Params are the signal-engine tunables, converted from config once at
// startup.
type Params struct {
	WarmupBars int

	RSILongMin  float64
	RSILongMax  float64
	RSIShortMin float64
	RSIShortMax float64

	// Exit-side RSI thresholds for the trend-reversal check.
	RSIReversalLong  float64
	RSIReversalShort float64

	VolumeMultiplier decimal.Decimal
	VWAPFilter       bool

	Exit  ExitParams
	Trail position.TrailParams
}

// Engine evaluates one instrument per call. It is stateless across cycles;
// all persistence lives in the position and the risk gate.
type Engine struct {
	params Params
	logger core.ILogger
}

func NewEngine(params Params, logger core.ILogger) *Engine {
	return &Engine{
		params: params,
		logger: logger.WithField("component", "signal_engine"),
	}
}

// Evaluate produces the signal for this cycle. With an open position it
// walks the exit checks in priority order; flat, it looks for a breakout
// entry. riskBudget and capital size the entry; a zero-quantity sizing
// result degrades to HOLD.
func (e *Engine) Evaluate(instrument string, bars []core.Bar, rng *openrange.Range, pos *position.Position, riskBudget, capital decimal.Decimal) core.Signal {
	if len(bars) == 0 {
		return core.Hold(instrument, "no bars", decimal.Zero)
	}
	last := bars[len(bars)-1]

	if pos != nil {
		return e.evaluateExit(instrument, last, pos)
	}

	if len(bars) < e.params.WarmupBars {
		return core.Hold(instrument, "warming up", last.Close)
	}
	if rng == nil {
		return core.Hold(instrument, "opening range not established", last.Close)
	}

	return e.evaluateEntry(instrument, last, *rng, riskBudget, capital)
}

// evaluateExit checks stop, target and trend reversal in that order against
// the stop as it stood entering the cycle; trailing maintenance runs only
// when the position survives all three.
func (e *Engine) evaluateExit(instrument string, last core.Bar, pos *position.Position) core.Signal {
	if pos.StopHit(last.Close) {
		return e.exitSignal(instrument, pos, last.Close, ReasonStopLoss)
	}
	if pos.TargetHit(last.Close) {
		return e.exitSignal(instrument, pos, last.Close, ReasonTarget)
	}

	// The trend-reversal exit only applies while the trail is dormant;
	// once the stop is past breakeven the trail manages the exit alone.
	if !pos.TrailingActive() && e.trendReversed(last, pos.Side) {
		return e.exitSignal(instrument, pos, last.Close, ReasonReversal)
	}

	pos.UpdateTrailing(last.Close, last.ATR, e.params.Trail)
	return core.Hold(instrument, "holding position", last.Close)
}

func (e *Engine) trendReversed(last core.Bar, side core.Side) bool {
	if side == core.SideLong {
		return last.EMAFast.LessThan(last.EMASlow) && last.RSI < e.params.RSIReversalLong
	}
	return last.EMAFast.GreaterThan(last.EMASlow) && last.RSI > e.params.RSIReversalShort
}

func (e *Engine) exitSignal(instrument string, pos *position.Position, price decimal.Decimal, reason string) core.Signal {
	e.logger.Info("Exit signal", "instrument", instrument, "reason", reason, "price", price.String())
	return core.Signal{
		Action:     core.ActionExit,
		Instrument: instrument,
		Reason:     reason,
		Price:      price,
		Quantity:   pos.Quantity,
		Side:       pos.Side,
	}
}

// evaluateEntry checks the long conditions before the short ones; when a
// bar somehow satisfies both, long wins.
func (e *Engine) evaluateEntry(instrument string, last core.Bar, rng openrange.Range, riskBudget, capital decimal.Decimal) core.Signal {
	if e.longConfirmed(last, rng) {
		return e.entrySignal(instrument, last, core.SideLong, riskBudget, capital)
	}
	if e.shortConfirmed(last, rng) {
		return e.entrySignal(instrument, last, core.SideShort, riskBudget, capital)
	}
	return core.Hold(instrument, "no breakout", last.Close)
}

func (e *Engine) longConfirmed(b core.Bar, rng openrange.Range) bool {
	return b.Close.GreaterThan(rng.High) &&
		b.EMAFast.GreaterThan(b.EMASlow) &&
		b.RSI >= e.params.RSILongMin && b.RSI <= e.params.RSILongMax &&
		e.volumeConfirmed(b) &&
		(!e.params.VWAPFilter || b.Close.GreaterThan(b.VWAP))
}

func (e *Engine) shortConfirmed(b core.Bar, rng openrange.Range) bool {
	return b.Close.LessThan(rng.Low) &&
		b.EMAFast.LessThan(b.EMASlow) &&
		b.RSI >= e.params.RSIShortMin && b.RSI <= e.params.RSIShortMax &&
		e.volumeConfirmed(b) &&
		(!e.params.VWAPFilter || b.Close.LessThan(b.VWAP))
}

func (e *Engine) volumeConfirmed(b core.Bar) bool {
	if !b.VolumeMA.IsPositive() {
		return false
	}
	return b.Volume.GreaterThanOrEqual(b.VolumeMA.Mul(e.params.VolumeMultiplier))
}

func (e *Engine) entrySignal(instrument string, last core.Bar, side core.Side, riskBudget, capital decimal.Decimal) core.Signal {
	levels := CalcLevels(last.Close, last.ATR, side, e.params.Exit)
	qty := PositionSize(riskBudget, levels.RiskPerUnit, capital, last.Close)
	if qty < 1 {
		return core.Hold(instrument, "sized to zero", last.Close)
	}

	action := core.ActionBuy
	if side == core.SideShort {
		action = core.ActionShort
	}
	e.logger.Info("Entry signal",
		"instrument", instrument,
		"side", side,
		"price", last.Close.String(),
		"qty", qty,
		"stop", levels.StopLoss.String(),
		"target", levels.Target.String(),
	)
	return core.Signal{
		Action:     action,
		Instrument: instrument,
		Reason:     "opening range breakout",
		Price:      last.Close,
		Quantity:   qty,
		Side:       side,
		StopLoss:   levels.StopLoss,
		Target:     levels.Target,
	}
}

// ForceExit builds the unconditional end-of-session exit for an open
// position.
func (e *Engine) ForceExit(instrument string, pos *position.Position, price decimal.Decimal) core.Signal {
	return e.exitSignal(instrument, pos, price, ReasonForceExit)
}
