// Package position tracks the single open position and its protective
// levels. The stop only ever tightens; loosening is a bug, not a policy
// choice.
package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
)

// TrailParams are the trailing-stop tunables.
type TrailParams struct {
	// TrailATRMultiplier sets the trail distance from the favorable peak.
	TrailATRMultiplier decimal.Decimal
	// BreakevenBufferPct pads the breakeven jump, as a fraction of entry.
	BreakevenBufferPct decimal.Decimal
}

// Position is one open trade. Created only through Open, mutated only
// through UpdateTrailing.
type Position struct {
	ID         string
	Instrument string
	Side       core.Side
	EntryPrice decimal.Decimal
	Quantity   int64
	EntryTime  time.Time

	// StopLoss tightens monotonically; Target is fixed at entry.
	StopLoss decimal.Decimal
	Target   decimal.Decimal

	// riskPerUnit is the initial entry-to-stop distance (1R).
	riskPerUnit    decimal.Decimal
	peak           decimal.Decimal
	trailingActive bool
}

// Open validates the fill and builds the position. The entry price must be
// a confirmed fill price; reference prices never reach this constructor.
func Open(id, instrument string, side core.Side, entry decimal.Decimal, qty int64, stop, target decimal.Decimal, entryTime time.Time) (*Position, error) {
	if qty < 1 {
		return nil, fmt.Errorf("position %s: quantity must be >= 1, got %d", instrument, qty)
	}
	if entry.IsZero() || entry.IsNegative() {
		return nil, fmt.Errorf("position %s: entry price must be positive, got %s", instrument, entry)
	}

	var risk decimal.Decimal
	switch side {
	case core.SideLong:
		if stop.GreaterThanOrEqual(entry) || target.LessThanOrEqual(entry) {
			return nil, fmt.Errorf("position %s: long bracket inverted (entry %s stop %s target %s)", instrument, entry, stop, target)
		}
		risk = entry.Sub(stop)
	case core.SideShort:
		if stop.LessThanOrEqual(entry) || target.GreaterThanOrEqual(entry) {
			return nil, fmt.Errorf("position %s: short bracket inverted (entry %s stop %s target %s)", instrument, entry, stop, target)
		}
		risk = stop.Sub(entry)
	default:
		return nil, fmt.Errorf("position %s: unknown side %q", instrument, side)
	}

	return &Position{
		ID:          id,
		Instrument:  instrument,
		Side:        side,
		EntryPrice:  entry,
		Quantity:    qty,
		EntryTime:   entryTime,
		StopLoss:    stop,
		Target:      target,
		riskPerUnit: risk,
		peak:        entry,
	}, nil
}

// UnrealizedPnL marks the position to the given price.
func (p *Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(p.Quantity)
	if p.Side == core.SideLong {
		return price.Sub(p.EntryPrice).Mul(qty)
	}
	return p.EntryPrice.Sub(price).Mul(qty)
}

// StopHit reports whether the close has breached the protective stop.
func (p *Position) StopHit(close decimal.Decimal) bool {
	if p.Side == core.SideLong {
		return close.LessThanOrEqual(p.StopLoss)
	}
	return close.GreaterThanOrEqual(p.StopLoss)
}

// TargetHit reports whether the close has reached the profit target.
func (p *Position) TargetHit(close decimal.Decimal) bool {
	if p.Side == core.SideLong {
		return close.GreaterThanOrEqual(p.Target)
	}
	return close.LessThanOrEqual(p.Target)
}

// TrailingActive reports whether the stop has advanced past breakeven. The
// trend-reversal exit is suppressed once this returns true.
func (p *Position) TrailingActive() bool {
	return p.trailingActive
}

// RiskPerUnit is the initial 1R distance.
func (p *Position) RiskPerUnit() decimal.Decimal {
	return p.riskPerUnit
}

// Peak is the best favorable price seen so far.
func (p *Position) Peak() decimal.Decimal {
	return p.peak
}

// UpdateTrailing advances the favorable peak and tightens the stop. The
// trail activates once the move from entry reaches 1R: the stop first jumps
// to breakeven plus a small buffer, then follows the peak at an ATR
// multiple. Candidates that would loosen the stop are discarded.
func (p *Position) UpdateTrailing(close, atr decimal.Decimal, params TrailParams) {
	long := p.Side == core.SideLong

	if long {
		if close.GreaterThan(p.peak) {
			p.peak = close
		}
	} else {
		if close.LessThan(p.peak) {
			p.peak = close
		}
	}

	var excursion decimal.Decimal
	if long {
		excursion = p.peak.Sub(p.EntryPrice)
	} else {
		excursion = p.EntryPrice.Sub(p.peak)
	}

	if !p.trailingActive {
		if p.riskPerUnit.IsPositive() && excursion.GreaterThanOrEqual(p.riskPerUnit) {
			p.trailingActive = true
			buffer := p.EntryPrice.Mul(params.BreakevenBufferPct)
			if long {
				p.tighten(p.EntryPrice.Add(buffer))
			} else {
				p.tighten(p.EntryPrice.Sub(buffer))
			}
		} else {
			return
		}
	}

	if atr.IsPositive() {
		trail := atr.Mul(params.TrailATRMultiplier)
		if long {
			p.tighten(p.peak.Sub(trail))
		} else {
			p.tighten(p.peak.Add(trail))
		}
	}
}

func (p *Position) tighten(candidate decimal.Decimal) {
	if p.Side == core.SideLong {
		if candidate.GreaterThan(p.StopLoss) {
			p.StopLoss = candidate
		}
		return
	}
	if candidate.LessThan(p.StopLoss) {
		p.StopLoss = candidate
	}
}
