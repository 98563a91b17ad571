package strategy

import (
	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
)

// ExitParams are the tunables for stop, target and trailing computation,
// lifted out of config once at startup.
type ExitParams struct {
	StopLossPct         decimal.Decimal
	TargetPct           decimal.Decimal
	ATRStopMultiplier   decimal.Decimal
	ATRTargetMultiplier decimal.Decimal
}

// Levels is the computed order bracket for a candidate entry.
type Levels struct {
	StopLoss    decimal.Decimal
	Target      decimal.Decimal
	RiskPerUnit decimal.Decimal
}

// CalcLevels derives the protective stop and profit target for an entry at
// the given price. ATR-based distances are preferred; the percentage
// fallback covers instruments whose ATR has not warmed up.
func CalcLevels(entry, atr decimal.Decimal, side core.Side, p ExitParams) Levels {
	var stopDist, targetDist decimal.Decimal
	if atr.IsPositive() {
		stopDist = atr.Mul(p.ATRStopMultiplier)
		targetDist = atr.Mul(p.ATRTargetMultiplier)
	} else {
		stopDist = entry.Mul(p.StopLossPct)
		targetDist = entry.Mul(p.TargetPct)
	}

	lv := Levels{RiskPerUnit: stopDist}
	if side == core.SideLong {
		lv.StopLoss = entry.Sub(stopDist)
		lv.Target = entry.Add(targetDist)
	} else {
		lv.StopLoss = entry.Add(stopDist)
		lv.Target = entry.Sub(targetDist)
	}
	return lv
}

// PositionSize converts a cash risk budget into a whole-unit quantity,
// bounded by what the deployable capital can actually buy. Returns 0 when
// the entry is unaffordable or the inputs degenerate; a 0 here means no
// trade, never an error.
func PositionSize(riskBudget, riskPerUnit, capital, entry decimal.Decimal) int64 {
	if riskPerUnit.IsZero() || riskPerUnit.IsNegative() || entry.IsZero() || entry.IsNegative() {
		return 0
	}

	byRisk := riskBudget.Div(riskPerUnit).Floor().IntPart()
	byCapital := capital.Div(entry).Floor().IntPart()

	qty := byRisk
	if byCapital < qty {
		qty = byCapital
	}
	if qty < 0 {
		return 0
	}
	return qty
}
