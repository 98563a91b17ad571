package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"orb_trader/internal/core"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func testExitParams() ExitParams {
	return ExitParams{
		StopLossPct:         d(0.005),
		TargetPct:           d(0.010),
		ATRStopMultiplier:   d(1.5),
		ATRTargetMultiplier: d(2.5),
	}
}

func TestCalcLevelsATRLong(t *testing.T) {
	lv := CalcLevels(d(100), d(2), core.SideLong, testExitParams())

	assert.True(t, lv.StopLoss.Equal(d(97)), "stop = %s", lv.StopLoss)
	assert.True(t, lv.Target.Equal(d(105)), "target = %s", lv.Target)
	assert.True(t, lv.RiskPerUnit.Equal(d(3)), "risk per unit = %s", lv.RiskPerUnit)
}

func TestCalcLevelsPctFallbackShort(t *testing.T) {
	lv := CalcLevels(d(100), decimal.Zero, core.SideShort, testExitParams())

	assert.True(t, lv.StopLoss.Equal(d(100.5)), "stop = %s", lv.StopLoss)
	assert.True(t, lv.Target.Equal(d(99)), "target = %s", lv.Target)
	assert.True(t, lv.RiskPerUnit.Equal(d(0.5)))
}

func TestCalcLevelsATRShort(t *testing.T) {
	lv := CalcLevels(d(200), d(4), core.SideShort, testExitParams())

	assert.True(t, lv.StopLoss.Equal(d(206)))
	assert.True(t, lv.Target.Equal(d(190)))
}

func TestPositionSizeRiskBound(t *testing.T) {
	// Risk budget 250, risk/unit 3 -> 83; capital buys 125 units.
	qty := PositionSize(d(250), d(3), d(12500), d(100))
	assert.Equal(t, int64(83), qty)
}

func TestPositionSizeCapitalBound(t *testing.T) {
	// Risk allows 100 units but capital only buys 5.
	qty := PositionSize(d(100), d(1), d(500), d(100))
	assert.Equal(t, int64(5), qty)
}

func TestPositionSizeZeroCapital(t *testing.T) {
	qty := PositionSize(d(250), d(3), decimal.Zero, d(100))
	assert.Equal(t, int64(0), qty)
}

func TestPositionSizeDegenerateInputs(t *testing.T) {
	assert.Equal(t, int64(0), PositionSize(d(250), decimal.Zero, d(1000), d(100)))
	assert.Equal(t, int64(0), PositionSize(d(250), d(-1), d(1000), d(100)))
	assert.Equal(t, int64(0), PositionSize(d(250), d(3), d(1000), decimal.Zero))
}

func TestPositionSizeUnaffordableSingleUnit(t *testing.T) {
	// Entry costs more than the whole capital.
	qty := PositionSize(d(50), d(2), d(90), d(100))
	assert.Equal(t, int64(0), qty)
}
