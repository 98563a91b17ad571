// Package indicators computes the technical indicators used to enrich raw
// OHLCV bars: EMA, Wilder RSI, ATR, volume moving average, and session VWAP.
// The decision engine consumes enriched bars; this package is used by data
// adapters and the sim broker to produce them.
package indicators

import (
	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
)

// EMA returns the exponential moving average series for the given period.
// Entries before index period-1 are zero; the seed is the SMA of the first
// period values.
func EMA(values []decimal.Decimal, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := decimal.Zero
	for i := 0; i < period; i++ {
		sum = sum.Add(values[i])
	}
	prev := sum.Div(decimal.NewFromInt(int64(period)))
	out[period-1] = prev

	// multiplier = 2 / (period + 1)
	k := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
	one := decimal.NewFromInt(1)
	for i := period; i < len(values); i++ {
		prev = values[i].Mul(k).Add(prev.Mul(one.Sub(k)))
		out[i] = prev
	}
	return out
}

// RSI returns the Wilder relative strength index series for the given
// period. Entries before index period are zero.
func RSI(closes []decimal.Decimal, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change, _ := closes[i].Sub(closes[i-1]).Float64()
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change, _ := closes[i].Sub(closes[i-1]).Float64()
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns the average true range series over the given window, where
// TR = max(H-L, |H-prevC|, |L-prevC|) and ATR is the SMA of the last
// window true ranges. Entries before index window are zero.
func ATR(bars []core.Bar, window int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	if window <= 0 || len(bars) < window+1 {
		return out
	}

	trs := make([]decimal.Decimal, len(bars))
	for i := 1; i < len(bars); i++ {
		trs[i] = trueRange(bars[i], bars[i-1])
	}

	sum := decimal.Zero
	for i := 1; i < len(bars); i++ {
		sum = sum.Add(trs[i])
		if i > window {
			sum = sum.Sub(trs[i-window])
		}
		if i >= window {
			out[i] = sum.Div(decimal.NewFromInt(int64(window)))
		}
	}
	return out
}

func trueRange(cur, prev core.Bar) decimal.Decimal {
	tr := cur.High.Sub(cur.Low)
	if hc := cur.High.Sub(prev.Close).Abs(); hc.GreaterThan(tr) {
		tr = hc
	}
	if lc := cur.Low.Sub(prev.Close).Abs(); lc.GreaterThan(tr) {
		tr = lc
	}
	return tr
}

// SMA returns the simple moving average series over the given window.
// Entries before index window-1 are zero.
func SMA(values []decimal.Decimal, window int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		if i >= window {
			sum = sum.Sub(values[i-window])
		}
		if i >= window-1 {
			out[i] = sum.Div(decimal.NewFromInt(int64(window)))
		}
	}
	return out
}

// VWAP returns the running session volume-weighted average price, using the
// typical price (H+L+C)/3 of each bar. Bars with zero cumulative volume get
// the bar close.
func VWAP(bars []core.Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	three := decimal.NewFromInt(3)
	cumPV := decimal.Zero
	cumVol := decimal.Zero
	for i, b := range bars {
		typical := b.High.Add(b.Low).Add(b.Close).Div(three)
		cumPV = cumPV.Add(typical.Mul(b.Volume))
		cumVol = cumVol.Add(b.Volume)
		if cumVol.IsZero() {
			out[i] = b.Close
		} else {
			out[i] = cumPV.Div(cumVol)
		}
	}
	return out
}

// EnrichConfig selects the indicator periods used by Enrich.
type EnrichConfig struct {
	EMAFast   int
	EMASlow   int
	RSIPeriod int
	ATRWindow int
	VolumeMA  int
}

// Enrich fills the indicator fields of a bar series in place and returns it.
func Enrich(bars []core.Bar, cfg EnrichConfig) []core.Bar {
	closes := make([]decimal.Decimal, len(bars))
	volumes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	emaFast := EMA(closes, cfg.EMAFast)
	emaSlow := EMA(closes, cfg.EMASlow)
	rsi := RSI(closes, cfg.RSIPeriod)
	atr := ATR(bars, cfg.ATRWindow)
	volMA := SMA(volumes, cfg.VolumeMA)
	vwap := VWAP(bars)

	for i := range bars {
		bars[i].EMAFast = emaFast[i]
		bars[i].EMASlow = emaSlow[i]
		bars[i].RSI = rsi[i]
		bars[i].ATR = atr[i]
		bars[i].VolumeMA = volMA[i]
		bars[i].VWAP = vwap[i]
	}
	return bars
}
