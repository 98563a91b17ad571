package mock

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	"orb_trader/pkg/indicators"
)

// GenerateDay produces a synthetic intraday bar series for dry runs: a
// seeded random walk around the open price, enriched with the same
// indicator set live data carries.
func GenerateDay(seed int64, open float64, n int, start time.Time, interval time.Duration, cfg indicators.EnrichConfig) []core.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]core.Bar, 0, n)

	price := open
	for i := 0; i < n; i++ {
		drift := (rng.Float64() - 0.5) * open * 0.004
		o := price
		c := price + drift
		hi := max64(o, c) + rng.Float64()*open*0.001
		lo := min64(o, c) - rng.Float64()*open*0.001
		vol := 800 + rng.Float64()*700

		bars = append(bars, core.Bar{
			Time:   start.Add(time.Duration(i) * interval),
			Open:   decimal.NewFromFloat(o),
			High:   decimal.NewFromFloat(hi),
			Low:    decimal.NewFromFloat(lo),
			Close:  decimal.NewFromFloat(c),
			Volume: decimal.NewFromFloat(vol),
		})
		price = c
	}

	return indicators.Enrich(bars, cfg)
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
