// Package screener ranks the configured universe by volatility so the scan
// loop visits the most promising instruments first.
package screener

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	"orb_trader/pkg/concurrency"
)

// Config tunes the ranking pass.
type Config struct {
	// TopN caps the number of instruments returned.
	TopN int
	// MinBars is the minimum bar count for an instrument to be rankable.
	MinBars int
	// MaxPrice drops instruments a single unit of which exceeds the
	// deployable capital.
	MaxPrice decimal.Decimal
}

// Screener fetches bars for every instrument concurrently and orders them
// by ATR as a percentage of price, descending.
type Screener struct {
	broker core.IBroker
	pool   *concurrency.WorkerPool
	logger core.ILogger
}

func NewScreener(broker core.IBroker, pool *concurrency.WorkerPool, logger core.ILogger) *Screener {
	return &Screener{
		broker: broker,
		pool:   pool,
		logger: logger.WithField("component", "screener"),
	}
}

// Rank scores the instruments and returns the top candidates. Instruments
// whose data cannot be fetched are skipped, not fatal: a partial ranking is
// better than no scan.
func (s *Screener) Rank(ctx context.Context, instruments []string, cfg Config) []core.RankedInstrument {
	var mu sync.Mutex
	ranked := make([]core.RankedInstrument, 0, len(instruments))

	var wg sync.WaitGroup
	for _, instrument := range instruments {
		instrument := instrument
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			ri, ok := s.score(ctx, instrument, cfg)
			if !ok {
				return
			}
			mu.Lock()
			ranked = append(ranked, ri)
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("Screener task rejected", "instrument", instrument, "error", err)
		}
	}
	wg.Wait()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ATRPct != ranked[j].ATRPct {
			return ranked[i].ATRPct > ranked[j].ATRPct
		}
		return ranked[i].Instrument < ranked[j].Instrument
	})

	if cfg.TopN > 0 && len(ranked) > cfg.TopN {
		ranked = ranked[:cfg.TopN]
	}
	return ranked
}

func (s *Screener) score(ctx context.Context, instrument string, cfg Config) (core.RankedInstrument, bool) {
	bars, err := s.broker.FetchBars(ctx, instrument)
	if err != nil {
		s.logger.Warn("Screener fetch failed", "instrument", instrument, "error", err)
		return core.RankedInstrument{}, false
	}
	if len(bars) < cfg.MinBars {
		return core.RankedInstrument{}, false
	}

	last := bars[len(bars)-1]
	if !last.Close.IsPositive() || !last.ATR.IsPositive() {
		return core.RankedInstrument{}, false
	}
	if cfg.MaxPrice.IsPositive() && last.Close.GreaterThan(cfg.MaxPrice) {
		return core.RankedInstrument{}, false
	}

	atrPct, _ := last.ATR.Div(last.Close).Mul(decimal.NewFromInt(100)).Float64()
	return core.RankedInstrument{
		Instrument: instrument,
		LastPrice:  last.Close,
		ATR:        last.ATR,
		ATRPct:     atrPct,
		VolumeMA:   last.VolumeMA,
	}, true
}
