// Package openrange derives the opening range from the first bars of the
// session.
package openrange

import (
	"github.com/shopspring/decimal"

	"orb_trader/internal/core"
	apperrors "orb_trader/pkg/errors"
)

// Range is an established opening range. High and Low never change once the
// range is built.
type Range struct {
	High decimal.Decimal
	Low  decimal.Decimal
	Bars int
}

// Width is the high-low spread of the range.
func (r Range) Width() decimal.Decimal {
	return r.High.Sub(r.Low)
}

// Tracker computes the opening range for one instrument and one trading
// day. Build it fresh each day; it holds no cross-day state.
type Tracker struct {
	bars        int
	established bool
	rng         Range
}

// NewTracker creates a tracker over the first n session bars. n is
// validated by config before it gets here.
func NewTracker(n int) *Tracker {
	return &Tracker{bars: n}
}

// Update inspects today's bars (oldest first) and establishes the range as
// soon as enough bars exist. Later calls with more bars are no-ops: the
// range is fixed by the first n bars of the day.
func (t *Tracker) Update(bars []core.Bar) error {
	if t.established {
		return nil
	}
	if len(bars) < t.bars {
		return apperrors.ErrRangeNotReady
	}

	window := bars[:t.bars]
	high := window[0].High
	low := window[0].Low
	for _, b := range window[1:] {
		if b.High.GreaterThan(high) {
			high = b.High
		}
		if b.Low.LessThan(low) {
			low = b.Low
		}
	}

	t.rng = Range{High: high, Low: low, Bars: t.bars}
	t.established = true
	return nil
}

// Established reports whether the range has been built.
func (t *Tracker) Established() bool {
	return t.established
}

// Range returns the established range. Callers must check Established
// first; an unestablished tracker returns the zero Range.
func (t *Tracker) Range() Range {
	return t.rng
}
