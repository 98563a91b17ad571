package openrange

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orb_trader/internal/core"
	apperrors "orb_trader/pkg/errors"
)

func bar(high, low float64) core.Bar {
	return core.Bar{
		Time: time.Now(),
		High: decimal.NewFromFloat(high),
		Low:  decimal.NewFromFloat(low),
	}
}

func TestUpdateNotReady(t *testing.T) {
	tr := NewTracker(3)

	err := tr.Update([]core.Bar{bar(101, 99), bar(102, 100)})
	require.ErrorIs(t, err, apperrors.ErrRangeNotReady)
	assert.False(t, tr.Established())
}

func TestUpdateEstablishesRange(t *testing.T) {
	tr := NewTracker(3)

	err := tr.Update([]core.Bar{bar(101, 99), bar(103, 100), bar(102, 98.5)})
	require.NoError(t, err)
	require.True(t, tr.Established())

	r := tr.Range()
	assert.True(t, r.High.Equal(decimal.NewFromFloat(103)))
	assert.True(t, r.Low.Equal(decimal.NewFromFloat(98.5)))
	assert.True(t, r.Width().Equal(decimal.NewFromFloat(4.5)))
	assert.Equal(t, 3, r.Bars)
}

func TestRangeIsFixedAfterEstablish(t *testing.T) {
	tr := NewTracker(2)

	require.NoError(t, tr.Update([]core.Bar{bar(101, 99), bar(102, 100)}))
	first := tr.Range()

	// Extra bars with wider extremes must not move the range.
	require.NoError(t, tr.Update([]core.Bar{bar(101, 99), bar(102, 100), bar(120, 80)}))
	assert.True(t, tr.Range().High.Equal(first.High))
	assert.True(t, tr.Range().Low.Equal(first.Low))
}

func TestSingleBarRange(t *testing.T) {
	tr := NewTracker(1)

	require.NoError(t, tr.Update([]core.Bar{bar(100.5, 99.5)}))
	r := tr.Range()
	assert.True(t, r.High.Equal(decimal.NewFromFloat(100.5)))
	assert.True(t, r.Low.Equal(decimal.NewFromFloat(99.5)))
}
