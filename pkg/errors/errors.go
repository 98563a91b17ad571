// Package apperrors defines the standardized error values shared across the
// engine, split into retryable conditions (wait for the next poll cycle) and
// fatal conditions (the session is over for the day).
package apperrors

import "errors"

// Retryable: the current cycle yields a HOLD and the condition is re-checked
// next cycle.
var (
	ErrNoData         = errors.New("market data unavailable")
	ErrNotEnoughBars  = errors.New("not enough bars for indicator warm-up")
	ErrRangeNotReady  = errors.New("opening range not established")
	ErrOrderRejected  = errors.New("order rejected")
	ErrUnfilled       = errors.New("order not filled within wait window")
	ErrNetwork        = errors.New("network error")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrPriceUnknown   = errors.New("last traded price unavailable")
	ErrDuplicateOrder = errors.New("duplicate order")
)

// Fatal: no further entries this session.
var (
	ErrRiskHalted  = errors.New("risk gate halted trading for the day")
	ErrSessionOver = errors.New("trading session over")
)

// IsRetryable reports whether err is a recoverable per-cycle condition.
func IsRetryable(err error) bool {
	for _, target := range []error{
		ErrNoData, ErrNotEnoughBars, ErrRangeNotReady, ErrOrderRejected,
		ErrUnfilled, ErrNetwork, ErrRateLimited, ErrPriceUnknown, ErrDuplicateOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err terminates the trading session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRiskHalted) || errors.Is(err, ErrSessionOver)
}
