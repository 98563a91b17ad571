// Package order provides order execution with rate limiting, retry logic
// and bounded fill confirmation.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"orb_trader/internal/core"
	"orb_trader/internal/telemetry"
	apperrors "orb_trader/pkg/errors"
)

// Config tunes the execution path.
type Config struct {
	FillWait        time.Duration
	FillPoll        time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	MaxRetries      int
}

// Executor submits order intents to the broker and confirms fills. An order
// that cannot be confirmed within the fill window is treated as not placed:
// the caller must not book a position off it.
type Executor struct {
	broker  core.IBroker
	logger  core.ILogger
	metrics *telemetry.Metrics

	limiter  *rate.Limiter
	fillWait time.Duration
	fillPoll time.Duration

	submitPipeline failsafe.Executor[string]
}

// NewExecutor builds an executor. metrics may be nil.
func NewExecutor(broker core.IBroker, cfg Config, logger core.ILogger, metrics *telemetry.Metrics) *Executor {
	retryPolicy := retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return err != nil && apperrors.IsRetryable(err) && !apperrors.IsFatal(err)
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(cfg.MaxRetries).
		Build()

	return &Executor{
		broker:         broker,
		logger:         logger.WithField("component", "order_executor"),
		metrics:        metrics,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		fillWait:       cfg.FillWait,
		fillPoll:       cfg.FillPoll,
		submitPipeline: failsafe.With[string](retryPolicy),
	}
}

// Execute submits the intent and waits for a confirmed fill. On success the
// returned report carries the fill price and quantity. ErrUnfilled means
// the fill window elapsed without confirmation; ErrOrderRejected means the
// broker refused the order. In both cases no position change may be booked.
func (ex *Executor) Execute(ctx context.Context, intent core.OrderIntent) (core.OrderReport, error) {
	clientID := uuid.NewString()
	log := ex.logger.WithFields(map[string]interface{}{
		"client_id":  clientID,
		"instrument": intent.Instrument,
		"kind":       string(intent.Kind),
		"txn_side":   intent.TransactionSide(),
		"qty":        intent.Quantity,
	})

	if err := ex.limiter.Wait(ctx); err != nil {
		return core.OrderReport{}, fmt.Errorf("rate limiter wait: %w", err)
	}

	log.Info("Submitting order", "ref_price", intent.RefPrice.String(), "reason", intent.Reason)

	orderID, err := ex.submitPipeline.WithContext(ctx).Get(func() (string, error) {
		return ex.broker.SubmitOrder(ctx, intent)
	})
	if err != nil {
		ex.countFailure()
		log.Error("Order submission failed", "error", err)
		return core.OrderReport{}, fmt.Errorf("submit order: %w", err)
	}

	report, err := ex.awaitFill(ctx, orderID)
	if err != nil {
		ex.countFailure()
		log.Warn("Order not confirmed", "order_id", orderID, "error", err)
		return report, err
	}

	log.Info("Order filled", "order_id", orderID, "fill_price", report.AverageFill.String(), "filled_qty", report.FilledQty)
	return report, nil
}

// awaitFill polls the order status until it reaches a terminal state or the
// fill window elapses.
func (ex *Executor) awaitFill(ctx context.Context, orderID string) (core.OrderReport, error) {
	deadline := time.Now().Add(ex.fillWait)
	ticker := time.NewTicker(ex.fillPoll)
	defer ticker.Stop()

	var last core.OrderReport
	for {
		report, err := ex.broker.OrderStatus(ctx, orderID)
		if err == nil {
			last = report
			switch report.Status {
			case core.OrderStatusComplete:
				return report, nil
			case core.OrderStatusRejected:
				return report, fmt.Errorf("order %s rejected (%s): %w", orderID, report.RejectReason, apperrors.ErrOrderRejected)
			case core.OrderStatusCancelled:
				return report, fmt.Errorf("order %s cancelled: %w", orderID, apperrors.ErrUnfilled)
			}
		} else {
			ex.logger.Warn("Order status poll failed", "order_id", orderID, "error", err)
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("order %s still %s after %s: %w", orderID, last.Status, ex.fillWait, apperrors.ErrUnfilled)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (ex *Executor) countFailure() {
	if ex.metrics != nil {
		ex.metrics.OrderFailures.Inc()
	}
}
