package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// Dispatcher runs notifier calls in the background so callers return as soon
// as the booking transition is stored. Failures are logged and dropped.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wraps notifier. A non-positive timeout selects DefaultTimeout.
func NewDispatcher(notifier Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, timeout: timeout, logger: logger}
}

// BookingConfirmed schedules a confirmation notice.
func (d *Dispatcher) BookingConfirmed(ctx context.Context, notice Notice) {
	d.dispatch(ctx, "booking_confirmed", notice, func(ctx context.Context) error {
		return d.notifier.BookingConfirmed(ctx, notice)
	})
}

// BookingRejected schedules a rejection notice.
func (d *Dispatcher) BookingRejected(ctx context.Context, notice Notice, reason string) {
	d.dispatch(ctx, "booking_rejected", notice, func(ctx context.Context) error {
		return d.notifier.BookingRejected(ctx, notice, reason)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, notice Notice, send func(context.Context) error) {
	if d == nil || d.notifier == nil {
		return
	}
	// delivery outlives the request context
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		if err := send(sendCtx); err != nil {
			d.logger.WarnContext(sendCtx, "notification failed",
				"kind", kind,
				"booking_id", notice.BookingID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every scheduled notification has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
