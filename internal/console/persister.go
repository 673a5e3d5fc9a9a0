package console

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/modulhaus/backoffice/errs"
	"github.com/modulhaus/backoffice/internal/observability"
	"github.com/modulhaus/backoffice/internal/schema"
)

// Persister writes the transitioned order to durable storage before the
// in-memory commit. Implementations return the stored copy.
type Persister interface {
	PersistOrder(ctx context.Context, order schema.Order) (schema.Order, error)
}

// PersisterFunc adapts a function to the Persister interface.
type PersisterFunc func(ctx context.Context, order schema.Order) (schema.Order, error)

// PersistOrder calls f.
func (f PersisterFunc) PersistOrder(ctx context.Context, order schema.Order) (schema.Order, error) {
	return f(ctx, order)
}

// RetryingPersister decorates a Persister with exponential backoff. Durable
// writes ride network storage; transient faults should not surface to the
// console as hard failures.
type RetryingPersister struct {
	next        Persister
	maxAttempts int
	maxInterval time.Duration
}

// NewRetryingPersister wraps next with up to maxAttempts tries; non-positive
// maxAttempts selects 3.
func NewRetryingPersister(next Persister, maxAttempts int) *RetryingPersister {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &RetryingPersister{next: next, maxAttempts: maxAttempts, maxInterval: 2 * time.Second}
}

// PersistOrder retries transient failures with exponential backoff. Context
// cancellation aborts between attempts.
func (p *RetryingPersister) PersistOrder(ctx context.Context, order schema.Order) (schema.Order, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = p.maxInterval

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		stored, err := p.next.PersistOrder(ctx, order)
		if err == nil {
			return stored, nil
		}
		lastErr = err

		if errs.HasCode(err, errs.CodeInvalid) || errs.HasCode(err, errs.CodeConflict) {
			break
		}
		if attempt == p.maxAttempts {
			break
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		observability.Log().Warn("persist retry",
			observability.F("orderId", order.ID),
			observability.F("attempt", attempt),
			observability.F("error", err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return schema.Order{}, errs.New("console/persist", errs.CodeUnavailable,
				errs.WithMessage("persist aborted"), errs.WithOrder(order.ID), errs.WithCause(ctx.Err()))
		case <-timer.C:
		}
	}
	return schema.Order{}, errs.New("console/persist", errs.CodeIo,
		errs.WithMessage("persist order"), errs.WithOrder(order.ID), errs.WithCause(lastErr))
}
