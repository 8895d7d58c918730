package retry

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Policy is a bounded retry schedule. Retryable decides whether an error
// is worth another attempt; a nil Retryable retries everything. A
// zero-valued Delay makes the policy suitable for tests.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Retryable   func(error) bool
	Logger      *zap.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Logger:      zap.NewNop(),
	}
}

// Do runs operation up to MaxAttempts times, sleeping between attempts
// per the schedule. Context cancellation interrupts both the wait and
// further attempts.
func Do(ctx context.Context, p Policy, operation func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Multiplier == 0 {
		p.Multiplier = 1.0
	}

	var lastErr error
	delay := p.Delay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			if attempt > 1 && p.Logger != nil {
				p.Logger.Info("Operation succeeded after retry",
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		if p.Logger != nil {
			p.Logger.Warn("Operation failed, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("delay", delay),
			)
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		next := float64(delay) * p.Multiplier
		if p.MaxDelay > 0 {
			next = math.Min(next, float64(p.MaxDelay))
		}
		delay = time.Duration(next)
	}

	return lastErr
}

func DoWithResult[T any](ctx context.Context, p Policy, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}
