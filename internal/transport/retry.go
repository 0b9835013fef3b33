package transport

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how often and how patiently an operation is retried
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries twice starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Retryable lets an error declare whether the operation that produced it is worth repeating
type Retryable interface {
	Retryable() bool
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Do runs op until it succeeds, the policy is exhausted, the error is not retryable, or ctx is done. The last error
// is returned unwrapped from any Permanent marker
func Do[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if !shouldRetry(err) || attempt >= policy.MaxRetries {
			return zero, err
		}

		delay := policy.backoff(attempt)
		logger.Warn("operation failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// backoff doubles the base delay per attempt and adds up to 25% jitter
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(delay)/4 + 1))
	return delay + jitter
}
