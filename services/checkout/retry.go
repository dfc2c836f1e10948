package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy bounds how a single network call is retried.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// Timeout applies to every attempt separately.
	Timeout time.Duration
	Delay   time.Duration
	// Linear multiplies Delay by the retry number (1x, 2x, 3x...).
	Linear bool
}

// ReadRetryPolicy is the stock read design: 10s per attempt, 2 retries, fixed 1s delay.
func ReadRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Timeout: 10 * time.Second, Delay: time.Second}
}

// WriteRetryPolicy is the stock write design: 10s per attempt, 3 retries, delay x attempt.
func WriteRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Timeout: 10 * time.Second, Delay: time.Second, Linear: true}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.Linear {
		return &linearBackOff{step: p.Delay}
	}
	return backoff.NewConstantBackOff(p.Delay)
}

// linearBackOff waits step, 2*step, 3*step... between attempts.
type linearBackOff struct {
	step    time.Duration
	retries int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.retries++
	return b.step * time.Duration(b.retries)
}

func (b *linearBackOff) Reset() {
	b.retries = 0
}

// transientError marks a failure worth another attempt.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(err error) error {
	return &transientError{err: err}
}

// isTransientTransport reports whether a transport error (no HTTP response) is
// a timeout or network failure.
func isTransientTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

func isTransientStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

// retryCall runs op under the policy. op receives a context bounded by the
// per-attempt timeout. Only errors wrapped with transient() are retried.
func retryCall[T any](ctx context.Context, name string, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx := ctx
		if policy.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
			defer cancel()
		}

		res, err := op(attemptCtx)
		if err == nil {
			return res, nil
		}

		var te *transientError
		if errors.As(err, &te) {
			return res, te.err
		}
		return res, backoff.Permanent(err)
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithFields(log.Fields{
				"call":     name,
				"attempt":  attempt,
				"retry_in": next.String(),
			}).Warnf("🔁 [RETRY] %s failed: %v", name, err)
		}),
	)
	if err != nil {
		var pe *backoff.PermanentError
		if errors.As(err, &pe) {
			err = pe.Unwrap()
		}
		return res, err
	}
	return res, nil
}
