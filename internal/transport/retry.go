package transport

import (
	"context"
	"errors"
	"time"

	"github.com/scanherd/scanherd/internal/log"
	"github.com/scanherd/scanherd/internal/model"
)

// retryDelayStep is the linear growth applied to the backoff per attempt.
const retryDelayStep = 500 * time.Millisecond

// rateLimitDelayFactor scales the base delay when the server is rate
// limiting. Rate limits clear on the server's schedule, not ours, so the
// wait is a flat doubled base rather than attempt-scaled.
const rateLimitDelayFactor = 2

// Operation is one retryable request. It must be safe to call repeatedly.
type Operation func(ctx context.Context) error

// WithRetry runs op up to maxAttempts+1 times, waiting between attempts
// according to the adaptive-linear backoff policy. Non-retryable failures
// and errors outside the taxonomy raise immediately without waiting. After
// exhausting the budget the last observed error is returned.
//
// The identity is used only to tag retry log lines; nil is allowed.
//
// Design decision: Backoff is adaptive-linear rather than exponential.
// Check-in traffic is a handful of requests per identity, so exponential
// growth just delays batch completion; a linear ramp with a flat doubled
// delay for rate limits matches how the platform actually recovers.
func (c *Client) WithRetry(ctx context.Context, identity *model.Identity, op Operation) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || !reqErr.Retryable() {
			return err
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := retryDelay(reqErr.Kind, attempt, c.retryBaseDelay)
		c.logRetry(identity, reqErr, attempt, delay)

		if err := sleepContext(ctx, delay); err != nil {
			return errors.Join(err, lastErr)
		}
	}

	return lastErr
}

// RetryValue runs a value-producing operation under the client's retry
// policy. Methods cannot carry type parameters, so this is a package
// function taking the client first.
func RetryValue[T any](ctx context.Context, c *Client, identity *model.Identity, op func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := c.WithRetry(ctx, identity, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// retryDelay computes the wait before the next attempt. attempt is 0-based:
// the wait after the first failed attempt uses attempt 0.
//
// Rate limiting always waits a flat baseDelay*2 regardless of attempt
// number; every other retryable kind ramps linearly from baseDelay.
func retryDelay(kind FailureKind, attempt int, baseDelay time.Duration) time.Duration {
	if kind == FailureRateLimited {
		return baseDelay * rateLimitDelayFactor
	}
	return baseDelay + time.Duration(attempt)*retryDelayStep
}

// logRetry records a retry decision. The identity attribute makes repeated
// retry lines for the same identity collapse under the log de-duplication
// handler.
func (c *Client) logRetry(identity *model.Identity, reqErr *RequestError, attempt int, delay time.Duration) {
	attrs := []any{
		"kind", reqErr.Kind.String(),
		"attempt", attempt + 1,
		"max_attempts", c.maxAttempts + 1,
		"delay", delay.String(),
	}
	if identity != nil {
		attrs = append(attrs, log.IdentityKey, identity.Fingerprint())
	}
	c.logger.Warn("request retried", attrs...)
}

// sleepContext waits for d or until the context is cancelled, whichever
// comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
