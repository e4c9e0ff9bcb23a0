package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/proxy"
)

// newRetryTestClient returns a client with fast retry settings for loop
// tests. No requests are issued; only the retry policy is exercised.
func newRetryTestClient(t *testing.T, maxAttempts int) *Client {
	t.Helper()

	agent, err := proxy.NewAgent(nil)
	if err != nil {
		t.Fatalf("unexpected error creating agent: %v", err)
	}

	return NewClient(agent, "http://127.0.0.1:0",
		WithMaxAttempts(maxAttempts),
		WithRetryBaseDelay(time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// TestClient_WithRetry tests the retry loop behavior per failure class.
func TestClient_WithRetry(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 3)
		calls := 0

		err := client.WithRetry(context.Background(), identity, func(_ context.Context) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, expected 1", calls)
		}
	})

	t.Run("retryable failure then success", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 3)
		calls := 0

		err := client.WithRetry(context.Background(), identity, func(_ context.Context) error {
			calls++
			if calls == 1 {
				return classifyStatus(500)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, expected 2", calls)
		}
	})

	t.Run("non-retryable failure raises immediately", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 3)
		calls := 0

		err := client.WithRetry(context.Background(), identity, func(_ context.Context) error {
			calls++
			return classifyStatus(403)
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if calls != 1 {
			t.Errorf("calls = %d, expected 1", calls)
		}

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Kind != FailureClientRejected {
			t.Errorf("expected CLIENT_REJECTED, got %v", err)
		}
	})

	t.Run("errors outside the taxonomy raise immediately", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 3)
		calls := 0
		boom := errors.New("boom")

		err := client.WithRetry(context.Background(), identity, func(_ context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, expected 1", calls)
		}
	})

	t.Run("exhaustion returns the last error after maxAttempts+1 tries", func(t *testing.T) {
		t.Parallel()

		agent, err := proxy.NewAgent(nil)
		if err != nil {
			t.Fatalf("unexpected error creating agent: %v", err)
		}
		client := NewClient(agent, "http://127.0.0.1:0",
			WithMaxAttempts(2),
			WithRetryBaseDelay(20*time.Millisecond),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)

		calls := 0
		start := time.Now()
		err = client.WithRetry(context.Background(), identity, func(_ context.Context) error {
			calls++
			return classifyStatus(429)
		})
		elapsed := time.Since(start)

		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if calls != 3 {
			t.Errorf("calls = %d, expected 3", calls)
		}
		// Rate limiting waits baseDelay*2 between each of the two retries.
		if wantMin := 2 * 2 * 20 * time.Millisecond; elapsed < wantMin {
			t.Errorf("elapsed = %v, expected at least %v", elapsed, wantMin)
		}

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Kind != FailureRateLimited {
			t.Errorf("expected RATE_LIMITED, got %v", err)
		}
	})

	t.Run("nil identity is allowed", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 1)
		calls := 0

		err := client.WithRetry(context.Background(), nil, func(_ context.Context) error {
			calls++
			if calls == 1 {
				return classifyStatus(503)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, expected 2", calls)
		}
	})

	t.Run("cancellation aborts the backoff wait promptly", func(t *testing.T) {
		t.Parallel()

		agent, err := proxy.NewAgent(nil)
		if err != nil {
			t.Fatalf("unexpected error creating agent: %v", err)
		}
		client := NewClient(agent, "http://127.0.0.1:0",
			WithMaxAttempts(3),
			WithRetryBaseDelay(10*time.Second),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		)

		ctx, cancel := context.WithCancel(context.Background())
		timer := time.AfterFunc(50*time.Millisecond, cancel)
		defer timer.Stop()
		defer cancel()

		calls := 0
		start := time.Now()
		err = client.WithRetry(ctx, identity, func(_ context.Context) error {
			calls++
			return classifyStatus(500)
		})
		elapsed := time.Since(start)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, expected 1", calls)
		}
		if elapsed > 2*time.Second {
			t.Errorf("expected prompt abort, waited %v", elapsed)
		}
		// The last observed failure must stay reachable alongside the
		// cancellation.
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Kind != FailureServerFault {
			t.Errorf("expected the last failure to be joined, got %v", err)
		}
	})
}

// TestRetryDelay tests the adaptive-linear backoff policy.
func TestRetryDelay(t *testing.T) {
	t.Parallel()

	base := 2 * time.Second

	testCases := []struct {
		name     string
		kind     FailureKind
		attempt  int
		expected time.Duration
	}{
		{"server fault attempt 0", FailureServerFault, 0, 2 * time.Second},
		{"server fault attempt 1", FailureServerFault, 1, 2500 * time.Millisecond},
		{"server fault attempt 2", FailureServerFault, 2, 3 * time.Second},
		{"timeout attempt 3", FailureTimeout, 3, 3500 * time.Millisecond},
		{"connection reset attempt 0", FailureConnectionReset, 0, 2 * time.Second},
		{"rate limited attempt 0", FailureRateLimited, 0, 4 * time.Second},
		{"rate limited attempt 5 stays flat", FailureRateLimited, 5, 4 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := retryDelay(tc.kind, tc.attempt, base)
			if got != tc.expected {
				t.Errorf("retryDelay(%v, %d, %v) = %v, expected %v",
					tc.kind, tc.attempt, base, got, tc.expected)
			}
		})
	}
}

// TestRetryValue tests the value-producing retry wrapper.
func TestRetryValue(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("returns the value after a retried failure", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 2)
		calls := 0

		got, err := RetryValue(context.Background(), client, identity, func(_ context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", classifyStatus(500)
			}
			return "pong", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "pong" {
			t.Errorf("value = %q, expected %q", got, "pong")
		}
		if calls != 2 {
			t.Errorf("calls = %d, expected 2", calls)
		}
	})

	t.Run("returns the zero value on failure", func(t *testing.T) {
		t.Parallel()

		client := newRetryTestClient(t, 0)

		got, err := RetryValue(context.Background(), client, identity, func(_ context.Context) (int, error) {
			return 42, classifyStatus(400)
		})
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if got != 0 {
			t.Errorf("value = %d, expected the zero value", got)
		}
	})
}
