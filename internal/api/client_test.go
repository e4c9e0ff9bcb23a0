package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/proxy"
	"github.com/scanherd/scanherd/internal/transport"
)

// newTestAPI returns an API client whose transport points at the given
// server with one retry and a fast backoff.
func newTestAPI(t *testing.T, baseURL string) *Client {
	t.Helper()

	agent, err := proxy.NewAgent(nil)
	if err != nil {
		t.Fatalf("unexpected error creating agent: %v", err)
	}

	tc := transport.NewClient(agent, baseURL,
		transport.WithMaxAttempts(1),
		transport.WithRetryBaseDelay(time.Millisecond),
		transport.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return NewClient(tc)
}

// TestClient_FetchStatus tests snapshot decoding and the no-score rule.
func TestClient_FetchStatus(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("decodes a full status payload", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %q, expected GET", r.Method)
			}
			_, _ = w.Write([]byte(`{"points": 1250.5, "dailyScanDone": true, "scanStreak": 7}`))
		}))
		defer server.Close()

		snapshot, err := newTestAPI(t, server.URL).FetchStatus(context.Background(), identity)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot.Points != 1250.5 {
			t.Errorf("Points = %v, expected 1250.5", snapshot.Points)
		}
		if !snapshot.DailyScanDone {
			t.Error("expected DailyScanDone to be true")
		}
		if snapshot.ScanStreak != 7 {
			t.Errorf("ScanStreak = %d, expected 7", snapshot.ScanStreak)
		}
		if snapshot.FetchedAt.IsZero() {
			t.Error("expected FetchedAt to be set")
		}
	})

	t.Run("null points is malformed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"points": null, "dailyScanDone": false, "scanStreak": 0}`))
		}))
		defer server.Close()

		_, err := newTestAPI(t, server.URL).FetchStatus(context.Background(), identity)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, ErrNoScore) {
			t.Errorf("expected ErrNoScore, got %v", err)
		}
		assertFailureKind(t, err, transport.FailureMalformed)
	})

	t.Run("absent points is malformed", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"dailyScanDone": false}`))
		}))
		defer server.Close()

		_, err := newTestAPI(t, server.URL).FetchStatus(context.Background(), identity)
		if !errors.Is(err, ErrNoScore) {
			t.Errorf("expected ErrNoScore, got %v", err)
		}
	})

	t.Run("unparsable body is malformed and not retried", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer server.Close()

		_, err := newTestAPI(t, server.URL).FetchStatus(context.Background(), identity)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		assertFailureKind(t, err, transport.FailureMalformed)
		if got := hits.Load(); got != 1 {
			t.Errorf("server hits = %d, expected 1 (malformed must not retry)", got)
		}
	})

	t.Run("server fault is retried", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"points": 10, "dailyScanDone": false, "scanStreak": 1}`))
		}))
		defer server.Close()

		snapshot, err := newTestAPI(t, server.URL).FetchStatus(context.Background(), identity)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot.Points != 10 {
			t.Errorf("Points = %v, expected 10", snapshot.Points)
		}
		if got := hits.Load(); got != 2 {
			t.Errorf("server hits = %d, expected 2", got)
		}
	})
}

// TestClient_RegisterTracking tests the tolerant token decode.
func TestClient_RegisterTracking(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("returns the acknowledgement token", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %q, expected POST", r.Method)
			}
			_, _ = w.Write([]byte(`{"token": "trk-12345"}`))
		}))
		defer server.Close()

		token, err := newTestAPI(t, server.URL).RegisterTracking(context.Background(), identity)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "trk-12345" {
			t.Errorf("token = %q, expected %q", token, "trk-12345")
		}
	})

	t.Run("undecodable reply still counts as registered", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`ok`))
		}))
		defer server.Close()

		token, err := newTestAPI(t, server.URL).RegisterTracking(context.Background(), identity)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "" {
			t.Errorf("token = %q, expected empty", token)
		}
	})

	t.Run("transport failure raises after retries", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestAPI(t, server.URL).RegisterTracking(context.Background(), identity)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		assertFailureKind(t, err, transport.FailureServerFault)
		if got := hits.Load(); got != 2 {
			t.Errorf("server hits = %d, expected 2 (one retry)", got)
		}
	})
}

// TestClient_PrimeSession tests the succeeds-or-raises contract.
func TestClient_PrimeSession(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("succeeds on 200", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %q, expected GET", r.Method)
			}
			_, _ = w.Write([]byte(`{"widgets": []}`))
		}))
		defer server.Close()

		if err := newTestAPI(t, server.URL).PrimeSession(context.Background(), identity); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("client rejection raises without retry", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		err := newTestAPI(t, server.URL).PrimeSession(context.Background(), identity)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		assertFailureKind(t, err, transport.FailureClientRejected)
		if got := hits.Load(); got != 1 {
			t.Errorf("server hits = %d, expected 1", got)
		}
	})
}

// TestClient_SubmitScan tests scan submission.
func TestClient_SubmitScan(t *testing.T) {
	t.Parallel()

	identity := model.NewIdentity("0xabc", "secret")

	t.Run("succeeds regardless of reply body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %q, expected POST", r.Method)
			}
			_, _ = w.Write([]byte(`{"ok": false, "message": "queued"}`))
		}))
		defer server.Close()

		if err := newTestAPI(t, server.URL).SubmitScan(context.Background(), identity); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("rate limiting raises after the retry budget", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		err := newTestAPI(t, server.URL).SubmitScan(context.Background(), identity)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		assertFailureKind(t, err, transport.FailureRateLimited)
		if got := hits.Load(); got != 2 {
			t.Errorf("server hits = %d, expected 2", got)
		}
	})
}

// assertFailureKind fails unless err wraps a RequestError of the expected
// kind.
func assertFailureKind(t *testing.T, err error, want transport.FailureKind) {
	t.Helper()

	var reqErr *transport.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *transport.RequestError, got %T: %v", err, err)
	}
	if reqErr.Kind != want {
		t.Errorf("Kind = %v, expected %v", reqErr.Kind, want)
	}
}
