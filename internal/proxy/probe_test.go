package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestAgent returns a direct-connection agent for probe tests.
func newTestAgent(t *testing.T) *Agent {
	t.Helper()

	agent, err := NewAgent(nil)
	if err != nil {
		t.Fatalf("unexpected error creating agent: %v", err)
	}
	return agent
}

// TestProbeEgress tests egress IP discovery against a local echo server.
func TestProbeEgress(t *testing.T) {
	t.Parallel()

	t.Run("returns the echoed IP", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("203.0.113.7"))
		}))
		defer server.Close()

		got := probeEgress(context.Background(), newTestAgent(t), server.URL)
		if got != "203.0.113.7" {
			t.Errorf("probeEgress() = %q, expected %q", got, "203.0.113.7")
		}
	})

	t.Run("trims whitespace around the IP", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("  203.0.113.7\n"))
		}))
		defer server.Close()

		got := probeEgress(context.Background(), newTestAgent(t), server.URL)
		if got != "203.0.113.7" {
			t.Errorf("probeEgress() = %q, expected %q", got, "203.0.113.7")
		}
	})

	t.Run("IPv6 egress is accepted", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("2001:db8::1"))
		}))
		defer server.Close()

		got := probeEgress(context.Background(), newTestAgent(t), server.URL)
		if got != "2001:db8::1" {
			t.Errorf("probeEgress() = %q, expected %q", got, "2001:db8::1")
		}
	})

	t.Run("non-200 status yields empty", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		if got := probeEgress(context.Background(), newTestAgent(t), server.URL); got != "" {
			t.Errorf("probeEgress() = %q, expected empty", got)
		}
	})

	t.Run("non-IP body yields empty", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>blocked</html>"))
		}))
		defer server.Close()

		if got := probeEgress(context.Background(), newTestAgent(t), server.URL); got != "" {
			t.Errorf("probeEgress() = %q, expected empty", got)
		}
	})

	t.Run("unreachable endpoint yields empty", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		url := server.URL
		server.Close()

		if got := probeEgress(context.Background(), newTestAgent(t), url); got != "" {
			t.Errorf("probeEgress() = %q, expected empty", got)
		}
	})

	t.Run("cancelled context yields empty", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("203.0.113.7"))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if got := probeEgress(ctx, newTestAgent(t), server.URL); got != "" {
			t.Errorf("probeEgress() = %q, expected empty", got)
		}
	})

	t.Run("nil agent yields empty", func(t *testing.T) {
		t.Parallel()

		if got := probeEgress(context.Background(), nil, "http://127.0.0.1:0"); got != "" {
			t.Errorf("probeEgress() = %q, expected empty", got)
		}
	})
}
