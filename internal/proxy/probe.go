package proxy

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// egressProbeURL is the IP echo endpoint used to discover the public
	// address a route egresses from. The endpoint returns the caller's IP
	// as a plain text body.
	egressProbeURL = "https://api.ipify.org"

	// probeTimeout bounds one egress probe. Probes are diagnostic, so they
	// get a short budget instead of the full request timeout.
	probeTimeout = 5 * time.Second

	// maxProbeBody limits how much of the echo response is read. An IP
	// address fits in a few dozen bytes; anything larger is not an IP.
	maxProbeBody = 256
)

// ProbeEgressIP reports the public IP address the agent's route egresses
// from, or "" when it cannot be determined.
//
// The probe is best-effort only: timeouts, DNS failures, refused
// connections, and malformed bodies all yield "" and never propagate as
// errors. Callers use the result purely for diagnostics.
func ProbeEgressIP(ctx context.Context, agent *Agent) string {
	return probeEgress(ctx, agent, egressProbeURL)
}

// probeEgress implements ProbeEgressIP against an arbitrary echo endpoint.
// Split out so tests can point it at a local server.
func probeEgress(ctx context.Context, agent *Agent, endpoint string) string {
	if agent == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}

	resp, err := agent.HTTPClient().Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close() //nolint:errcheck // response body close errors are not actionable

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return ""
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}
