package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/transport"
)

// Endpoint paths for the four logical operations.
const (
	pathTracking  = "/api/v1/tracking"
	pathStatus    = "/api/v1/status"
	pathDashboard = "/api/v1/dashboard"
	pathScan      = "/api/v1/scan"
)

// Client exposes the check-in operations for one identity's transport.
//
// Design decision: We wrap the transport client rather than embedding it so
// that this package owns exactly four operations and the wire shapes behind
// them. Components above this layer never see response JSON, which keeps
// provider schema changes contained here.
type Client struct {
	transport *transport.Client
}

// NewClient creates an API client on top of a configured transport.
func NewClient(t *transport.Client) *Client {
	return &Client{transport: t}
}

// trackingResponse is the wire shape of the tracking registration reply.
type trackingResponse struct {
	Token string `json:"token"`
}

// statusResponse is the wire shape of the account status reply. Points is a
// pointer so that null and absent both decode to nil.
type statusResponse struct {
	Points        *float64 `json:"points"`
	DailyScanDone bool     `json:"dailyScanDone"`
	ScanStreak    uint     `json:"scanStreak"`
}

// RegisterTracking registers a tracking correlation for the identity and
// returns the acknowledgement token.
//
// Only transport-level success matters: a reply that does not decode still
// counts as registered, with an empty token.
func (c *Client) RegisterTracking(ctx context.Context, identity *model.Identity) (string, error) {
	token, err := transport.RetryValue(ctx, c.transport, identity, func(ctx context.Context) (string, error) {
		payload, err := c.transport.Do(ctx, http.MethodPost, pathTracking, nil, identity)
		if err != nil {
			return "", err
		}

		var resp trackingResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return "", nil
		}
		return resp.Token, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to register tracking: %w", err)
	}
	return token, nil
}

// FetchStatus retrieves the identity's current snapshot: points balance,
// daily-scan flag, and streak.
//
// A response with a null or absent points field fails with a malformed
// classification wrapping ErrNoScore; without a score the snapshot cannot
// drive verification.
func (c *Client) FetchStatus(ctx context.Context, identity *model.Identity) (*model.Snapshot, error) {
	snapshot, err := transport.RetryValue(ctx, c.transport, identity, func(ctx context.Context) (*model.Snapshot, error) {
		payload, err := c.transport.Do(ctx, http.MethodGet, pathStatus, nil, identity)
		if err != nil {
			return nil, err
		}

		var resp statusResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, &transport.RequestError{Kind: transport.FailureMalformed, Err: err}
		}
		if resp.Points == nil {
			return nil, &transport.RequestError{Kind: transport.FailureMalformed, Err: ErrNoScore}
		}

		return &model.Snapshot{
			Points:        *resp.Points,
			DailyScanDone: resp.DailyScanDone,
			ScanStreak:    resp.ScanStreak,
			FetchedAt:     time.Now(),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	return snapshot, nil
}

// PrimeSession warms the identity's server-side session by loading the
// dashboard. The payload is not consumed; the contract is succeeds or
// raises.
func (c *Client) PrimeSession(ctx context.Context, identity *model.Identity) error {
	err := c.transport.WithRetry(ctx, identity, func(ctx context.Context) error {
		_, err := c.transport.Do(ctx, http.MethodGet, pathDashboard, nil, identity)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to prime session: %w", err)
	}
	return nil
}

// SubmitScan submits the daily scan action. The reply body is not
// load-bearing; only transport-level success matters.
func (c *Client) SubmitScan(ctx context.Context, identity *model.Identity) error {
	err := c.transport.WithRetry(ctx, identity, func(ctx context.Context) error {
		_, err := c.transport.Do(ctx, http.MethodPost, pathScan, nil, identity)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to submit scan: %w", err)
	}
	return nil
}
