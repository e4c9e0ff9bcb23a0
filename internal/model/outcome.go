package model

import (
	"encoding/json"
	"time"
)

// Outcome classifies the terminal result of one identity's workflow run.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and counting. The String() method provides
// human-readable output, and JSON marshalling uses the string form so
// reports and the history database stay readable without this package.
type Outcome int

const (
	// OutcomeUnknown is the zero value for an uninitialized result.
	// A finished workflow never reports it.
	OutcomeUnknown Outcome = iota

	// OutcomeSkipped means the pre-action status showed the daily check-in
	// already credited and no re-scan was forced. This is a success-adjacent
	// terminal state, not an error.
	OutcomeSkipped

	// OutcomeVerified means post-action verification confirmed the check-in
	// took effect: the daily flag flipped true or the points strictly
	// increased.
	OutcomeVerified

	// OutcomeUnverified means the action was attempted but neither
	// verification signal confirmed it. A soft failure: the batch
	// continues, and the next run will try again.
	OutcomeUnverified

	// OutcomeFailed means a workflow step failed fatally after retries
	// (tracking registration, status fetch, session priming, or the
	// verification fetch itself).
	OutcomeFailed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "SKIPPED"
	case OutcomeVerified:
		return "VERIFIED"
	case OutcomeUnverified:
		return "UNVERIFIED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseOutcome converts the string form produced by String() back into an
// Outcome. Unrecognized input yields OutcomeUnknown.
func ParseOutcome(s string) Outcome {
	switch s {
	case "SKIPPED":
		return OutcomeSkipped
	case "VERIFIED":
		return OutcomeVerified
	case "UNVERIFIED":
		return OutcomeUnverified
	case "FAILED":
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// MarshalJSON encodes the outcome as its string form.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes the outcome from its string form.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = ParseOutcome(s)
	return nil
}

// IdentityResult records the terminal outcome of one identity's workflow
// run together with the evidence that produced it. One IdentityResult is
// appended to the batch report per processed identity; no outcome is
// silently dropped.
type IdentityResult struct {
	// Fingerprint is the identity's log-safe tag (see Identity.Fingerprint).
	Fingerprint string `json:"fingerprint"`

	// Outcome is the terminal classification of this run.
	Outcome Outcome `json:"outcome"`

	// FinalState names the last workflow state reached before the run
	// terminated. For failures this is the state whose transition failed.
	FinalState string `json:"final_state"`

	// PointsBefore is the pre-action score. Nil when the status fetch
	// never succeeded.
	PointsBefore *float64 `json:"points_before,omitempty"`

	// PointsAfter is the post-action score. Nil unless verification ran.
	PointsAfter *float64 `json:"points_after,omitempty"`

	// ScanStreak is the consecutive-day streak from the most recent
	// snapshot observed during the run.
	ScanStreak uint `json:"scan_streak,omitempty"`

	// VerifiedBy names the signal(s) that confirmed success: "flag",
	// "points", or "flag+points". Empty for non-verified outcomes.
	VerifiedBy string `json:"verified_by,omitempty"`

	// ProxyUsed is the credential-free form of the assigned proxy, or
	// "direct" when the identity connected without one.
	ProxyUsed string `json:"proxy_used"`

	// EgressIP is the public IP observed through the identity's agent
	// during the optional probe phase. Empty when probing was disabled
	// or failed; a failed probe is diagnostic only, never an error.
	EgressIP string `json:"egress_ip,omitempty"`

	// SuppressedError is the action-submission failure that was recorded
	// but deliberately not treated as fatal. The workflow proceeds to
	// verification anyway because the platform sometimes awards credit
	// even when the synchronous response errors.
	SuppressedError string `json:"suppressed_error,omitempty"`

	// Error is the failure that terminated the run. Empty unless
	// Outcome is OutcomeFailed.
	Error string `json:"error,omitempty"`

	// ErrorClass is the transport failure classification of Error
	// (e.g. "TIMEOUT", "RATE_LIMITED"). Empty when unclassified.
	ErrorClass string `json:"error_class,omitempty"`

	// StartedAt is when this identity's workflow began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the whole run, retries and
	// settle delay included.
	Duration time.Duration `json:"duration"`
}
