package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the list loaders and
// provide specific information about what is wrong.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoBaseURL is returned when the API base URL is empty.
	ErrNoBaseURL = errors.New("no base URL configured")

	// ErrNoWalletsFile is returned when no credential list path is set.
	// Without credentials there are no identities to process.
	ErrNoWalletsFile = errors.New("no wallets file specified")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidConnectTimeout is returned when the proxy connect timeout
	// is not positive.
	ErrInvalidConnectTimeout = errors.New("invalid connect timeout: must be positive")

	// ErrInvalidMaxAttempts is returned when the retry count is negative.
	// Zero is valid and disables retrying.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be non-negative")

	// ErrInvalidRetryDelay is returned when the retry base delay is negative.
	// Use 0 to retry without waiting.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	// Use 0 to verify immediately after submission.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidIdentityDelay is returned when the inter-identity pause
	// is negative. Use 0 to process identities back to back.
	ErrInvalidIdentityDelay = errors.New("invalid identity delay: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidLoopInterval is returned when loop mode is enabled with a
	// non-positive rerun interval.
	ErrInvalidLoopInterval = errors.New("invalid loop interval: must be positive")

	// ErrNoIdentities is returned when the credential list contains no
	// usable entries (empty file or comments only).
	ErrNoIdentities = errors.New("credential list contains no identities")

	// ErrMalformedCredential is returned when a credential line is not an
	// address:secret pair. The offending line is referenced by number only,
	// never echoed, because it may hold a partial secret.
	ErrMalformedCredential = errors.New("malformed credential line (want address:secret)")
)
