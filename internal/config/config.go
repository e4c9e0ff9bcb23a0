package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to match the remote platform's observed rate
// limiting and daily reset behavior.
const (
	// DefaultBaseURL is the check-in API origin. All four platform
	// operations are rooted here.
	DefaultBaseURL = "https://api.scanherd.dev"

	// DefaultRequestTimeout bounds one full HTTP request/response cycle.
	// 30 seconds is generous enough for slow residential proxies while
	// still letting a dead route fail within one batch slot.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds proxy dialing. It is shorter than the
	// request timeout so an unreachable proxy is diagnosed as such rather
	// than as a slow response.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultMaxAttempts is the number of retries after the initial
	// attempt, so a request is tried at most DefaultMaxAttempts+1 times.
	DefaultMaxAttempts = 3

	// DefaultRetryBaseDelay is the base wait between retry attempts.
	// The transport grows it linearly per attempt and doubles it for
	// rate-limit responses.
	DefaultRetryBaseDelay = 2 * time.Second

	// DefaultSettleDelay is the wait between submitting the check-in
	// action and fetching the verification status. The platform credits
	// points asynchronously; reading back too early reports false
	// failures.
	DefaultSettleDelay = 2 * time.Second

	// DefaultIdentityDelay is the pause between identities in a batch,
	// jittered ±20% at runtime. Back-to-back identities from related
	// egress routes look automated.
	DefaultIdentityDelay = 8 * time.Second

	// DefaultLoopInterval is the rerun interval for loop mode. 25 hours
	// rather than 24 so the trigger time drifts across the platform's
	// daily reset window instead of firing at the same minute every day.
	DefaultLoopInterval = 25 * time.Hour

	// AppName is the application name used for XDG directory paths.
	AppName = "scanherd"

	// DefaultWalletsFile is the default credential list file name,
	// resolved relative to the working directory.
	DefaultWalletsFile = "wallets.txt"

	// DefaultProxiesFile is the default proxy list file name. The file
	// is optional; without it every identity connects directly.
	DefaultProxiesFile = "proxies.txt"
)

// Config holds all configuration options for a batch run.
// This struct is designed to be populated from the optional YAML file and
// CLI flags, then passed through the application via dependency injection
// rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., TransportConfig, BatchConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// BaseURL is the check-in API origin, without a trailing slash.
	BaseURL string

	// WalletsFile is the path to the credential list: one address:secret
	// pair per line, # comments allowed. The file contents are sensitive
	// and are never echoed into logs or errors.
	WalletsFile string

	// ProxiesFile is the path to the proxy list: one proxy spec per line,
	// # comments allowed. Empty means no proxies; every identity then
	// connects directly.
	ProxiesFile string

	// RequestTimeout bounds one HTTP request/response cycle.
	RequestTimeout time.Duration

	// ConnectTimeout bounds dialing through a proxy.
	ConnectTimeout time.Duration

	// MaxAttempts is the number of retries after the initial attempt.
	// Zero disables retrying; only the initial attempt runs.
	MaxAttempts int

	// RetryBaseDelay is the base wait between retry attempts.
	RetryBaseDelay time.Duration

	// SettleDelay is the wait before the post-action verification fetch.
	SettleDelay time.Duration

	// IdentityDelay is the pause between identities, jittered at runtime.
	IdentityDelay time.Duration

	// Force re-runs the check-in action even when the pre-action status
	// says today's check-in is already credited.
	Force bool

	// ProbeEgress enables the diagnostic egress-IP probe phase at batch
	// start. Probe failures never fail identities.
	ProbeEgress bool

	// Loop reruns the batch on a fixed interval until interrupted.
	Loop bool

	// LoopInterval is the rerun interval for loop mode.
	LoopInterval time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// JSONLogs switches log output from text to JSON, for runs whose
	// logs feed an aggregator rather than a terminal.
	JSONLogs bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file in addition to stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite history database.
	// Defaults to the XDG data directory (~/.local/share/scanherd on Linux).
	DBDir string

	// SaveToDB indicates whether to record batch outcomes in the history
	// database. On by default; history is how repeated runs show streaks.
	SaveToDB bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for scanherd.yaml in the current
	// directory and then in the XDG config directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, delays).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		WalletsFile:    DefaultWalletsFile,
		RequestTimeout: DefaultRequestTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		SettleDelay:    DefaultSettleDelay,
		IdentityDelay:  DefaultIdentityDelay,
		LoopInterval:   DefaultLoopInterval,
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for scanherd.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/scanherd
// On macOS: ~/Library/Application Support/scanherd
// On Windows: %LOCALAPPDATA%\scanherd
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for scanherd.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/scanherd
// On macOS: ~/Library/Application Support/scanherd
// On Windows: %APPDATA%\scanherd
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for scanherd.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/scanherd
// On macOS: ~/Library/Caches/scanherd
// On Windows: %LOCALAPPDATA%\scanherd\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any batch begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// Without an API origin there is nothing to talk to
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	// Without credentials there is nothing to process
	if c.WalletsFile == "" {
		return ErrNoWalletsFile
	}

	// Timeouts must be positive; zero would cause immediate failures
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ConnectTimeout <= 0 {
		return ErrInvalidConnectTimeout
	}

	// Zero retries is valid (single attempt); negative is not
	if c.MaxAttempts < 0 {
		return ErrInvalidMaxAttempts
	}

	// Delays may be zero (tests and impatient operators) but not negative
	if c.RetryBaseDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}
	if c.IdentityDelay < 0 {
		return ErrInvalidIdentityDelay
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// Loop mode needs a positive rerun interval
	if c.Loop && c.LoopInterval <= 0 {
		return ErrInvalidLoopInterval
	}

	return nil
}
