package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" or "1h30m"
// decode with time.ParseDuration semantics.
type Duration time.Duration

// UnmarshalYAML decodes a duration from its string form.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// File represents the structure of the scanherd.yaml configuration file.
// Every field is optional: absent fields keep their defaults, and CLI
// flags override file values.
type File struct {
	// BaseURL overrides the check-in API origin.
	BaseURL string `yaml:"baseURL,omitempty"`

	// WalletsFile overrides the credential list path.
	WalletsFile string `yaml:"walletsFile,omitempty"`

	// ProxiesFile overrides the proxy list path.
	ProxiesFile string `yaml:"proxiesFile,omitempty"`

	// RequestTimeout overrides the per-request timeout.
	RequestTimeout Duration `yaml:"requestTimeout,omitempty"`

	// ConnectTimeout overrides the proxy dial timeout.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty"`

	// MaxAttempts overrides the retry count. If zero, the default is used.
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// RetryBaseDelay overrides the base wait between retries.
	RetryBaseDelay Duration `yaml:"retryBaseDelay,omitempty"`

	// SettleDelay overrides the pre-verification wait.
	SettleDelay Duration `yaml:"settleDelay,omitempty"`

	// IdentityDelay overrides the pause between identities.
	IdentityDelay Duration `yaml:"identityDelay,omitempty"`

	// Force re-runs the check-in even when already credited.
	Force bool `yaml:"force,omitempty"`

	// ProbeEgress enables the egress-IP probe phase at batch start.
	ProbeEgress bool `yaml:"probeEgress,omitempty"`

	// LoopInterval overrides the loop-mode rerun interval.
	LoopInterval Duration `yaml:"loopInterval,omitempty"`

	// ReportFormat selects the report output format: "simple" (default),
	// "json", or "markdown".
	ReportFormat string `yaml:"reportFormat,omitempty"`

	// ReportFile writes the report to this path in addition to stdout.
	ReportFile string `yaml:"reportFile,omitempty"`

	// DBDir overrides the history database directory.
	DBDir string `yaml:"dbDir,omitempty"`
}

// Apply merges the file's values onto cfg. Only fields explicitly set in
// the file change the config, so the precedence stays defaults < file <
// CLI flags (flags are applied after this call).
func (f *File) Apply(cfg *Config) error {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.WalletsFile != "" {
		cfg.WalletsFile = f.WalletsFile
	}
	if f.ProxiesFile != "" {
		cfg.ProxiesFile = f.ProxiesFile
	}
	if f.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(f.RequestTimeout)
	}
	if f.ConnectTimeout > 0 {
		cfg.ConnectTimeout = time.Duration(f.ConnectTimeout)
	}
	if f.MaxAttempts != 0 {
		cfg.MaxAttempts = f.MaxAttempts
	}
	if f.RetryBaseDelay > 0 {
		cfg.RetryBaseDelay = time.Duration(f.RetryBaseDelay)
	}
	if f.SettleDelay > 0 {
		cfg.SettleDelay = time.Duration(f.SettleDelay)
	}
	if f.IdentityDelay > 0 {
		cfg.IdentityDelay = time.Duration(f.IdentityDelay)
	}
	if f.Force {
		cfg.Force = true
	}
	if f.ProbeEgress {
		cfg.ProbeEgress = true
	}
	if f.LoopInterval > 0 {
		cfg.LoopInterval = time.Duration(f.LoopInterval)
	}

	switch f.ReportFormat {
	case "", "simple":
		// default format, nothing to set
	case "json":
		cfg.JSONReport = true
	case "markdown":
		cfg.MarkdownReport = true
	default:
		return fmt.Errorf("unknown report format %q (want simple, json, or markdown)", f.ReportFormat)
	}

	if f.ReportFile != "" {
		cfg.ReportFile = f.ReportFile
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
		cfg.SaveToDB = true
	}

	return nil
}
