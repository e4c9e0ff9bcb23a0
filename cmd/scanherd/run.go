package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/scanherd/scanherd/internal/config"
	"github.com/scanherd/scanherd/internal/database"
	"github.com/scanherd/scanherd/internal/log"
	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/proxy"
	"github.com/scanherd/scanherd/internal/report"
	"github.com/scanherd/scanherd/internal/transport"
	"github.com/scanherd/scanherd/internal/workflow"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one check-in batch over the credential list",
		Long: `Run executes the daily check-in workflow for every identity in the
credential list, strictly one identity at a time.

Each identity is routed over its assigned proxy (round-robin from the
proxy list when one is present), walked through tracking registration,
status check, session priming, scan submission, and verification, and
reported with a terminal outcome. One identity failing never stops the
batch.

Examples:
  # Run one batch with wallets.txt and proxies.txt from the current directory
  scanherd run

  # Re-scan even for identities whose daily check-in is already credited
  scanherd run --force

  # Keep running, one batch every 25 hours, until interrupted
  scanherd run --loop

  # Write a Markdown report to a file; the terminal still gets a summary
  scanherd run --markdown --output reports/today.md

  # Use a custom configuration file
  scanherd run -c staging.yaml

Configuration file (scanherd.yaml) example:
  baseURL: "https://api.scanherd.dev"
  walletsFile: "wallets.txt"
  identityDelay: 12s
  reportFormat: markdown`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	// Input files
	cmd.Flags().StringP("wallets", "w", config.DefaultWalletsFile,
		"Credential list file (one address:secret per line)")
	cmd.Flags().StringP("proxies", "p", config.DefaultProxiesFile,
		"Proxy list file (if the default file is missing, identities connect directly)")

	// Platform and transport flags
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Platform API base URL")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("connect-timeout", config.DefaultConnectTimeout,
		"Timeout for dialing through a proxy")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxAttempts,
		"Retries per request after the initial attempt (0 disables retrying)")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryBaseDelay,
		"Base delay between retry attempts")

	// Workflow pacing flags
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Wait between submitting the action and verifying it")
	cmd.Flags().DurationP("delay", "d", config.DefaultIdentityDelay,
		"Base pause between identities (jittered at runtime)")

	// Behavior flags
	cmd.Flags().BoolP("force", "f", false,
		"Submit the scan action even when the daily check-in is already credited")
	cmd.Flags().Bool("probe-egress", false,
		"Probe each identity's public egress IP before the batch (diagnostic)")
	cmd.Flags().BoolP("loop", "l", false,
		"Rerun the batch on a fixed interval until interrupted")
	cmd.Flags().Duration("interval", config.DefaultLoopInterval,
		"Interval between batches in loop mode")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: scanherd.yaml in current or XDG config directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to the specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data dir)")
	cmd.Flags().Bool("no-history", false,
		"Do not record batch outcomes in the history database")

	// Logging
	cmd.Flags().Bool("log-json", false,
		"Emit logs as JSON instead of text")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals. Cancellation stops the batch before the
	// next identity and before any pending loop reschedule; in-flight
	// requests finish or hit their own timeout.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runBatches(ctx, cfg)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildRunConfig assembles the effective configuration: defaults first,
// then the optional YAML file, then explicitly set flags. A flag left at
// its default never clobbers a file value.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ProxiesFile = config.DefaultProxiesFile

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named config file must exist; the default search may
	// come up empty.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	proxiesFromFile := false

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
		proxiesFromFile = file.ProxiesFile != ""
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := applyRunFlags(cmd, cfg); err != nil {
		return nil, err
	}

	// A proxy list asked for by name must exist; loading will fail if it
	// does not. The default proxies.txt is optional: when absent, the
	// batch runs with direct connections.
	explicitProxies := proxiesFromFile || cmd.Flags().Changed("proxies")
	if !explicitProxies {
		if _, err := os.Stat(cfg.ProxiesFile); err != nil {
			cfg.ProxiesFile = ""
		}
	}

	cfg.Verbose = cfg.Verbose || getVerboseFlag(cmd)

	return cfg, nil
}

// applyRunFlags copies flag values the user explicitly set onto the
// config. Unset flags are skipped so file values survive.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("wallets") {
		if cfg.WalletsFile, err = flags.GetString("wallets"); err != nil {
			return err
		}
	}
	if flags.Changed("proxies") {
		if cfg.ProxiesFile, err = flags.GetString("proxies"); err != nil {
			return err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("connect-timeout") {
		if cfg.ConnectTimeout, err = flags.GetDuration("connect-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("retries") {
		if cfg.MaxAttempts, err = flags.GetInt("retries"); err != nil {
			return err
		}
	}
	if flags.Changed("retry-delay") {
		if cfg.RetryBaseDelay, err = flags.GetDuration("retry-delay"); err != nil {
			return err
		}
	}
	if flags.Changed("settle-delay") {
		if cfg.SettleDelay, err = flags.GetDuration("settle-delay"); err != nil {
			return err
		}
	}
	if flags.Changed("delay") {
		if cfg.IdentityDelay, err = flags.GetDuration("delay"); err != nil {
			return err
		}
	}
	if flags.Changed("force") {
		if cfg.Force, err = flags.GetBool("force"); err != nil {
			return err
		}
	}
	if flags.Changed("probe-egress") {
		if cfg.ProbeEgress, err = flags.GetBool("probe-egress"); err != nil {
			return err
		}
	}
	if flags.Changed("loop") {
		if cfg.Loop, err = flags.GetBool("loop"); err != nil {
			return err
		}
	}
	if flags.Changed("interval") {
		if cfg.LoopInterval, err = flags.GetDuration("interval"); err != nil {
			return err
		}
	}
	if flags.Changed("json") {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return err
		}
	}
	if flags.Changed("markdown") {
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return err
		}
	}
	if flags.Changed("output") {
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return err
		}
		cfg.SaveToDB = true
	}
	// Checked after db-dir so an explicit opt-out always wins.
	if flags.Changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return err
		}
		cfg.SaveToDB = !noHistory
	}
	if flags.Changed("log-json") {
		if cfg.JSONLogs, err = flags.GetBool("log-json"); err != nil {
			return err
		}
	}

	return nil
}

// newRunLogger builds the batch logger: level from the verbose setting,
// secret masking, and per-identity de-duplication. Loop cycles call this
// again so every batch starts with an empty suppression window.
func newRunLogger(cfg *config.Config) *slog.Logger {
	if cfg.JSONLogs {
		return log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	}
	return log.NewSecureLogger(os.Stderr, cfg.Verbose)
}

// runBatches executes batches until done: once in normal mode, on a
// fixed interval in loop mode. A failed cycle in loop mode is logged and
// the loop keeps going; a scheduler that dies overnight misses the next
// day's check-in, which is the one job it has.
func runBatches(ctx context.Context, cfg *config.Config) error {
	for {
		if err := runBatchOnce(ctx, cfg); err != nil {
			if !cfg.Loop {
				return err
			}
			slog.Error("batch cycle failed", "error", err)
		}

		if !cfg.Loop {
			return nil
		}

		slog.Info("next batch scheduled", "interval", cfg.LoopInterval.String())
		timer := time.NewTimer(cfg.LoopInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// runBatchOnce loads inputs, runs one batch, and emits the report and
// history record. Inputs are reloaded every cycle so a looping scheduler
// picks up credential and proxy list edits without a restart.
func runBatchOnce(ctx context.Context, cfg *config.Config) error {
	// A fresh logger per cycle resets the de-duplication window: a
	// message suppressed yesterday must surface again today.
	logger := newRunLogger(cfg)
	slog.SetDefault(logger)

	identities, err := config.LoadIdentities(cfg.WalletsFile)
	if err != nil {
		return fmt.Errorf("failed to load credentials from %s: %w", cfg.WalletsFile, err)
	}

	var proxies []string
	if cfg.ProxiesFile != "" {
		proxies, err = config.LoadProxyStrings(cfg.ProxiesFile)
		if err != nil {
			return fmt.Errorf("failed to load proxy list from %s: %w", cfg.ProxiesFile, err)
		}
	}

	logger.Info("starting batch",
		"identities", len(identities),
		"proxies", len(proxies),
		"force", cfg.Force,
	)

	// Open the history database before the batch so a misconfigured
	// database directory fails fast instead of after an hour of scans.
	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
	}

	batch := workflow.NewBatch(cfg.BaseURL, batchOptions(cfg, logger, proxies)...)
	batchReport := batch.Run(ctx, identities)

	if err := outputReport(cfg, batchReport); err != nil {
		logger.Error("report output failed", "error", err)
	}

	if err := recordBatch(ctx, db, batchReport, logger); err != nil {
		logger.Error("failed to record batch history", "error", err)
	}

	return nil
}

// batchOptions translates the effective configuration into workflow
// batch options.
func batchOptions(cfg *config.Config, logger *slog.Logger, proxies []string) []workflow.BatchOption {
	return []workflow.BatchOption{
		workflow.WithBatchLogger(logger),
		workflow.WithProxies(proxies),
		workflow.WithIdentityDelay(cfg.IdentityDelay),
		workflow.WithEgressProbe(cfg.ProbeEgress),
		workflow.WithTransportOptions(
			transport.WithRequestTimeout(cfg.RequestTimeout),
			transport.WithMaxAttempts(cfg.MaxAttempts),
			transport.WithRetryBaseDelay(cfg.RetryBaseDelay),
		),
		workflow.WithScannerOptions(
			workflow.WithSettleDelay(cfg.SettleDelay),
			workflow.WithForce(cfg.Force),
		),
		workflow.WithAgentOptions(
			proxy.WithConnectTimeout(cfg.ConnectTimeout),
			proxy.WithRequestTimeout(cfg.RequestTimeout),
		),
	}
}

// outputReport emits the batch report in the configured format.
func outputReport(cfg *config.Config, batchReport *model.BatchReport) error {
	// Determine output destination
	var output *os.File
	toFile := cfg.ReportFile != ""
	if toFile {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the report file with secure permissions (0600).
		// Reports carry fingerprints, proxy routes, and egress addresses
		// that should only be readable by the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	if _, err := newReportWriter(cfg, output).Write(batchReport); err != nil {
		return err
	}

	// A file report still leaves the headline counters on the terminal.
	if toFile {
		if _, err := report.NewSimpleWriter(os.Stdout).WriteSummary(batchReport); err != nil {
			return err
		}
	}

	return nil
}

// newReportWriter picks the report writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// recordBatch persists the batch outcome history. If db is nil, this
// function is a no-op. Recording is detached from batch cancellation so
// an interrupted batch still gets its partial results stored.
func recordBatch(ctx context.Context, db *database.HistoryDB, batchReport *model.BatchReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.RecordBatch(context.WithoutCancel(ctx), batchReport)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	logger.Info("batch recorded", "batchID", id, "database", db.Path())
	return nil
}
