package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scanherd/scanherd/internal/config"
	"github.com/scanherd/scanherd/internal/database"
	"github.com/scanherd/scanherd/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit bounds listings so months of loop mode do not
// scroll the terminal away.
const defaultHistoryLimit = 20

// fingerprintLength is the length of the hex identity tag used in logs,
// reports, and the history database.
const fingerprintLength = 12

// NewHistoryCmd creates the history command.
// This command reads the batch outcomes recorded by 'scanherd run'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [fingerprint]",
		Short: "Inspect recorded batch outcomes",
		Long: `History reads the outcome database written by 'scanherd run'.

Without arguments it lists recent batches with their outcome counters.
With a fingerprint argument (the 12-character identity tag printed in
logs and reports) it follows that identity across batches: outcome,
points movement, and streak per run.

Examples:
  # List recent batches
  scanherd history

  # Show the full stored report for batch 12
  scanherd history --batch 12

  # Show batch 12 as JSON
  scanherd history --batch 12 --json

  # Follow one identity across batches
  scanherd history cafe00000001

  # Keep only the newest 30 batches
  scanherd history --prune 30`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Listing flags
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of rows to list")

	// Selection flags
	cmd.Flags().Int64P("batch", "b", 0,
		"Show the full stored report for a batch ID (list batches to see IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the selected batch report in JSON format")

	// Retention
	cmd.Flags().Int("prune", 0,
		"Delete all but the newest N batches")

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data dir)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	// Validate the fingerprint argument before opening the database
	var fingerprint string
	if len(args) == 1 {
		fingerprint = strings.ToLower(strings.TrimSpace(args[0]))
		if !isFingerprint(fingerprint) {
			return fmt.Errorf("invalid fingerprint %q (want the %d-character hex tag printed in logs and reports)",
				args[0], fingerprintLength)
		}
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Reading never creates the database; without one there is nothing
	// to show.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	prune, err := cmd.Flags().GetInt("prune")
	if err != nil {
		return err
	}
	if prune > 0 {
		return pruneHistory(ctx, db, prune)
	}

	batchID, err := cmd.Flags().GetInt64("batch")
	if err != nil {
		return err
	}
	if batchID > 0 {
		jsonOutput, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		return showBatch(ctx, db, batchID, jsonOutput)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	if fingerprint != "" {
		return listIdentityHistory(ctx, db, fingerprint, limit)
	}

	return listRecentBatches(ctx, db, limit)
}

// isFingerprint reports whether s looks like an identity fingerprint:
// exactly twelve lowercase hex characters.
func isFingerprint(s string) bool {
	if len(s) != fingerprintLength {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// listRecentBatches lists the newest recorded batches.
func listRecentBatches(ctx context.Context, db *database.HistoryDB, limit int) error {
	batches, err := db.RecentBatches(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	if len(batches) == 0 {
		fmt.Println("No batches recorded yet.")
		fmt.Println("\nUse 'scanherd run' to execute a batch.")
		return nil
	}

	fmt.Printf("Recent batches (%d):\n\n", len(batches))
	fmt.Printf("  %-6s  %-20s  %-20s  %-10s  %s\n", "ID", "Started", "Outcomes", "Duration", "Status")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, batch := range batches {
		fmt.Printf("  %-6d  %-20s  %-20s  %-10s  %s\n",
			batch.ID,
			batch.StartedAt.Format("2006-01-02 15:04:05"),
			formatBatchCounters(batch),
			formatBatchDuration(batch),
			formatBatchStatus(batch),
		)
	}

	fmt.Println("\nUse 'scanherd history --batch <id>' to see the full report for a batch.")
	fmt.Println("Use 'scanherd history <fingerprint>' to follow one identity across batches.")

	return nil
}

// formatBatchCounters renders a batch's outcome counters in compact form.
func formatBatchCounters(batch database.BatchRecord) string {
	var parts []string
	if batch.Succeeded > 0 {
		parts = append(parts, fmt.Sprintf("V:%d", batch.Succeeded))
	}
	if batch.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("S:%d", batch.Skipped))
	}
	if batch.Unverified > 0 {
		parts = append(parts, fmt.Sprintf("U:%d", batch.Unverified))
	}
	if batch.Failed > 0 {
		parts = append(parts, fmt.Sprintf("F:%d", batch.Failed))
	}

	if len(parts) == 0 {
		return "none processed"
	}
	return strings.Join(parts, " ")
}

// formatBatchDuration renders a batch's wall-clock duration.
func formatBatchDuration(batch database.BatchRecord) string {
	if batch.FinishedAt.IsZero() {
		return "-"
	}
	return batch.FinishedAt.Sub(batch.StartedAt).Round(time.Second).String()
}

// formatBatchStatus renders a batch's completion status.
func formatBatchStatus(batch database.BatchRecord) string {
	if batch.Interrupted {
		return fmt.Sprintf("interrupted (%d/%d)", batch.Processed, batch.Total)
	}
	return fmt.Sprintf("complete (%d/%d)", batch.Processed, batch.Total)
}

// showBatch renders the full stored report for one batch.
func showBatch(ctx context.Context, db *database.HistoryDB, batchID int64, jsonOutput bool) error {
	batchReport, err := db.LoadBatchReport(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %d: %w", batchID, err)
	}
	if batchReport == nil {
		return fmt.Errorf("batch %d not found (list batches to see available IDs)", batchID)
	}

	var writer report.Writer
	if jsonOutput {
		writer = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	} else {
		// Stored reports are shown with full detail; the operator asked
		// for this batch specifically.
		writer = report.NewSimpleWriter(os.Stdout, report.WithVerbose(true))
	}

	_, err = writer.Write(batchReport)
	return err
}

// listIdentityHistory follows one identity's outcomes across batches,
// newest first.
func listIdentityHistory(ctx context.Context, db *database.HistoryDB, fingerprint string, limit int) error {
	outcomes, err := db.IdentityHistory(ctx, fingerprint, limit)
	if err != nil {
		return fmt.Errorf("failed to load identity history: %w", err)
	}

	if len(outcomes) == 0 {
		fmt.Printf("No recorded outcomes for %s\n", fingerprint)
		fmt.Println("\nFingerprints appear in batch reports and logs after 'scanherd run'.")
		return nil
	}

	fmt.Printf("Outcome history for %s (%d runs):\n\n", fingerprint, len(outcomes))
	fmt.Printf("  %-20s  %-12s  %-18s  %-7s  %s\n", "Started", "Outcome", "Points", "Streak", "Batch")
	fmt.Println("  " + strings.Repeat("-", 70))

	for _, outcome := range outcomes {
		fmt.Printf("  %-20s  %-12s  %-18s  %-7d  %d\n",
			outcome.StartedAt.Format("2006-01-02 15:04:05"),
			outcome.Outcome.String(),
			formatPointsChange(outcome.PointsBefore, outcome.PointsAfter),
			outcome.ScanStreak,
			outcome.BatchID,
		)
		if outcome.Error != "" {
			fmt.Printf("      at %s: %s\n", outcome.FinalState, outcome.Error)
		}
	}

	fmt.Println("\nUse 'scanherd history --batch <id>' to see the batch a run belonged to.")

	return nil
}

// formatPointsChange renders the points movement of one run.
func formatPointsChange(before, after *float64) string {
	switch {
	case before == nil && after == nil:
		return "-"
	case after == nil:
		return formatPointsValue(*before)
	case before == nil:
		return formatPointsValue(*after)
	default:
		return formatPointsValue(*before) + " -> " + formatPointsValue(*after)
	}
}

// formatPointsValue renders a score without trailing zeros.
func formatPointsValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// pruneHistory deletes all but the newest keep batches.
func pruneHistory(ctx context.Context, db *database.HistoryDB, keep int) error {
	removed, err := db.PruneBatches(ctx, keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	if removed == 0 {
		fmt.Printf("Nothing to prune (%d or fewer batches recorded).\n", keep)
		return nil
	}

	fmt.Printf("Pruned %d batches, kept the newest %d.\n", removed, keep)
	return nil
}
