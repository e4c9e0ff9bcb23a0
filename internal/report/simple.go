package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/scanherd/scanherd/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with outcome indicators
// and clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.BatchReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeResults(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs the batch-level counters without per-identity rows.
func (w *SimpleWriter) WriteSummary(report *model.BatchReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with batch information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.BatchReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        SCANHERD BATCH REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:      %s\n", report.StartedAt.Format(timeLayout)))
	if !report.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Finished:     %s\n", report.FinishedAt.Format(timeLayout)))
		sb.WriteString(fmt.Sprintf("Duration:     %s\n", formatDuration(report.Duration())))
	}
	sb.WriteString(fmt.Sprintf("Identities:   %d loaded, %d processed\n", report.Total, report.Processed))
	sb.WriteString(fmt.Sprintf("Proxies Used: %d\n", report.ProxiesUsed))

	if report.Interrupted {
		sb.WriteString("Status:       INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:       Complete\n")
	}

	sb.WriteString("\n")
}

// writeSummary writes the outcome summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.BatchReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("OUTCOME SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  VERIFIED:   %d\n", report.Succeeded))
	sb.WriteString(fmt.Sprintf("  SKIPPED:    %d\n", report.Skipped))
	sb.WriteString(fmt.Sprintf("  UNVERIFIED: %d\n", report.Unverified))
	sb.WriteString(fmt.Sprintf("  FAILED:     %d\n", report.Failed))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  SUCCESS RATE: %s (%d of %d)\n",
		formatRate(report.SuccessRate()), report.Succeeded, report.Processed))
	sb.WriteString("\n")
}

// writeResults writes the per-identity results section.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.BatchReport) {
	if len(report.Results) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("IDENTITY RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Results) == 0 {
		sb.WriteString("  No identities processed\n\n")
		return
	}

	for i := range report.Results {
		w.writeResult(sb, &report.Results[i])
	}
	sb.WriteString("\n")
}

// writeResult writes one identity's outcome with its evidence.
func (w *SimpleWriter) writeResult(sb *strings.Builder, res *model.IdentityResult) {
	indicator := w.getOutcomeIndicator(res.Outcome)
	sb.WriteString(fmt.Sprintf("  [%s] %s  %s\n", indicator, res.Fingerprint, w.describeOutcome(res)))

	if res.PointsBefore != nil || res.PointsAfter != nil {
		sb.WriteString(fmt.Sprintf("      Points:   %s\n", formatTransition(res)))
	}
	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("      Error:    %s", res.Error))
		if res.ErrorClass != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", res.ErrorClass))
		}
		sb.WriteString("\n")
	}
	if res.SuppressedError != "" {
		sb.WriteString(fmt.Sprintf("      Submission error (suppressed): %s\n", res.SuppressedError))
	}

	if w.verbose {
		sb.WriteString(fmt.Sprintf("      Route:    %s\n", res.ProxyUsed))
		if res.EgressIP != "" {
			sb.WriteString(fmt.Sprintf("      Egress:   %s\n", res.EgressIP))
		}
		if res.ScanStreak > 0 {
			sb.WriteString(fmt.Sprintf("      Streak:   %d day(s)\n", res.ScanStreak))
		}
		sb.WriteString(fmt.Sprintf("      Duration: %s\n", formatDuration(res.Duration)))
	}
}

// describeOutcome returns the one-line outcome text for a result.
func (w *SimpleWriter) describeOutcome(res *model.IdentityResult) string {
	switch res.Outcome {
	case model.OutcomeVerified:
		if res.VerifiedBy != "" {
			return fmt.Sprintf("VERIFIED (%s)", res.VerifiedBy)
		}
		return "VERIFIED"
	case model.OutcomeSkipped:
		return "SKIPPED (already credited)"
	case model.OutcomeUnverified:
		return "UNVERIFIED"
	case model.OutcomeFailed:
		return "FAILED at " + res.FinalState
	default:
		return res.Outcome.String()
	}
}

// getOutcomeIndicator returns a visual indicator for the outcome.
func (w *SimpleWriter) getOutcomeIndicator(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeVerified:
		return "+"
	case model.OutcomeSkipped:
		return "="
	case model.OutcomeUnverified:
		return "~"
	case model.OutcomeFailed:
		return "!"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by scanherd\n")
	sb.WriteString("https://github.com/scanherd/scanherd\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
