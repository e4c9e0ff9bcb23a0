package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/scanherd/scanherd/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.BatchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the batch-level counters in Markdown format.
func (w *MarkdownWriter) WriteSummary(report *model.BatchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with batch information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.BatchReport) {
	md.H1("Scanherd Batch Report")
	md.PlainText("")

	finished := "-"
	duration := "-"
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.Format(timeLayout)
		duration = formatDuration(report.Duration())
	}

	// Basic info table
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", report.StartedAt.Format(timeLayout)},
			{"Finished", finished},
			{"Duration", duration},
			{"Identities", strconv.Itoa(report.Total) + " loaded, " + strconv.Itoa(report.Processed) + " processed"},
			{"Proxies Used", strconv.Itoa(report.ProxiesUsed)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.BatchReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the outcome summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.BatchReport) {
	md.H2("Outcome Summary")
	md.PlainText("")

	// Summary table
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ Verified", strconv.Itoa(report.Succeeded)},
			{"⏭️ Skipped", strconv.Itoa(report.Skipped)},
			{"❓ Unverified", strconv.Itoa(report.Unverified)},
			{"❌ Failed", strconv.Itoa(report.Failed)},
			{"**Success Rate**", "**" + formatRate(report.SuccessRate()) + "**"},
		},
	})
	md.PlainText("")

	// Add pie chart if anything was processed
	if report.Processed > 0 {
		w.writePieChart(md, report)
	}

	// Add alert based on the outcome mix
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the outcome distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.BatchReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)

	if report.Succeeded > 0 {
		chart.LabelAndIntValue("Verified", uint64(report.Succeeded))
	}
	if report.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(report.Skipped))
	}
	if report.Unverified > 0 {
		chart.LabelAndIntValue("Unverified", uint64(report.Unverified))
	}
	if report.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on the outcome counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.BatchReport) {
	switch {
	case report.Failed > 0:
		md.Cautionf(
			"%d of %d identities failed. Check the error details below and the identity history.",
			report.Failed, report.Processed,
		)
	case report.Unverified > 0:
		md.Warningf(
			"%d check-in(s) were submitted but could not be verified. The next run will retry them.",
			report.Unverified,
		)
	case report.Interrupted:
		md.Importantf(
			"Batch was interrupted after %d of %d identities. The remainder were not attempted.",
			report.Processed, report.Total,
		)
	case report.Processed == 0:
		md.Note("No identities were processed.")
	default:
		md.Tip("Every identity checked in or was already credited.")
	}
	md.PlainText("")
}

// writeResults writes the per-identity results section.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.BatchReport) {
	md.H2("Identity Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No identities were processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i := range report.Results {
		res := &report.Results[i]

		confirmedBy := res.VerifiedBy
		if confirmedBy == "" {
			confirmedBy = "-"
		}

		rows[i] = []string{
			"`" + res.Fingerprint + "`",
			w.getOutcomeLabel(res.Outcome),
			formatTransition(res),
			confirmedBy,
			truncateString(res.ProxyUsed, 40),
			formatDuration(res.Duration),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Identity", "Outcome", "Points", "Confirmed By", "Route", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	// Add collapsible error details for problem identities
	for i := range report.Results {
		res := &report.Results[i]
		if res.Error != "" {
			detail := res.Error
			if res.ErrorClass != "" {
				detail += " [" + res.ErrorClass + "]"
			}
			md.Details("Error: "+res.Fingerprint+" at "+res.FinalState, detail)
		}
		if res.SuppressedError != "" {
			md.Details("Suppressed submission error: "+res.Fingerprint, res.SuppressedError)
		}
	}
	md.PlainText("")
}

// getOutcomeLabel returns the display label for an outcome.
func (w *MarkdownWriter) getOutcomeLabel(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeVerified:
		return "✅ Verified"
	case model.OutcomeSkipped:
		return "⏭️ Skipped"
	case model.OutcomeUnverified:
		return "❓ Unverified"
	case model.OutcomeFailed:
		return "❌ Failed"
	default:
		return outcome.String()
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scanherd](https://github.com/scanherd/scanherd)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
