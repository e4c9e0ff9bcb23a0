package report

import (
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/scanherd/scanherd/internal/model"
)

// Writer defines the interface for batch report output.
// Implementations write batch results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the full report, per-identity results included.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.BatchReport) (int, error)

	// WriteSummary outputs only the batch-level counters.
	// This is useful for quick summaries without per-identity details.
	WriteSummary(report *model.BatchReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.BatchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummary outputs the batch summary to all configured Writers.
func (m *MultiWriter) WriteSummary(report *model.BatchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummary(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// timeLayout is the timestamp format used in human-readable output.
const timeLayout = "2006-01-02 15:04:05 MST"

// scorePrinter formats point totals with locale-aware digit grouping.
// Platform scores routinely pass 10,000 and are unreadable without it.
var scorePrinter = message.NewPrinter(language.English)

// formatPoints renders an optional score value, "-" when absent.
func formatPoints(v *float64) string {
	if v == nil {
		return "-"
	}
	return scorePrinter.Sprintf("%v", number.Decimal(*v))
}

// formatTransition renders the before/after score pair of one result.
func formatTransition(res *model.IdentityResult) string {
	if res.PointsBefore == nil && res.PointsAfter == nil {
		return "-"
	}
	if res.PointsAfter == nil {
		return formatPoints(res.PointsBefore)
	}
	return formatPoints(res.PointsBefore) + " -> " + formatPoints(res.PointsAfter)
}

// formatRate renders a [0,1] ratio as a percentage with one decimal.
func formatRate(rate float64) string {
	return scorePrinter.Sprintf("%.1f%%", rate*100)
}

// formatDuration trims a duration to a readable precision.
func formatDuration(d time.Duration) string {
	return d.Round(100 * time.Millisecond).String()
}
