package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showSkipped controls whether skipped URLs are listed individually.
	showSkipped bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowSkipped configures the writer to list skipped URLs.
func WithShowSkipped(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showSkipped = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeURLs(&sb, report)
	w.writeFailures(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with batch information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       WAYBACKCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Date Range: %s to %s\n",
		report.StartDate.Format("2006-01-02"),
		report.EndDate.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Frequency:  %s\n", report.Frequency))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:    %s\n", report.Elapsed.Round(10*time.Millisecond)))
	sb.WriteString("\n")
}

// writeSummary writes the batch summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	var skipped, failed, withStats int
	for _, u := range report.URLs {
		if u.SkippedExisting {
			skipped++
		}
		if u.Failed {
			failed++
		}
		if u.StatsComputed {
			withStats++
		}
	}

	sb.WriteString(fmt.Sprintf("  URLS:      %d\n", len(report.URLs)))
	sb.WriteString(fmt.Sprintf("  SNAPSHOTS: %d\n", report.TotalSnapshots))
	sb.WriteString(fmt.Sprintf("  SKIPPED:   %d\n", skipped))
	sb.WriteString(fmt.Sprintf("  STATS:     %d\n", withStats))
	sb.WriteString(fmt.Sprintf("  FAILURES:  %d\n", report.TotalFailures))
	if failed > 0 {
		sb.WriteString(fmt.Sprintf("  FAILED URLS: %d\n", failed))
	}
	sb.WriteString("\n")
}

// writeURLs writes the per-URL results section.
func (w *SimpleWriter) writeURLs(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, u := range report.URLs {
		switch {
		case u.Failed:
			sb.WriteString(fmt.Sprintf("  [!] %s\n", u.URL))
			sb.WriteString(fmt.Sprintf("      Error: %s\n", u.Error))
		case u.SkippedExisting:
			if w.showSkipped {
				sb.WriteString(fmt.Sprintf("  [=] %s (already crawled)\n", u.URL))
			}
		default:
			sb.WriteString(fmt.Sprintf("  [+] %s\n", u.URL))
			sb.WriteString(fmt.Sprintf("      Snapshots: %d\n", u.SnapshotsSaved))
		}
		if u.StatsComputed {
			sb.WriteString("      Change counts computed\n")
		}
	}
	sb.WriteString("\n")
}

// writeFailures writes a note pointing at the failure log when failures
// occurred.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if report.TotalFailures == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%d failure(s) recorded; see the failure log for details.\n", report.TotalFailures))
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by waybackcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
