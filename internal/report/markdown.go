package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/waybackcrawl/waybackcrawl/internal/model"
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

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with batch information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Waybackcrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Date Range", report.StartDate.Format("2006-01-02") + " to " + report.EndDate.Format("2006-01-02")},
			{"Frequency", report.Frequency},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed.String()},
		},
	})
	md.PlainText("")
}

// writeSummary writes the batch totals section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	var skipped, failed int
	for _, u := range report.URLs {
		if u.SkippedExisting {
			skipped++
		}
		if u.Failed {
			failed++
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"URLs", strconv.Itoa(len(report.URLs))},
			{"Snapshots saved", strconv.Itoa(report.TotalSnapshots)},
			{"URLs skipped", strconv.Itoa(skipped)},
			{"URLs failed", strconv.Itoa(failed)},
			{"Failures recorded", strconv.Itoa(report.TotalFailures)},
		},
	})
	md.PlainText("")

	switch {
	case failed > 0:
		md.Warningf("%d URL task(s) failed; check the failure log.", failed)
	case report.TotalFailures > 0:
		md.Note(fmt.Sprintf("%d snapshot fetch(es) failed; the affected captures were skipped.", report.TotalFailures))
	default:
		md.Tip("All URL tasks completed without failures.")
	}
	md.PlainText("")
}

// writeResults writes the per-URL results table.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.URLs) == 0 {
		md.PlainText("No URLs processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.URLs))
	for i, u := range report.URLs {
		rows[i] = []string{
			"`" + u.URL + "`",
			strconv.Itoa(u.SnapshotsSaved),
			boolText(u.SkippedExisting),
			boolText(u.StatsComputed),
			w.statusText(u),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Snapshots", "Skipped", "Stats", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText renders a URL task outcome as a table cell.
func (w *MarkdownWriter) statusText(u model.URLReport) string {
	if u.Failed {
		return "failed: " + truncateString(u.Error, 60)
	}
	return "ok"
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by waybackcrawl*")
}

// boolText renders a boolean as a table cell.
func boolText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
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
