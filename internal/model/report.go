package model

import "time"

// URLReport summarizes the outcome of one URL task.
type URLReport struct {
	// URL is the crawled target.
	URL string `json:"url"`

	// SnapshotsSaved is the number of snapshots persisted in this run.
	SnapshotsSaved int `json:"snapshots_saved"`

	// SkippedExisting is true when the URL already had persisted snapshots
	// and the fetch pass was skipped.
	SkippedExisting bool `json:"skipped_existing"`

	// StatsComputed is true when a rate-of-change stats file was written.
	StatsComputed bool `json:"stats_computed"`

	// Failed is true when the task itself failed. Individual snapshot fetch
	// failures do not fail the task; they appear in the failure log instead.
	Failed bool `json:"failed"`

	// Error is the task failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// CrawlReport is the batch summary emitted after all URL tasks complete.
type CrawlReport struct {
	// StartDate and EndDate bound the requested capture range.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Frequency is the requested collection granularity.
	Frequency string `json:"frequency"`

	// StartedAt is when the batch began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total batch duration.
	Elapsed time.Duration `json:"elapsed"`

	// URLs holds one entry per target, in submission order.
	URLs []URLReport `json:"urls"`

	// TotalSnapshots is the number of snapshots persisted across all targets.
	TotalSnapshots int `json:"total_snapshots"`

	// TotalFailures is the number of records in the failure registry,
	// including non-fatal snapshot fetch failures.
	TotalFailures int `json:"total_failures"`
}

// NewCrawlReport creates an empty report for a batch over the given range.
func NewCrawlReport(start, end time.Time, frequency string) *CrawlReport {
	return &CrawlReport{
		StartDate: start,
		EndDate:   end,
		Frequency: frequency,
		StartedAt: time.Now(),
	}
}
