package model

import "fmt"

// ChangeStats holds the per-interval rate-of-change counts for one URL.
// It is written once and never updated: the orchestrator skips the counting
// pass entirely when a stats file already exists for the URL.
type ChangeStats struct {
	// URL is the analyzed target.
	URL string `json:"url"`

	// ChangeCounts maps a bucket key (interval start truncated to the crawl
	// frequency) to the number of unique captures in that interval.
	ChangeCounts map[string]int `json:"change_counts"`
}

// NewChangeStats creates empty stats for a URL.
func NewChangeStats(url string) *ChangeStats {
	return &ChangeStats{
		URL:          url,
		ChangeCounts: make(map[string]int),
	}
}

// FailureRecord is one failed URL with its error message. Records from all
// worker tasks are aggregated into a single shared registry.
type FailureRecord struct {
	// URL is the URL whose processing failed. For snapshot fetch failures
	// this is the replay URL, not the crawl target.
	URL string

	// Message is the stringified cause.
	Message string
}

// String formats the record as one failure log line.
func (f FailureRecord) String() string {
	return fmt.Sprintf("%s --> error: %s", f.URL, f.Message)
}
