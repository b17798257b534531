package model

import (
	"fmt"
	"time"
)

// timestampLayout is the 14-digit capture timestamp layout (YYYYMMDDHHMMSS)
// used by the CDX API.
const timestampLayout = "20060102150405"

// IndexRecord is one data row of a CDX index response. Records are transient:
// they are parsed from a response page and consumed immediately by the
// deduplicator and fetcher.
type IndexRecord struct {
	// Timestamp is the 14-digit capture time (YYYYMMDDHHMMSS).
	Timestamp string

	// OriginalURL is the URL that was captured.
	OriginalURL string

	// MimeType is the content type of the capture.
	MimeType string

	// StatusCode is the HTTP status of the capture, as reported by the index.
	// Kept as a string because the index returns "-" for some captures.
	StatusCode string

	// Digest is the content hash of the capture body. Equal digests imply
	// unchanged content.
	Digest string
}

// Time parses the record's 14-digit capture timestamp.
func (r IndexRecord) Time() (time.Time, error) {
	t, err := time.Parse(timestampLayout, r.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed capture timestamp %q: %w", r.Timestamp, err)
	}
	return t, nil
}

// Snapshot is a fully fetched archived capture. It is immutable once
// constructed: the fetcher creates it, the orchestrator hands it to the
// persistence layer, and nothing mutates it in between.
type Snapshot struct {
	// CapturedAt is the capture time parsed from the index record.
	CapturedAt time.Time

	// ArchiveURL is the replay URL the content was fetched from
	// ({base}/web/{timestamp}/{originalURL}).
	ArchiveURL string

	// Content is the raw fetched body.
	Content string
}

// SeenDigests maps a bucket key (capture time truncated to the crawl
// frequency) to the set of content digests already fetched in that bucket.
// One instance exists per URL task and grows monotonically during the pass.
// Invariant: a digest is fetched at most once per bucket.
type SeenDigests map[string]map[string]struct{}

// Add records a digest under the bucket key and reports whether it was
// already present.
func (s SeenDigests) Add(bucket, digest string) bool {
	set, ok := s[bucket]
	if !ok {
		set = make(map[string]struct{})
		s[bucket] = set
	}
	if _, seen := set[digest]; seen {
		return true
	}
	set[digest] = struct{}{}
	return false
}

// CrawlResult is everything produced for one URL in one invocation. Snapshot
// content is persisted as it is fetched; the result carries the captures and
// the deduplication state for reporting.
type CrawlResult struct {
	// URL is the crawled target.
	URL string

	// Snapshots are the fetched captures in index delivery order.
	Snapshots []Snapshot

	// DigestsByBucket is the deduplication state accumulated over the pass.
	DigestsByBucket SeenDigests
}
