package cdx

import (
	"context"
	"fmt"

	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// SnapshotFetcher resolves a deduplicated index record into a fully fetched
// snapshot by requesting the capture through the archive's replay URL scheme.
type SnapshotFetcher struct {
	// client performs the content fetches; it carries the content-fetch
	// limiter shared with the change counter.
	client *Client

	// baseURL is the archive base; replay URLs are {base}/web/{ts}/{original}.
	baseURL string
}

// NewSnapshotFetcher creates a SnapshotFetcher against the given archive base.
func NewSnapshotFetcher(client *Client, baseURL string) *SnapshotFetcher {
	return &SnapshotFetcher{
		client:  client,
		baseURL: baseURL,
	}
}

// SnapshotURL builds the replay URL for an index record. The original URL is
// embedded verbatim, not percent-encoded; the replay endpoint expects the raw
// form as the trailing path.
func (f *SnapshotFetcher) SnapshotURL(rec model.IndexRecord) string {
	return fmt.Sprintf("%s/web/%s/%s", f.baseURL, rec.Timestamp, rec.OriginalURL)
}

// Resolve fetches the record's content and constructs a Snapshot.
// A fetch failure returns a *FetchError carrying the replay URL; callers
// treat it as "skip this snapshot", not as fatal for the whole URL task.
func (f *SnapshotFetcher) Resolve(ctx context.Context, rec model.IndexRecord) (*model.Snapshot, error) {
	capturedAt, err := rec.Time()
	if err != nil {
		return nil, err
	}

	snapshotURL := f.SnapshotURL(rec)
	content, _, err := f.client.Fetch(ctx, snapshotURL)
	if err != nil {
		return nil, err
	}

	return &model.Snapshot{
		CapturedAt: capturedAt,
		ArchiveURL: snapshotURL,
		Content:    content,
	}, nil
}
