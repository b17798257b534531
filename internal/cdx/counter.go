package cdx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
)

// ChangeCounter counts unique captures of a URL per date interval using
// index rows only; no content is ever fetched. The collapse precision is
// forced to daily regardless of the crawl's overall frequency, because the
// digest-level pre-collapse only groups correctly at day granularity.
type ChangeCounter struct {
	// client performs the count queries; it shares the content-fetch limiter,
	// not the index-pagination one.
	client *Client

	// baseURL is the CDX search endpoint.
	baseURL string

	// logger records failed count queries.
	logger *slog.Logger
}

// NewChangeCounter creates a ChangeCounter against the given CDX endpoint.
func NewChangeCounter(client *Client, baseURL string, logger *slog.Logger) *ChangeCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeCounter{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Count returns the number of unique captures of url in [from, to].
// The count is the row count minus the header row, clamped at zero. The
// header's shape is not verified before subtracting, preserving the
// index-reported count as-is. On error the count is zero and the error is
// returned so the caller can record it; a failed interval means "no data",
// never a fatal condition.
func (c *ChangeCounter) Count(ctx context.Context, url string, from, to time.Time) (int, error) {
	queryURL := buildQueryURL(c.baseURL, Query{
		URL:      url,
		From:     from,
		To:       to,
		Collapse: config.FrequencyDaily.Collapse(),
	})

	body, _, err := c.client.Fetch(ctx, queryURL)
	if err != nil {
		c.logger.Error("change count query failed", "url", url, "error", err)
		return 0, err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		c.logger.Error("change count response unreadable", "url", url, "error", err)
		return 0, err
	}

	if n := len(rows) - 1; n > 0 {
		return n, nil
	}
	return 0, nil
}
