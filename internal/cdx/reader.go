package cdx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// IndexReader issues paginated CDX queries and yields index records.
// Iteration is finite and not restartable: calling Scan again issues fresh
// network calls.
type IndexReader struct {
	// client performs the index queries; it carries the index-query limiter,
	// which is distinct from the content-fetch limiter.
	client *Client

	// baseURL is the CDX search endpoint.
	baseURL string

	// logger records query failures and malformed responses.
	logger *slog.Logger
}

// NewIndexReader creates an IndexReader against the given CDX endpoint.
func NewIndexReader(client *Client, baseURL string, logger *slog.Logger) *IndexReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexReader{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Scan starts a paginated read and returns a PageScanner over the result
// pages, in the style of bufio.Scanner:
//
//	sc := reader.Scan(query)
//	for sc.Next(ctx) {
//		for _, rec := range sc.Records() { ... }
//	}
//	if err := sc.Err(); err != nil { ... }
//
// Design decision: We expose pages rather than a flat record slice because
// the orchestrator persists snapshots as it goes; buffering an entire
// multi-page index response before the first fetch would delay persistence
// and lose the partial-progress property on a crash.
func (r *IndexReader) Scan(q Query) *PageScanner {
	return &PageScanner{
		reader: r,
		next:   buildQueryURL(r.baseURL, q),
	}
}

// ReadAll collects every record from all pages. On failure it returns the
// records collected so far together with the error.
func (r *IndexReader) ReadAll(ctx context.Context, q Query) ([]model.IndexRecord, error) {
	sc := r.Scan(q)
	var records []model.IndexRecord
	for sc.Next(ctx) {
		records = append(records, sc.Records()...)
	}
	return records, sc.Err()
}

// PageScanner iterates over the pages of one index query. Pagination is
// bounded: iteration ends when a page has no next-page link, when a page
// holds fewer than two rows (header only, or empty), or on the first error.
// Errors end iteration but do not discard records already delivered.
type PageScanner struct {
	reader  *IndexReader
	next    string
	records []model.IndexRecord
	err     error
	done    bool
}

// Next fetches and parses the next page. It returns true when Records holds
// a fresh page of data rows.
func (s *PageScanner) Next(ctx context.Context) bool {
	if s.done || s.err != nil {
		return false
	}
	s.records = nil

	if s.next == "" {
		s.done = true
		return false
	}
	pageURL := s.next
	s.next = ""

	body, _, err := s.reader.client.Fetch(ctx, pageURL)
	if err != nil {
		s.err = err
		s.reader.logger.Error("index query failed", "url", pageURL, "error", err)
		return false
	}

	records, nextPage, err := parsePage([]byte(body))
	if err != nil {
		s.err = err
		s.reader.logger.Error("stopping index pagination", "url", pageURL, "error", err)
		// Rows parsed before the malformed one are still delivered.
		if len(records) > 0 {
			s.records = records
			return true
		}
		return false
	}

	if len(records) == 0 {
		s.done = true
		return false
	}

	s.records = records
	s.next = nextPage
	return true
}

// Records returns the data rows of the current page. Valid until the next
// call to Next.
func (s *PageScanner) Records() []model.IndexRecord {
	return s.records
}

// Err returns the error that ended iteration, or nil if it ended normally.
func (s *PageScanner) Err() error {
	return s.err
}

// parsePage decodes one CDX JSON page. The page is an array whose first
// string-array element is a header naming the columns; column order is not
// guaranteed, so positions are resolved by name before any data row is read.
// An object element carrying next_page_url points at the following page.
// On a malformed row, the rows parsed so far are returned with the error.
func parsePage(data []byte) ([]model.IndexRecord, string, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var (
		records  []model.IndexRecord
		columns  map[string]int
		nextPage string
	)
	for i, raw := range rows {
		var row []string
		if err := json.Unmarshal(raw, &row); err != nil {
			// Not a column row; it may be the pagination object.
			var page struct {
				NextPageURL string `json:"next_page_url"`
			}
			if err := json.Unmarshal(raw, &page); err == nil && page.NextPageURL != "" {
				nextPage = page.NextPageURL
				continue
			}
			return records, nextPage, fmt.Errorf("%w: row %d is neither columns nor a pagination object", ErrMalformedResponse, i)
		}

		if columns == nil {
			var err error
			columns, err = resolveColumns(row)
			if err != nil {
				return nil, nextPage, err
			}
			continue
		}

		rec, err := recordFromRow(row, columns)
		if err != nil {
			return records, nextPage, err
		}
		records = append(records, rec)
	}

	return records, nextPage, nil
}

// resolveColumns maps the header row to column positions and verifies every
// requested field is present.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, field := range config.CDXFields {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: header is missing column %q", ErrMalformedResponse, field)
		}
	}
	return columns, nil
}

// recordFromRow extracts one IndexRecord using the resolved column positions.
func recordFromRow(row []string, columns map[string]int) (model.IndexRecord, error) {
	field := func(name string) (string, error) {
		i := columns[name]
		if i >= len(row) {
			return "", fmt.Errorf("%w: row has no column %q", ErrMalformedResponse, name)
		}
		return row[i], nil
	}

	var rec model.IndexRecord
	var err error
	if rec.Timestamp, err = field("timestamp"); err != nil {
		return model.IndexRecord{}, err
	}
	if rec.OriginalURL, err = field("original"); err != nil {
		return model.IndexRecord{}, err
	}
	if rec.MimeType, err = field("mimetype"); err != nil {
		return model.IndexRecord{}, err
	}
	if rec.StatusCode, err = field("statuscode"); err != nil {
		return model.IndexRecord{}, err
	}
	if rec.Digest, err = field("digest"); err != nil {
		return model.IndexRecord{}, err
	}
	return rec, nil
}
