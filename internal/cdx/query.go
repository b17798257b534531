package cdx

import (
	"net/url"
	"strings"
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
)

// Query describes one CDX index search.
type Query struct {
	// URL is the target whose captures are requested.
	URL string

	// From and To bound the capture date range (inclusive).
	From time.Time
	To   time.Time

	// Collapse is the timestamp-precision collapse filter asking the index
	// to pre-deduplicate captures before returning them.
	Collapse string
}

// buildQueryURL assembles the CDX request URL. The filter parameter is
// repeated, once per exclusion; url.Values encodes repeated keys correctly,
// which a naive single-valued map would not.
func buildQueryURL(baseURL string, q Query) string {
	v := url.Values{}
	v.Set("url", q.URL)
	v.Set("output", "json")
	v.Set("from", q.From.Format(config.DateLayout))
	v.Set("to", q.To.Format(config.DateLayout))
	v.Set("collapse", q.Collapse)
	v.Set("fl", strings.Join(config.CDXFields, ","))
	for _, f := range config.CDXFilters {
		v.Add("filter", f)
	}
	return baseURL + "?" + v.Encode()
}
