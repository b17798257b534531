package urllist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
)

// ErrNoURLs is returned when the input file yields no usable URLs.
var ErrNoURLs = errors.New("input file contains no URLs")

// ErrNoURLColumn is returned when a CSV file has no recognizable URL column.
var ErrNoURLColumn = errors.New("csv header has no url column")

// Load reads crawl targets from path and rewrites each for the site type.
// Files ending in .csv are parsed as CSV with a header row; anything else is
// treated as plain text with one URL per line. Duplicates produced by the
// rewrite (two pages on one host both mapping to the same robots.txt) are
// dropped, keeping first occurrence order.
func Load(path string, siteType config.SiteType) ([]string, error) {
	var (
		raw []string
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		raw, err = readCSV(path)
	} else {
		raw, err = readText(path)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		rewritten, err := Rewrite(u, siteType)
		if err != nil {
			return nil, fmt.Errorf("bad url %q: %w", u, err)
		}
		if _, dup := seen[rewritten]; dup {
			continue
		}
		seen[rewritten] = struct{}{}
		urls = append(urls, rewritten)
	}

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}

// readText reads one URL per line. Blank lines and lines starting with #
// are skipped.
func readText(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read url list: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

// readCSV reads URLs from the column named "url" (case-insensitive; a
// column merely containing "url", such as "page_url", also matches). When
// no header cell mentions a URL the first column is used, and the header
// row is still skipped.
func readCSV(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open url list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoURLs
	}

	col, err := urlColumn(rows[0])
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[col]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// urlColumn resolves the URL column index from the header row. An exact
// "url" match wins over a substring match.
func urlColumn(header []string) (int, error) {
	substring := -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "url" {
			return i, nil
		}
		if substring < 0 && strings.Contains(name, "url") {
			substring = i
		}
	}
	if substring >= 0 {
		return substring, nil
	}
	if len(header) > 0 {
		return 0, nil
	}
	return 0, ErrNoURLColumn
}

// Rewrite maps one input URL to the target the site type asks for:
// the host's main page, its robots.txt, or (for terms-of-service lists)
// the URL unchanged. Inputs without a scheme are assumed to be http.
func Rewrite(raw string, siteType config.SiteType) (string, error) {
	if siteType == config.SiteTypeTOS {
		return raw, nil
	}

	withScheme := raw
	if !strings.Contains(raw, "://") {
		withScheme = "http://" + raw
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	switch siteType {
	case config.SiteTypeRobots:
		return u.Scheme + "://" + u.Host + "/robots.txt", nil
	case config.SiteTypeMain:
		return u.Scheme + "://" + u.Host + "/", nil
	default:
		return "", fmt.Errorf("unknown site type %q", siteType)
	}
}
