package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// Store writes snapshots and stats to a filesystem layout keyed by sanitized
// URL. Writes are idempotent at the file level: saving the same capture twice
// overwrites the same path. There is no cleanup of partial output on failure;
// re-runs skip URLs that already have any output.
type Store struct {
	// snapshotsRoot is the directory holding one subdirectory per URL.
	snapshotsRoot string

	// statsRoot is the directory holding one stats JSON file per URL.
	statsRoot string
}

// NewStore creates a Store rooted at the given directories.
// The directories are created lazily on first write, not here, so a crawl
// that saves nothing leaves no empty directories behind.
func NewStore(snapshotsRoot, statsRoot string) *Store {
	return &Store{
		snapshotsRoot: snapshotsRoot,
		statsRoot:     statsRoot,
	}
}

// SanitizeURL maps an arbitrary URL to a filesystem-safe identifier.
// The scheme is dropped, a trailing slash is trimmed, and every remaining
// byte outside [A-Za-z0-9._-] is replaced with an underscore. Each byte maps
// to exactly one output byte, which keeps distinct URLs distinct for the
// expected input set (hostnames and paths).
func SanitizeURL(rawURL string) string {
	s := strings.TrimPrefix(rawURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// SnapshotDir returns the snapshot directory for a URL.
func (s *Store) SnapshotDir(url string) string {
	return filepath.Join(s.snapshotsRoot, SanitizeURL(url))
}

// StatsPath returns the stats file path for a URL.
func (s *Store) StatsPath(url string) string {
	return filepath.Join(s.statsRoot, SanitizeURL(url)+".json")
}

// HasSnapshots reports whether any snapshot output already exists for the
// URL. An existing but empty directory does not count: a crash before the
// first write must not make a re-run skip the URL.
func (s *Store) HasSnapshots(url string) bool {
	entries, err := os.ReadDir(s.SnapshotDir(url))
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// HasStats reports whether a stats file already exists for the URL.
func (s *Store) HasStats(url string) bool {
	_, err := os.Stat(s.StatsPath(url))
	return err == nil
}

// SaveSnapshot writes one snapshot as {timestamp}.html under the URL's
// snapshot directory and returns the written path.
func (s *Store) SaveSnapshot(url string, snap *model.Snapshot) (string, error) {
	dir := s.SnapshotDir(url)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	path := filepath.Join(dir, snap.CapturedAt.Format(config.TimestampLayout)+".html")
	if err := os.WriteFile(path, []byte(snap.Content), 0600); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// SaveStats writes the stats JSON file for a URL and returns the written path.
func (s *Store) SaveStats(stats *model.ChangeStats) (string, error) {
	if err := os.MkdirAll(s.statsRoot, 0750); err != nil {
		return "", fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode stats: %w", err)
	}

	path := s.StatsPath(stats.URL)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write stats: %w", err)
	}
	return path, nil
}
