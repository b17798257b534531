package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// TestSanitizeURL verifies scheme stripping and unsafe byte replacement.
func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https scheme is dropped", "https://example.com", "example.com"},
		{"http scheme is dropped", "http://example.com", "example.com"},
		{"trailing slash is trimmed", "http://example.com/", "example.com"},
		{"path separators become underscores", "http://example.com/robots.txt", "example.com_robots.txt"},
		{"query characters become underscores", "http://example.com/a?b=1&c=2", "example.com_a_b_1_c_2"},
		{"safe characters survive", "sub.domain-name_x.org", "sub.domain-name_x.org"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeURL(tt.in); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestStoreHasSnapshots verifies the skip-if-exists predicate.
func TestStoreHasSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("missing directory reports false", func(t *testing.T) {
		t.Parallel()

		store := NewStore(t.TempDir(), t.TempDir())
		if store.HasSnapshots("http://example.com") {
			t.Error("expected false for missing directory")
		}
	})

	t.Run("empty directory reports false", func(t *testing.T) {
		t.Parallel()

		store := NewStore(t.TempDir(), t.TempDir())
		if err := os.MkdirAll(store.SnapshotDir("http://example.com"), 0750); err != nil {
			t.Fatal(err)
		}
		if store.HasSnapshots("http://example.com") {
			t.Error("expected false for empty directory")
		}
	})

	t.Run("directory with a file reports true", func(t *testing.T) {
		t.Parallel()

		store := NewStore(t.TempDir(), t.TempDir())
		snap := &model.Snapshot{
			CapturedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Content:    "<html></html>",
		}
		if _, err := store.SaveSnapshot("http://example.com", snap); err != nil {
			t.Fatal(err)
		}
		if !store.HasSnapshots("http://example.com") {
			t.Error("expected true after saving a snapshot")
		}
	})
}

// TestStoreSaveSnapshot verifies the file name and content of a saved snapshot.
func TestStoreSaveSnapshot(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), t.TempDir())
	snap := &model.Snapshot{
		CapturedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ArchiveURL: "https://web.archive.org/web/20240102030405/http://example.com",
		Content:    "<html>hello</html>",
	}

	path, err := store.SaveSnapshot("http://example.com", snap)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if filepath.Base(path) != "20240102030405.html" {
		t.Errorf("unexpected snapshot file name: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != snap.Content {
		t.Errorf("unexpected content: %s", data)
	}
}

// TestStoreSaveStats verifies the stats JSON shape and HasStats.
func TestStoreSaveStats(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir(), t.TempDir())
	stats := model.NewChangeStats("http://example.com")
	stats.ChangeCounts["2024-01"] = 3
	stats.ChangeCounts["2024-02"] = 0

	if store.HasStats("http://example.com") {
		t.Error("expected no stats before saving")
	}

	path, err := store.SaveStats(stats)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if filepath.Base(path) != "example.com.json" {
		t.Errorf("unexpected stats file name: %s", filepath.Base(path))
	}
	if !store.HasStats("http://example.com") {
		t.Error("expected stats to exist after saving")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		URL          string         `json:"url"`
		ChangeCounts map[string]int `json:"change_counts"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("stats file is not valid JSON: %v", err)
	}
	if decoded.URL != "http://example.com" {
		t.Errorf("unexpected url field: %s", decoded.URL)
	}
	if decoded.ChangeCounts["2024-01"] != 3 {
		t.Errorf("unexpected change count: %d", decoded.ChangeCounts["2024-01"])
	}
}
