package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/waybackcrawl/waybackcrawl/internal/cdx"
	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/database"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
	"github.com/waybackcrawl/waybackcrawl/internal/storage"
)

// archiveServer simulates the archive: the CDX search endpoint plus the
// replay endpoint snapshots are fetched from.
type archiveServer struct {
	*httptest.Server

	// indexRows are the data rows returned by every index query.
	indexRows [][]string

	// replayStatus overrides the replay response code per timestamp.
	replayStatus map[string]int

	// countRows is the data row count returned to change-count queries,
	// keyed by the "from" query parameter.
	countRows map[string]int

	indexCalls  atomic.Int64
	replayCalls atomic.Int64
}

func newArchiveServer(t *testing.T) *archiveServer {
	t.Helper()

	s := &archiveServer{
		replayStatus: make(map[string]int),
		countRows:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, config.CDXSearchPath):
			s.serveIndex(w, r)
		case strings.HasPrefix(r.URL.Path, "/web/"):
			s.serveReplay(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *archiveServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	// Change-count queries collapse at day precision; index reads collapse
	// at the job frequency. The monthly jobs in these tests keep the two
	// distinguishable.
	if r.URL.Query().Get("collapse") == config.FrequencyDaily.Collapse() {
		n := s.countRows[r.URL.Query().Get("from")]
		rows := []any{config.CDXFields}
		for i := 0; i < n; i++ {
			rows = append(rows, []string{"20240101000000", "http://example.com/", "text/html", "200", "X"})
		}
		writeJSON(w, rows)
		return
	}

	s.indexCalls.Add(1)
	rows := []any{config.CDXFields}
	for _, row := range s.indexRows {
		rows = append(rows, row)
	}
	if len(s.indexRows) == 0 {
		rows = []any{}
	}
	writeJSON(w, rows)
}

func (s *archiveServer) serveReplay(w http.ResponseWriter, r *http.Request) {
	s.replayCalls.Add(1)
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/web/"), "/", 2)
	ts := parts[0]
	if status, ok := s.replayStatus[ts]; ok {
		w.WriteHeader(status)
		return
	}
	_, _ = w.Write([]byte("<html>capture " + ts + "</html>"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestOrchestrator wires an Orchestrator against the fake archive with
// limiters generous enough to never block.
func newTestOrchestrator(t *testing.T, s *archiveServer, opts ...OrchestratorOption) (*Orchestrator, *storage.Store, *FailureLog) {
	t.Helper()

	indexClient := cdx.NewClient(1000, time.Second)
	fetchClient := cdx.NewClient(1000, time.Second)
	cdxURL := s.URL + config.CDXSearchPath

	store := storage.NewStore(
		filepath.Join(t.TempDir(), "snapshots"),
		filepath.Join(t.TempDir(), "stats"),
	)
	failures, err := NewFailureLog("", discardLogger())
	if err != nil {
		t.Fatalf("NewFailureLog() error = %v", err)
	}
	t.Cleanup(func() { failures.Close() })

	opts = append([]OrchestratorOption{WithWorkers(2), WithLogger(discardLogger())}, opts...)
	o := New(
		cdx.NewIndexReader(indexClient, cdxURL, discardLogger()),
		cdx.NewSnapshotFetcher(fetchClient, s.URL),
		cdx.NewChangeCounter(fetchClient, cdxURL, discardLogger()),
		store,
		failures,
		opts...,
	)
	return o, store, failures
}

func monthlyJob() Job {
	return Job{
		Start:     date(2024, time.January, 1),
		End:       date(2024, time.February, 29),
		Frequency: config.FrequencyMonthly,
	}
}

func TestOrchestratorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("saves one snapshot per index record", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		s.indexRows = [][]string{
			{"20240105000000", "http://example.com/robots.txt", "text/html", "200", "AAA"},
			{"20240210000000", "http://example.com/robots.txt", "text/html", "200", "BBB"},
		}
		o, store, failures := newTestOrchestrator(t, s)

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/robots.txt"}, monthlyJob())
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		if report.TotalSnapshots != 2 {
			t.Errorf("TotalSnapshots = %d, want 2", report.TotalSnapshots)
		}
		if failures.Len() != 0 {
			t.Errorf("failures = %v, want none", failures.Records())
		}

		dir := store.SnapshotDir("http://example.com/robots.txt")
		for _, name := range []string{"20240105000000.html", "20240210000000.html"} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("snapshot %s not written: %v", name, err)
			}
			if !strings.Contains(string(data), "capture") {
				t.Errorf("snapshot %s content = %q", name, data)
			}
		}
	})

	t.Run("skips urls with existing snapshots", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		s.indexRows = [][]string{
			{"20240105000000", "http://example.com/", "text/html", "200", "AAA"},
		}
		o, store, _ := newTestOrchestrator(t, s)

		dir := store.SnapshotDir("http://example.com/")
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "20230101000000.html"), []byte("old"), 0600); err != nil {
			t.Fatal(err)
		}

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, monthlyJob())
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		if !report.URLs[0].SkippedExisting {
			t.Error("SkippedExisting = false, want true")
		}
		if got := s.indexCalls.Load(); got != 0 {
			t.Errorf("index queries = %d, want 0 for a skipped url", got)
		}
		if got := s.replayCalls.Load(); got != 0 {
			t.Errorf("replay fetches = %d, want 0 for a skipped url", got)
		}
	})

	t.Run("suppresses duplicate digests within a bucket", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		s.indexRows = [][]string{
			{"20240105000000", "http://example.com/", "text/html", "200", "SAME"},
			{"20240120000000", "http://example.com/", "text/html", "200", "SAME"},
			{"20240210000000", "http://example.com/", "text/html", "200", "SAME"},
		}
		o, _, _ := newTestOrchestrator(t, s)

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, monthlyJob())
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		// January keeps the first SAME; the second January row is suppressed;
		// February is a new bucket so SAME is kept again.
		if report.TotalSnapshots != 2 {
			t.Errorf("TotalSnapshots = %d, want 2", report.TotalSnapshots)
		}
	})

	t.Run("failed fetch skips one snapshot and records the replay url", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		s.indexRows = [][]string{
			{"20240105000000", "http://example.com/", "text/html", "200", "AAA"},
			{"20240210000000", "http://example.com/", "text/html", "200", "BBB"},
		}
		s.replayStatus["20240105000000"] = http.StatusServiceUnavailable
		o, _, failures := newTestOrchestrator(t, s)

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, monthlyJob())
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		if report.TotalSnapshots != 1 {
			t.Errorf("TotalSnapshots = %d, want 1", report.TotalSnapshots)
		}
		if report.URLs[0].Failed {
			t.Error("URLReport.Failed = true; a skipped snapshot must not fail the task")
		}

		recs := failures.Records()
		if len(recs) != 1 {
			t.Fatalf("failures = %d, want 1", len(recs))
		}
		wantURL := s.URL + "/web/20240105000000/http://example.com/"
		if recs[0].URL != wantURL {
			t.Errorf("failure recorded under %q, want replay url %q", recs[0].URL, wantURL)
		}
	})

	t.Run("empty index saves nothing without failing", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		o, _, failures := newTestOrchestrator(t, s)

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, monthlyJob())
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if report.TotalSnapshots != 0 {
			t.Errorf("TotalSnapshots = %d, want 0", report.TotalSnapshots)
		}
		if report.URLs[0].Failed || failures.Len() != 0 {
			t.Error("empty index must not be a failure")
		}
	})

	t.Run("cancelled context aborts the batch", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		o, _, _ := newTestOrchestrator(t, s)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := o.ProcessBatch(ctx, []string{"http://example.com/"}, monthlyJob())
		if err == nil {
			t.Error("ProcessBatch() error = nil, want context error")
		}
	})
}

func TestOrchestratorChangeCounts(t *testing.T) {
	t.Parallel()

	t.Run("writes per-interval counts", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		s.countRows["20240101"] = 3
		s.countRows["20240201"] = 1
		o, store, _ := newTestOrchestrator(t, s)

		job := monthlyJob()
		job.CountChanges = true

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, job)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if !report.URLs[0].StatsComputed {
			t.Error("StatsComputed = false, want true")
		}

		data, err := os.ReadFile(store.StatsPath("http://example.com/"))
		if err != nil {
			t.Fatalf("stats file not written: %v", err)
		}
		var stats model.ChangeStats
		if err := json.Unmarshal(data, &stats); err != nil {
			t.Fatalf("stats file is not valid JSON: %v", err)
		}
		if stats.URL != "http://example.com/" {
			t.Errorf("stats url = %q", stats.URL)
		}
		if stats.ChangeCounts["2024-01"] != 3 || stats.ChangeCounts["2024-02"] != 1 {
			t.Errorf("ChangeCounts = %v, want 2024-01:3 2024-02:1", stats.ChangeCounts)
		}
	})

	t.Run("skips stats when the file already exists", func(t *testing.T) {
		t.Parallel()

		s := newArchiveServer(t)
		o, store, _ := newTestOrchestrator(t, s)

		stats := model.NewChangeStats("http://example.com/")
		stats.ChangeCounts["2023-12"] = 9
		if _, err := store.SaveStats(stats); err != nil {
			t.Fatal(err)
		}

		job := monthlyJob()
		job.CountChanges = true

		report, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, job)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if report.URLs[0].StatsComputed {
			t.Error("StatsComputed = true, want false for an existing stats file")
		}

		data, err := os.ReadFile(store.StatsPath("http://example.com/"))
		if err != nil {
			t.Fatal(err)
		}
		var got model.ChangeStats
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got.ChangeCounts["2023-12"] != 9 {
			t.Error("existing stats file was overwritten")
		}
	})
}

func TestOrchestratorWithDatabase(t *testing.T) {
	t.Parallel()

	s := newArchiveServer(t)
	s.indexRows = [][]string{
		{"20240105000000", "http://example.com/", "text/html", "200", "AAA"},
	}

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	o, _, _ := newTestOrchestrator(t, s, WithDatabase(db))

	if _, err := o.ProcessBatch(context.Background(), []string{"http://example.com/"}, monthlyJob()); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	count, err := db.CountSnapshots(context.Background(), "http://example.com/")
	if err != nil {
		t.Fatalf("CountSnapshots() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountSnapshots() = %d, want 1", count)
	}
}
