package cdx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSnapshotFetcherURL verifies the replay URL scheme.
func TestSnapshotFetcherURL(t *testing.T) {
	t.Parallel()

	fetcher := NewSnapshotFetcher(testClient(), "https://web.archive.org")
	rec := record("20240102030405", "d1")

	want := "https://web.archive.org/web/20240102030405/http://a.com"
	if got := fetcher.SnapshotURL(rec); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestSnapshotFetcherResolve verifies content fetching and failure handling.
func TestSnapshotFetcherResolve(t *testing.T) {
	t.Parallel()

	t.Run("returns a snapshot with capture time and content", func(t *testing.T) {
		t.Parallel()

		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte("<html>archived</html>")) //nolint:errcheck
		}))
		defer server.Close()

		fetcher := NewSnapshotFetcher(testClient(), server.URL)
		snap, err := fetcher.Resolve(context.Background(), record("20240102030405", "d1"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotPath != "/web/20240102030405/http://a.com" {
			t.Errorf("unexpected request path: %s", gotPath)
		}
		want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		if !snap.CapturedAt.Equal(want) {
			t.Errorf("unexpected capture time: %v", snap.CapturedAt)
		}
		if snap.Content != "<html>archived</html>" {
			t.Errorf("unexpected content: %q", snap.Content)
		}
	})

	t.Run("HTTP 500 returns a FetchError carrying the replay URL", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "replay error", http.StatusInternalServerError)
		}))
		defer server.Close()

		fetcher := NewSnapshotFetcher(testClient(), server.URL)
		snap, err := fetcher.Resolve(context.Background(), record("20240102030405", "d1"))
		if snap != nil {
			t.Error("expected no snapshot on failure")
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.URL != server.URL+"/web/20240102030405/http://a.com" {
			t.Errorf("unexpected failure URL: %s", fetchErr.URL)
		}
	})

	t.Run("malformed timestamp fails before any request", func(t *testing.T) {
		t.Parallel()

		fetcher := NewSnapshotFetcher(testClient(), "http://127.0.0.1:1")
		if _, err := fetcher.Resolve(context.Background(), record("bogus", "d1")); err == nil {
			t.Error("expected an error for malformed timestamp")
		}
	})
}
