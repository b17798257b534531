package cdx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestClientFetch verifies body, status, and header propagation.
func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and status on success", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("hello")) //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient(100, time.Second)
		body, status, err := client.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status != http.StatusOK {
			t.Errorf("expected status 200, got %d", status)
		}
		if body != "hello" {
			t.Errorf("expected body 'hello', got %q", body)
		}
	})

	t.Run("sends configured User-Agent and headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotExtra string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotExtra = r.Header.Get("X-Extra")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(100, time.Second,
			WithUserAgent("test-agent/1.0"),
			WithHeaders(map[string]string{"X-Extra": "yes"}),
		)
		if _, _, err := client.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotUA != "test-agent/1.0" {
			t.Errorf("unexpected User-Agent: %s", gotUA)
		}
		if gotExtra != "yes" {
			t.Errorf("unexpected X-Extra header: %s", gotExtra)
		}
	})

	t.Run("non-2xx status returns a FetchError with the status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(100, time.Second)
		_, status, err := client.Fetch(context.Background(), server.URL)
		if err == nil {
			t.Fatal("expected an error for 500 response")
		}
		if status != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", status)
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected StatusCode 500, got %d", fetchErr.StatusCode)
		}
		if fetchErr.URL != server.URL {
			t.Errorf("expected URL %s, got %s", server.URL, fetchErr.URL)
		}
	})

	t.Run("transport error returns a FetchError without status", func(t *testing.T) {
		t.Parallel()

		client := NewClient(100, time.Second)
		_, _, err := client.Fetch(context.Background(), "http://127.0.0.1:1")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fetchErr.StatusCode != 0 {
			t.Errorf("expected zero StatusCode, got %d", fetchErr.StatusCode)
		}
	})

	t.Run("truncates body at the configured limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("0123456789")) //nolint:errcheck
		}))
		defer server.Close()

		client := NewClient(100, time.Second, WithMaxBodySize(4))
		body, _, err := client.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if body != "0123" {
			t.Errorf("expected truncated body '0123', got %q", body)
		}
	})
}

// TestClientRateLimit verifies that callers beyond the ceiling block rather
// than fail, and that waiting respects context cancellation.
func TestClientRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("third call in a 2-per-interval window blocks", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		// 2 calls per 200ms: the first two are burst, the third must wait
		// roughly one token interval (100ms).
		client := NewClient(2, 200*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if _, _, err := client.Fetch(context.Background(), server.URL); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		elapsed := time.Since(start)

		if calls.Load() != 3 {
			t.Fatalf("expected 3 calls, got %d", calls.Load())
		}
		if elapsed < 90*time.Millisecond {
			t.Errorf("expected the third call to be throttled, finished in %v", elapsed)
		}
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		t.Parallel()

		client := NewClient(1, time.Hour)
		// Drain the single burst token.
		client.limiter.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, _, err := client.Fetch(ctx, "http://example.com")
		if err == nil {
			t.Fatal("expected an error when the wait is cancelled")
		}
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
	})
}
