package crawler

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// FailureLog is the shared failure registry. Workers record failures
// concurrently; the registry deduplicates them under a mutex and hands each
// new record to a single drain goroutine that appends it to the failure log
// file. Funneling all file writes through one goroutine keeps the log free
// of interleaved lines without per-write locking at the call sites.
type FailureLog struct {
	// mu guards records and seen. Multiple workers can fail concurrently,
	// so the read-modify-write on the set must be atomic.
	mu      sync.Mutex
	records []model.FailureRecord
	seen    map[model.FailureRecord]struct{}

	// ch feeds the drain goroutine; nil when no log file is configured.
	ch   chan model.FailureRecord
	done chan struct{}
	file *os.File

	logger *slog.Logger
}

// NewFailureLog creates a FailureLog appending to the file at path.
// An empty path disables file persistence; failures are still collected
// in memory. Call Close to flush and stop the drain goroutine.
func NewFailureLog(path string, logger *slog.Logger) (*FailureLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := &FailureLog{
		seen:   make(map[model.FailureRecord]struct{}),
		logger: logger,
	}

	if path == "" {
		return f, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) //nolint:gosec // User-provided log path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open failure log: %w", err)
	}

	f.file = file
	f.ch = make(chan model.FailureRecord, 64)
	f.done = make(chan struct{})
	go f.drain()

	return f, nil
}

// drain appends failure lines to the log file until the channel closes.
func (f *FailureLog) drain() {
	defer close(f.done)
	for rec := range f.ch {
		if _, err := fmt.Fprintln(f.file, rec.String()); err != nil {
			f.logger.Error("failed to write failure log", "error", err)
		}
	}
}

// Record adds a failure to the registry. Duplicate (URL, message) pairs are
// recorded once. Safe for concurrent use.
func (f *FailureLog) Record(url string, cause error) {
	rec := model.FailureRecord{URL: url, Message: cause.Error()}

	f.mu.Lock()
	if _, dup := f.seen[rec]; dup {
		f.mu.Unlock()
		return
	}
	f.seen[rec] = struct{}{}
	f.records = append(f.records, rec)
	f.mu.Unlock()

	f.logger.Error("recorded failure", "url", url, "error", cause)

	if f.ch != nil {
		f.ch <- rec
	}
}

// Records returns a copy of the collected failures in recording order.
func (f *FailureLog) Records() []model.FailureRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.FailureRecord, len(f.records))
	copy(out, f.records)
	return out
}

// Len returns the number of collected failures.
func (f *FailureLog) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Close stops the drain goroutine after it has written every recorded
// failure, then closes the log file. Record must not be called after Close.
func (f *FailureLog) Close() error {
	if f.ch == nil {
		return nil
	}
	close(f.ch)
	<-f.done
	return f.file.Close()
}
