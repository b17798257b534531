package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/waybackcrawl/waybackcrawl/internal/cdx"
	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/database"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
	"github.com/waybackcrawl/waybackcrawl/internal/storage"
)

// Job describes one batch crawl request.
type Job struct {
	// Start and End bound the capture date range (inclusive).
	Start time.Time
	End   time.Time

	// Frequency is the collection granularity for collapsing, deduplication,
	// and change-count intervals.
	Frequency config.Frequency

	// CountChanges enables the per-interval rate-of-change pass.
	CountChanges bool
}

// Orchestrator drives URL tasks. Within one task the stages run strictly in
// sequence (index read, dedup, fetch, persist, stats) because deduplication
// state and stats depend on processing order; across tasks only the two rate
// limiters and the failure registry are shared.
type Orchestrator struct {
	// reader pages through the CDX index (index-query limiter).
	reader *cdx.IndexReader

	// fetcher resolves records into content (content-fetch limiter).
	fetcher *cdx.SnapshotFetcher

	// counter counts unique captures per interval (content-fetch limiter).
	counter *cdx.ChangeCounter

	// store persists snapshots and stats to the filesystem.
	store *storage.Store

	// failures is the shared failure registry.
	failures *FailureLog

	// db optionally records persisted snapshots. Nil disables recording.
	db *database.CrawlDB

	// workers is the fixed worker pool size.
	workers int

	// logger is used for task-level logging.
	logger *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithWorkers sets the worker pool size. Non-positive values are ignored.
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithDatabase enables recording persisted snapshots in the crawl database.
func WithDatabase(db *database.CrawlDB) OrchestratorOption {
	return func(o *Orchestrator) {
		o.db = db
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator. The reader, fetcher, counter, store, and
// failure registry are required; options cover the rest.
func New(
	reader *cdx.IndexReader,
	fetcher *cdx.SnapshotFetcher,
	counter *cdx.ChangeCounter,
	store *storage.Store,
	failures *FailureLog,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		reader:   reader,
		fetcher:  fetcher,
		counter:  counter,
		store:    store,
		failures: failures,
		workers:  config.DefaultWorkers(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	return o
}

// ProcessBatch runs all URL tasks against the fixed worker pool and waits
// for them to complete. Completion order is unspecified. A task failure is
// converted into a FailureRecord and never aborts sibling tasks; the batch
// itself only fails on context cancellation.
func (o *Orchestrator) ProcessBatch(ctx context.Context, urls []string, job Job) (*model.CrawlReport, error) {
	o.logger.Info("starting batch",
		"total_urls", len(urls),
		"workers", o.workers,
		"frequency", job.Frequency,
		"count_changes", job.CountChanges,
	)

	report := model.NewCrawlReport(job.Start, job.End, string(job.Frequency))
	report.URLs = make([]model.URLReport, len(urls))

	var mu sync.Mutex
	var completed int

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			urlReport, err := o.processURL(ctx, url, job)
			if err != nil {
				// Recorded, not propagated: sibling tasks keep running.
				o.failures.Record(url, err)
				urlReport.Failed = true
				urlReport.Error = err.Error()
			}

			mu.Lock()
			report.URLs[i] = urlReport
			completed++
			done := completed
			mu.Unlock()

			o.logger.Info("url processed",
				"url", url,
				"progress", done,
				"total", len(urls),
				"snapshots", urlReport.SnapshotsSaved,
				"failed", urlReport.Failed,
			)
			return nil
		})
	}

	err := g.Wait()

	for _, u := range report.URLs {
		report.TotalSnapshots += u.SnapshotsSaved
	}
	report.TotalFailures = o.failures.Len()
	report.Elapsed = time.Since(report.StartedAt)

	o.logger.Info("batch complete",
		"total_urls", len(urls),
		"total_snapshots", report.TotalSnapshots,
		"total_failures", report.TotalFailures,
		"elapsed", report.Elapsed,
	)

	return report, err
}

// processURL drives one URL through the task state machine:
// CheckExisting -> {SkipSnapshots | FetchAndPersist} ->
// {SkipStats | ComputeStats} -> Done.
func (o *Orchestrator) processURL(ctx context.Context, url string, job Job) (model.URLReport, error) {
	report := model.URLReport{URL: url}

	// A URL is never re-crawled for snapshots once any output exists for it.
	if o.store.HasSnapshots(url) {
		report.SkippedExisting = true
		o.logger.Info("skipping snapshots, output already exists", "url", url)
	} else {
		result, err := o.fetchAndPersist(ctx, url, job)
		report.SnapshotsSaved = len(result.Snapshots)
		if err != nil {
			return report, err
		}
		if len(result.Snapshots) == 0 {
			o.logger.Info("no snapshots available", "url", url)
		}
	}

	if job.CountChanges {
		if o.store.HasStats(url) {
			o.logger.Info("skipping stats, file already exists", "url", url)
		} else {
			if err := o.computeStats(ctx, url, job); err != nil {
				return report, err
			}
			report.StatsComputed = true
		}
	}

	return report, nil
}

// fetchAndPersist streams index records through dedup and fetch, persisting
// each snapshot immediately so partial progress survives a crash. The
// returned result aggregates the captures that were saved, even when an
// error cut the pass short.
func (o *Orchestrator) fetchAndPersist(ctx context.Context, url string, job Job) (*model.CrawlResult, error) {
	dedup := cdx.NewDeduplicator(job.Frequency)
	result := &model.CrawlResult{URL: url, DigestsByBucket: dedup.Seen()}
	sc := o.reader.Scan(cdx.Query{
		URL:      url,
		From:     job.Start,
		To:       job.End,
		Collapse: job.Frequency.Collapse(),
	})

	for sc.Next(ctx) {
		for _, rec := range sc.Records() {
			keep, err := dedup.Keep(rec)
			if err != nil {
				return result, err
			}
			if !keep {
				continue
			}

			snap, err := o.fetcher.Resolve(ctx, rec)
			if err != nil {
				// One failed fetch skips one snapshot, nothing more.
				// The failure is recorded against the replay URL.
				o.failures.Record(failureURL(url, err), err)
				continue
			}

			path, err := o.store.SaveSnapshot(url, snap)
			if err != nil {
				return result, err
			}
			result.Snapshots = append(result.Snapshots, *snap)
			o.logger.Debug("snapshot saved", "url", url, "path", path)

			if o.db != nil {
				record := &database.SnapshotRecord{
					URL:        url,
					Timestamp:  rec.Timestamp,
					Digest:     rec.Digest,
					MimeType:   rec.MimeType,
					StatusCode: rec.StatusCode,
					Path:       path,
				}
				if err := o.db.InsertSnapshot(ctx, record); err != nil {
					o.logger.Error("failed to record snapshot", "url", url, "error", err)
				}
			}
		}
	}
	if err := sc.Err(); err != nil {
		// Pagination stopped early; the snapshots persisted so far stand.
		o.failures.Record(url, err)
	}

	return result, nil
}

// computeStats counts unique captures per sub-interval, sequentially, and
// persists the result once at the end. A failed interval counts as zero.
func (o *Orchestrator) computeStats(ctx context.Context, url string, job Job) error {
	stats := model.NewChangeStats(url)
	for _, interval := range Partition(job.Start, job.End, job.Frequency) {
		n, err := o.counter.Count(ctx, url, interval.From, interval.To)
		if err != nil {
			o.failures.Record(url, err)
		}
		stats.ChangeCounts[interval.Key] = n
	}

	path, err := o.store.SaveStats(stats)
	if err != nil {
		return err
	}
	o.logger.Info("stats saved", "url", url, "path", path)
	return nil
}

// failureURL picks the URL a failure is recorded under: the replay URL for
// fetch errors, the task URL otherwise.
func failureURL(taskURL string, err error) string {
	var fetchErr *cdx.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.URL
	}
	return taskURL
}
