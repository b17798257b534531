// Package model defines the core data structures used throughout waybackcrawl.
//
// This package contains the following main types:
//   - IndexRecord: One row of a CDX index response
//   - Snapshot: A fully fetched archived capture
//   - SeenDigests: Per-bucket digest sets used for deduplication
//   - ChangeStats: Per-interval rate-of-change counts for one URL
//   - FailureRecord: One failed URL with its error message
//   - CrawlReport: The batch summary emitted after a crawl
//
// Design decision: We separate models into their own package to avoid
// circular dependencies. Multiple packages (cdx, crawler, storage, report,
// database) need these types, so centralizing them prevents import cycles.
package model
