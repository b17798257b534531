// Package crawler orchestrates the crawl: it drives one URL end-to-end
// (skip-if-exists check, index read, digest deduplication, content fetch,
// persistence, optional change counting) and fans the per-URL tasks out
// across a fixed worker pool. Failures from any stage are aggregated into a
// shared failure registry and never abort sibling tasks.
package crawler
