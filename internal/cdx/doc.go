// Package cdx talks to the Wayback Machine: it queries the CDX index API
// with pagination, deduplicates index records by content digest per time
// bucket, fetches archived snapshot content, and counts per-interval unique
// captures. All outbound calls go through rate-limited clients.
//
// The CDX API is documented at
// https://github.com/internetarchive/wayback/tree/master/wayback-cdx-server
package cdx
