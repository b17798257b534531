// Package database provides SQLite-based storage for crawl history: which
// snapshots were persisted for which URL, the failures that occurred, and a
// record of each batch run. The filesystem layout in package storage remains
// the source of truth for skip-if-exists decisions; the database is a
// queryable index over it.
package database
