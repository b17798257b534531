// Package storage persists crawl output to the filesystem: one directory of
// snapshot HTML files per sanitized URL under the snapshots root, and one
// stats JSON file per sanitized URL under the stats root.
package storage
