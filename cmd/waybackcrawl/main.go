// Package main provides the entry point for the waybackcrawl CLI.
//
// Waybackcrawl retrieves and saves historical snapshots of web pages from
// the Wayback Machine for temporal analysis, and optionally collects
// rate-of-change statistics per site.
//
// Usage:
//
//	waybackcrawl crawl --start-date 20240101 --end-date 20240630 http://example.com/robots.txt
//	waybackcrawl crawl --input urls.csv --start-date 20240101 --end-date 20240630
//
// See --help for all available options.
package main

// main is the entry point for waybackcrawl.
func main() {
	Execute()
}
