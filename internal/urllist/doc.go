// Package urllist loads crawl targets from CSV or plain text files and
// rewrites them for the requested site type (main page, robots.txt, or
// terms-of-service URL as given).
package urllist
