// Package report renders batch crawl summaries in text, JSON, and Markdown
// formats for terminal display, file output, and tool integration.
package report
