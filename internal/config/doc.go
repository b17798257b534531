// Package config provides configuration structures and utilities for waybackcrawl.
// It defines the crawl options (date range, frequency, worker count), the
// Wayback Machine endpoint constants, and the optional YAML configuration file.
package config
