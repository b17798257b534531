package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".waybackcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Defaults holds settings from the configuration file that override the
// built-in defaults but are themselves overridden by CLI flags.
type Defaults struct {
	// SnapshotsDir overrides the snapshot output root.
	SnapshotsDir string `yaml:"snapshotsDir,omitempty"`

	// StatsDir overrides the stats output root.
	StatsDir string `yaml:"statsDir,omitempty"`

	// UserAgent overrides the User-Agent header for all requests.
	UserAgent string `yaml:"userAgent,omitempty"`

	// FetchRateCalls/FetchRatePeriod override the content-fetch limiter.
	FetchRateCalls  int           `yaml:"fetchRateCalls,omitempty"`
	FetchRatePeriod time.Duration `yaml:"fetchRatePeriod,omitempty"`

	// IndexRateCalls/IndexRatePeriod override the index-query limiter.
	IndexRateCalls  int           `yaml:"indexRateCalls,omitempty"`
	IndexRatePeriod time.Duration `yaml:"indexRatePeriod,omitempty"`
}

// File represents the structure of the .waybackcrawl configuration file.
type File struct {
	// Defaults apply to the whole crawl unless overridden by CLI flags.
	Defaults Defaults `yaml:"defaults,omitempty"`
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this error based on whether the path was explicitly specified.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .waybackcrawl in the current directory
// 3. Look for .waybackcrawl in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check home directory
	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies the file-level defaults into cfg. Only non-zero values are
// applied, so unset YAML fields keep the built-in defaults.
func (cf *File) Apply(cfg *Config) {
	d := cf.Defaults
	if d.SnapshotsDir != "" {
		cfg.SnapshotsDir = d.SnapshotsDir
	}
	if d.StatsDir != "" {
		cfg.StatsDir = d.StatsDir
	}
	if d.UserAgent != "" {
		cfg.UserAgent = d.UserAgent
	}
	if d.FetchRateCalls > 0 {
		cfg.FetchRateCalls = d.FetchRateCalls
	}
	if d.FetchRatePeriod > 0 {
		cfg.FetchRatePeriod = d.FetchRatePeriod
	}
	if d.IndexRateCalls > 0 {
		cfg.IndexRateCalls = d.IndexRateCalls
	}
	if d.IndexRatePeriod > 0 {
		cfg.IndexRatePeriod = d.IndexRatePeriod
	}
}
