package config

import (
	"path/filepath"
	"runtime"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The rate limits and User-Agent strings match what the Wayback Machine
// tolerates in practice; exceeding 2 requests per second tends to trigger
// HTTP 429 responses from web.archive.org.
const (
	// DefaultArchiveBaseURL is the Wayback Machine base URL. Snapshot content
	// is served under {base}/web/{timestamp}/{originalURL}.
	DefaultArchiveBaseURL = "https://web.archive.org"

	// CDXSearchPath is the path of the CDX index query endpoint,
	// relative to the archive base URL.
	CDXSearchPath = "/cdx/search/cdx"

	// DateLayout is the YYYYMMDD layout used by the CDX API's from/to
	// parameters and by the CLI date flags.
	DateLayout = "20060102"

	// TimestampLayout is the 14-digit capture timestamp layout used by
	// CDX records and snapshot file names.
	TimestampLayout = "20060102150405"

	// DefaultRateLimitCalls and DefaultRateLimitPeriod bound outbound calls:
	// at most DefaultRateLimitCalls requests per DefaultRateLimitPeriod.
	// Applied independently to the content-fetch limiter and the
	// index-query limiter.
	DefaultRateLimitCalls  = 2
	DefaultRateLimitPeriod = time.Second

	// DefaultUserAgent identifies waybackcrawl in HTTP requests.
	// A descriptive User-Agent lets archive operators identify crawler traffic.
	DefaultUserAgent = "waybackcrawl/1.0 (+https://github.com/waybackcrawl/waybackcrawl)"

	// DefaultRobotsUserAgent is a desktop browser User-Agent used when
	// crawling archived robots.txt files. Some archived robots.txt captures
	// were recorded against browser requests, and replay behaves more
	// consistently with a browser User-Agent.
	DefaultRobotsUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/124.0.0.0 Safari/537.36"

	// DefaultSnapshotsDir and DefaultStatsDir are the output roots for
	// snapshot HTML files and rate-of-change stats JSON files.
	DefaultSnapshotsDir = "snapshots"
	DefaultStatsDir     = "stats"

	// DefaultFailureLogFile collects one line per failed URL.
	DefaultFailureLogFile = "failed_urls.txt"

	// DefaultLogFile receives the detailed debug log in addition to stderr.
	DefaultLogFile = "waybackcrawl.log"

	// AppName is the application name used for XDG directory paths.
	AppName = "waybackcrawl"
)

// CDXFields is the field list requested from the CDX API, in the order the
// crawler consumes them. The API is free to return columns in any order;
// readers must resolve positions from the header row, not from this slice.
var CDXFields = []string{
	"timestamp",  // when the capture was taken
	"original",   // original URL
	"mimetype",   // content type
	"statuscode", // HTTP status of the capture
	"digest",     // content hash
}

// CDXFilters are the standard exclusion filters sent with every index query:
// drop 404 captures and drop revisit records, which point at previously
// stored content instead of carrying content themselves.
var CDXFilters = []string{
	"!statuscode:404",
	"!mimetype:warc/revisit",
}

// SiteType selects how raw input URLs are turned into crawl targets.
type SiteType string

// Supported site types.
const (
	// SiteTypeTOS crawls the URLs as given (terms-of-service pages).
	SiteTypeTOS SiteType = "tos"

	// SiteTypeRobots crawls {scheme}://{host}/robots.txt for each URL.
	SiteTypeRobots SiteType = "robots"

	// SiteTypeMain crawls the root page {scheme}://{host}/ for each URL.
	SiteTypeMain SiteType = "main"
)

// Valid reports whether the site type is one of the supported values.
func (s SiteType) Valid() bool {
	switch s {
	case SiteTypeTOS, SiteTypeRobots, SiteTypeMain:
		return true
	}
	return false
}

// Config holds all configuration options for waybackcrawl.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// ArchiveBaseURL is the Wayback Machine base URL. Overridable for tests.
	ArchiveBaseURL string

	// CDXBaseURL is the full URL of the CDX index query endpoint.
	// Defaults to ArchiveBaseURL + CDXSearchPath.
	CDXBaseURL string

	// StartDate and EndDate bound the capture date range (inclusive).
	StartDate time.Time
	EndDate   time.Time

	// Frequency controls the collapse precision sent to the CDX API, the
	// digest deduplication bucket, and the change-count sub-interval step.
	Frequency Frequency

	// Workers is the size of the fixed worker pool for URL tasks.
	Workers int

	// CountChanges enables the per-interval rate-of-change counting pass.
	CountChanges bool

	// SiteType selects the target transformation applied to input URLs.
	SiteType SiteType

	// InputPath is an optional CSV or plain text file supplying URLs.
	// Positional arguments take precedence when both are given.
	InputPath string

	// Targets is the final list of URLs to crawl.
	Targets []string

	// SnapshotsDir is the root directory for persisted snapshot HTML files,
	// one subdirectory per sanitized URL.
	SnapshotsDir string

	// StatsDir is the root directory for rate-of-change stats JSON files.
	StatsDir string

	// FailureLogPath is the append-only failure log file.
	FailureLogPath string

	// LogFilePath receives the detailed debug log. Empty disables file logging.
	LogFilePath string

	// FetchRateCalls/FetchRatePeriod bound snapshot content fetches and
	// change-count queries: at most FetchRateCalls per FetchRatePeriod,
	// enforced by a single limiter shared across all workers.
	FetchRateCalls  int
	FetchRatePeriod time.Duration

	// IndexRateCalls/IndexRatePeriod bound CDX index pagination calls with
	// a second, independent limiter.
	IndexRateCalls  int
	IndexRatePeriod time.Duration

	// Timeout is the per-request HTTP timeout. Zero means no timeout: a hung
	// request blocks its worker until the process is interrupted, matching
	// the cooperative model where the rate limiters are the only throttle.
	Timeout time.Duration

	// UserAgent is the User-Agent header for all outbound requests.
	UserAgent string

	// Verbose enables slog.LevelDebug output on stderr.
	Verbose bool

	// JSONReport and MarkdownReport select the crawl summary format.
	// Mutually exclusive; plain text is used when both are false.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the crawl summary to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is the optional YAML configuration file path.
	// If empty, .waybackcrawl is searched in the current and home directories.
	ConfigFilePath string

	// FileConfig holds settings loaded from the configuration file.
	FileConfig *File

	// DBDir is the directory holding the SQLite crawl database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records crawl runs, snapshots, and failures in the database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because most defaults are non-zero (rate limits, directories, frequency).
// The constructor doubles as documentation of the defaults.
func NewConfig() *Config {
	return &Config{
		ArchiveBaseURL:  DefaultArchiveBaseURL,
		CDXBaseURL:      DefaultArchiveBaseURL + CDXSearchPath,
		Frequency:       FrequencyMonthly,
		Workers:         DefaultWorkers(),
		SiteType:        SiteTypeRobots,
		SnapshotsDir:    DefaultSnapshotsDir,
		StatsDir:        DefaultStatsDir,
		FailureLogPath:  DefaultFailureLogFile,
		LogFilePath:     DefaultLogFile,
		FetchRateCalls:  DefaultRateLimitCalls,
		FetchRatePeriod: DefaultRateLimitPeriod,
		IndexRateCalls:  DefaultRateLimitCalls,
		IndexRatePeriod: DefaultRateLimitPeriod,
		UserAgent:       DefaultUserAgent,
	}
}

// DefaultWorkers returns the default worker pool size: the number of
// available CPUs minus one, but never less than one.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// XDGDataDir returns the XDG data directory for waybackcrawl.
// On Linux: ~/.local/share/waybackcrawl
// On macOS: ~/Library/Application Support/waybackcrawl
// On Windows: %LOCALAPPDATA%\waybackcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for waybackcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns a specific error
// describing the first problem found. It is called once after CLI parsing,
// before any crawling begins, so that bad input fails fast.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return ErrMissingDateRange
	}
	if c.EndDate.Before(c.StartDate) {
		return ErrInvalidDateRange
	}
	if !c.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if !c.SiteType.Valid() {
		return ErrInvalidSiteType
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.FetchRateCalls <= 0 || c.FetchRatePeriod <= 0 ||
		c.IndexRateCalls <= 0 || c.IndexRatePeriod <= 0 {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
