package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/waybackcrawl/waybackcrawl/internal/cdx"
	"github.com/waybackcrawl/waybackcrawl/internal/config"
	"github.com/waybackcrawl/waybackcrawl/internal/crawler"
	"github.com/waybackcrawl/waybackcrawl/internal/database"
	"github.com/waybackcrawl/waybackcrawl/internal/log"
	"github.com/waybackcrawl/waybackcrawl/internal/model"
	"github.com/waybackcrawl/waybackcrawl/internal/report"
	"github.com/waybackcrawl/waybackcrawl/internal/storage"
	"github.com/waybackcrawl/waybackcrawl/internal/urllist"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Save historical snapshots of web pages from the Wayback Machine",
		Long: `Crawl queries the Wayback Machine's CDX index for captures of each URL in
a date range, deduplicates them by content digest per time bucket (day,
month, or year depending on --frequency), and saves one HTML file per
unique capture under the snapshots directory.

URLs come from positional arguments or from --input (a CSV file with a URL
column, or a plain text file with one URL per line). The --site-type flag
rewrites each input URL before crawling: "robots" crawls the host's
robots.txt, "main" crawls the host's root page, and "tos" crawls the URL
as given.

A URL that already has snapshot output is skipped, so interrupted crawls
can be resumed by re-running the same command.

Examples:
  # Crawl robots.txt history for the hosts in a CSV file
  waybackcrawl crawl --input sites.csv --start-date 20240101 --end-date 20240630

  # Crawl specific terms-of-service pages monthly, with change counting
  waybackcrawl crawl --site-type tos --count-changes \
    --start-date 20230101 --end-date 20231231 \
    http://example.com/legal/terms

  # Daily granularity with eight workers and a JSON summary
  waybackcrawl crawl -f daily -w 8 --json -o report.json \
    --start-date 20240101 --end-date 20240131 http://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Input flags
	cmd.Flags().StringP("input", "i", "",
		"CSV or plain text file supplying URLs (positional arguments take precedence)")
	cmd.Flags().String("site-type", string(config.SiteTypeRobots),
		"How to rewrite input URLs: tos (as-is), robots (host robots.txt), or main (host root page)")

	// Date range flags
	cmd.Flags().StringP("start-date", "s", "", "Start date in YYYYMMDD format")
	cmd.Flags().StringP("end-date", "e", "", "End date in YYYYMMDD format")
	cmd.Flags().StringP("frequency", "f", string(config.FrequencyMonthly),
		"Snapshot collection granularity: daily, monthly, or annually")

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers(),
		"Number of concurrent URL workers")
	cmd.Flags().Bool("count-changes", false,
		"Count unique captures per interval and save rate-of-change stats")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Per-request HTTP timeout (0 disables the timeout)")

	// Output flags
	cmd.Flags().String("snapshots-dir", config.DefaultSnapshotsDir,
		"Directory for saved snapshot HTML files")
	cmd.Flags().String("stats-dir", config.DefaultStatsDir,
		"Directory for rate-of-change stats JSON files")
	cmd.Flags().String("failure-log", config.DefaultFailureLogFile,
		"File collecting one line per failed URL")
	cmd.Flags().String("log-file", config.DefaultLogFile,
		"File receiving the detailed JSON debug log (empty disables it)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .waybackcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON crawl summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown crawl summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the crawl summary to the specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	logger, closer, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	startDate, err := cmd.Flags().GetString("start-date")
	if err != nil {
		return nil, err
	}
	if startDate != "" {
		cfg.StartDate, err = time.ParseInLocation(config.DateLayout, startDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q (want YYYYMMDD): %w", startDate, err)
		}
	}

	endDate, err := cmd.Flags().GetString("end-date")
	if err != nil {
		return nil, err
	}
	if endDate != "" {
		cfg.EndDate, err = time.ParseInLocation(config.DateLayout, endDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q (want YYYYMMDD): %w", endDate, err)
		}
	}

	frequency, err := cmd.Flags().GetString("frequency")
	if err != nil {
		return nil, err
	}
	cfg.Frequency, err = config.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}

	siteType, err := cmd.Flags().GetString("site-type")
	if err != nil {
		return nil, err
	}
	cfg.SiteType = config.SiteType(siteType)

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.CountChanges, err = cmd.Flags().GetBool("count-changes")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.InputPath, err = cmd.Flags().GetString("input")
	if err != nil {
		return nil, err
	}

	cfg.SnapshotsDir, err = cmd.Flags().GetString("snapshots-dir")
	if err != nil {
		return nil, err
	}

	cfg.StatsDir, err = cmd.Flags().GetString("stats-dir")
	if err != nil {
		return nil, err
	}

	cfg.FailureLogPath, err = cmd.Flags().GetString("failure-log")
	if err != nil {
		return nil, err
	}

	cfg.LogFilePath, err = cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load defaults from the configuration file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently skip when no file is found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.FileConfig, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.FileConfig.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	cfg.Targets, err = resolveTargets(args, cfg)
	if err != nil {
		return nil, err
	}

	// Archived robots.txt replays behave more consistently when requested
	// with a browser User-Agent.
	if cfg.SiteType == config.SiteTypeRobots && cfg.UserAgent == config.DefaultUserAgent {
		cfg.UserAgent = config.DefaultRobotsUserAgent
	}

	return cfg, nil
}

// resolveTargets builds the crawl target list: positional arguments when
// given, the --input file otherwise. Both paths apply the site-type rewrite.
func resolveTargets(args []string, cfg *config.Config) ([]string, error) {
	if !cfg.SiteType.Valid() {
		return nil, config.ErrInvalidSiteType
	}

	if len(args) > 0 {
		seen := make(map[string]struct{}, len(args))
		targets := make([]string, 0, len(args))
		for _, arg := range args {
			rewritten, err := urllist.Rewrite(arg, cfg.SiteType)
			if err != nil {
				return nil, fmt.Errorf("bad url %q: %w", arg, err)
			}
			if _, dup := seen[rewritten]; dup {
				continue
			}
			seen[rewritten] = struct{}{}
			targets = append(targets, rewritten)
		}
		return targets, nil
	}

	if cfg.InputPath == "" {
		return nil, nil
	}
	return urllist.Load(cfg.InputPath, cfg.SiteType)
}

// setupLogger creates the application logger: text on stderr, plus a JSON
// log file when configured. The returned closer owns the log file.
func setupLogger(cfg *config.Config) (*slog.Logger, interface{ Close() error }, error) {
	if cfg.LogFilePath == "" {
		return log.NewLogger(os.Stderr, cfg.Verbose), nil, nil
	}
	logger, closer, err := log.NewLoggerWithFile(os.Stderr, cfg.LogFilePath, cfg.Verbose)
	if err != nil {
		return nil, nil, err
	}
	return logger, closer, nil
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"targets", len(cfg.Targets),
		"startDate", cfg.StartDate.Format(config.DateLayout),
		"endDate", cfg.EndDate.Format(config.DateLayout),
		"frequency", cfg.Frequency,
		"siteType", cfg.SiteType,
		"workers", cfg.Workers,
		"countChanges", cfg.CountChanges,
	)

	// Open database connection if saving is enabled
	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	failures, err := crawler.NewFailureLog(cfg.FailureLogPath, logger)
	if err != nil {
		return err
	}

	// Two independent limiters: index pagination and content fetching. The
	// change counter shares the content-fetch limiter with the snapshot
	// fetcher because both hit replay-adjacent endpoints.
	httpClient := &http.Client{Timeout: cfg.Timeout}
	indexClient := cdx.NewClient(cfg.IndexRateCalls, cfg.IndexRatePeriod,
		cdx.WithHTTPClient(httpClient),
		cdx.WithUserAgent(cfg.UserAgent),
	)
	fetchClient := cdx.NewClient(cfg.FetchRateCalls, cfg.FetchRatePeriod,
		cdx.WithHTTPClient(httpClient),
		cdx.WithUserAgent(cfg.UserAgent),
	)

	orchestrator := crawler.New(
		cdx.NewIndexReader(indexClient, cfg.CDXBaseURL, logger),
		cdx.NewSnapshotFetcher(fetchClient, cfg.ArchiveBaseURL),
		cdx.NewChangeCounter(fetchClient, cfg.CDXBaseURL, logger),
		storage.NewStore(cfg.SnapshotsDir, cfg.StatsDir),
		failures,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithDatabase(db),
		crawler.WithLogger(logger),
	)

	crawlReport, batchErr := orchestrator.ProcessBatch(ctx, cfg.Targets, crawler.Job{
		Start:        cfg.StartDate,
		End:          cfg.EndDate,
		Frequency:    cfg.Frequency,
		CountChanges: cfg.CountChanges,
	})

	// Flush the failure log before reporting so the file is complete when
	// the summary points the user at it.
	if err := failures.Close(); err != nil {
		logger.Error("failed to close failure log", "error", err)
	}
	if failures.Len() > 0 {
		fmt.Fprintf(os.Stderr, "\n%d failure(s) recorded; details in %s\n",
			failures.Len(), cfg.FailureLogPath)
	}

	if db != nil {
		persistRun(ctx, db, crawlReport, failures.Records(), len(cfg.Targets), logger)
	}

	if err := outputReport(cfg, crawlReport); err != nil {
		logger.Error("failed to write crawl summary", "error", err)
	}

	return batchErr
}

// persistRun records the batch run and its failures in the database.
// Database errors are logged, never fatal: the filesystem already holds
// the crawl output.
func persistRun(ctx context.Context, db *database.CrawlDB, crawlReport *model.CrawlReport, failureRecords []model.FailureRecord, urlCount int, logger *slog.Logger) {
	if err := db.InsertRun(ctx, crawlReport, urlCount); err != nil {
		logger.Error("failed to record run", "error", err)
	}
	for _, rec := range failureRecords {
		if err := db.InsertFailure(ctx, rec); err != nil {
			logger.Error("failed to record failure", "url", rec.URL, "error", err)
			break
		}
	}
}

// outputReport outputs the crawl summary in the requested format.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	_, err := writer.Write(crawlReport)
	return err
}
