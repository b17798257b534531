package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/waybackcrawl/waybackcrawl/internal/model"
)

// dbFileName is the SQLite database file created under the database directory.
const dbFileName = "waybackcrawl.db"

// CrawlDB provides SQLite-based storage for crawl history.
// It manages connection pooling and provides methods for CRUD operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; readers don't help much here because
	// all writes funnel through the crawl workers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Snapshots store one row per persisted capture
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		digest TEXT NOT NULL,
		mimetype TEXT,
		statuscode TEXT,
		path TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_url ON snapshots(url);
	CREATE INDEX IF NOT EXISTS idx_snapshots_digest ON snapshots(digest);

	-- Failures store one row per failure record
	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		message TEXT NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_failures_url ON failures(url);

	-- Runs store one row per batch invocation
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		frequency TEXT NOT NULL,
		url_count INTEGER NOT NULL,
		snapshot_count INTEGER NOT NULL,
		failure_count INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SnapshotRecord is one persisted capture.
type SnapshotRecord struct {
	ID         int64
	URL        string
	Timestamp  string
	Digest     string
	MimeType   string
	StatusCode string
	Path       string
	FetchedAt  time.Time
}

// InsertSnapshot inserts or updates a snapshot record.
// Uses UPSERT to handle re-runs that overwrite the same capture file.
func (cdb *CrawlDB) InsertSnapshot(ctx context.Context, rec *SnapshotRecord) error {
	query := `
	INSERT INTO snapshots (url, timestamp, digest, mimetype, statuscode, path)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url, timestamp) DO UPDATE SET
		digest = excluded.digest,
		mimetype = excluded.mimetype,
		statuscode = excluded.statuscode,
		path = excluded.path,
		fetched_at = CURRENT_TIMESTAMP
	`

	_, err := cdb.db.ExecContext(ctx, query,
		rec.URL,
		rec.Timestamp,
		rec.Digest,
		rec.MimeType,
		rec.StatusCode,
		rec.Path,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot record: %w", err)
	}
	return nil
}

// CountSnapshots returns the number of persisted captures recorded for a URL.
func (cdb *CrawlDB) CountSnapshots(ctx context.Context, url string) (int, error) {
	var count int
	err := cdb.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM snapshots WHERE url = ?", url).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// ListSnapshots returns the captures recorded for a URL in timestamp order.
func (cdb *CrawlDB) ListSnapshots(ctx context.Context, url string) ([]SnapshotRecord, error) {
	query := `
	SELECT id, url, timestamp, digest, mimetype, statuscode, path, fetched_at
	FROM snapshots
	WHERE url = ?
	ORDER BY timestamp ASC
	`

	rows, err := cdb.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var results []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var fetchedAt string
		err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.Timestamp,
			&rec.Digest,
			&rec.MimeType,
			&rec.StatusCode,
			&rec.Path,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot record: %w", err)
		}
		rec.FetchedAt = parseTimestamp(fetchedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// InsertFailure records one failure.
func (cdb *CrawlDB) InsertFailure(ctx context.Context, rec model.FailureRecord) error {
	_, err := cdb.db.ExecContext(ctx,
		"INSERT INTO failures (url, message) VALUES (?, ?)",
		rec.URL, rec.Message)
	if err != nil {
		return fmt.Errorf("failed to insert failure record: %w", err)
	}
	return nil
}

// InsertRun records one completed batch run.
func (cdb *CrawlDB) InsertRun(ctx context.Context, report *model.CrawlReport, urlCount int) error {
	query := `
	INSERT INTO runs (start_date, end_date, frequency, url_count, snapshot_count, failure_count, started_at, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := cdb.db.ExecContext(ctx, query,
		report.StartDate.Format("20060102"),
		report.EndDate.Format("20060102"),
		report.Frequency,
		urlCount,
		report.TotalSnapshots,
		report.TotalFailures,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}
	return nil
}

// parseTimestamp parses a SQLite timestamp, which may come back in several
// formats depending on version and configuration.
func parseTimestamp(s string) time.Time {
	formats := []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
