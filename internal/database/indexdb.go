package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/drugindex/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "drugindex.db"

// IndexDB stores crawl run history.
type IndexDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures IndexDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an IndexDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*IndexDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw prevents creating a new file when the caller expects one to exist.
	mode := "rwc"
	if !opts.CreateIfNotExists {
		mode = "rw"
	}
	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	idb := &IndexDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := idb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return idb, nil
}

// Close closes the database connection.
func (idb *IndexDB) Close() error {
	return idb.db.Close()
}

// Path returns the database file path.
func (idb *IndexDB) Path() string {
	return idb.dbPath
}

// createTables creates the database schema if it doesn't exist.
// Timestamps are stored as UTC RFC 3339 text so they sort lexically.
func (idb *IndexDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		output_path TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		denied INTEGER NOT NULL DEFAULT 0,
		deny_reason TEXT NOT NULL DEFAULT '',
		total_rows INTEGER NOT NULL DEFAULT 0,
		failed_buckets INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per attempted bucket
	CREATE TABLE IF NOT EXISTS bucket_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		bucket TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL,
		entry_count INTEGER NOT NULL DEFAULT 0,
		page_hash TEXT NOT NULL DEFAULT '',
		from_cache INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		UNIQUE(run_id, bucket)
	);

	CREATE INDEX IF NOT EXISTS idx_bucket_results_run ON bucket_results(run_id);

	-- Entries extracted per bucket, in output order
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		bucket TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, bucket);
	`

	_, err := idb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a stored crawl run.
type Run struct {
	ID            int64
	BaseURL       string
	OutputPath    string
	StartedAt     time.Time
	FinishedAt    time.Time
	Denied        bool
	DenyReason    string
	TotalRows     int
	FailedBuckets int

	// BucketCount is the number of buckets recorded for the run.
	BucketCount int
}

// Finished reports whether the run was completed (or denied) rather than interrupted.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// BucketResult is a stored bucket outcome.
type BucketResult struct {
	RunID      int64
	Bucket     model.Bucket
	URL        string
	Status     string
	StatusCode int
	Tier       model.Tier
	EntryCount int
	PageHash   string
	FromCache  bool
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// BeginRun inserts a new run and returns its ID.
func (idb *IndexDB) BeginRun(ctx context.Context, baseURL, outputPath string, startedAt time.Time) (int64, error) {
	result, err := idb.db.ExecContext(ctx,
		`INSERT INTO runs (base_url, output_path, started_at) VALUES (?, ?, ?)`,
		baseURL, outputPath, formatTimestamp(startedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return result.LastInsertId()
}

// RecordBucket stores one bucket outcome and its entries in a single transaction.
// Recording the same bucket twice for a run replaces the earlier record.
func (idb *IndexDB) RecordBucket(ctx context.Context, runID int64, o model.BucketOutcome) (err error) {
	tx, err := idb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO bucket_results
		(run_id, bucket, url, status, status_code, tier, entry_count, page_hash, from_cache, error, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, bucket) DO UPDATE SET
		url = excluded.url,
		status = excluded.status,
		status_code = excluded.status_code,
		tier = excluded.tier,
		entry_count = excluded.entry_count,
		page_hash = excluded.page_hash,
		from_cache = excluded.from_cache,
		error = excluded.error,
		started_at = excluded.started_at,
		duration_ms = excluded.duration_ms
	`,
		runID,
		o.Bucket.String(),
		o.URL,
		o.Status(),
		o.StatusCode,
		o.Tier().String(),
		o.EntryCount(),
		o.PageHash,
		boolToInt(o.FromCache),
		o.ErrorText(),
		formatTimestamp(o.StartedAt),
		o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bucket result: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id = ? AND bucket = ?`, runID, o.Bucket.String()); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	if o.OK() && o.Result != nil && len(o.Result.Entries) > 0 {
		stmt, prepErr := tx.PrepareContext(ctx,
			`INSERT INTO entries (run_id, bucket, position, name, url) VALUES (?, ?, ?, ?, ?)`)
		if prepErr != nil {
			err = fmt.Errorf("failed to prepare entry insert: %w", prepErr)
			return err
		}
		defer stmt.Close()

		for i, e := range o.Result.Entries {
			if _, err = stmt.ExecContext(ctx, runID, o.Bucket.String(), i, e.Name, e.URL); err != nil {
				return fmt.Errorf("failed to insert entry: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bucket result: %w", err)
	}
	return nil
}

// FinishRun stores the final totals of a run and marks it finished.
func (idb *IndexDB) FinishRun(ctx context.Context, runID int64, s *model.RunSummary) error {
	finished := s.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return idb.updateRun(ctx, runID, formatTimestamp(finished), s)
}

// AbortRun stores the partial totals of an interrupted run. The run keeps
// an empty finished_at, so it is reported as interrupted and never used
// as a baseline for change detection.
func (idb *IndexDB) AbortRun(ctx context.Context, runID int64, s *model.RunSummary) error {
	return idb.updateRun(ctx, runID, "", s)
}

func (idb *IndexDB) updateRun(ctx context.Context, runID int64, finishedAt string, s *model.RunSummary) error {
	result, err := idb.db.ExecContext(ctx, `
	UPDATE runs SET finished_at = ?, denied = ?, deny_reason = ?, total_rows = ?, failed_buckets = ?
	WHERE id = ?
	`,
		finishedAt,
		boolToInt(s.Denied),
		s.DenyReason,
		s.Rows(),
		len(s.FailedBuckets()),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `
	r.id, r.base_url, r.output_path, r.started_at, r.finished_at,
	r.denied, r.deny_reason, r.total_rows, r.failed_buckets,
	(SELECT COUNT(*) FROM bucket_results b WHERE b.run_id = r.id)
`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (idb *IndexDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs r ORDER BY r.id DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (idb *IndexDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := idb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetBucketResults returns the bucket outcomes of a run in crawl order.
func (idb *IndexDB) GetBucketResults(ctx context.Context, runID int64) ([]BucketResult, error) {
	rows, err := idb.db.QueryContext(ctx, `
	SELECT run_id, bucket, url, status, status_code, tier, entry_count, page_hash, from_cache, error, started_at, duration_ms
	FROM bucket_results
	WHERE run_id = ?
	ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket results: %w", err)
	}
	defer rows.Close()

	results := make([]BucketResult, 0)
	for rows.Next() {
		var (
			r          BucketResult
			bucket     string
			tier       string
			fromCache  int
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(
			&r.RunID,
			&bucket,
			&r.URL,
			&r.Status,
			&r.StatusCode,
			&tier,
			&r.EntryCount,
			&r.PageHash,
			&fromCache,
			&r.Error,
			&startedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bucket result: %w", err)
		}
		r.Bucket = model.Bucket(bucket)
		r.Tier = model.ParseTier(tier)
		r.FromCache = fromCache != 0
		r.StartedAt = parseTimestamp(startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetRunEntries returns every entry recorded for a run, in output order.
func (idb *IndexDB) GetRunEntries(ctx context.Context, runID int64) ([]model.LinkEntry, error) {
	rows, err := idb.db.QueryContext(ctx,
		`SELECT name, url FROM entries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LinkEntry, 0)
	for rows.Next() {
		var e model.LinkEntry
		if err := rows.Scan(&e.Name, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt string
		denied     int
	)
	err := s.Scan(
		&run.ID,
		&run.BaseURL,
		&run.OutputPath,
		&startedAt,
		&finishedAt,
		&denied,
		&run.DenyReason,
		&run.TotalRows,
		&run.FailedBuckets,
		&run.BucketCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt != "" {
		run.FinishedAt = parseTimestamp(finishedAt)
	}
	run.Denied = denied != 0
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by formatTimestamp
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
