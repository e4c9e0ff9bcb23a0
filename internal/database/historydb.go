package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scanherd/scanherd/internal/model"
)

// dbFileName is the history database file created under the data
// directory.
const dbFileName = "scanherd.db"

// sqliteTimeLayout is the format timestamps are stored in. It matches
// SQLite's own datetime() output so rows written by hand and rows
// written by the code compare equal.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// HistoryDB provides SQLite-based storage for batch run history.
//
// Design decision: We keep one database file across all runs rather
// than a file per batch. Cross-batch queries (an identity's outcome
// trend, success rates over time) are the whole point of keeping
// history.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so history queries don't
	// block while a batch is being recorded.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s (run a batch to create it)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the mode in the DSN: rw refuses to create
	// a missing file, rwc creates it.
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

	// SQLite only supports one writer; a second connection would just
	// wait on the file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the location of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per batch run with aggregate counters and the full report
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		unverified INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		proxies_used INTEGER NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);

	-- One row per identity outcome, keyed by log-safe fingerprint
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id INTEGER NOT NULL REFERENCES batches(id),
		fingerprint TEXT NOT NULL,
		outcome TEXT NOT NULL,
		final_state TEXT NOT NULL,
		points_before REAL,
		points_after REAL,
		scan_streak INTEGER NOT NULL DEFAULT 0,
		verified_by TEXT,
		proxy_used TEXT,
		egress_ip TEXT,
		error TEXT,
		error_class TEXT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_batch ON outcomes(batch_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_fingerprint ON outcomes(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_outcomes_started ON outcomes(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// BatchRecord is the stored summary of one batch run.
type BatchRecord struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Processed   int
	Succeeded   int
	Skipped     int
	Unverified  int
	Failed      int
	ProxiesUsed int
	Interrupted bool
}

// OutcomeRecord is the stored result of one identity's workflow run.
type OutcomeRecord struct {
	ID           int64
	BatchID      int64
	Fingerprint  string
	Outcome      model.Outcome
	FinalState   string
	PointsBefore *float64
	PointsAfter  *float64
	ScanStreak   uint
	VerifiedBy   string
	ProxyUsed    string
	EgressIP     string
	Error        string
	ErrorClass   string
	StartedAt    time.Time
	Duration     time.Duration
}

// RecordBatch persists a finished batch report and all of its
// per-identity outcomes. It returns the new batch row's ID.
//
// Design decision: The batch row and its outcome rows are written in
// one transaction so an interrupted recording never leaves outcomes
// without their batch or a batch whose counters disagree with its rows.
func (hdb *HistoryDB) RecordBatch(ctx context.Context, report *model.BatchReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize batch report: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO batches (started_at, finished_at, total, processed, succeeded,
		skipped, unverified, failed, proxies_used, interrupted, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.StartedAt.UTC().Format(sqliteTimeLayout),
		report.FinishedAt.UTC().Format(sqliteTimeLayout),
		report.Total,
		report.Processed,
		report.Succeeded,
		report.Skipped,
		report.Unverified,
		report.Failed,
		report.ProxiesUsed,
		boolToInt(report.Interrupted),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	batchID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read batch id: %w", err)
	}

	for i := range report.Results {
		if err := insertOutcome(ctx, tx, batchID, &report.Results[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return batchID, nil
}

// insertOutcome writes one identity result row inside the batch
// transaction.
func insertOutcome(ctx context.Context, tx *sql.Tx, batchID int64, res *model.IdentityResult) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO outcomes (batch_id, fingerprint, outcome, final_state,
		points_before, points_after, scan_streak, verified_by, proxy_used,
		egress_ip, error, error_class, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		batchID,
		res.Fingerprint,
		res.Outcome.String(),
		res.FinalState,
		nullableFloat(res.PointsBefore),
		nullableFloat(res.PointsAfter),
		res.ScanStreak,
		res.VerifiedBy,
		res.ProxyUsed,
		res.EgressIP,
		res.Error,
		res.ErrorClass,
		res.StartedAt.UTC().Format(sqliteTimeLayout),
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome for %s: %w", res.Fingerprint, err)
	}
	return nil
}

// RecentBatches returns up to limit batch summaries, newest first.
func (hdb *HistoryDB) RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, started_at, finished_at, total, processed, succeeded,
		skipped, unverified, failed, proxies_used, interrupted
	FROM batches
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var rec BatchRecord
		var startedAt, finishedAt string
		var interrupted int

		err := rows.Scan(
			&rec.ID,
			&startedAt,
			&finishedAt,
			&rec.Total,
			&rec.Processed,
			&rec.Succeeded,
			&rec.Skipped,
			&rec.Unverified,
			&rec.Failed,
			&rec.ProxiesUsed,
			&interrupted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}

		rec.StartedAt = parseTimestamp(startedAt)
		rec.FinishedAt = parseTimestamp(finishedAt)
		rec.Interrupted = interrupted != 0
		records = append(records, rec)
	}

	return records, rows.Err()
}

// LatestBatch returns the most recent batch summary, or nil when no
// batch has been recorded yet.
func (hdb *HistoryDB) LatestBatch(ctx context.Context) (*BatchRecord, error) {
	records, err := hdb.RecentBatches(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// LoadBatchReport reconstructs the full report for a batch from its
// stored JSON. Returns nil when the batch does not exist.
func (hdb *HistoryDB) LoadBatchReport(ctx context.Context, batchID int64) (*model.BatchReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, `
	SELECT report_json FROM batches WHERE id = ?
	`, batchID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch report: %w", err)
	}

	var report model.BatchReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse batch report: %w", err)
	}

	return &report, nil
}

// BatchOutcomes returns all identity outcomes recorded for a batch, in
// processing order.
func (hdb *HistoryDB) BatchOutcomes(ctx context.Context, batchID int64) ([]OutcomeRecord, error) {
	return hdb.queryOutcomes(ctx, `
	SELECT id, batch_id, fingerprint, outcome, final_state, points_before,
		points_after, scan_streak, verified_by, proxy_used, egress_ip,
		error, error_class, started_at, duration_ms
	FROM outcomes
	WHERE batch_id = ?
	ORDER BY id
	`, batchID)
}

// IdentityHistory returns up to limit outcomes for one identity
// fingerprint, newest first.
func (hdb *HistoryDB) IdentityHistory(ctx context.Context, fingerprint string, limit int) ([]OutcomeRecord, error) {
	return hdb.queryOutcomes(ctx, `
	SELECT id, batch_id, fingerprint, outcome, final_state, points_before,
		points_after, scan_streak, verified_by, proxy_used, egress_ip,
		error, error_class, started_at, duration_ms
	FROM outcomes
	WHERE fingerprint = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, fingerprint, limit)
}

// queryOutcomes runs an outcome query and scans its rows.
func (hdb *HistoryDB) queryOutcomes(ctx context.Context, query string, args ...any) ([]OutcomeRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []OutcomeRecord
	for rows.Next() {
		var rec OutcomeRecord
		var outcome, startedAt string
		var pointsBefore, pointsAfter sql.NullFloat64
		var verifiedBy, proxyUsed, egressIP, errText, errClass sql.NullString
		var durationMS int64

		err := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.Fingerprint,
			&outcome,
			&rec.FinalState,
			&pointsBefore,
			&pointsAfter,
			&rec.ScanStreak,
			&verifiedBy,
			&proxyUsed,
			&egressIP,
			&errText,
			&errClass,
			&startedAt,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		rec.Outcome = model.ParseOutcome(outcome)
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if pointsBefore.Valid {
			rec.PointsBefore = &pointsBefore.Float64
		}
		if pointsAfter.Valid {
			rec.PointsAfter = &pointsAfter.Float64
		}
		rec.VerifiedBy = verifiedBy.String
		rec.ProxyUsed = proxyUsed.String
		rec.EgressIP = egressIP.String
		rec.Error = errText.String
		rec.ErrorClass = errClass.String

		records = append(records, rec)
	}

	return records, rows.Err()
}

// PruneBatches deletes all but the newest keep batches together with
// their outcomes. Returns the number of batches removed.
func (hdb *HistoryDB) PruneBatches(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	DELETE FROM outcomes WHERE batch_id NOT IN (
		SELECT id FROM batches ORDER BY started_at DESC, id DESC LIMIT ?
	)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune outcomes: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
	DELETE FROM batches WHERE id NOT IN (
		SELECT id FROM batches ORDER BY started_at DESC, id DESC LIMIT ?
	)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune batches: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned batches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	return removed, nil
}

// boolToInt stores booleans the way SQLite expects them.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableFloat converts an optional float into its SQL form.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	sqliteTimeLayout,          // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
