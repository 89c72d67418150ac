package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"backup-warden/internal/scan"
)

// HistoryDB manages the SQLite database for backup run and sweep history
type HistoryDB struct {
	db *sql.DB
}

// RunRecord represents a single imaging tool invocation
type RunRecord struct {
	ID        int64
	Timestamp time.Time
	Directory string
	Prefix    string
	Artifact  string
	Attempt   string // "primary" or "fallback"
	Outcome   string // SUCCESS, TOOL_NOT_FOUND, NON_ZERO_EXIT, TRANSPORT_ERROR
	ExitCode  *int
	Stderr    string
	CreatedAt time.Time
}

// SweepRecord represents a single retention sweep event
type SweepRecord struct {
	ID            int64
	Timestamp     time.Time
	Action        string // DELETE, DRY_RUN, SKIP, ERROR
	Path          string
	FileName      string
	Size          int64
	AgeDays       int
	ThresholdDays int
	Reason        string
	ErrorMessage  string
	CreatedAt     time.Time
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Test connection by executing a simple query instead of Ping()
	// This ensures the database file is created if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode so the query CLI can read while a run records
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}

	err = nil
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS backup_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		directory TEXT NOT NULL,
		prefix TEXT NOT NULL,
		artifact TEXT NOT NULL,
		attempt TEXT NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER,
		stderr TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON backup_runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON backup_runs(outcome);
	CREATE INDEX IF NOT EXISTS idx_runs_attempt ON backup_runs(attempt);

	CREATE TABLE IF NOT EXISTS sweep_deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		size INTEGER NOT NULL,
		age_days INTEGER,
		threshold_days INTEGER,
		reason TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_timestamp ON sweep_deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_sweep_action ON sweep_deletions(action);
	CREATE INDEX IF NOT EXISTS idx_sweep_path ON sweep_deletions(path);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRun inserts one imaging tool invocation into the database
func (d *HistoryDB) RecordRun(r RunRecord) error {
	query := `
	INSERT INTO backup_runs (
		timestamp, directory, prefix, artifact, attempt, outcome, exit_code, stderr
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := d.db.Exec(query, ts, r.Directory, r.Prefix, r.Artifact, r.Attempt, r.Outcome, r.ExitCode, r.Stderr)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordSweep inserts one retention sweep event into the database
func (d *HistoryDB) RecordSweep(action string, cand scan.Candidate, errorMsg string) error {
	query := `
	INSERT INTO sweep_deletions (
		timestamp, action, path, file_name, size, age_days, threshold_days, reason, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	reason := cand.Reason
	ts := reason.EvaluatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := d.db.Exec(
		query,
		ts,
		action,
		cand.Path,
		filepath.Base(cand.Path),
		cand.Size,
		reason.ActualAgeDays,
		reason.ConfiguredDays,
		reason.ToLogString(),
		errorMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record sweep event: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}
