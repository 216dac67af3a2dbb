// Package history keeps a per-directory SQLite record of run batches and
// diff reports, so regressions can be traced across invocations.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/cambtest/internal/numdiff"
	"github.com/nvandessel/cambtest/internal/orchestrator"
)

// DBFileName is the database file inside the state directory.
const DBFileName = "history.db"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("history record not found")

// Store is an open history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Meta describes the invocation a record belongs to.
type Meta struct {
	IniDir     string
	Executable string
	At         time.Time
}

// RunSummary is one recorded run batch.
type RunSummary struct {
	ID          int64         `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	IniDir      string        `json:"ini_dir"`
	Executable  string        `json:"executable"`
	Configs     int           `json:"configs"`
	Errors      int           `json:"errors"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Failing     []string      `json:"failing"`
}

// DiffSummary is one recorded diff report.
type DiffSummary struct {
	ID          int64     `json:"id"`
	ComparedAt  time.Time `json:"compared_at"`
	IniDir      string    `json:"ini_dir"`
	Current     string    `json:"current"`
	Reference   string    `json:"reference"`
	Tolerance   float64   `json:"tolerance"`
	Files       int       `json:"files"`
	Mismatches  int       `json:"mismatches"`
	Missing     int       `json:"missing"`
	ParseErrors int       `json:"parse_errors"`
	Passed      bool      `json:"passed"`
	Digest      string    `json:"sha256"`
}

// Open opens (creating if needed) the history database in stateDir.
func Open(ctx context.Context, stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	dbPath := filepath.Join(stateDir, DBFileName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores a run batch and its per-overlay results.
func (s *Store) RecordRun(ctx context.Context, meta Meta, report *orchestrator.Report) (int64, error) {
	if report == nil {
		return 0, errors.New("nil run report")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, ini_dir, executable, configs, errors, elapsed_ms, interrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		formatTime(meta.At), meta.IniDir, meta.Executable,
		len(report.Results), report.Errors, report.Elapsed.Milliseconds(), boolToInt(report.Interrupted))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for i, r := range report.Results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_results (run_id, seq, overlay, exit_code, produced, duration_ms, failed, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, r.OverlayName, r.ExitCode, r.Produced, r.Duration.Milliseconds(),
			boolToInt(r.Failed), nullString(r.Reason())); err != nil {
			return 0, fmt.Errorf("failed to insert result for %s: %w", r.OverlayName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecordDiff stores a diff report as canonical JSON together with its
// SHA-256 digest. Identical reports always produce the same digest.
func (s *Store) RecordDiff(ctx context.Context, meta Meta, report *numdiff.Report) (int64, string, error) {
	if report == nil {
		return 0, "", errors.New("nil diff report")
	}
	canonical, digest, err := CanonicalReport(report)
	if err != nil {
		return 0, "", err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO diffs (compared_at, ini_dir, current_dir, reference_dir, tolerance,
			files, mismatches, missing, parse_errors, passed, report_json, report_sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(meta.At), meta.IniDir, report.Current, report.Reference, report.Tolerance,
		len(report.Files), report.Count(numdiff.NumericMismatch), len(report.MissingOrExtra()),
		report.Count(numdiff.ParseFailure), boolToInt(report.Passed()), string(canonical), digest)
	if err != nil {
		return 0, "", fmt.Errorf("failed to insert diff: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to read diff id: %w", err)
	}
	return id, digest, nil
}

// CanonicalReport returns the RFC 8785 canonical JSON of report and the hex
// SHA-256 digest of that encoding.
func CanonicalReport(report *numdiff.Report) ([]byte, string, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal diff report: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, "", fmt.Errorf("failed to canonicalize diff report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return canonical, hex.EncodeToString(sum[:]), nil
}

// RecentRuns returns up to limit run batches, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ini_dir, executable, configs, errors, elapsed_ms, interrupted
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var startedAt string
		var elapsedMs int64
		var interrupted int
		if err := rows.Scan(&r.ID, &startedAt, &r.IniDir, &r.Executable, &r.Configs, &r.Errors, &elapsedMs, &interrupted); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		r.Interrupted = interrupted != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		failing, err := s.failing(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Failing = failing
	}
	return runs, nil
}

func (s *Store) failing(ctx context.Context, runID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT overlay FROM run_results WHERE run_id = ? AND failed = 1 ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failing overlays: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan overlay: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RecentDiffs returns up to limit diff summaries, newest first.
func (s *Store) RecentDiffs(ctx context.Context, limit int) ([]DiffSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, compared_at, ini_dir, current_dir, reference_dir, tolerance,
			files, mismatches, missing, parse_errors, passed, report_sha256
		FROM diffs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query diffs: %w", err)
	}
	defer rows.Close()

	var diffs []DiffSummary
	for rows.Next() {
		var d DiffSummary
		var comparedAt string
		var passed int
		if err := rows.Scan(&d.ID, &comparedAt, &d.IniDir, &d.Current, &d.Reference, &d.Tolerance,
			&d.Files, &d.Mismatches, &d.Missing, &d.ParseErrors, &passed, &d.Digest); err != nil {
			return nil, fmt.Errorf("failed to scan diff: %w", err)
		}
		d.ComparedAt = parseTime(comparedAt)
		d.Passed = passed != 0
		diffs = append(diffs, d)
	}
	return diffs, rows.Err()
}

// LoadDiff returns the stored report with the given id. The stored digest
// is verified against the stored JSON.
func (s *Store) LoadDiff(ctx context.Context, id int64) (*numdiff.Report, error) {
	var raw, digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json, report_sha256 FROM diffs WHERE id = ?`, id).Scan(&raw, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("diff %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load diff %d: %w", id, err)
	}

	sum := sha256.Sum256([]byte(raw))
	if hex.EncodeToString(sum[:]) != digest {
		return nil, fmt.Errorf("diff %d: stored report does not match its digest", id)
	}

	var report numdiff.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("failed to decode diff %d: %w", id, err)
	}
	return &report, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
