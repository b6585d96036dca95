package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore on a SQLite database under
// <root>/.wavecal/wavecal.db.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunStore opens (creating if needed) the run ledger under root.
func NewSQLiteRunStore(root string) (*SQLiteRunStore, error) {
	if _, err := EnsureDataDir(root); err != nil {
		return nil, err
	}
	dbPath := DatabasePath(root)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file location.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// Record inserts or replaces a run.
func (s *SQLiteRunStore) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, scenario, calibrator, seed, started_at, elapsed_ns,
			success, passed, expected,
			points, failures, max_abs_dev, max_rel_dev, rtol, atol,
			matches, rms, message, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scenario, run.Calibrator, int64(run.Seed),
		run.StartedAt.UTC().Format(timeLayout), int64(run.Elapsed),
		boolToInt(run.Success), boolToInt(run.Passed), run.Expected,
		run.Points, run.Failures, run.MaxAbsDev, run.MaxRelDev, run.Rtol, run.Atol,
		run.Matches, run.RMS, nullString(run.Message), nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

const selectRun = `
	SELECT id, scenario, calibrator, seed, started_at, elapsed_ns,
		success, passed, expected,
		points, failures, max_abs_dev, max_rel_dev, rtol, atol,
		matches, rms, message, error
	FROM runs`

// Get returns a run by ID.
func (s *SQLiteRunStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs matching f, newest first.
func (s *SQLiteRunStore) List(ctx context.Context, f Filter) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, f.Scenario)
	}
	if f.Calibrator != "" {
		where = append(where, "calibrator = ?")
		args = append(args, f.Calibrator)
	}
	query := selectRun
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run              Run
		seed, elapsed    int64
		startedAt        string
		success, passed  int
		message, errText sql.NullString
	)
	err := sc.Scan(
		&run.ID, &run.Scenario, &run.Calibrator, &seed, &startedAt, &elapsed,
		&success, &passed, &run.Expected,
		&run.Points, &run.Failures, &run.MaxAbsDev, &run.MaxRelDev, &run.Rtol, &run.Atol,
		&run.Matches, &run.RMS, &message, &errText,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Seed = uint64(seed)
	run.Elapsed = time.Duration(elapsed)
	run.Success = success != 0
	run.Passed = passed != 0
	run.Message = message.String
	run.Error = errText.String
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("run %s: bad started_at %q: %w", run.ID, startedAt, err)
	}
	return &run, nil
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
