package runstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	job          TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	exit_code    INTEGER,
	attempts     INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT '',
	log_file     TEXT NOT NULL DEFAULT ''
);`

// SQLiteStore keeps run records in an embedded SQLite database. It honors
// the same contract as FileStore; insertion order is the autoincrement
// sequence.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("runstore: opening database %s: %w", path, err)
	}
	// The modernc driver serializes access per connection; a single
	// connection keeps writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runstore: creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r           Run
		startedAt   string
		completedAt sql.NullString
		exitCode    sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.Job, &startedAt, &completedAt, &exitCode, &r.Attempts, &r.Status, &r.LogFile)
	if err != nil {
		return Run{}, err
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, fmt.Errorf("runstore: parsing started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("runstore: parsing completed_at: %w", err)
		}
		r.CompletedAt = &t
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		r.ExitCode = &code
	}
	return r, nil
}

func runArgs(r Run) []any {
	var completedAt sql.NullString
	if r.CompletedAt != nil {
		completedAt = sql.NullString{String: r.CompletedAt.Format(time.RFC3339Nano), Valid: true}
	}
	var exitCode sql.NullInt64
	if r.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*r.ExitCode), Valid: true}
	}
	return []any{r.ID, r.Job, r.StartedAt.Format(time.RFC3339Nano), completedAt, exitCode, r.Attempts, r.Status, r.LogFile}
}

const runColumns = "id, job, started_at, completed_at, exit_code, attempts, status, log_file"

// Append implements Store.
func (s *SQLiteStore) Append(run Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("runstore: beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		runArgs(run)...,
	); err != nil {
		return fmt.Errorf("runstore: inserting run: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM runs WHERE seq NOT IN (SELECT seq FROM runs ORDER BY seq DESC LIMIT ?)",
		MaxRecords,
	); err != nil {
		return fmt.Errorf("runstore: evicting old runs: %w", err)
	}
	return tx.Commit()
}

// Update implements Store.
func (s *SQLiteStore) Update(id string, patch Patch) error {
	run, err := s.Get(id)
	if err != nil {
		return err
	}
	patch.apply(&run)

	args := append(runArgs(run)[3:], id)
	_, err = s.db.Exec(
		"UPDATE runs SET completed_at = ?, exit_code = ?, attempts = ?, status = ?, log_file = ? WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("runstore: updating run %s: %w", id, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(id string) (Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("runstore: loading run %s: %w", id, err)
	}
	return run, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Run, error) {
	rows, err := s.db.Query("SELECT " + runColumns + " FROM runs ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("runstore: listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(id string) error {
	run, err := s.Get(id)
	if err != nil {
		return err
	}
	if run.Running() {
		return ErrRunning
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("runstore: deleting run %s: %w", id, err)
	}
	removeLog(run)
	return nil
}

// DeleteMany implements Store.
func (s *SQLiteStore) DeleteMany(ids []string) (int, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.Clear(func(r Run) bool { return wanted[r.ID] })
}

// Clear implements Store.
func (s *SQLiteStore) Clear(filter func(Run) bool) (int, error) {
	runs, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, r := range runs {
		if r.Running() || (filter != nil && !filter(r)) {
			continue
		}
		if _, err := s.db.Exec("DELETE FROM runs WHERE id = ?", r.ID); err != nil {
			return removed, fmt.Errorf("runstore: deleting run %s: %w", r.ID, err)
		}
		removeLog(r)
		removed++
	}
	return removed, nil
}
