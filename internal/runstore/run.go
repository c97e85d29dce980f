// Package runstore persists the ordered sequence of run records and the
// per-run log files. Two backends implement the same contract: a JSON file
// with atomic-replace writes and an embedded SQLite database.
package runstore

import (
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	ErrNotFound = errors.New("runstore: run not found")
	ErrRunning  = errors.New("runstore: run is currently running")
)

// Explicit stored statuses. Success and failure are never stored; they are
// derived from the exit code.
const (
	StatusRunning = "running"
	StatusKilled  = "killed"
)

// Derived display statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// KilledExitCode is recorded when an attempt sequence is terminated.
const KilledExitCode = 137

// MaxRecords caps the stored collection; appends evict oldest-first.
const MaxRecords = 100

// Run is one attempt-sequence record. The ID is a deterministic composite
// of job name and start timestamp.
type Run struct {
	ID          string     `json:"runId"`
	Job         string     `json:"jobName"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExitCode    *int       `json:"exitCode,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	Status      string     `json:"status,omitempty"`
	LogFile     string     `json:"logFile,omitempty"`
}

// Running reports whether the record is still marked as in flight.
func (r Run) Running() bool {
	return r.Status == StatusRunning
}

// DerivedStatus returns the display status: the stored status when one is
// present, otherwise success/failed derived from the exit code.
func (r Run) DerivedStatus() string {
	if r.Status != "" {
		return r.Status
	}
	if r.ExitCode == nil {
		return ""
	}
	if *r.ExitCode == 0 {
		return StatusSuccess
	}
	return StatusFailed
}

// Patch carries fields to merge into an existing record. Nil fields are
// left untouched; a pointer to the zero value clears the field (used to
// drop the running status on completion).
type Patch struct {
	CompletedAt *time.Time
	ExitCode    *int
	Attempts    *int
	Status      *string
}

func (p Patch) apply(r *Run) {
	if p.CompletedAt != nil {
		r.CompletedAt = p.CompletedAt
	}
	if p.ExitCode != nil {
		r.ExitCode = p.ExitCode
	}
	if p.Attempts != nil {
		r.Attempts = *p.Attempts
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// Store is the run state store contract. Records are kept in insertion
// order (chronological); appends beyond MaxRecords evict oldest-first.
// Delete, DeleteMany and Clear never remove a running record and remove
// the record's log file best-effort.
type Store interface {
	// Append adds one record and truncates to the most recent MaxRecords.
	Append(run Run) error

	// Update merges the patch into the record with the given ID.
	// Returns ErrNotFound if the ID is absent.
	Update(id string, patch Patch) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(id string) (Run, error)

	// List returns all records in insertion order (oldest first).
	// A missing or corrupt backing store reads as empty.
	List() ([]Run, error)

	// Delete removes one record. Returns ErrNotFound if absent and
	// ErrRunning if the record is still running.
	Delete(id string) error

	// DeleteMany removes the given records, silently skipping running and
	// missing ones. Returns the number actually removed.
	DeleteMany(ids []string) (int, error)

	// Clear removes all records matching the filter (nil matches all),
	// silently skipping running ones. Returns the number removed.
	Clear(filter func(Run) bool) (int, error)
}
