package runstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LogPath returns the canonical log file location for a run.
func LogPath(dataDir, runID string) string {
	return filepath.Join(dataDir, "logs", runID+".log")
}

// OpenLog opens (creating if needed) a run's log file for appending.
func OpenLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runstore: creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runstore: opening log %s: %w", path, err)
	}
	return f, nil
}

// ReadLogFrom reads any bytes appended to the log since the given offset.
// A missing file reads as empty at offset zero, so callers can start
// tailing before the first write lands.
func ReadLogFrom(path string, offset int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("runstore: opening log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, offset, fmt.Errorf("runstore: seeking log %s: %w", path, err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, fmt.Errorf("runstore: reading log %s: %w", path, err)
	}
	return data, offset + int64(len(data)), nil
}

// removeLog deletes a record's log file best-effort. Failure to delete the
// log never fails the record deletion.
func removeLog(run Run) {
	if run.LogFile == "" {
		return
	}
	_ = os.Remove(run.LogFile)
}
