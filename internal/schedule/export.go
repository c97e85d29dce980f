package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportRegistrar writes registration documents to a spool directory for an
// external scheduling facility to consume. One JSON document per job,
// carrying the raw expression and the rendered calendar instants.
type ExportRegistrar struct {
	dir string
}

// NewExportRegistrar creates a registrar spooling into dir.
func NewExportRegistrar(dir string) *ExportRegistrar {
	return &ExportRegistrar{dir: dir}
}

func (e *ExportRegistrar) path(job string) string {
	return filepath.Join(e.dir, job+".json")
}

// Install writes (or replaces) the registration document for reg.Job.
func (e *ExportRegistrar) Install(reg Registration) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("schedule: creating export dir: %w", err)
	}

	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("schedule: marshaling registration for %s: %w", reg.Job, err)
	}

	// Temp file plus rename so a consumer polling the spool directory
	// never reads a torn document.
	tmp, err := os.CreateTemp(e.dir, "."+reg.Job+"-*.json")
	if err != nil {
		return fmt.Errorf("schedule: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("schedule: writing registration for %s: %w", reg.Job, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("schedule: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, e.path(reg.Job)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("schedule: replacing registration for %s: %w", reg.Job, err)
	}
	return nil
}

// Remove deletes the registration document for the given job.
func (e *ExportRegistrar) Remove(job string) error {
	if err := os.Remove(e.path(job)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("schedule: removing registration for %s: %w", job, err)
	}
	return nil
}

// Installed lists jobs with a registration document present.
func (e *ExportRegistrar) Installed() []string {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names
}
