package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps run records in a single JSON array on disk. Every write
// rewrites the full file through a temp-file rename, so readers never see a
// partially written document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the given JSON file. The file is
// created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// load reads the current collection. A missing or unparseable file reads as
// empty; the next successful write replaces it.
func (s *FileStore) load() []Run {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var runs []Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil
	}
	return runs
}

func (s *FileStore) save(runs []Run) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("runstore: encoding runs: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("runstore: creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".runs-*.json")
	if err != nil {
		return fmt.Errorf("runstore: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("runstore: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("runstore: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("runstore: replacing %s: %w", s.path, err)
	}
	return nil
}

// Append implements Store.
func (s *FileStore) Append(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := append(s.load(), run)
	if len(runs) > MaxRecords {
		runs = runs[len(runs)-MaxRecords:]
	}
	return s.save(runs)
}

// Update implements Store.
func (s *FileStore) Update(id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.load()
	for i := range runs {
		if runs[i].ID == id {
			patch.apply(&runs[i])
			return s.save(runs)
		}
	}
	return ErrNotFound
}

// Get implements Store.
func (s *FileStore) Get(id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.load() {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, ErrNotFound
}

// List implements Store.
func (s *FileStore) List() ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Delete implements Store.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.load()
	for i, r := range runs {
		if r.ID != id {
			continue
		}
		if r.Running() {
			return ErrRunning
		}
		removeLog(r)
		runs = append(runs[:i], runs[i+1:]...)
		return s.save(runs)
	}
	return ErrNotFound
}

// DeleteMany implements Store.
func (s *FileStore) DeleteMany(ids []string) (int, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.Clear(func(r Run) bool { return wanted[r.ID] })
}

// Clear implements Store.
func (s *FileStore) Clear(filter func(Run) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.load()
	kept := runs[:0:0]
	removed := 0
	for _, r := range runs {
		if r.Running() || (filter != nil && !filter(r)) {
			kept = append(kept, r)
			continue
		}
		removeLog(r)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(kept)
}
