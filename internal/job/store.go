package job

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store reads and writes job definition documents across the shared and
// local directories. A local definition fully shadows a shared one of the
// same name. Create writes to the shared set; Update, Delete and Toggle
// operate on the file that currently defines the job, preferring local.
type Store struct {
	SharedDir string
	LocalDir  string
}

// NewStore creates a Store over the given directory pair.
func NewStore(sharedDir, localDir string) *Store {
	return &Store{SharedDir: sharedDir, LocalDir: localDir}
}

// path returns the definition filename for a job in the given directory.
func path(dir, name string) string {
	return filepath.Join(dir, name+".yaml")
}

// Load returns the effective definition for the given name, honoring
// local-over-shared precedence.
func (s *Store) Load(name string) (Definition, error) {
	if err := ValidateName(name); err != nil {
		return Definition{}, err
	}

	for _, dir := range []string{s.LocalDir, s.SharedDir} {
		def, err := readDefinition(path(dir, name))
		if err == nil {
			return def, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Definition{}, err
		}
	}

	return Definition{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns all effective definitions sorted by name. Unparseable files
// are skipped.
func (s *Store) List() ([]Definition, error) {
	merged := make(map[string]Definition)

	// Shared first so local entries shadow them.
	for _, dir := range []string{s.SharedDir, s.LocalDir} {
		defs, err := readDir(dir)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			merged[def.Name] = def
		}
	}

	result := make([]Definition, 0, len(merged))
	for _, def := range merged {
		result = append(result, def)
	}
	slices.SortFunc(result, func(a, b Definition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return result, nil
}

// Create writes a new definition to the shared set. Rejected when any
// definition with the same name already exists in either set.
func (s *Store) Create(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, err := s.Load(def.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, def.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	return writeDefinition(path(s.SharedDir, def.Name), def)
}

// Update rewrites an existing definition in place, wherever it lives.
func (s *Store) Update(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	dir, err := s.locate(def.Name)
	if err != nil {
		return err
	}
	return writeDefinition(path(dir, def.Name), def)
}

// Delete removes the definition from both sets.
func (s *Store) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	found := false
	for _, dir := range []string{s.LocalDir, s.SharedDir} {
		err := os.Remove(path(dir, name))
		if err == nil {
			found = true
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("job: deleting %s: %w", name, err)
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Toggle pauses or resumes a job. Pausing sets enabled: false; resuming
// removes the key entirely so the document returns to its original form.
func (s *Store) Toggle(name string) (Definition, error) {
	def, err := s.Load(name)
	if err != nil {
		return Definition{}, err
	}

	if def.IsEnabled() {
		disabled := false
		def.Enabled = &disabled
	} else {
		def.Enabled = nil
	}

	if err := s.Update(def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// locate returns the directory currently holding the named definition,
// preferring local.
func (s *Store) locate(name string) (string, error) {
	for _, dir := range []string{s.LocalDir, s.SharedDir} {
		if _, err := os.Stat(path(dir, name)); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

func readDefinition(p string) (Definition, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return Definition{}, err
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("job: parsing %s: %w", p, err)
	}

	// The filename is authoritative when the document omits the name.
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(p), ".yaml")
	}

	return def, nil
}

func readDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("job: reading %s: %w", dir, err)
	}

	defs := make([]Definition, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		def, err := readDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if ValidateName(def.Name) != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// writeDefinition replaces the definition file atomically so a concurrent
// reader never sees a half-written document.
func writeDefinition(p string, def Definition) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("job: creating directory: %w", err)
	}

	raw, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("job: marshaling %s: %w", def.Name, err)
	}

	tmp, err := os.CreateTemp(dir, "."+def.Name+"-*.yaml")
	if err != nil {
		return fmt.Errorf("job: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("job: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("job: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("job: replacing %s: %w", p, err)
	}
	return nil
}
