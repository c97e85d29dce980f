package job

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	return NewStore(filepath.Join(base, "jobs"), filepath.Join(base, "jobs.local"))
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	valid := []string{"a", "my-job", "job-2", "a1-b2-c3"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "My-Job", "job_1", "-job", "job-", "job--x", "job.yaml", "a b"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
		}
	}
}

func TestStore_CreateLoadDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	def := Definition{Name: "my-job", Prompt: "echo hi", Schedule: "0 7 * * *", Retries: 2}

	if err := s.Create(def); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Load("my-job")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Prompt != "echo hi" || got.Schedule != "0 7 * * *" || got.Retries != 2 {
		t.Errorf("Load = %+v", got)
	}
	if !got.IsEnabled() || !got.ShouldNotify() {
		t.Error("defaults should be enabled + notify")
	}

	if err := s.Create(def); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate Create = %v, want ErrExists", err)
	}

	if err := s.Delete("my-job"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load("my-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete("my-job"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_LocalOverridesShared(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if err := s.Create(Definition{Name: "backup", Prompt: "shared version"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := os.MkdirAll(s.LocalDir, 0o755); err != nil {
		t.Fatal(err)
	}
	local := "name: backup\nprompt: local version\n"
	if err := os.WriteFile(filepath.Join(s.LocalDir, "backup.yaml"), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("backup")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Prompt != "local version" {
		t.Errorf("Prompt = %q, want local version", got.Prompt)
	}

	defs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("List returned %d definitions, want 1 (local shadows shared)", len(defs))
	}
	if defs[0].Prompt != "local version" {
		t.Errorf("List[0].Prompt = %q, want local version", defs[0].Prompt)
	}
}

func TestStore_WritesAreAtomic(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Create(Definition{Name: "backup", Prompt: "echo hi"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The temp file used for the atomic replace must not linger.
	entries, err := os.ReadDir(s.SharedDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.Name() != "backup.yaml" {
			t.Errorf("unexpected file in shared dir: %s", entry.Name())
		}
	}

	// A temp file left behind by a crash is not a definition.
	leftover := filepath.Join(s.SharedDir, ".backup-123.yaml")
	if err := os.WriteFile(leftover, []byte("name: backup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "backup" {
		t.Errorf("List = %+v, want only backup", defs)
	}
}

func TestStore_ToggleRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Create(Definition{Name: "nightly", Prompt: "run backups"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	original, err := os.ReadFile(filepath.Join(s.SharedDir, "nightly.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	paused, err := s.Toggle("nightly")
	if err != nil {
		t.Fatalf("Toggle (pause) failed: %v", err)
	}
	if paused.IsEnabled() {
		t.Error("job should be disabled after first toggle")
	}

	resumed, err := s.Toggle("nightly")
	if err != nil {
		t.Fatalf("Toggle (resume) failed: %v", err)
	}
	if !resumed.IsEnabled() {
		t.Error("job should be enabled after second toggle")
	}
	if resumed.Enabled != nil {
		t.Error("enabled key should be absent after resume")
	}

	roundTripped, err := os.ReadFile(filepath.Join(s.SharedDir, "nightly.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if string(roundTripped) != string(original) {
		t.Errorf("toggled-twice document differs from original:\n%s\nvs\n%s", roundTripped, original)
	}
}

func TestStore_List_SkipsMalformed(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if err := s.Create(Definition{Name: "good", Prompt: "ok"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.SharedDir, "bad.yaml"), []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.SharedDir, "README.md"), []byte("docs"), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "good" {
		t.Errorf("List = %+v, want only the good definition", defs)
	}
}

func TestDefinition_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{"valid", Definition{Name: "ok", Prompt: "do it"}, false},
		{"bad name", Definition{Name: "Not-OK", Prompt: "x"}, true},
		{"missing prompt", Definition{Name: "ok"}, true},
		{"negative retries", Definition{Name: "ok", Prompt: "x", Retries: -1}, true},
		{"negative timeout", Definition{Name: "ok", Prompt: "x", Timeout: -5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.def.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
