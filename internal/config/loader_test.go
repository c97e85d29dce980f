package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoad_Basic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cronside.yaml")
	writeFile(t, path, `
version: "1"
env:
  API_KEY: secret
modules:
  store.file: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if cfg.Env["API_KEY"] != "secret" {
		t.Errorf("Env[API_KEY] = %q, want %q", cfg.Env["API_KEY"], "secret")
	}
	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Errorf("DataDir = %q, want default under config dir", cfg.DataDir)
	}
	if cfg.JobsDir != filepath.Join(dir, "jobs") {
		t.Errorf("JobsDir = %q, want default under config dir", cfg.JobsDir)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CRONSIDE_TEST_TOKEN", "tok-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "cronside.yaml")
	writeFile(t, path, `
version: "1"
env:
  TOKEN: ${CRONSIDE_TEST_TOKEN}
  FALLBACK: ${CRONSIDE_TEST_MISSING:-dflt}
modules:
  store.file: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env["TOKEN"] != "tok-123" {
		t.Errorf("TOKEN = %q, want tok-123", cfg.Env["TOKEN"])
	}
	if cfg.Env["FALLBACK"] != "dflt" {
		t.Errorf("FALLBACK = %q, want dflt", cfg.Env["FALLBACK"])
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cronside.yaml")
	writeFile(t, path, "version: \"1\"\ndata_dir: ${CRONSIDE_TEST_NO_SUCH_VAR}\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unresolved variable")
	}
}

func TestLoad_LocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "cronside.yaml")
	writeFile(t, base, `
version: "1"
data_dir: /base/data
env:
  A: base-a
  B: base-b
modules:
  store.file: {}
`)
	writeFile(t, filepath.Join(dir, "cronside.local.yaml"), `
data_dir: /local/data
env:
  B: local-b
  C: local-c
`)

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DataDir != "/local/data" {
		t.Errorf("DataDir = %q, want local override", cfg.DataDir)
	}
	if cfg.Env["A"] != "base-a" || cfg.Env["B"] != "local-b" || cfg.Env["C"] != "local-c" {
		t.Errorf("Env merge wrong: %v", cfg.Env)
	}
	if _, ok := cfg.Modules["store.file"]; !ok {
		t.Error("base modules should survive local override")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve_SortedIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cronside.yaml")
	writeFile(t, path, `
version: "1"
modules:
  store.file: {}
  gateway.http: {}
  runner.local: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids := Resolve(cfg)
	want := []string{"gateway.http", "runner.local", "store.file"}
	if len(ids) != len(want) {
		t.Fatalf("Resolve = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
