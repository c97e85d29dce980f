package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables, and
// parses it into a Config. If a sibling "<base>.local.yaml" file exists it
// is loaded the same way and merged over the base config (base overridden
// by local).
func Load(path string) (*Config, error) {
	cfg, err := loadOne(path)
	if err != nil {
		return nil, err
	}

	localPath := overridePath(path)
	if _, statErr := os.Stat(localPath); statErr == nil {
		local, err := loadOne(localPath)
		if err != nil {
			return nil, err
		}
		merge(cfg, local)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return cfg, nil
}

func loadOne(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// overridePath derives the local override filename: cronside.yaml →
// cronside.local.yaml.
func overridePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// merge overlays local on top of base. Scalars are replaced when set in
// local; the env table and module map are merged per key, local winning.
func merge(base, local *Config) {
	if local.Version != "" {
		base.Version = local.Version
	}
	if local.DataDir != "" {
		base.DataDir = local.DataDir
	}
	if local.JobsDir != "" {
		base.JobsDir = local.JobsDir
	}
	if local.JobsLocalDir != "" {
		base.JobsLocalDir = local.JobsLocalDir
	}
	if len(local.Env) > 0 {
		if base.Env == nil {
			base.Env = make(map[string]string, len(local.Env))
		}
		for k, v := range local.Env {
			base.Env[k] = v
		}
	}
	if len(local.Modules) > 0 {
		if base.Modules == nil {
			base.Modules = make(map[string]yaml.Node, len(local.Modules))
		}
		for id, node := range local.Modules {
			base.Modules[id] = node
		}
	}
}

// applyDefaults fills directory fields relative to the config file's
// directory when unset.
func (c *Config) applyDefaults(baseDir string) {
	if c.DataDir == "" {
		c.DataDir = filepath.Join(baseDir, "data")
	}
	if c.JobsDir == "" {
		c.JobsDir = filepath.Join(baseDir, "jobs")
	}
	if c.JobsLocalDir == "" {
		c.JobsLocalDir = filepath.Join(baseDir, "jobs.local")
	}
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env
// value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
