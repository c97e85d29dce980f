// Package config handles YAML configuration loading, environment variable
// expansion, local override merging, and structural validation for cronside.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir is the root directory for persistent state: the run store,
	// per-run log files, and lock artifacts.
	DataDir string `yaml:"data_dir"`

	// JobsDir holds the shared job definition documents (one YAML file per
	// job).
	JobsDir string `yaml:"jobs_dir"`

	// JobsLocalDir holds local job definitions that override shared ones
	// of the same name.
	JobsLocalDir string `yaml:"jobs_local_dir"`

	// Env is the global lookup table. Job definitions declare env mappings
	// whose values are keys into this table, resolved at run time.
	Env map[string]string `yaml:"env,omitempty"`

	// Modules maps module IDs to their raw YAML configuration. Keys must
	// match registered module IDs (e.g. "store.file", "gateway.http").
	Modules map[string]yaml.Node `yaml:"modules"`
}
