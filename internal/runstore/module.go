package runstore

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/cronside/cronside/internal/core"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&FileModule{})
	core.RegisterModule(&SQLiteModule{})
}

// FileConfig holds YAML configuration for the file-backed store module.
type FileConfig struct {
	// Path overrides the default <data_dir>/runs.json location.
	Path string `yaml:"path,omitempty"`
}

// FileModule is the "store.file" module. It publishes a FileStore under
// the "runstore" service name.
type FileModule struct {
	config FileConfig
	logger *slog.Logger
	store  *FileStore
}

// ModuleInfo implements core.Module.
func (m *FileModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.file",
		New: func() core.Module { return &FileModule{} },
	}
}

// Configure implements core.Configurable.
func (m *FileModule) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *FileModule) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	path := m.config.Path
	if path == "" {
		path = filepath.Join(ctx.DataDir, "runs.json")
	}
	m.store = NewFileStore(path)
	ctx.RegisterService("runstore", m.store)
	return nil
}

// Start implements core.Starter.
func (m *FileModule) Start() error {
	runs, err := m.store.List()
	if err != nil {
		return err
	}
	m.logger.Info("run store ready", "backend", "file", "path", m.store.path, "runs", len(runs))
	return nil
}

// SQLiteConfig holds YAML configuration for the SQLite-backed store module.
type SQLiteConfig struct {
	// Path overrides the default <data_dir>/runs.db location.
	Path string `yaml:"path,omitempty"`
}

// SQLiteModule is the "store.sqlite" module, an alternative backend for
// deployments that prefer a database over a flat file. It publishes a
// SQLiteStore under the same "runstore" service name; configuration
// validation ensures only one store module is active.
type SQLiteModule struct {
	config SQLiteConfig
	logger *slog.Logger
	path   string
	store  *SQLiteStore
}

// ModuleInfo implements core.Module.
func (m *SQLiteModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &SQLiteModule{} },
	}
}

// Configure implements core.Configurable.
func (m *SQLiteModule) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *SQLiteModule) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.path = m.config.Path
	if m.path == "" {
		m.path = filepath.Join(ctx.DataDir, "runs.db")
	}

	store, err := OpenSQLite(m.path)
	if err != nil {
		return err
	}
	m.store = store
	ctx.RegisterService("runstore", m.store)
	return nil
}

// Start implements core.Starter.
func (m *SQLiteModule) Start() error {
	runs, err := m.store.List()
	if err != nil {
		return err
	}
	m.logger.Info("run store ready", "backend", "sqlite", "path", m.path, "runs", len(runs))
	return nil
}

// Stop implements core.Stopper.
func (m *SQLiteModule) Stop(_ context.Context) error {
	return m.store.Close()
}
