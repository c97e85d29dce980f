package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cronside/cronside/internal/core"
	"github.com/cronside/cronside/internal/job"
	"github.com/cronside/cronside/internal/runstore"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config holds YAML configuration for the runner module.
type Config struct {
	// Workdir is the default working directory for jobs that do not set
	// their own. Empty means the agent's working directory.
	Workdir string `yaml:"workdir,omitempty"`
}

// Module is the "runner.local" module. It publishes itself as the "runner"
// service; the inner Runner is assembled at start time, after the store
// and notifier modules have provisioned their services.
type Module struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger
	runner *Runner
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "runner.local",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.appCtx = ctx
	m.logger = ctx.Logger
	ctx.RegisterService("runner", m)
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	svc, ok := m.appCtx.Service("runstore")
	if !ok {
		return errors.New("runner: no run store module configured")
	}
	store, ok := svc.(runstore.Store)
	if !ok {
		return errors.New("runner: runstore service has unexpected type")
	}

	var notifier Notifier
	if svc, ok := m.appCtx.Service("notify"); ok {
		notifier, _ = svc.(Notifier)
	}

	m.runner = New(Deps{
		Logger:   m.logger,
		Jobs:     job.NewStore(m.appCtx.JobsDir, m.appCtx.JobsLocalDir),
		Store:    store,
		Notifier: notifier,
		DataDir:  m.appCtx.DataDir,
		Workdir:  m.config.Workdir,
		Env:      m.appCtx.Env,
	})
	m.logger.Info("runner ready", "workdir", m.config.Workdir)
	return nil
}

// Stop implements core.Stopper. In-flight attempt sequences are detached
// into their own process groups and deliberately survive agent shutdown;
// their records are reconciled by the kill path if needed.
func (m *Module) Stop(_ context.Context) error {
	return nil
}

// StartRun starts an attempt sequence on behalf of the gateway or CLI.
func (m *Module) StartRun(req StartRequest) (string, error) {
	if m.runner == nil {
		return "", errors.New("runner: not started")
	}
	return m.runner.Start(req)
}

// Kill terminates the named job's attempt sequence.
func (m *Module) Kill(name string) error {
	if m.runner == nil {
		return errors.New("runner: not started")
	}
	return m.runner.Kill(name)
}

// Running reports whether the named job currently holds its lock.
func (m *Module) Running(name string) bool {
	if m.runner == nil {
		return false
	}
	return m.runner.Running(name)
}

// TriggerScheduled implements the scheduler's trigger contract.
func (m *Module) TriggerScheduled(name string) {
	if m.runner == nil {
		m.logger.Error("trigger fired before runner start", "job", name)
		return
	}
	m.runner.TriggerScheduled(name)
}
