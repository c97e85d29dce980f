package schedule

import (
	"context"
	"log/slog"

	"github.com/cronside/cronside/internal/core"
	"github.com/cronside/cronside/internal/job"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config holds YAML configuration for the scheduler module.
type Config struct {
	// ExportDir, when set, additionally spools registration documents for
	// an external scheduling facility.
	ExportDir string `yaml:"export_dir,omitempty"`
}

// Module is the "sched.cron" module. It compiles job schedules, keeps the
// embedded trigger registrar in sync with the effective definitions, and
// exposes the sync operation as a service for the gateway and CLI.
type Module struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	jobs      *job.Store
	registrar *CronRegistrar
	export    *ExportRegistrar
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "sched.cron",
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
	m.jobs = job.NewStore(ctx.JobsDir, ctx.JobsLocalDir)
	m.registrar = NewCronRegistrar(m, m.logger)
	if m.config.ExportDir != "" {
		m.export = NewExportRegistrar(m.config.ExportDir)
	}

	ctx.RegisterService("sched.sync", SyncFunc(m.SyncNow))
	return nil
}

// SyncFunc is the service type under which the sync operation is published.
type SyncFunc func() error

// Start implements core.Starter: initial sync, then begin firing triggers.
func (m *Module) Start() error {
	if err := m.SyncNow(); err != nil {
		return err
	}
	m.registrar.Start()
	m.logger.Info("scheduler started", "installed", len(m.registrar.Installed()))
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.registrar.Stop()
	m.logger.Info("scheduler stopped")
	return nil
}

// SyncNow recompiles all schedules and reconciles the registrar(s) with
// the effective definitions. Idempotent; safe to invoke concurrently.
func (m *Module) SyncNow() error {
	defs, err := m.jobs.List()
	if err != nil {
		return err
	}

	if err := Sync(defs, m.registrar, m.logger); err != nil {
		return err
	}
	if m.export != nil {
		if err := Sync(defs, m.export, m.logger); err != nil {
			return err
		}
	}
	return nil
}

// TriggerScheduled implements Trigger by forwarding a fired schedule to the
// runner service. Resolution is lazy so trigger wiring does not depend on
// module start order.
func (m *Module) TriggerScheduled(name string) {
	svc, ok := m.appCtx.Service("runner")
	if !ok {
		m.logger.Error("trigger fired but no runner service registered", "job", name)
		return
	}
	trigger, ok := svc.(Trigger)
	if !ok {
		m.logger.Error("runner service does not accept triggers", "job", name)
		return
	}
	trigger.TriggerScheduled(name)
}
