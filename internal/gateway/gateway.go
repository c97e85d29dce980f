// Package gateway exposes the HTTP API: run queries and triggers, job
// CRUD, the live status stream, and metrics. It is a leaf module; nothing
// imports it.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/cronside/cronside/internal/core"
	"github.com/cronside/cronside/internal/job"
	"github.com/cronside/cronside/internal/runner"
	"github.com/cronside/cronside/internal/runstore"
	"github.com/cronside/cronside/internal/schedule"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// RunnerService is the slice of the runner module the gateway consumes.
type RunnerService interface {
	StartRun(req runner.StartRequest) (string, error)
	Kill(name string) error
	Running(name string) bool
}

// Gateway is the "gateway.http" module.
type Gateway struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger
	server *http.Server
	jobs   *job.Store

	// Resolved lazily at Start() via the service registry.
	store  runstore.Store
	runner RunnerService
	sync   schedule.SyncFunc
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.jobs = job.NewStore(ctx.JobsDir, ctx.JobsLocalDir)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service("runstore")
	if !ok {
		return errors.New("gateway: no run store module configured")
	}
	if g.store, ok = svc.(runstore.Store); !ok {
		return errors.New("gateway: runstore service has unexpected type")
	}

	svc, ok = g.appCtx.Service("runner")
	if !ok {
		return errors.New("gateway: no runner module configured")
	}
	if g.runner, ok = svc.(RunnerService); !ok {
		return errors.New("gateway: runner service has unexpected type")
	}

	// The scheduler is optional; without it re-sync requests are no-ops.
	if svc, ok := g.appCtx.Service("sched.sync"); ok {
		g.sync, _ = svc.(schedule.SyncFunc)
	}

	if !g.config.authEnabled() {
		g.logger.Warn("gateway auth is disabled; set a real token to enforce it")
	}

	g.server = &http.Server{
		Addr:        g.config.Bind,
		Handler:     g.buildRouter(),
		ReadTimeout: g.config.ReadTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind, "auth", g.config.authEnabled())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	if err := g.server.Shutdown(shutdownCtx); err != nil {
		return g.server.Close()
	}
	return nil
}

// resync reconciles compiled schedules after a job mutation. Failures are
// logged and swallowed; they never fail the mutation.
func (g *Gateway) resync() {
	if g.sync == nil {
		return
	}
	if err := g.sync(); err != nil {
		g.logger.Warn("schedule re-sync failed", "error", err)
	}
}
