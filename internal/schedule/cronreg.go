package schedule

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Trigger starts a job in response to a fired schedule. Implemented by the
// runner; declared here to break the package dependency.
type Trigger interface {
	TriggerScheduled(name string)
}

// CronRegistrar is the embedded in-process registrar: triggers fire from a
// robfig/cron scheduler inside the agent itself. It satisfies Registrar so
// the sync path is identical whether triggers are delivered in-process or
// exported to an external facility.
type CronRegistrar struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	trigger Trigger
	logger  *slog.Logger
}

// NewCronRegistrar creates a registrar firing into the given trigger.
// Start() must be called before triggers fire.
func NewCronRegistrar(trigger Trigger, logger *slog.Logger) *CronRegistrar {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronRegistrar{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		trigger: trigger,
		logger:  logger,
	}
}

// Install replaces the registration for reg.Job. Fires on the raw cron
// expression; the compiled calendar form is for external registrars.
func (r *CronRegistrar) Install(reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.entries[reg.Job]; exists {
		r.cron.Remove(id)
		delete(r.entries, reg.Job)
	}

	name := reg.Job
	id, err := r.cron.AddFunc(reg.Expr, func() {
		r.trigger.TriggerScheduled(name)
	})
	if err != nil {
		return fmt.Errorf("schedule: invalid expression for job %q: %w", reg.Job, err)
	}

	r.entries[reg.Job] = id
	r.logger.Debug("trigger installed", "job", reg.Job, "expr", reg.Expr)
	return nil
}

// Remove drops the registration for the given job. Removing an unknown job
// is a no-op.
func (r *CronRegistrar) Remove(job string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.entries[job]; exists {
		r.cron.Remove(id)
		delete(r.entries, job)
	}
	return nil
}

// Installed returns the names of all registered jobs.
func (r *CronRegistrar) Installed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Start begins firing triggers.
func (r *CronRegistrar) Start() {
	r.cron.Start()
}

// Stop stops the scheduler, waiting for in-flight trigger callbacks.
func (r *CronRegistrar) Stop() {
	<-r.cron.Stop().Done()
}
