// Package runner manages attempt sequences: single-flight execution of a
// job's command with per-job locking, a fixed-backoff retry loop, process
// group termination, and run record bookkeeping.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cronside/cronside/internal/job"
	"github.com/cronside/cronside/internal/runstore"
)

// Sentinel errors.
var (
	ErrAlreadyRunning = errors.New("runner: job is already running")
	ErrNotRunning     = errors.New("runner: job is not running")
)

// adHocName is the job name used for inline payloads; ad-hoc runs share
// one lock so at most one is in flight at a time.
const adHocName = "adhoc"

// defaultRetryDelay is the fixed backoff between failed attempts.
const defaultRetryDelay = 5 * time.Second

// timeoutExitCode is recorded when an attempt is cut off by its timeout.
const timeoutExitCode = 124

// Notifier delivers a completion notification. Delivery failures must be
// swallowed by the implementation; the runner never checks them.
type Notifier interface {
	NotifyRun(jobName, status string, attempts int, logFile string)
}

// StartRequest describes one trigger. Either Job names an existing
// definition, or AdHoc carries an inline instruction string (system
// defaults, no retries, no schedule).
type StartRequest struct {
	Job       string
	AdHoc     string
	Scheduled bool
}

// handle is the cancellation capability for one attempt sequence: it can
// terminate the current attempt's whole process group and stop the retry
// loop.
type handle struct {
	runID  string
	cancel context.CancelFunc

	mu     sync.Mutex
	pgid   int
	killed bool
}

func (h *handle) setPGID(pgid int) {
	h.mu.Lock()
	h.pgid = pgid
	h.mu.Unlock()
}

func (h *handle) markKilled() {
	h.mu.Lock()
	h.killed = true
	pgid := h.pgid
	h.mu.Unlock()

	h.cancel()
	if pgid > 0 {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

func (h *handle) isKilled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.killed
}

// Runner executes attempt sequences. Triggers return immediately; the
// sequence itself runs detached.
type Runner struct {
	logger     *slog.Logger
	jobs       *job.Store
	store      runstore.Store
	notifier   Notifier
	dataDir    string
	workdir    string
	env        map[string]string
	retryDelay time.Duration
	now        func() time.Time

	mu     sync.Mutex
	active map[string]*handle
}

// Deps carries the runner's collaborators. Notifier may be nil.
type Deps struct {
	Logger   *slog.Logger
	Jobs     *job.Store
	Store    runstore.Store
	Notifier Notifier
	DataDir  string
	Workdir  string
	Env      map[string]string
}

// New builds a Runner.
func New(deps Deps) *Runner {
	return &Runner{
		logger:     deps.Logger,
		jobs:       deps.Jobs,
		store:      deps.Store,
		notifier:   deps.Notifier,
		dataDir:    deps.DataDir,
		workdir:    deps.Workdir,
		env:        deps.Env,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
		active:     make(map[string]*handle),
	}
}

// Running reports whether an attempt sequence currently holds the job's
// lock.
func (r *Runner) Running(name string) bool {
	return locked(r.dataDir, name)
}

// Start resolves the request to a definition, acquires the job's lock and
// spawns the attempt sequence, returning its run ID. A scheduled trigger
// on a paused job is a no-op returning an empty ID. A second trigger while
// the lock is held is rejected with ErrAlreadyRunning, never queued.
func (r *Runner) Start(req StartRequest) (string, error) {
	var def job.Definition
	switch {
	case req.AdHoc != "":
		def = job.Definition{Name: adHocName, Prompt: req.AdHoc}
	default:
		d, err := r.jobs.Load(req.Job)
		if err != nil {
			return "", err
		}
		// Malformed definitions abort before any lock is taken.
		if err := d.Validate(); err != nil {
			return "", err
		}
		if req.Scheduled && !d.IsEnabled() {
			r.logger.Info("skipping scheduled trigger for paused job", "job", d.Name)
			return "", nil
		}
		def = d
	}

	lk, err := acquireLock(r.dataDir, def.Name)
	if err != nil {
		return "", err
	}

	started := r.now()
	runID := fmt.Sprintf("%s-%d", def.Name, started.UnixMilli())
	record := runstore.Run{
		ID:        runID,
		Job:       def.Name,
		StartedAt: started,
		Status:    runstore.StatusRunning,
		LogFile:   runstore.LogPath(r.dataDir, runID),
	}
	if err := r.store.Append(record); err != nil {
		lk.release()
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{runID: runID, cancel: cancel}
	r.mu.Lock()
	r.active[def.Name] = h
	r.mu.Unlock()

	runsStarted.WithLabelValues(def.Name).Inc()
	r.logger.Info("run started", "job", def.Name, "run", runID, "scheduled", req.Scheduled)

	go func() {
		defer lk.release()
		defer func() {
			r.mu.Lock()
			if r.active[def.Name] == h {
				delete(r.active, def.Name)
			}
			r.mu.Unlock()
		}()
		r.execute(ctx, def, h, lk, record.LogFile)
	}()

	return runID, nil
}

// TriggerScheduled lets the scheduler fire jobs without caring about run
// IDs or lock conflicts.
func (r *Runner) TriggerScheduled(name string) {
	if _, err := r.Start(StartRequest{Job: name, Scheduled: true}); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			r.logger.Warn("scheduled trigger skipped, previous run still active", "job", name)
			return
		}
		r.logger.Error("scheduled trigger failed", "job", name, "error", err)
	}
}

// execute runs the attempt loop and finalizes the run record. A killed
// sequence leaves its record to the kill path's reconciliation.
func (r *Runner) execute(ctx context.Context, def job.Definition, h *handle, lk *lock, logFile string) {
	ctx, span := otel.Tracer("cronside/runner").Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("job.name", def.Name),
			attribute.String("run.id", h.runID),
		))
	defer span.End()

	logf, err := runstore.OpenLog(logFile)
	if err != nil {
		r.logger.Error("cannot open run log", "job", def.Name, "run", h.runID, "error", err)
		r.finalize(def, h, 1, 0)
		return
	}
	defer func() { _ = logf.Close() }()

	exit := 1
	attempts := 0
	maxAttempts := def.Retries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		attemptsTotal.WithLabelValues(def.Name).Inc()
		exit = r.runAttempt(ctx, def, h, lk, logf)
		if exit == 0 || h.isKilled() {
			break
		}
		if attempt == maxAttempts {
			break
		}

		r.logger.Warn("attempt failed, retrying",
			"job", def.Name, "run", h.runID, "attempt", attempt, "exit_code", exit)
		select {
		case <-time.After(r.retryDelay):
		case <-ctx.Done():
		}
		if h.isKilled() {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("run.exit_code", exit),
		attribute.Int("run.attempts", attempts),
	)
	if h.isKilled() {
		// Kill owns the record transition to killed/137.
		return
	}
	r.finalize(def, h, exit, attempts)
}

// runAttempt spawns one attempt in its own process group and waits for it.
// A timeout expiry kills the group and counts as a failed attempt.
func (r *Runner) runAttempt(ctx context.Context, def job.Definition, h *handle, lk *lock, logf *os.File) int {
	attemptCtx := ctx
	if def.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(def.Timeout)*time.Second)
		defer cancel()
	}

	cmd := exec.Command("/bin/sh", "-c", def.Prompt)
	cmd.Dir = r.resolveWorkdir(def)
	cmd.Env = r.mergedEnv(def)
	cmd.Stdout = logf
	cmd.Stderr = logf
	// Own process group: the attempt outlives this process and dies as a
	// unit when signaled.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(logf, "cronside: cannot start command: %v\n", err)
		return 127
	}

	pgid := cmd.Process.Pid
	h.setPGID(pgid)
	if err := lk.writePGID(pgid); err != nil {
		r.logger.Warn("cannot record pgid", "job", def.Name, "error", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return exitCode(err)
	case <-attemptCtx.Done():
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-done
		if ctx.Err() != nil {
			return runstore.KilledExitCode
		}
		fmt.Fprintf(logf, "cronside: attempt timed out after %ds\n", def.Timeout)
		return timeoutExitCode
	}
}

func (r *Runner) finalize(def job.Definition, h *handle, exit, attempts int) {
	now := r.now()
	cleared := ""
	err := r.store.Update(h.runID, runstore.Patch{
		CompletedAt: &now,
		ExitCode:    &exit,
		Attempts:    &attempts,
		Status:      &cleared,
	})
	if err != nil {
		r.logger.Error("cannot finalize run record", "run", h.runID, "error", err)
	}

	status := runstore.StatusSuccess
	if exit != 0 {
		status = runstore.StatusFailed
	}
	runsCompleted.WithLabelValues(def.Name, status).Inc()
	r.logger.Info("run finished",
		"job", def.Name, "run", h.runID, "status", status, "exit_code", exit, "attempts", attempts)

	if r.notifier != nil && def.ShouldNotify() {
		r.notifier.NotifyRun(def.Name, status, attempts, runstore.LogPath(r.dataDir, h.runID))
	}
}

// Kill terminates the job's attempt sequence: signals the recorded process
// group, removes the lock artifacts, and force-transitions any stale
// running record to killed with exit code 137. The lock and the record can
// disagree after a crash, so each side is reconciled independently; it is
// an error only when neither exists.
func (r *Runner) Kill(name string) error {
	killed := false

	r.mu.Lock()
	h := r.active[name]
	r.mu.Unlock()
	if h != nil {
		h.markKilled()
		killed = true
	}

	if pgid, ok := readLockPGID(r.dataDir, name); ok {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
	if removeLock(r.dataDir, name) {
		killed = true
	}

	runs, err := r.store.List()
	if err != nil {
		return err
	}
	for _, rec := range runs {
		if rec.Job != name || !rec.Running() {
			continue
		}
		now := r.now()
		code := runstore.KilledExitCode
		status := runstore.StatusKilled
		err := r.store.Update(rec.ID, runstore.Patch{
			CompletedAt: &now,
			ExitCode:    &code,
			Status:      &status,
		})
		if err != nil {
			r.logger.Error("cannot reconcile killed run", "run", rec.ID, "error", err)
			continue
		}
		runsCompleted.WithLabelValues(name, runstore.StatusKilled).Inc()
		killed = true
	}

	if !killed {
		return ErrNotRunning
	}
	r.logger.Info("run killed", "job", name)
	return nil
}

func (r *Runner) resolveWorkdir(def job.Definition) string {
	if def.Workdir != "" {
		return def.Workdir
	}
	return r.workdir
}

// mergedEnv extends the process environment with the definition's declared
// lookups resolved against global configuration. Absent keys are skipped
// silently.
func (r *Runner) mergedEnv(def job.Definition) []string {
	env := os.Environ()
	for name, key := range def.Env {
		if val, ok := r.env[key]; ok {
			env = append(env, name+"="+val)
		}
	}
	return env
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code >= 0 {
			return code
		}
		// Signaled; by convention the group was SIGKILLed.
		return runstore.KilledExitCode
	}
	return 1
}
