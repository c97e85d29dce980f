package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cronside/cronside/internal/runner"
	"github.com/cronside/cronside/internal/runstore"
)

const defaultRunLimit = 50

// runJSON is the API shape of a run record; status is always the derived
// display status.
type runJSON struct {
	RunID       string     `json:"runId"`
	JobName     string     `json:"jobName"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExitCode    *int       `json:"exitCode,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	Status      string     `json:"status"`
	LogFile     string     `json:"logFile,omitempty"`
}

func toRunJSON(r runstore.Run) runJSON {
	return runJSON{
		RunID:       r.ID,
		JobName:     r.Job,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		ExitCode:    r.ExitCode,
		Attempts:    r.Attempts,
		Status:      r.DerivedStatus(),
		LogFile:     r.LogFile,
	}
}

// recentRuns returns records newest-first, optionally filtered by derived
// status.
func recentRuns(runs []runstore.Run, status string) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		if status != "" && runs[i].DerivedStatus() != status {
			continue
		}
		out = append(out, toRunJSON(runs[i]))
	}
	return out
}

// handleListRuns lists runs newest-first with limit/offset pagination and
// an optional derived-status filter.
func (g *Gateway) handleListRuns() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit", "invalid")
				return
			}
			limit = n
		}
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid offset", "invalid")
				return
			}
			offset = n
		}

		runs, err := g.store.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}

		filtered := recentRuns(runs, r.URL.Query().Get("status"))
		total := len(filtered)
		if offset > total {
			offset = total
		}
		end := offset + limit
		if end > total {
			end = total
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"runs":  filtered[offset:end],
			"total": total,
		})
	}
}

// handleGetRun returns one run with its full log content.
func (g *Gateway) handleGetRun() http.HandlerFunc {
	type response struct {
		runJSON
		Log string `json:"log"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := g.store.Get(chi.URLParam(r, "id"))
		if errors.Is(err, runstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found", "not_found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}

		data, _, err := runstore.ReadLogFrom(run.LogFile, 0)
		if err != nil {
			g.logger.Warn("cannot read run log", "run", run.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, response{runJSON: toRunJSON(run), Log: string(data)})
	}
}

// handleDeleteRun deletes one run record and its log.
func (g *Gateway) handleDeleteRun() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := g.store.Delete(chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, runstore.ErrNotFound):
			writeError(w, http.StatusNotFound, "run not found", "not_found")
		case errors.Is(err, runstore.ErrRunning):
			writeError(w, http.StatusConflict, "run is currently running", "currently_running")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// handleDeleteRuns deletes a batch of run records, skipping running and
// unknown IDs.
func (g *Gateway) handleDeleteRuns() http.HandlerFunc {
	type request struct {
		IDs []string `json:"ids"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "ids are required", "invalid")
			return
		}
		deleted, err := g.store.DeleteMany(req.IDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	}
}

// handleClearRuns deletes all completed runs, optionally restricted to one
// derived status.
func (g *Gateway) handleClearRuns() http.HandlerFunc {
	type request struct {
		Status string `json:"status,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid body", "invalid")
				return
			}
		}

		var filter func(runstore.Run) bool
		if req.Status != "" {
			switch req.Status {
			case runstore.StatusSuccess, runstore.StatusFailed, runstore.StatusKilled:
			default:
				writeError(w, http.StatusBadRequest, "unknown status filter", "invalid")
				return
			}
			filter = func(run runstore.Run) bool { return run.DerivedStatus() == req.Status }
		}

		deleted, err := g.store.Clear(filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
	}
}

// handleTriggerJob starts a named job's attempt sequence.
func (g *Gateway) handleTriggerJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := g.runner.StartRun(runner.StartRequest{Job: chi.URLParam(r, "name")})
		if err != nil {
			g.writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
	}
}

// handleAdHocRun starts an inline payload with system defaults.
func (g *Gateway) handleAdHocRun() http.HandlerFunc {
	type request struct {
		Prompt string `json:"prompt"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			writeError(w, http.StatusBadRequest, "prompt is required", "invalid")
			return
		}
		runID, err := g.runner.StartRun(runner.StartRequest{AdHoc: req.Prompt})
		if err != nil {
			g.writeRunError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
	}
}

// handleKillJob terminates the named job's attempt sequence.
func (g *Gateway) handleKillJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := g.runner.Kill(chi.URLParam(r, "name"))
		switch {
		case errors.Is(err, runner.ErrNotRunning):
			writeError(w, http.StatusNotFound, "job is not running", "not_running")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// handleSync reconciles compiled schedules on demand.
func (g *Gateway) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.sync == nil {
			writeError(w, http.StatusNotFound, "no scheduler module configured", "not_found")
			return
		}
		if err := g.sync(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "job is currently running", "currently_running")
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "job not found", "not_found")
	case isInvalid(err):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "internal")
	}
}
