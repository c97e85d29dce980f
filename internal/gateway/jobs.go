package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cronside/cronside/internal/job"
)

func isNotFound(err error) bool {
	return errors.Is(err, job.ErrNotFound)
}

func isInvalid(err error) bool {
	return errors.Is(err, job.ErrInvalid) || errors.Is(err, job.ErrInvalidName)
}

// jobJSON is a definition plus live state.
type jobJSON struct {
	job.Definition
	Running bool `json:"running"`
}

// handleListJobs lists the effective (precedence-resolved) definitions.
func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		defs, err := g.jobs.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error(), "internal")
			return
		}
		out := make([]jobJSON, 0, len(defs))
		for _, def := range defs {
			out = append(out, jobJSON{Definition: def, Running: g.runner.Running(def.Name)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetJob returns one effective definition.
func (g *Gateway) handleGetJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, err := g.jobs.Load(chi.URLParam(r, "name"))
		if err != nil {
			g.writeJobError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jobJSON{Definition: def, Running: g.runner.Running(def.Name)})
	}
}

// handleCreateJob creates a definition in the shared set and re-syncs
// schedules.
func (g *Gateway) handleCreateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var def job.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body", "invalid")
			return
		}
		if err := def.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "invalid")
			return
		}
		if err := g.jobs.Create(def); err != nil {
			g.writeJobError(w, err)
			return
		}
		g.resync()
		writeJSON(w, http.StatusCreated, def)
	}
}

// handleUpdateJob rewrites a definition in place and re-syncs schedules.
func (g *Gateway) handleUpdateJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var def job.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body", "invalid")
			return
		}
		def.Name = chi.URLParam(r, "name")
		if err := def.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "invalid")
			return
		}
		if err := g.jobs.Update(def); err != nil {
			g.writeJobError(w, err)
			return
		}
		g.resync()
		writeJSON(w, http.StatusOK, def)
	}
}

// handleDeleteJob removes a definition from both sets. A running job
// cannot be deleted.
func (g *Gateway) handleDeleteJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if g.runner.Running(name) {
			writeError(w, http.StatusConflict, "job is currently running", "currently_running")
			return
		}
		if err := g.jobs.Delete(name); err != nil {
			g.writeJobError(w, err)
			return
		}
		g.resync()
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleToggleJob pauses or resumes a definition. A running job cannot be
// toggled.
func (g *Gateway) handleToggleJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if g.runner.Running(name) {
			writeError(w, http.StatusConflict, "job is currently running", "currently_running")
			return
		}
		def, err := g.jobs.Toggle(name)
		if err != nil {
			g.writeJobError(w, err)
			return
		}
		g.resync()
		writeJSON(w, http.StatusOK, map[string]any{"name": def.Name, "enabled": def.IsEnabled()})
	}
}

func (g *Gateway) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "job not found", "not_found")
	case errors.Is(err, job.ErrExists):
		writeError(w, http.StatusConflict, "job already exists", "exists")
	case isInvalid(err):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "internal")
	}
}
