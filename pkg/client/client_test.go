package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SendsBearerToken(t *testing.T) {
	t.Parallel()

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(RunList{Total: 0})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	if _, err := c.ListRuns(context.Background(), ListRunsOptions{Limit: 5}); err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/runs" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestClient_TriggerJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs/daily/run" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"runId": "daily-42"})
	}))
	defer srv.Close()

	runID, err := New(srv.URL, "").TriggerJob(context.Background(), "daily")
	if err != nil {
		t.Fatalf("TriggerJob failed: %v", err)
	}
	if runID != "daily-42" {
		t.Errorf("runID = %q", runID)
	}
}

func TestClient_DecodesAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"job is currently running","reason":"currently_running"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "").KillJob(context.Background(), "daily")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Reason != "currently_running" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_NoContentResponses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if err := c.SyncSchedules(context.Background()); err != nil {
		t.Errorf("SyncSchedules = %v", err)
	}
	if err := c.DeleteRun(context.Background(), "r-1"); err != nil {
		t.Errorf("DeleteRun = %v", err)
	}
}
