// Package client is a typed HTTP client for the cronside gateway API. It
// is the transport behind the CLI data commands and the MCP server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to one cronside agent.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given base URL. Token may be empty when the
// agent runs with auth disabled.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error (%d, %s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Run mirrors the gateway's run record shape.
type Run struct {
	RunID       string     `json:"runId"`
	JobName     string     `json:"jobName"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExitCode    *int       `json:"exitCode,omitempty"`
	Attempts    int        `json:"attempts,omitempty"`
	Status      string     `json:"status"`
	LogFile     string     `json:"logFile,omitempty"`
}

// RunDetail is a run plus its full log content.
type RunDetail struct {
	Run
	Log string `json:"log"`
}

// RunList is one page of runs.
type RunList struct {
	Runs  []Run `json:"runs"`
	Total int   `json:"total"`
}

// Job mirrors the gateway's job definition shape plus live state.
type Job struct {
	Name     string            `json:"name"`
	Prompt   string            `json:"prompt"`
	Schedule string            `json:"schedule,omitempty"`
	Retries  int               `json:"retries,omitempty"`
	Timeout  int               `json:"timeout,omitempty"`
	Notify   *bool             `json:"notify,omitempty"`
	Workdir  string            `json:"workdir,omitempty"`
	Enabled  *bool             `json:"enabled,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Running  bool              `json:"running,omitempty"`
}

// ListRunsOptions narrows a run listing.
type ListRunsOptions struct {
	Limit  int
	Offset int
	Status string
}

// Health checks the agent's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListRuns returns one page of runs, newest first.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOptions) (RunList, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	path := "/api/runs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list RunList
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// GetRun returns one run with its full log.
func (c *Client) GetRun(ctx context.Context, id string) (RunDetail, error) {
	var detail RunDetail
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, &detail)
	return detail, err
}

// DeleteRun removes one completed run.
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/runs/"+url.PathEscape(id), nil, nil)
}

// DeleteRuns removes a batch of runs, returning how many were deleted.
func (c *Client) DeleteRuns(ctx context.Context, ids []string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, http.MethodPost, "/api/runs/delete", map[string][]string{"ids": ids}, &out)
	return out.Deleted, err
}

// ClearRuns removes all completed runs, optionally restricted to one
// derived status.
func (c *Client) ClearRuns(ctx context.Context, status string) (int, error) {
	body := map[string]string{}
	if status != "" {
		body["status"] = status
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, http.MethodPost, "/api/runs/clear", body, &out)
	return out.Deleted, err
}

// TriggerJob starts a named job and returns the run ID.
func (c *Client) TriggerJob(ctx context.Context, name string) (string, error) {
	var out struct {
		RunID string `json:"runId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(name)+"/run", nil, &out)
	return out.RunID, err
}

// RunAdHoc starts an inline payload and returns the run ID.
func (c *Client) RunAdHoc(ctx context.Context, prompt string) (string, error) {
	var out struct {
		RunID string `json:"runId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/run", map[string]string{"prompt": prompt}, &out)
	return out.RunID, err
}

// KillJob terminates a job's attempt sequence.
func (c *Client) KillJob(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(name)+"/kill", nil, nil)
}

// SyncSchedules reconciles compiled schedules on demand.
func (c *Client) SyncSchedules(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/sync", nil, nil)
}

// ListJobs returns the effective job definitions.
func (c *Client) ListJobs(ctx context.Context) ([]Job, error) {
	var jobs []Job
	err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &jobs)
	return jobs, err
}

// GetJob returns one effective definition.
func (c *Client) GetJob(ctx context.Context, name string) (Job, error) {
	var j Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(name), nil, &j)
	return j, err
}

// CreateJob creates a definition in the shared set.
func (c *Client) CreateJob(ctx context.Context, j Job) error {
	return c.do(ctx, http.MethodPost, "/api/jobs", j, nil)
}

// UpdateJob rewrites a definition in place.
func (c *Client) UpdateJob(ctx context.Context, j Job) error {
	return c.do(ctx, http.MethodPut, "/api/jobs/"+url.PathEscape(j.Name), j, nil)
}

// DeleteJob removes a definition from both sets.
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(name), nil, nil)
}

// ToggleJob pauses or resumes a definition, returning the new state.
func (c *Client) ToggleJob(ctx context.Context, name string) (bool, error) {
	var out struct {
		Enabled bool `json:"enabled"`
	}
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(name)+"/toggle", nil, &out)
	return out.Enabled, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(data)}
		var envelope struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
			apiErr.Reason = envelope.Reason
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}
