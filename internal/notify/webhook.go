// Package notify delivers best-effort completion notifications. Delivery
// failures are logged and swallowed; they never fail the run.
package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Event is the JSON payload delivered for a finished run.
type Event struct {
	Job      string `json:"job"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts"`
	LogFile  string `json:"logFile,omitempty"`
}

// Webhook POSTs events to a single URL, optionally signing the body with
// HMAC-SHA256 in the X-Signature-256 header.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook builds a webhook notifier. Secret may be empty for unsigned
// delivery.
func NewWebhook(url, secret string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// NotifyRun delivers one completion event.
func (w *Webhook) NotifyRun(jobName, status string, attempts int, logFile string) {
	body, err := json.Marshal(Event{Job: jobName, Status: status, Attempts: attempts, LogFile: logFile})
	if err != nil {
		w.logger.Error("webhook payload encoding failed", "job", jobName, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("webhook request failed", "job", jobName, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Signature-256", sign(body, w.secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed", "job", jobName, "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		w.logger.Warn("webhook delivery rejected", "job", jobName, "status", resp.StatusCode)
		return
	}
	w.logger.Debug("notification delivered", "job", jobName, "status", status)
}

// sign computes the HMAC-SHA256 signature header value.
func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
