package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhook_DeliversSignedEvent(t *testing.T) {
	t.Parallel()

	const secret = "topsecret"

	var (
		gotBody []byte
		gotSig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature-256")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, secret, testLogger())
	wh.NotifyRun("daily", "success", 2, "/data/logs/daily-1.log")

	var event Event
	if err := json.Unmarshal(gotBody, &event); err != nil {
		t.Fatalf("decoding delivered payload: %v", err)
	}
	if event.Job != "daily" || event.Status != "success" || event.Attempts != 2 {
		t.Errorf("delivered event = %+v", event)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}
}

func TestWebhook_UnsignedWhenNoSecret(t *testing.T) {
	t.Parallel()

	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature-256")
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, "", testLogger())
	wh.NotifyRun("daily", "failed", 1, "")

	if gotSig != "" {
		t.Errorf("signature header = %q, want absent", gotSig)
	}
}

func TestWebhook_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	// Neither a rejecting endpoint nor an unreachable one may panic or
	// propagate; delivery is best-effort.
	NewWebhook(srv.URL, "", testLogger()).NotifyRun("daily", "success", 1, "")
	NewWebhook("http://127.0.0.1:1", "", testLogger()).NotifyRun("daily", "success", 1, "")
}
