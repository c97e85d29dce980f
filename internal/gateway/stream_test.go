package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/cronside/cronside/internal/runstore"
)

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) streamEvent {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("reading stream event: %v", err)
	}
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decoding stream event %q: %v", data, err)
	}
	return ev
}

func TestGateway_StreamPushesStatusAndLogs(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, "")

	logFile := runstore.LogPath(t.TempDir(), "live-1")
	logf, err := runstore.OpenLog(logFile)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = logf.Close() }()

	err = tg.store.Append(runstore.Run{
		ID:        "live-1",
		Job:       "daily",
		StartedAt: time.Now(),
		Status:    runstore.StatusRunning,
		LogFile:   logFile,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(tg.srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer func() { _ = conn.CloseNow() }()

	// The first tick pushes the current snapshot.
	ev := readEvent(t, ctx, conn)
	if ev.Type != "status" || len(ev.Runs) != 1 || ev.Runs[0].RunID != "live-1" {
		t.Fatalf("first event = %+v, want status with live-1", ev)
	}
	if ev.Runs[0].Status != runstore.StatusRunning {
		t.Errorf("streamed status = %q, want running", ev.Runs[0].Status)
	}

	// Appended log bytes arrive as an incremental chunk.
	if _, err := logf.WriteString("line one\n"); err != nil {
		t.Fatal(err)
	}
	ev = readEvent(t, ctx, conn)
	if ev.Type != "log" || ev.RunID != "live-1" || ev.Chunk != "line one\n" {
		t.Fatalf("log event = %+v", ev)
	}
	if ev.Offset != 0 {
		t.Errorf("first chunk offset = %d, want 0", ev.Offset)
	}

	// Completing the run yields a status change plus one final log flush.
	if _, err := logf.WriteString("done\n"); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	exit := 0
	attempts := 1
	cleared := ""
	err = tg.store.Update("live-1", runstore.Patch{
		CompletedAt: &now,
		ExitCode:    &exit,
		Attempts:    &attempts,
		Status:      &cleared,
	})
	if err != nil {
		t.Fatal(err)
	}

	sawFinalStatus := false
	sawFinalChunk := false
	for !sawFinalStatus || !sawFinalChunk {
		ev = readEvent(t, ctx, conn)
		switch ev.Type {
		case "status":
			if len(ev.Runs) == 1 && ev.Runs[0].Status == runstore.StatusSuccess {
				sawFinalStatus = true
			}
		case "log":
			if strings.Contains(ev.Chunk, "done") {
				// The chunk picks up where the previous one ended, so a
				// client can stitch chunks by byte position.
				if want := int64(len("line one\n")); ev.Offset != want {
					t.Errorf("final chunk offset = %d, want %d", ev.Offset, want)
				}
				sawFinalChunk = true
			}
		}
	}
}

func TestGateway_StreamQuietWhenNothingChanges(t *testing.T) {
	t.Parallel()

	tg := newTestGateway(t, "")
	seedRun(t, tg.store, "old-1", "daily", intPtr(0), "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(tg.srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.CloseNow() }()

	ev := readEvent(t, ctx, conn)
	if ev.Type != "status" {
		t.Fatalf("first event = %+v, want status", ev)
	}

	// With no state change, no further event lands within two ticks.
	quiet, quietCancel := context.WithTimeout(ctx, 2500*time.Millisecond)
	defer quietCancel()
	if _, data, err := conn.Read(quiet); err == nil {
		t.Errorf("unexpected event while idle: %s", data)
	}
}
