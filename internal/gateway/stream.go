package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/cronside/cronside/internal/runstore"
)

const (
	// streamInterval is the polling tick; the store has no native change
	// feed, so the stream diffs snapshots once per second.
	streamInterval = time.Second

	// streamRecentRuns bounds the status event payload.
	streamRecentRuns = 50

	streamWriteTimeout = 5 * time.Second
)

// streamEvent is one message on the live stream. Type is "status" (recent
// runs after a state change) or "log" (appended bytes for a running run).
// Offset is the byte position the chunk starts at; an offset of zero after
// a reconnect means the chunk replaces anything the client has buffered.
type streamEvent struct {
	Type   string    `json:"type"`
	Runs   []runJSON `json:"runs,omitempty"`
	RunID  string    `json:"runId,omitempty"`
	Chunk  string    `json:"chunk,omitempty"`
	Offset int64     `json:"offset"`
}

// handleStream upgrades to WebSocket and pushes incremental updates until
// the client goes away. All diffing state is per-connection.
func (g *Gateway) handleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Warn("stream upgrade failed", "error", err)
			return
		}
		defer func() { _ = conn.CloseNow() }()

		// No inbound messages are expected; CloseRead surfaces client
		// disconnects through the context.
		ctx := conn.CloseRead(r.Context())
		g.streamLoop(ctx, conn)
	}
}

func (g *Gateway) streamLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var lastFingerprint string
	offsets := make(map[string]int64)
	logFiles := make(map[string]string)

	for {
		if err := g.streamTick(ctx, conn, &lastFingerprint, offsets, logFiles); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// streamTick performs one poll cycle: a status event when the run set
// changed, log events for bytes appended since the previous tick, and a
// final log flush when a run leaves the running state.
func (g *Gateway) streamTick(ctx context.Context, conn *websocket.Conn, lastFingerprint *string, offsets map[string]int64, logFiles map[string]string) error {
	runs, err := g.store.List()
	if err != nil {
		g.logger.Warn("stream poll failed", "error", err)
		return nil
	}

	recent := recentRuns(runs, "")
	if len(recent) > streamRecentRuns {
		recent = recent[:streamRecentRuns]
	}
	if fp := fingerprint(recent); fp != *lastFingerprint {
		if err := writeEvent(ctx, conn, streamEvent{Type: "status", Runs: recent}); err != nil {
			return err
		}
		*lastFingerprint = fp
	}

	running := make(map[string]bool, len(runs))
	for _, run := range runs {
		if !run.Running() {
			continue
		}
		running[run.ID] = true
		logFiles[run.ID] = run.LogFile
		if err := g.flushLog(ctx, conn, run.ID, run.LogFile, offsets); err != nil {
			return err
		}
	}

	// One final flush for runs that completed since the previous tick.
	for id := range offsets {
		if running[id] {
			continue
		}
		if err := g.flushLog(ctx, conn, id, logFiles[id], offsets); err != nil {
			return err
		}
		delete(offsets, id)
		delete(logFiles, id)
	}
	return nil
}

func (g *Gateway) flushLog(ctx context.Context, conn *websocket.Conn, runID, logFile string, offsets map[string]int64) error {
	start := offsets[runID]
	data, next, err := runstore.ReadLogFrom(logFile, start)
	if err != nil {
		g.logger.Warn("stream log read failed", "run", runID, "error", err)
		return nil
	}
	offsets[runID] = next
	if len(data) == 0 {
		return nil
	}
	return writeEvent(ctx, conn, streamEvent{Type: "log", RunID: runID, Chunk: string(data), Offset: start})
}

// fingerprint condenses the visible run set to id+status+exitCode; any
// change in it warrants a status event.
func fingerprint(runs []runJSON) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.RunID)
		b.WriteByte('|')
		b.WriteString(r.Status)
		b.WriteByte('|')
		if r.ExitCode != nil {
			b.WriteString(strconv.Itoa(*r.ExitCode))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev streamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}
