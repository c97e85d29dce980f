package schedule

import (
	"log/slog"
	"slices"
	"sync"
	"testing"
)

// recordingTrigger collects fired job names.
type recordingTrigger struct {
	mu    sync.Mutex
	fired []string
}

func (r *recordingTrigger) TriggerScheduled(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, name)
}

func TestCronRegistrar_InstallReplace(t *testing.T) {
	t.Parallel()

	reg := NewCronRegistrar(&recordingTrigger{}, slog.Default())

	if err := reg.Install(Registration{Job: "a", Expr: "* * * * *"}); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	// Re-installing the same job replaces, not duplicates.
	if err := reg.Install(Registration{Job: "a", Expr: "0 * * * *"}); err != nil {
		t.Fatalf("re-Install failed: %v", err)
	}

	if got := reg.Installed(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Installed = %v, want [a]", got)
	}
}

func TestCronRegistrar_InvalidExpression(t *testing.T) {
	t.Parallel()

	reg := NewCronRegistrar(&recordingTrigger{}, slog.Default())
	if err := reg.Install(Registration{Job: "bad", Expr: "not cron"}); err == nil {
		t.Fatal("expected error for invalid expression")
	}
	if got := reg.Installed(); len(got) != 0 {
		t.Errorf("failed install should not register, got %v", got)
	}
}

func TestCronRegistrar_RemoveUnknown(t *testing.T) {
	t.Parallel()

	reg := NewCronRegistrar(&recordingTrigger{}, slog.Default())
	if err := reg.Remove("ghost"); err != nil {
		t.Fatalf("removing unknown job should be a no-op, got %v", err)
	}
}

func TestCronRegistrar_StartStop(t *testing.T) {
	t.Parallel()

	reg := NewCronRegistrar(&recordingTrigger{}, slog.Default())
	if err := reg.Install(Registration{Job: "noop", Expr: "* * * * *"}); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	reg.Start()
	reg.Stop()
}
