package runner

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLock_AcquireConflict(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	lk, err := acquireLock(dataDir, "a")
	if err != nil {
		t.Fatalf("acquireLock failed: %v", err)
	}
	if !locked(dataDir, "a") {
		t.Error("lock directory should exist after acquisition")
	}

	if _, err := acquireLock(dataDir, "a"); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second acquire = %v, want ErrAlreadyRunning", err)
	}

	// Distinct jobs do not contend.
	other, err := acquireLock(dataDir, "b")
	if err != nil {
		t.Fatalf("acquireLock for distinct job failed: %v", err)
	}
	other.release()

	lk.release()
	if locked(dataDir, "a") {
		t.Error("lock directory should be gone after release")
	}

	// Release then re-acquire.
	if _, err := acquireLock(dataDir, "a"); err != nil {
		t.Errorf("re-acquire after release failed: %v", err)
	}
}

func TestLock_PGIDRoundTrip(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	lk, err := acquireLock(dataDir, "a")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := readLockPGID(dataDir, "a"); ok {
		t.Error("pgid should not be readable before it is written")
	}

	if err := lk.writePGID(4242); err != nil {
		t.Fatalf("writePGID failed: %v", err)
	}
	pgid, ok := readLockPGID(dataDir, "a")
	if !ok || pgid != 4242 {
		t.Errorf("readLockPGID = %d, %v; want 4242, true", pgid, ok)
	}

	lk.release()
	if _, ok := readLockPGID(dataDir, "a"); ok {
		t.Error("pgid should be gone after release")
	}
}

func TestLock_ReleaseSparesReacquiredLock(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	stale, err := acquireLock(dataDir, "a")
	if err != nil {
		t.Fatal(err)
	}

	// A kill tears the lock down while the stale holder's goroutine is
	// still unwinding, and a fresh attempt sequence takes it over.
	if !removeLock(dataDir, "a") {
		t.Fatal("removeLock should report the lock existed")
	}
	fresh, err := acquireLock(dataDir, "a")
	if err != nil {
		t.Fatalf("re-acquire after kill failed: %v", err)
	}

	stale.release()
	if !locked(dataDir, "a") {
		t.Fatal("stale release must not delete the new holder's lock")
	}

	fresh.release()
	if locked(dataDir, "a") {
		t.Error("owner's release should remove the lock")
	}
}

func TestRemoveLock(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	if removeLock(dataDir, "a") {
		t.Error("removing an absent lock should report false")
	}

	if _, err := acquireLock(dataDir, "a"); err != nil {
		t.Fatal(err)
	}
	if !removeLock(dataDir, "a") {
		t.Error("removing an existing lock should report true")
	}
	if locked(dataDir, "a") {
		t.Error("lock should be gone")
	}
}
