package runner

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// A job's lock is a directory created atomically with os.Mkdir, plus a pgid
// file naming the process group of the attempt sequence and an owner file
// identifying the acquirer. The directory is removed on every exit path;
// the kill command also removes it when the owning process is gone.

func lockDir(dataDir, name string) string {
	return filepath.Join(dataDir, "locks", name+".lock")
}

func pgidPath(dataDir, name string) string {
	return filepath.Join(lockDir(dataDir, name), "pgid")
}

func ownerPath(dataDir, name string) string {
	return filepath.Join(lockDir(dataDir, name), "owner")
}

type lock struct {
	dataDir string
	name    string
	token   string
}

// acquireLock creates the lock directory, failing with ErrAlreadyRunning
// if another attempt sequence holds it. The owner token lets release tell
// its own lock apart from one re-acquired after a kill removed the first.
func acquireLock(dataDir, name string) (*lock, error) {
	dir := lockDir(dataDir, name)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, fmt.Errorf("runner: creating lock directory: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("runner: acquiring lock for %s: %w", name, err)
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("runner: generating lock token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := os.WriteFile(ownerPath(dataDir, name), []byte(token), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("runner: writing lock owner: %w", err)
	}
	return &lock{dataDir: dataDir, name: name, token: token}, nil
}

// writePGID records the attempt sequence's process group so the kill
// command can signal it even after this process is gone.
func (l *lock) writePGID(pgid int) error {
	return os.WriteFile(pgidPath(l.dataDir, l.name), []byte(strconv.Itoa(pgid)), 0o644)
}

// release removes the lock only while this acquirer still owns it. After a
// kill removed the directory, a new attempt sequence may have re-acquired
// it; its lock is not ours to delete.
func (l *lock) release() {
	data, err := os.ReadFile(ownerPath(l.dataDir, l.name))
	if err != nil || string(data) != l.token {
		return
	}
	_ = os.RemoveAll(lockDir(l.dataDir, l.name))
}

// locked reports whether a lock directory currently exists for the job.
func locked(dataDir, name string) bool {
	_, err := os.Stat(lockDir(dataDir, name))
	return err == nil
}

// readLockPGID returns the process group recorded in the job's lock, if
// both the lock and a parseable pgid file exist.
func readLockPGID(dataDir, name string) (int, bool) {
	data, err := os.ReadFile(pgidPath(dataDir, name))
	if err != nil {
		return 0, false
	}
	pgid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pgid <= 0 {
		return 0, false
	}
	return pgid, true
}

// removeLock deletes the lock artifacts, reporting whether they existed.
func removeLock(dataDir, name string) bool {
	if !locked(dataDir, name) {
		return false
	}
	_ = os.RemoveAll(lockDir(dataDir, name))
	return true
}
