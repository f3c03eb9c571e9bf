// Package lock implements the per-(tool, version) install lock described
// in spec §4.5/§4.10: an OS-level advisory file lock under
// root/tmp/locks/<tool>-<version>.lock that serializes writers while
// letting readers (sentinel checks) stay lock-free, grounded on tomei's
// internal/state PID-stamped flock.Flock usage.
package lock

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	vxerrors "github.com/vxdev/vx/internal/errors"
)

// InstallLock guards one (tool, version) pair's install directory.
type InstallLock struct {
	path string
	fl   *flock.Flock
}

// New creates an InstallLock backed by the file at path. The directory
// containing path must already exist.
func New(path string) *InstallLock {
	return &InstallLock{path: path, fl: flock.New(path)}
}

// Acquire blocks (with polling) until the lock is obtained or ctx/timeout
// expires. On success it stamps the lock file with this process's PID so
// a timed-out waiter can report who holds it. tool/version are used only
// to build a readable vxerrors.LockBusyError.
func Acquire(ctx context.Context, path, tool, version string, timeout time.Duration) (*InstallLock, error) {
	l := New(path)

	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond
	for {
		ok, err := l.fl.TryLock()
		if err != nil {
			return nil, vxerrors.Wrap(vxerrors.CategoryInstall, "acquire install lock", err)
		}
		if ok {
			_ = l.writePID()
			return l, nil
		}

		if timeout > 0 && time.Now().After(deadline) {
			return nil, vxerrors.NewInstallLockBusyError(tool, version, readPID(path))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// TryAcquire attempts the lock once, non-blocking, returning ok=false
// (no error) if another process already holds it.
func TryAcquire(path string) (*InstallLock, bool, error) {
	l := New(path)
	ok, err := l.fl.TryLock()
	if err != nil {
		return nil, false, vxerrors.Wrap(vxerrors.CategoryInstall, "acquire install lock", err)
	}
	if !ok {
		return nil, false, nil
	}
	_ = l.writePID()
	return l, true, nil
}

// Release unlocks the file. Safe to call on an already-released lock.
func (l *InstallLock) Release() error {
	return l.fl.Unlock()
}

func (l *InstallLock) writePID() error {
	return os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(string(data))
	return pid
}
