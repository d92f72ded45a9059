//go:build unix

package registry

import (
	"fmt"
	"os"
	"syscall"
)

// Lock is a held exclusive, OS-enforced file lock (spec §5: "acquire an
// exclusive, file-based lock ... implementation-defined representation,
// but must be OS-enforced"). Grounded on the teacher's own
// internal/validate/lock.go, which uses syscall.Flock for the same
// one-holder-at-a-time guarantee around container validation.
type Lock struct {
	file *os.File
	path string
}

// ErrLockBusy is returned by AcquireLock when another process already
// holds the lock.
var ErrLockBusy = fmt.Errorf("registry: lock is held by another process")

// AcquireLock takes the exclusive lock at path, creating it if needed.
// Blocking waits for the lock to free; non-blocking returns ErrLockBusy
// immediately if it's held.
func AcquireLock(path string, blocking bool) (*Lock, error) {
	if err := os.MkdirAll(pathDir(path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: create lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("registry: open lock file %s: %w", path, err)
	}

	flags := syscall.LOCK_EX
	if !blocking {
		flags |= syscall.LOCK_NB
	}
	if err := syscall.Flock(int(file.Fd()), flags); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("registry: flock %s: %w", path, err)
	}

	return &Lock{file: file, path: path}, nil
}

// Release unlocks and closes the lock file. It does not remove the file:
// the lock path is reused by the next acquirer, the same as the teacher's
// LockManager.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("registry: unlock %s: %w", l.path, unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("registry: close lock file %s: %w", l.path, closeErr)
	}
	return nil
}
