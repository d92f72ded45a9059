//go:build !unix

package registry

import (
	"fmt"
	"os"
)

// Lock is the portable fallback lock for platforms without syscall.Flock:
// an O_EXCL-created marker file. This is advisory only (no OS-enforced
// exclusion), the same caveat pathsafe's non-Unix resolveNoFollow carries
// for symlink refusal — NAH's non-Unix targets aren't expected to run
// concurrent untrusted installs against the same root.
type Lock struct {
	path string
}

// ErrLockBusy is returned by AcquireLock when another process already
// holds the lock.
var ErrLockBusy = fmt.Errorf("registry: lock is held by another process")

// AcquireLock creates the lock marker file exclusively. Non-blocking is the
// only supported mode on this platform.
func AcquireLock(path string, blocking bool) (*Lock, error) {
	if err := os.MkdirAll(pathDir(path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("registry: create lock file %s: %w", path, err)
	}
	f.Close()
	return &Lock{path: path}, nil
}

// Release removes the lock marker file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("registry: remove lock file %s: %w", l.path, err)
	}
	return nil
}
