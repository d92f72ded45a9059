//go:build unix

package pathsafe

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// resolveNoFollow walks components from root using directory-relative opens
// with O_NOFOLLOW, so a symlink swapped in between components (or the final
// entry itself) is refused rather than followed. Each intermediate open
// requires O_DIRECTORY; the final component may name a regular file.
func resolveNoFollow(root string, components []string) (string, error) {
	rootFd, err := unix.Open(root, unix.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return "", &PathError{Root: root, Relative: filepath.Join(components...), Reason: "root is not an openable directory: " + err.Error()}
	}
	defer unix.Close(rootFd)

	cur := rootFd
	curClosed := false
	defer func() {
		if !curClosed && cur != rootFd {
			unix.Close(cur)
		}
	}()

	path := root
	kept := components[:0:0]
	for _, c := range components {
		if c == "" || c == "." {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return filepath.Clean(root), nil
	}

	for i, c := range kept {
		last := i == len(kept)-1

		flags := unix.O_RDONLY | unix.O_NOFOLLOW
		if !last {
			flags |= unix.O_DIRECTORY
		}

		fd, err := unix.Openat(cur, c, flags, 0)
		if err != nil {
			if err == unix.ENOENT {
				// Component doesn't exist: not a traversal violation, just a
				// path that isn't there yet. Report it unresolved so the
				// caller's own existence check (os.Stat) produces the
				// appropriate not-found error rather than PATH_TRAVERSAL.
				path = filepath.Join(path, filepath.Join(kept[i:]...))
				return filepath.Clean(path), nil
			}
			return "", &PathError{Root: root, Relative: filepath.Join(kept...), Reason: "cannot open component " + c + " without following symlinks: " + err.Error()}
		}

		if cur != rootFd {
			unix.Close(cur)
		}
		cur = fd
		path = filepath.Join(path, c)
	}

	if cur != rootFd {
		unix.Close(cur)
		curClosed = true
	}

	return path, nil
}
