//go:build !unix

package pathsafe

import (
	"os"
	"path/filepath"
)

// resolveNoFollow is the portable fallback for platforms without
// golang.org/x/sys/unix's Openat: it Lstats each component in turn and
// refuses to proceed through a symlink. This is racy against concurrent
// filesystem mutation (TOCTOU) in a way the unix build is not, but NAH's
// non-Unix targets are not expected to run untrusted installs concurrently
// with composition.
func resolveNoFollow(root string, components []string) (string, error) {
	path := root
	for _, c := range components {
		if c == "" || c == "." {
			continue
		}
		path = filepath.Join(path, c)

		info, err := os.Lstat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", &PathError{Root: root, Relative: path, Reason: "cannot stat component: " + err.Error()}
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", &PathError{Root: root, Relative: path, Reason: "component is a symlink"}
		}
	}
	return filepath.Clean(path), nil
}
