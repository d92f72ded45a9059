// Package pathsafe implements the single containment/symlink-refusal
// primitive of spec §4.C. NAH runs against install trees it does not fully
// trust (a malicious .nap can declare "../../etc/passwd" as its
// entrypoint), so every path derived from a manifest, record, or archive
// passes through here before it is allowed into a Launch Contract.
//
// The "do not follow symlinks" open is platform-specific: walk_unix.go uses
// golang.org/x/sys/unix.Openat with O_NOFOLLOW, the same file-descriptor-
// relative pattern tsuku's actions package reaches for when it needs atomic,
// race-free filesystem operations (internal/actions/extract.go's
// atomicSymlink). walk_fallback.go backs non-Unix builds with an
// Lstat-per-component check, following the teacher's own per-OS file
// convention (internal/platform/gpu_linux.go, gpu_darwin.go, gpu_windows.go).
package pathsafe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathError is the critical-error-producing failure of spec §4.C: any
// containment or symlink violation. There is no permissive fallback.
type PathError struct {
	Root     string
	Relative string
	Reason   string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path traversal: root=%q relative=%q: %s", e.Root, e.Relative, e.Reason)
}

// ResolveUnder resolves a relative path under root, refusing NUL bytes,
// absolute paths, any ".." that crosses root, and any symlink encountered
// along the walk (spec §4.C).
func ResolveUnder(root, relative string) (string, error) {
	if strings.ContainsRune(relative, 0) {
		return "", &PathError{Root: root, Relative: relative, Reason: "contains NUL byte"}
	}
	if relative == "" {
		return "", &PathError{Root: root, Relative: relative, Reason: "empty path"}
	}
	if filepath.IsAbs(relative) {
		return "", &PathError{Root: root, Relative: relative, Reason: "absolute path not allowed"}
	}

	components := strings.Split(filepath.ToSlash(relative), "/")

	depth := 0
	for _, comp := range components {
		switch comp {
		case "", ".":
			continue
		case "..":
			depth--
			if depth < 0 {
				return "", &PathError{Root: root, Relative: relative, Reason: "traverses above root"}
			}
		default:
			depth++
		}
	}

	return resolveNoFollow(root, components)
}

// VerifyContainment checks that an already-absolute, persisted path (from an
// install record or NAK record) is contained under root. The path is
// resolved up to (but not beyond) the containment check: symlinks inside
// root are followed for the purposes of computing the canonical location,
// but the result must still land under root (spec §4.C).
func VerifyContainment(root, absPath string) (string, error) {
	if strings.ContainsRune(absPath, 0) || strings.ContainsRune(root, 0) {
		return "", &PathError{Root: root, Relative: absPath, Reason: "contains NUL byte"}
	}
	if !filepath.IsAbs(absPath) {
		return "", &PathError{Root: root, Relative: absPath, Reason: "not an absolute path"}
	}

	canonicalRoot := canonicalize(root)
	canonicalPath := canonicalize(absPath)

	rel, err := filepath.Rel(canonicalRoot, canonicalPath)
	if err != nil {
		return "", &PathError{Root: root, Relative: absPath, Reason: "not comparable to root"}
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Root: root, Relative: absPath, Reason: "escapes root"}
	}

	return canonicalPath, nil
}

// canonicalize resolves symlinks where possible and falls back to a lexical
// Clean for paths that don't exist yet (a persisted record path may name a
// NAK tree that hasn't been installed in this test fixture).
func canonicalize(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
