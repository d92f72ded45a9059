// Package semver implements the version and range language of spec §4.A on
// top of github.com/Masterminds/semver/v3 — the same dependency tsuku uses
// to sort fetched version lists (internal/version/provider_crates_io.go and
// friends). Masterminds/semver already implements SemVer 2.0.0 comparison,
// pre-release ordering, and a constraint grammar whose AND/OR shape (space
// for AND, "||" for OR) matches spec §4.A exactly, so NAH leans on it for
// both version parsing and range satisfaction instead of reimplementing
// SemVer precedence rules. Only selection_key, which needs to look inside a
// comparator set rather than just evaluate it, is NAH-specific logic layered
// on top.
package semver

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver/v3"
)

// ParseError is the single typed error for both version and range parse
// failures (spec §4.A: "Parse failures are reported as a single typed
// error; no lexicographic fallback is permitted").
type ParseError struct {
	Input string
	Kind  string // "version" or "range"
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid semver %s %q: %v", e.Kind, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Version wraps a parsed SemVer 2.0.0 version.
type Version struct {
	v *mmsemver.Version
}

// ParseVersion parses a SemVer 2.0.0 version string.
func ParseVersion(s string) (Version, error) {
	v, err := mmsemver.StrictNewVersion(s)
	if err != nil {
		return Version{}, &ParseError{Input: s, Kind: "version", Err: err}
	}
	return Version{v: v}, nil
}

// Major returns the major version component.
func (v Version) Major() uint64 { return v.v.Major() }

// Minor returns the minor version component.
func (v Version) Minor() uint64 { return v.v.Minor() }

// Patch returns the patch version component.
func (v Version) Patch() uint64 { return v.v.Patch() }

// String returns the normalized "MAJOR.MINOR.PATCH[-prerelease][+build]" form.
func (v Version) String() string { return v.v.String() }

// Core returns "MAJOR.MINOR.PATCH" with no prerelease or build metadata, the
// form the NAK Install Record's nak.version MUST use (spec §3).
func (v Version) Core() string {
	return fmt.Sprintf("%d.%d.%d", v.v.Major(), v.v.Minor(), v.v.Patch())
}

// IsCore reports whether s parses as a version with no prerelease or build
// metadata suffix — the NAK Install Record requirement (spec §3: "version
// MUST be core SemVer MAJOR.MINOR.PATCH").
func IsCore(s string) bool {
	v, err := ParseVersion(s)
	if err != nil {
		return false
	}
	return v.v.Prerelease() == "" && v.v.Metadata() == "" && v.String() == s
}

// Compare returns -1, 0, or 1 per SemVer 2.0.0 precedence rules (pre-release
// ordering and build-metadata exclusion included).
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}
