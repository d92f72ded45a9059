package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nah-run/nah/internal/semver"
)

// pathDir is filepath.Dir, named for readability at call sites that build
// a lock path from a directory they already computed.
func pathDir(p string) string { return filepath.Dir(p) }

// Entry is one `<id>@<version>.json` file found in a registry directory
// (spec §9 "Registry scans as iterators" — exposed here as a plain slice
// rather than a custom iterator type, since NAH installs are not at the
// scale that would justify the teacher's lazy-sequence treatment, but kept
// as a single fold-friendly pass over the directory per the same note).
type Entry struct {
	ID      string
	Version string
	Path    string
}

// Scan lists every `<id>@<version>.json` entry under dir, skipping
// anything that doesn't match the naming convention. A missing directory
// scans as empty, not an error.
func Scan(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("registry: read directory %s: %w", dir, err)
	}

	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		base := strings.TrimSuffix(name, ".json")
		at := strings.LastIndex(base, "@")
		if at <= 0 || at == len(base)-1 {
			continue
		}
		out = append(out, Entry{ID: base[:at], Version: base[at+1:], Path: filepath.Join(dir, name)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

// ForID filters Scan's result down to entries matching id, in the order
// Scan produced them (ID then Version, ascending).
func ForID(entries []Entry, id string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// AmbiguousError reports spec §4.G's "if multiple, the caller MUST
// disambiguate" rule.
type AmbiguousError struct {
	ID       string
	Versions []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("registry: multiple installed versions of %s, specify one: %s", e.ID, strings.Join(e.Versions, ", "))
}

// NotFoundError reports spec §4.G's "if none, not-installed error".
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: %s is not installed", e.ID)
}

// SelectSingle implements spec §4.G's "Selection of 'the' install for an
// id": exactly one match wins outright, zero is NotFoundError, more than
// one is AmbiguousError requiring the caller to pass an explicit version.
func SelectSingle(entries []Entry, id string) (Entry, error) {
	matches := ForID(entries, id)
	switch len(matches) {
	case 0:
		return Entry{}, &NotFoundError{ID: id}
	case 1:
		return matches[0], nil
	default:
		versions := make([]string, len(matches))
		for i, m := range matches {
			versions[i] = m.Version
		}
		return Entry{}, &AmbiguousError{ID: id, Versions: versions}
	}
}

// SelectVersion finds the exact id@version entry.
func SelectVersion(entries []Entry, id, version string) (Entry, error) {
	for _, e := range entries {
		if e.ID == id && e.Version == version {
			return e, nil
		}
	}
	return Entry{}, &NotFoundError{ID: fmt.Sprintf("%s@%s", id, version)}
}

// HighestSatisfying chooses, among entries sharing an id, the highest
// version satisfying r (spec §4.H install-time NAK selection: "choose the
// highest version satisfying the range"). Entries whose version string does
// not parse as SemVer are skipped; returns false if no remaining entry
// satisfies r.
func HighestSatisfying(entries []Entry, r *semver.Range) (Entry, bool) {
	var versions []semver.Version
	var parsedEntries []Entry
	for _, e := range entries {
		v, err := semver.ParseVersion(e.Version)
		if err != nil {
			continue
		}
		versions = append(versions, v)
		parsedEntries = append(parsedEntries, e)
	}
	idx, ok := semver.HighestSatisfying(versions, r)
	if !ok {
		return Entry{}, false
	}
	return parsedEntries[idx], true
}
