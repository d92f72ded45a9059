// Package install implements spec §4.H: the install-an-app and
// install-a-kit pipelines, uninstall, and verify. It is the one component
// that performs I/O and mutates the registry; composition (internal/compose)
// never calls into this package, only the reverse (an install writes the
// records a later composition reads).
package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nah-run/nah/internal/archive"
	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/log"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/registry"
	"github.com/nah-run/nah/internal/semver"
)

// SectionReader reads a named section from a binary file, the one seam
// spec §1 keeps as an external collaborator ("platform-specific binary-
// section extraction beyond reading a named section's bytes"). The zero
// value NoSectionReader always reports the section absent, so installs
// fall back to a root-level manifest.nah.
type SectionReader interface {
	ReadSection(binaryPath, sectionName string) ([]byte, bool, error)
}

// NoSectionReader is the default SectionReader: no binary carries an
// embedded manifest section, so Locate always falls back to manifest.nah.
type NoSectionReader struct{}

// ReadSection always reports the section absent.
func (NoSectionReader) ReadSection(string, string) ([]byte, bool, error) { return nil, false, nil }

// Options controls a single install invocation.
type Options struct {
	// Force overwrites an existing install tree at the destination instead
	// of failing with a conflict error.
	Force bool

	// AllowUnresolvedPin permits an app install to complete with an
	// unresolved NAK pin when the manifest declares a runtime-kit id (spec
	// §9 open question 3: default is hard-fail unless a caller opts in).
	AllowUnresolvedPin bool

	// SectionReader supplies the embedded-manifest lookup. Defaults to
	// NoSectionReader when nil.
	SectionReader SectionReader

	// Logger receives pipeline progress. Defaults to log.Default().
	Logger log.Logger
}

func (o Options) logger() log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

func (o Options) sectionReader() SectionReader {
	if o.SectionReader != nil {
		return o.SectionReader
	}
	return NoSectionReader{}
}

// ConflictError reports an install destination that already exists and
// Options.Force was not set (spec §4.H step 6).
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("install: destination %s already exists (use Force to overwrite)", e.Path)
}

// ManifestNotFoundError reports that neither an embedded section nor
// manifest.nah could be located in the staged tree (spec §4.H step 3).
type ManifestNotFoundError struct{}

func (e *ManifestNotFoundError) Error() string {
	return "install: no manifest found (no embedded section under bin/, no manifest.nah at archive root)"
}

// NAKUnresolvedError reports an app manifest that names a runtime-kit id
// whose pin never resolved, with Options.AllowUnresolvedPin unset (spec
// §4.H step 5's default hard-fail behavior).
type NAKUnresolvedError struct {
	NAKID string
	Want  string
}

func (e *NAKUnresolvedError) Error() string {
	return fmt.Sprintf("install: no installed version of runtime-kit %s satisfies %q", e.NAKID, e.Want)
}

// NAKInUseError reports an attempted NAK uninstall while an app still pins
// that exact version (spec §4.H uninstall rule).
type NAKInUseError struct {
	ID, Version string
	PinnedBy    []string
}

func (e *NAKInUseError) Error() string {
	return fmt.Sprintf("install: runtime-kit %s@%s is pinned by: %s", e.ID, e.Version, strings.Join(e.PinnedBy, ", "))
}

// AppResult is the outcome of a successful InstallApp.
type AppResult struct {
	Record   *records.AppInstallRecord
	Warnings []envelope.Warning
}

// InstallApp runs the install-an-app pipeline of spec §4.H: extract,
// locate and parse the manifest, select a NAK pin if the manifest declares
// a runtime-kit id, atomically rename the staged tree into place, then
// atomically write the App Install Record.
func InstallApp(root *config.Root, archiveBytes []byte, opts Options) (result *AppResult, err error) {
	logger := opts.logger()
	if err := root.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock, err := registry.AcquireLock(root.LockPath("install"), true)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	stagingDir := filepath.Join(root.Dir, ".staging-"+uuid.New().String())
	defer func() {
		if err != nil {
			os.RemoveAll(stagingDir)
		}
	}()

	logger.Info("extracting app package", "staging", stagingDir)
	if unpackErr := archive.Unpack(archiveBytes, stagingDir); unpackErr != nil {
		return nil, fmt.Errorf("install: extract app package: %w", unpackErr)
	}

	blob, locateErr := locateManifest(stagingDir, opts.sectionReader())
	if locateErr != nil {
		return nil, locateErr
	}

	c := &envelope.Collector{}
	m, manifestWarnings, decodeErr := manifest.Decode(blob)
	if decodeErr != nil {
		return nil, fmt.Errorf("install: parse manifest: %w", decodeErr)
	}
	for _, w := range manifestWarnings {
		c.Add(w.Key, w.Fields)
	}

	pin, pinWarning, unresolved := selectNAK(root, m)
	if pinWarning != nil {
		c.Add(pinWarning.Key, pinWarning.Fields)
	}
	if m.NAKID != "" && unresolved && !opts.AllowUnresolvedPin {
		return nil, &NAKUnresolvedError{NAKID: m.NAKID, Want: m.NAKVersionReq}
	}

	destDir := root.AppTreeDir(m.AppID, m.AppVersion)
	if existsErr := checkDestination(destDir, opts.Force); existsErr != nil {
		return nil, existsErr
	}

	logger.Info("installing app", "id", m.AppID, "version", m.AppVersion, "dest", destDir)
	if renameErr := registry.RenameTree(stagingDir, destDir); renameErr != nil {
		return nil, renameErr
	}

	rec := buildAppRecord(m, destDir, pin)
	data, encodeErr := records.EncodeAppInstallRecord(rec)
	if encodeErr != nil {
		os.RemoveAll(destDir)
		return nil, fmt.Errorf("install: encode app install record: %w", encodeErr)
	}

	recordPath := root.AppInstallRecordPath(m.AppID, m.AppVersion)
	if writeErr := registry.WriteFileAtomic(recordPath, data, 0o644); writeErr != nil {
		os.RemoveAll(destDir)
		return nil, fmt.Errorf("install: write app install record: %w", writeErr)
	}

	return &AppResult{Record: rec, Warnings: c.List()}, nil
}

func checkDestination(destDir string, force bool) error {
	if _, statErr := os.Stat(destDir); statErr == nil {
		if !force {
			return &ConflictError{Path: destDir}
		}
		if rmErr := os.RemoveAll(destDir); rmErr != nil {
			return fmt.Errorf("install: remove existing tree %s: %w", destDir, rmErr)
		}
	} else if !os.IsNotExist(statErr) {
		return fmt.Errorf("install: stat destination %s: %w", destDir, statErr)
	}
	return nil
}

// selectNAK implements spec §4.H step 5: scan the NAK registry, filter by
// id, parse the manifest's range, and choose the highest satisfying
// version. It returns the pin (zero value if unresolved), the single
// warning to emit (if any), and whether resolution failed.
func selectNAK(root *config.Root, m *manifest.Manifest) (records.NAKPin, *envelope.Warning, bool) {
	if m.NAKID == "" {
		return records.NAKPin{}, nil, false
	}

	entries, scanErr := registry.Scan(root.RegistryNaksDir)
	if scanErr != nil {
		w := envelope.New(envelope.WarnNAKNotFound, map[string]any{"nak_id": m.NAKID, "reason": scanErr.Error()})
		return records.NAKPin{}, &w, true
	}
	candidates := registry.ForID(entries, m.NAKID)

	r, rangeErr := semver.ParseRange(m.NAKVersionReq)
	if rangeErr != nil {
		w := envelope.New(envelope.WarnInvalidManifest, map[string]any{"reason": "nak_version_req does not parse"})
		return records.NAKPin{}, &w, true
	}

	if len(candidates) == 0 {
		w := envelope.New(envelope.WarnNAKNotFound, map[string]any{"nak_id": m.NAKID})
		return records.NAKPin{}, &w, true
	}

	best, ok := registry.HighestSatisfying(candidates, r)
	if !ok {
		w := envelope.New(envelope.WarnNAKVersionUnsupported, map[string]any{"nak_id": m.NAKID, "requested": m.NAKVersionReq})
		return records.NAKPin{}, &w, true
	}

	pin := records.NAKPin{ID: m.NAKID, Version: best.Version, RecordRef: filepath.Base(best.Path)}
	return pin, nil, false
}

func buildAppRecord(m *manifest.Manifest, installRoot string, pin records.NAKPin) *records.AppInstallRecord {
	rec := &records.AppInstallRecord{}
	rec.Install.InstanceID = uuid.New().String()
	rec.App = records.AppIdentity{ID: m.AppID, Version: m.AppVersion, NAKID: m.NAKID, NAKVersionReq: m.NAKVersionReq}
	rec.NAK = pin
	rec.Paths.InstallRoot = installRoot
	return rec
}

// LocateManifest re-runs the install-time manifest lookup (spec §4.H step 3)
// against an already-installed app tree, so `nah compose` can recover the
// manifest blob it needs without keeping a second copy around.
func LocateManifest(appTreeDir string, sr SectionReader) ([]byte, error) {
	if sr == nil {
		sr = NoSectionReader{}
	}
	return locateManifest(appTreeDir, sr)
}

// locateManifest implements spec §4.H step 3: prefer an embedded section
// read from any binary under bin/, fall back to manifest.nah at the
// archive root.
func locateManifest(stagingDir string, sr SectionReader) ([]byte, error) {
	section := manifestSectionName()
	binDir := filepath.Join(stagingDir, "bin")
	if entries, readErr := os.ReadDir(binDir); readErr == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			binPath := filepath.Join(binDir, e.Name())
			if data, ok, err := sr.ReadSection(binPath, section); err == nil && ok {
				return data, nil
			}
		}
	}

	manifestPath := filepath.Join(stagingDir, "manifest.nah")
	if data, readErr := os.ReadFile(manifestPath); readErr == nil {
		return data, nil
	}

	return nil, &ManifestNotFoundError{}
}

// resolveUnderTree is a small wrapper used by InstallNAK to validate a
// pack-relative path lands under the installed NAK tree (spec §4.C).
func resolveUnderTree(root, relative string) (string, error) {
	if relative == "" {
		return root, nil
	}
	return pathsafe.ResolveUnder(root, relative)
}
