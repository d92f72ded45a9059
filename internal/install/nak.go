package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nah-run/nah/internal/archive"
	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/envop"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/registry"
	"github.com/nah-run/nah/internal/semver"
)

// nakPackManifestFile is the JSON descriptor every .nak package carries at
// its root, naming the kit's identity and its layout relative to the pack
// root (spec §4.H: "writes a NAK Install Record with absolute paths
// resolved from the pack's relative paths").
const nakPackManifestFile = "nak.json"

// nakPackManifest is the pack-relative counterpart of
// records.NAKInstallRecord: same shape, but every path is relative to the
// pack/installed root instead of already-absolute.
type nakPackManifest struct {
	NAK struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	} `json:"nak"`
	Paths struct {
		ResourceRoot string   `json:"resource_root,omitempty"`
		LibDirs      []string `json:"lib_dirs,omitempty"`
	} `json:"paths"`
	Environment map[string]envop.Value   `json:"environment,omitempty"`
	Loaders     map[string]records.Loader `json:"loaders,omitempty"`
	Loader      *records.Loader          `json:"loader,omitempty"`
	Execution   struct {
		Cwd string `json:"cwd,omitempty"`
	} `json:"execution,omitempty"`
}

// NAKInvalidError reports a malformed .nak package descriptor. Per spec
// §9 open question 3 / §4.D note, malformed NAK install input is a hard
// failure at install time, unlike the permissive nak_pin_invalid warning a
// composer emits when it merely can't resolve an already-installed pin.
type NAKInvalidError struct {
	Reason string
}

func (e *NAKInvalidError) Error() string { return "install: nak package invalid: " + e.Reason }

// NAKResult is the outcome of a successful InstallNAK.
type NAKResult struct {
	Record *records.NAKInstallRecord
}

// InstallNAK runs the install-a-kit mirror of spec §4.H: extract, parse
// nak.json, atomically rename into <root>/naks/<id>/<version>/, then
// atomically write the NAK Install Record with paths resolved to absolute.
func InstallNAK(root *config.Root, archiveBytes []byte, opts Options) (result *NAKResult, err error) {
	logger := opts.logger()
	if ensureErr := root.EnsureDirectories(); ensureErr != nil {
		return nil, ensureErr
	}

	lock, lockErr := registry.AcquireLock(root.LockPath("install"), true)
	if lockErr != nil {
		return nil, lockErr
	}
	defer lock.Release()

	stagingDir := filepath.Join(root.Dir, ".staging-"+uuid.New().String())
	defer func() {
		if err != nil {
			os.RemoveAll(stagingDir)
		}
	}()

	logger.Info("extracting nak package", "staging", stagingDir)
	if unpackErr := archive.Unpack(archiveBytes, stagingDir); unpackErr != nil {
		return nil, fmt.Errorf("install: extract nak package: %w", unpackErr)
	}

	pm, parseErr := parseNAKPackManifest(stagingDir)
	if parseErr != nil {
		return nil, parseErr
	}

	destDir := root.NAKTreeDir(pm.NAK.ID, pm.NAK.Version)
	if existsErr := checkDestination(destDir, opts.Force); existsErr != nil {
		return nil, existsErr
	}

	logger.Info("installing nak", "id", pm.NAK.ID, "version", pm.NAK.Version, "dest", destDir)
	if renameErr := registry.RenameTree(stagingDir, destDir); renameErr != nil {
		return nil, renameErr
	}

	rec, resolveErr := resolveNAKRecord(pm, destDir)
	if resolveErr != nil {
		os.RemoveAll(destDir)
		return nil, resolveErr
	}

	data, encodeErr := records.EncodeNAKInstallRecord(rec)
	if encodeErr != nil {
		os.RemoveAll(destDir)
		return nil, fmt.Errorf("install: encode nak install record: %w", encodeErr)
	}

	recordPath := root.NAKInstallRecordPath(pm.NAK.ID, pm.NAK.Version)
	if writeErr := registry.WriteFileAtomic(recordPath, data, 0o644); writeErr != nil {
		os.RemoveAll(destDir)
		return nil, fmt.Errorf("install: write nak install record: %w", writeErr)
	}

	return &NAKResult{Record: rec}, nil
}

func parseNAKPackManifest(stagingDir string) (*nakPackManifest, error) {
	data, readErr := os.ReadFile(filepath.Join(stagingDir, nakPackManifestFile))
	if readErr != nil {
		return nil, &NAKInvalidError{Reason: "missing " + nakPackManifestFile}
	}
	var pm nakPackManifest
	if jsonErr := json.Unmarshal(data, &pm); jsonErr != nil {
		return nil, &NAKInvalidError{Reason: "parse failure: " + jsonErr.Error()}
	}
	if pm.NAK.ID == "" {
		return nil, &NAKInvalidError{Reason: "nak.id is required"}
	}
	if !semver.IsCore(pm.NAK.Version) {
		return nil, &NAKInvalidError{Reason: "nak.version must be core MAJOR.MINOR.PATCH"}
	}
	return &pm, nil
}

// resolveNAKRecord resolves every pack-relative path against destDir via
// spec §4.C's containment primitive, producing the absolute-path record
// the install record persists.
func resolveNAKRecord(pm *nakPackManifest, destDir string) (*records.NAKInstallRecord, error) {
	rec := &records.NAKInstallRecord{
		ID:           pm.NAK.ID,
		Version:      pm.NAK.Version,
		Root:         destDir,
		ResourceRoot: destDir,
		Environment:  pm.Environment,
		ExecutionCwd: pm.Execution.Cwd,
	}

	if pm.Paths.ResourceRoot != "" {
		resolved, err := resolveUnderTree(destDir, pm.Paths.ResourceRoot)
		if err != nil {
			return nil, err
		}
		rec.ResourceRoot = resolved
	}

	for _, rel := range pm.Paths.LibDirs {
		resolved, err := resolveUnderTree(destDir, rel)
		if err != nil {
			return nil, err
		}
		rec.LibDirs = append(rec.LibDirs, resolved)
	}

	rec.Loaders = map[string]records.Loader{}
	for name, l := range pm.Loaders {
		resolved, err := resolveLoader(destDir, l)
		if err != nil {
			return nil, err
		}
		rec.Loaders[name] = resolved
	}
	if pm.Loader != nil {
		if _, exists := rec.Loaders["default"]; !exists {
			resolved, err := resolveLoader(destDir, *pm.Loader)
			if err != nil {
				return nil, err
			}
			rec.Loaders["default"] = resolved
		}
	}

	return rec, nil
}

func resolveLoader(destDir string, l records.Loader) (records.Loader, error) {
	resolved, err := resolveUnderTree(destDir, l.ExecPath)
	if err != nil {
		return records.Loader{}, err
	}
	return records.Loader{ExecPath: resolved, ArgsTemplate: l.ArgsTemplate}, nil
}
