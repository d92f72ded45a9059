package install

import (
	"fmt"
	"os"

	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/registry"
)

// UninstallApp removes an installed app's tree and registry record (spec
// §4.H "Uninstall"). version may be empty to select the sole installed
// version; registry.AmbiguousError/NotFoundError surface otherwise.
func UninstallApp(root *config.Root, id, version string, opts Options) error {
	logger := opts.logger()

	lock, lockErr := registry.AcquireLock(root.LockPath("install"), true)
	if lockErr != nil {
		return lockErr
	}
	defer lock.Release()

	entries, scanErr := registry.Scan(root.RegistryAppsDir)
	if scanErr != nil {
		return scanErr
	}

	entry, selectErr := selectEntry(entries, id, version)
	if selectErr != nil {
		return selectErr
	}

	data, readErr := os.ReadFile(entry.Path)
	if readErr != nil {
		return fmt.Errorf("install: read app install record %s: %w", entry.Path, readErr)
	}
	rec, decodeErr := records.DecodeAppInstallRecord(data)
	if decodeErr != nil {
		return fmt.Errorf("install: decode app install record %s: %w", entry.Path, decodeErr)
	}

	logger.Info("uninstalling app", "id", entry.ID, "version", entry.Version)
	if rec.Paths.InstallRoot != "" {
		if rmErr := os.RemoveAll(rec.Paths.InstallRoot); rmErr != nil {
			return fmt.Errorf("install: remove app tree %s: %w", rec.Paths.InstallRoot, rmErr)
		}
	}
	if rmErr := os.Remove(entry.Path); rmErr != nil {
		return fmt.Errorf("install: remove app install record %s: %w", entry.Path, rmErr)
	}
	return nil
}

// UninstallNAK removes an installed runtime-kit's tree and registry
// record, refusing if any app install record still pins this exact
// version (spec §4.H "for NAK uninstall, refuse if any app record pins
// this kit version").
func UninstallNAK(root *config.Root, id, version string, opts Options) error {
	logger := opts.logger()

	lock, lockErr := registry.AcquireLock(root.LockPath("install"), true)
	if lockErr != nil {
		return lockErr
	}
	defer lock.Release()

	nakEntries, scanErr := registry.Scan(root.RegistryNaksDir)
	if scanErr != nil {
		return scanErr
	}
	entry, selectErr := selectEntry(nakEntries, id, version)
	if selectErr != nil {
		return selectErr
	}

	pinnedBy, pinErr := appsPinning(root, entry.ID, entry.Version)
	if pinErr != nil {
		return pinErr
	}
	if len(pinnedBy) > 0 {
		return &NAKInUseError{ID: entry.ID, Version: entry.Version, PinnedBy: pinnedBy}
	}

	data, readErr := os.ReadFile(entry.Path)
	if readErr != nil {
		return fmt.Errorf("install: read nak install record %s: %w", entry.Path, readErr)
	}
	rec, decodeErr := records.DecodeNAKInstallRecord(data)
	if decodeErr != nil {
		return fmt.Errorf("install: decode nak install record %s: %w", entry.Path, decodeErr)
	}

	logger.Info("uninstalling nak", "id", entry.ID, "version", entry.Version)
	if rec.Root != "" {
		if rmErr := os.RemoveAll(rec.Root); rmErr != nil {
			return fmt.Errorf("install: remove nak tree %s: %w", rec.Root, rmErr)
		}
	}
	if rmErr := os.Remove(entry.Path); rmErr != nil {
		return fmt.Errorf("install: remove nak install record %s: %w", entry.Path, rmErr)
	}
	return nil
}

func selectEntry(entries []registry.Entry, id, version string) (registry.Entry, error) {
	if version == "" {
		return registry.SelectSingle(entries, id)
	}
	return registry.SelectVersion(entries, id, version)
}

// appsPinning returns the instance ids of every app install record that
// pins nakID@nakVersion.
func appsPinning(root *config.Root, nakID, nakVersion string) ([]string, error) {
	appEntries, scanErr := registry.Scan(root.RegistryAppsDir)
	if scanErr != nil {
		return nil, scanErr
	}

	var pinnedBy []string
	for _, e := range appEntries {
		data, readErr := os.ReadFile(e.Path)
		if readErr != nil {
			continue
		}
		rec, decodeErr := records.DecodeAppInstallRecord(data)
		if decodeErr != nil {
			continue
		}
		if rec.NAK.ID == nakID && rec.NAK.Version == nakVersion {
			pinnedBy = append(pinnedBy, fmt.Sprintf("%s@%s", e.ID, e.Version))
		}
	}
	return pinnedBy, nil
}
