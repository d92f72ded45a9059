package install

import (
	"fmt"
	"os"

	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/registry"
)

// Report is the result of Verify: a set of issues found without mutating
// any on-disk state (spec §4.H "Verify": "report issues without mutating
// state; an external trust source may be invoked here, never during
// composition").
type Report struct {
	OK     bool
	Issues []string
}

func (r *Report) add(format string, args ...any) {
	r.OK = false
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

// VerifyApp re-parses an app's install record and confirms the app
// directory and a valid manifest exist, and that the pinned kit's record
// (if any) exists. It never writes anything.
func VerifyApp(root *config.Root, id, version string, opts Options) (*Report, error) {
	report := &Report{OK: true}

	entries, scanErr := registry.Scan(root.RegistryAppsDir)
	if scanErr != nil {
		return nil, scanErr
	}
	entry, selectErr := selectEntry(entries, id, version)
	if selectErr != nil {
		return nil, selectErr
	}

	data, readErr := os.ReadFile(entry.Path)
	if readErr != nil {
		report.add("cannot read install record: %v", readErr)
		return report, nil
	}
	rec, decodeErr := records.DecodeAppInstallRecord(data)
	if decodeErr != nil {
		report.add("install record is invalid: %v", decodeErr)
		return report, nil
	}

	if _, statErr := os.Stat(rec.Paths.InstallRoot); statErr != nil {
		report.add("app directory %s does not exist: %v", rec.Paths.InstallRoot, statErr)
	} else {
		blob, locateErr := locateManifest(rec.Paths.InstallRoot, opts.sectionReader())
		if locateErr != nil {
			report.add("manifest missing: %v", locateErr)
		} else if _, _, decErr := manifest.Decode(blob); decErr != nil {
			report.add("manifest is invalid: %v", decErr)
		}
	}

	if rec.NAK.ID != "" {
		nakPath := root.NAKInstallRecordPath(rec.NAK.ID, rec.NAK.Version)
		if _, statErr := os.Stat(nakPath); statErr != nil {
			report.add("pinned runtime-kit %s@%s record does not exist", rec.NAK.ID, rec.NAK.Version)
		}
	}

	return report, nil
}

// VerifyNAK confirms an installed runtime-kit's tree and record agree.
func VerifyNAK(root *config.Root, id, version string) (*Report, error) {
	report := &Report{OK: true}

	entries, scanErr := registry.Scan(root.RegistryNaksDir)
	if scanErr != nil {
		return nil, scanErr
	}
	entry, selectErr := selectEntry(entries, id, version)
	if selectErr != nil {
		return nil, selectErr
	}

	data, readErr := os.ReadFile(entry.Path)
	if readErr != nil {
		report.add("cannot read install record: %v", readErr)
		return report, nil
	}
	rec, decodeErr := records.DecodeNAKInstallRecord(data)
	if decodeErr != nil {
		report.add("install record is invalid: %v", decodeErr)
		return report, nil
	}

	if _, statErr := os.Stat(rec.Root); statErr != nil {
		report.add("nak directory %s does not exist: %v", rec.Root, statErr)
	}

	return report, nil
}
