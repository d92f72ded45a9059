package compose

import (
	"path/filepath"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
)

type libraryPathInputs struct {
	hostPrepend     []string
	overridePrepend []string
	nakRecord       *records.NAKInstallRecord
	nakLoaded       bool
	appRoot         string
	manifestLibDirs []string
	hostAppend      []string
}

// assembleLibraryPaths implements spec §4.E step 14's ordered library-path
// build. NAK lib_dirs were already containment-checked (fatally) during NAK
// derivation; manifest LIB_DIR entries are checked here because they
// resolve against app.root, not nak.root, and are themselves subject to
// §4.C's symlink-refusal rule.
func assembleLibraryPaths(c *envelope.Collector, in libraryPathInputs) ([]string, error) {
	var out []string

	for _, p := range in.hostPrepend {
		if !filepath.IsAbs(p) {
			c.Add(envelope.WarnInvalidLibraryPath, map[string]any{"path": p, "source": "host_env.paths.library_prepend"})
			continue
		}
		out = append(out, p)
	}

	for _, p := range in.overridePrepend {
		if !filepath.IsAbs(p) {
			c.Add(envelope.WarnInvalidLibraryPath, map[string]any{"path": p, "source": "overrides.paths.library_prepend"})
			continue
		}
		out = append(out, p)
	}

	if in.nakLoaded {
		out = append(out, in.nakRecord.LibDirs...)
	}

	for _, dir := range in.manifestLibDirs {
		resolved, err := pathsafe.ResolveUnder(in.appRoot, dir)
		if err != nil {
			return nil, &fatalCompose{Err: envelope.ErrPathTraversal}
		}
		out = append(out, resolved)
	}

	for _, p := range in.hostAppend {
		if !filepath.IsAbs(p) {
			c.Add(envelope.WarnInvalidLibraryPath, map[string]any{"path": p, "source": "host_env.paths.library_append"})
			continue
		}
		out = append(out, p)
	}

	if out == nil {
		out = []string{}
	}
	return out, nil
}
