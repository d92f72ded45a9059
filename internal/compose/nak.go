package compose

import (
	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
)

// deriveNAK validates NAK containment and resolves the active loader (spec
// §4.E step 7). Loader selection: an explicit per-app pin wins; with no pin
// and exactly one loader declared, that loader is used; with no pin and
// several loaders, selection is ambiguous and the kit runs libs-only with a
// nak_loader_required warning.
func deriveNAK(c *envelope.Collector, rec *records.NAKInstallRecord, pinnedLoader, recordRef string) (*envelope.NAK, string, records.Loader, bool, error) {
	if _, err := pathsafe.VerifyContainment(rec.Root, rec.ResourceRoot); err != nil {
		return nil, "", records.Loader{}, false, &fatalCompose{Err: envelope.ErrPathTraversal}
	}
	for _, lib := range rec.LibDirs {
		if _, err := pathsafe.VerifyContainment(rec.Root, lib); err != nil {
			return nil, "", records.Loader{}, false, &fatalCompose{Err: envelope.ErrPathTraversal}
		}
	}

	loaderName := pinnedLoader
	if loaderName == "" && len(rec.Loaders) == 1 {
		for name := range rec.Loaders {
			loaderName = name
		}
	}

	var loader records.Loader
	hasLoader := false

	switch {
	case loaderName != "":
		l, ok := rec.Loaders[loaderName]
		if !ok {
			c.Add(envelope.WarnNAKLoaderMissing, map[string]any{"loader": loaderName})
			return nil, "", records.Loader{}, false, &fatalCompose{Err: envelope.ErrNAKLoaderInvalid}
		}
		if _, err := pathsafe.VerifyContainment(rec.Root, l.ExecPath); err != nil {
			c.Add(envelope.WarnNAKLoaderMissing, map[string]any{"loader": loaderName})
			return nil, "", records.Loader{}, false, &fatalCompose{Err: envelope.ErrNAKLoaderInvalid}
		}
		loader = l
		hasLoader = true
	case len(rec.Loaders) > 1:
		c.Add(envelope.WarnNAKLoaderRequired, map[string]any{"available": sortedKeys(rec.Loaders)})
	}

	nak := &envelope.NAK{
		ID:           rec.ID,
		Version:      rec.Version,
		Root:         rec.Root,
		ResourceRoot: rec.ResourceRoot,
		RecordRef:    recordRef,
		Loader:       loaderName,
	}
	return nak, loaderName, loader, hasLoader, nil
}
