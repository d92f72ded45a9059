package compose

import (
	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/pathsafe"
)

// deriveExports implements spec §4.E step 15: resolve each manifest
// ASSET_EXPORT under app.root via §4.C, last id wins on duplicates.
// ASSET_EXPORT relpaths are already guaranteed relative by the TLV decoder
// (manifest.parseAssetExport), so only a symlink-escape can fail here.
func deriveExports(c *envelope.Collector, appRoot string, exports []manifest.AssetExport) (map[string]envelope.Export, error) {
	out := map[string]envelope.Export{}
	for _, exp := range exports {
		resolved, err := pathsafe.ResolveUnder(appRoot, exp.RelPath)
		if err != nil {
			return nil, &fatalCompose{Err: envelope.ErrPathTraversal}
		}
		out[exp.ID] = envelope.Export{Path: resolved, Type: exp.Type}
	}
	return out, nil
}
