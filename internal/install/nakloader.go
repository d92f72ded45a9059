package install

import (
	"os"
	"path/filepath"

	"github.com/nah-run/nah/internal/compose"
	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/semver"
)

// RegistryNAKLoader returns a compose.NAKLoader that resolves an app's NAK
// pin against the live NAK registry under root, for use by `nah compose` at
// runtime (spec §4.E step 4). Install-time selection (selectNAK) and
// compose-time resolution share the same registry and record shape but run
// at different points in the pipeline, so they stay separate functions.
//
// Every unresolved outcome here is a `nak_pin_invalid` or
// `nak_version_unsupported` warning, never `nak_not_found` — spec §4.E's
// state-machine table reserves that key for install-time NAK selection
// (§7: "nak_not_found is an install-time warning only; the composer never
// emits it").
func RegistryNAKLoader(root *config.Root) compose.NAKLoader {
	return func(pin records.NAKPin, m *manifest.Manifest) (compose.NAKLoadResult, []envelope.Warning) {
		if pin.ID == "" || pin.Version == "" || pin.RecordRef == "" {
			w := envelope.New(envelope.WarnNAKPinInvalid, map[string]any{"nak_id": m.NAKID, "reason": "pin missing or empty"})
			return compose.NAKLoadResult{}, []envelope.Warning{w}
		}

		recordPath := filepath.Join(root.RegistryNaksDir, pin.RecordRef)
		data, err := os.ReadFile(recordPath)
		if err != nil {
			w := envelope.New(envelope.WarnNAKPinInvalid, map[string]any{"nak_id": pin.ID, "version": pin.Version, "reason": err.Error()})
			return compose.NAKLoadResult{}, []envelope.Warning{w}
		}

		rec, err := records.DecodeNAKInstallRecord(data)
		if err != nil {
			w := envelope.New(envelope.WarnNAKPinInvalid, map[string]any{"nak_id": pin.ID, "reason": err.Error()})
			return compose.NAKLoadResult{}, []envelope.Warning{w}
		}

		if m.NAKVersionReq != "" {
			r, rangeErr := semver.ParseRange(m.NAKVersionReq)
			if rangeErr == nil {
				v, versionErr := semver.ParseVersion(rec.Version)
				if versionErr != nil || !r.Satisfies(v) {
					w := envelope.New(envelope.WarnNAKVersionUnsupported, map[string]any{"nak_id": pin.ID, "version": rec.Version, "requested": m.NAKVersionReq})
					return compose.NAKLoadResult{}, []envelope.Warning{w}
				}
			}
		}

		return compose.NAKLoadResult{Record: rec, Loaded: true}, nil
	}
}
