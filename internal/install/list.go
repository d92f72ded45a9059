package install

import (
	"github.com/nah-run/nah/internal/config"
	"github.com/nah-run/nah/internal/registry"
)

// ListApps enumerates every installed app's registry entries (spec §4.G
// "selection of 'the' install for an id" needs something to enumerate
// candidates over; grounded on the teacher's internal/install/list.go
// directory-listing shape, adapted to NAH's registry-of-JSON-files layout
// instead of a `name-version` directory convention).
func ListApps(root *config.Root) ([]registry.Entry, error) {
	return registry.Scan(root.RegistryAppsDir)
}

// ListNAKs enumerates every installed runtime-kit's registry entries.
func ListNAKs(root *config.Root) ([]registry.Entry, error) {
	return registry.Scan(root.RegistryNaksDir)
}

// ResolveAppEntry selects the registry entry for an installed app, the same
// way Uninstall/Verify do: version empty selects the sole installed version,
// otherwise the exact id@version is required.
func ResolveAppEntry(root *config.Root, id, version string) (registry.Entry, error) {
	entries, scanErr := registry.Scan(root.RegistryAppsDir)
	if scanErr != nil {
		return registry.Entry{}, scanErr
	}
	return selectEntry(entries, id, version)
}
