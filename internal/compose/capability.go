package compose

import (
	"strings"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
)

var fsOps = map[string]bool{"read": true, "write": true, "execute": true}
var netOps = map[string]bool{"connect": true, "listen": true, "bind": true}

// deriveCapabilities implements spec §4.E step 12: parse each manifest
// permission entry as "op:selector", map the op to a capability key, and
// surface selectors unexamined and unexpanded.
func deriveCapabilities(c *envelope.Collector, m *manifest.Manifest) envelope.CapabilityUsage {
	var required []string

	process := func(entries []string, validOps map[string]bool, keyPrefix string) {
		for _, raw := range entries {
			idx := strings.IndexByte(raw, ':')
			if idx <= 0 || idx == len(raw)-1 {
				c.Add(envelope.WarnCapabilityMalformed, map[string]any{"entry": raw})
				continue
			}
			op := raw[:idx]
			selector := raw[idx+1:]
			if !validOps[op] {
				c.Add(envelope.WarnCapabilityUnknown, map[string]any{"op": op})
				continue
			}
			required = append(required, keyPrefix+"."+op+":"+selector)
		}
	}

	process(m.PermissionsFilesystem, fsOps, "filesystem")
	process(m.PermissionsNetwork, netOps, "network")

	if required == nil {
		required = []string{}
	}

	return envelope.CapabilityUsage{
		Present:  len(required) > 0,
		Required: required,
		Optional: []string{},
		Critical: []string{},
	}
}
