package compose

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/envop"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/records"
)

const overrideEnvironmentKey = "NAH_OVERRIDE_ENVIRONMENT"

type mergeInputs struct {
	hostEnv           *records.HostEnvironment
	nakRecord         *records.NAKInstallRecord
	nakLoaded         bool
	manifest          *manifest.Manifest
	overrides         records.Overrides
	standard          map[string]string
	processEnv        map[string]string
	overridesFileBlob []byte
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeEnvironment runs spec §4.E step 9's seven-source precedence merge
// plus step 10's override gating, returning the merged (pre-expansion)
// environment and a trace of each key's winning source.
func mergeEnvironment(c *envelope.Collector, in mergeInputs) (map[string]string, map[string]envelope.TraceEntry) {
	env := map[string]string{}
	trace := map[string]envelope.TraceEntry{}

	// 1. Host env defaults — fill-only.
	applyFillOnly(env, trace, in.hostEnv.Environment, envelope.PrecedenceHostEnv, "host_env", "host_env.environment")

	// 2. NAK record environment — fill-only.
	if in.nakLoaded {
		applyFillOnly(env, trace, in.nakRecord.Environment, envelope.PrecedenceNAKRecord, "nak_record", "nak_record.environment")
	}

	// 3. Manifest ENV_VAR defaults — fill-only, plain KEY=VALUE strings.
	for _, raw := range in.manifest.EnvVars {
		idx := strings.IndexByte(raw, '=')
		if idx <= 0 {
			continue
		}
		key, value := raw[:idx], raw[idx+1:]
		if _, exists := env[key]; exists {
			continue
		}
		env[key] = value
		trace[key] = envelope.TraceEntry{Value: value, SourceKind: "manifest", SourcePath: "manifest.env_var." + key, PrecedenceRank: envelope.PrecedenceManifest}
	}

	// 4. App Install Record overrides.environment — overwrite.
	applyOverwrite(env, trace, in.overrides.Environment, envelope.PrecedenceRecordOverride, "install_record", "install_record.overrides.environment")

	// 5. Standard NAH_* variables — overwrite.
	for _, key := range sortedKeys(in.standard) {
		value := in.standard[key]
		env[key] = value
		trace[key] = envelope.TraceEntry{Value: value, SourceKind: "standard", SourcePath: "standard." + key, PrecedenceRank: envelope.StandardEnvPrecedenceRank}
	}

	// 6. Process environment overrides — overwrite when permitted.
	applyProcessEnvOverrides(c, env, trace, in)

	// 7. File-based overrides — overwrite when permitted.
	applyOverridesFile(c, env, trace, in)

	return env, trace
}

func applyFillOnly(env map[string]string, trace map[string]envelope.TraceEntry, ops map[string]envop.Value, rank int, sourceKind, sourcePathPrefix string) {
	for _, key := range sortedKeys(ops) {
		if _, exists := env[key]; exists {
			continue
		}
		op := ops[key]
		newVal, present := op.Apply("", false)
		if !present {
			continue
		}
		env[key] = newVal
		trace[key] = envelope.TraceEntry{Value: newVal, SourceKind: sourceKind, SourcePath: sourcePathPrefix + "." + key, PrecedenceRank: rank}
	}
}

func applyOverwrite(env map[string]string, trace map[string]envelope.TraceEntry, ops map[string]envop.Value, rank int, sourceKind, sourcePathPrefix string) {
	for _, key := range sortedKeys(ops) {
		op := ops[key]
		current, exists := env[key]
		newVal, present := op.Apply(current, exists)
		if !present {
			delete(env, key)
			delete(trace, key)
			continue
		}
		env[key] = newVal
		trace[key] = envelope.TraceEntry{Value: newVal, SourceKind: sourceKind, SourcePath: sourcePathPrefix + "." + key, PrecedenceRank: rank}
	}
}

func applyOverwriteStrings(env map[string]string, trace map[string]envelope.TraceEntry, kv map[string]string, rank int, sourceKind, sourcePath string) {
	for _, key := range sortedKeys(kv) {
		value := kv[key]
		env[key] = value
		trace[key] = envelope.TraceEntry{Value: value, SourceKind: sourceKind, SourcePath: sourcePath, PrecedenceRank: rank}
	}
}

func applyProcessEnvOverrides(c *envelope.Collector, env map[string]string, trace map[string]envelope.TraceEntry, in mergeInputs) {
	const prefix = "NAH_OVERRIDE_"
	for _, key := range sortedKeys(in.processEnv) {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if key != overrideEnvironmentKey {
			c.Add(envelope.WarnOverrideDenied, map[string]any{"target": key, "source_kind": "process_env", "source_ref": key})
			continue
		}
		if !in.hostEnv.AllowEnvOverrides() {
			c.Add(envelope.WarnOverrideDenied, map[string]any{"target": key, "source_kind": "process_env", "source_ref": key})
			continue
		}
		kv, ok := parseOverrideObject(c, in.processEnv[key], key, "process_env", key)
		if !ok {
			continue
		}
		applyOverwriteStrings(env, trace, kv, envelope.PrecedenceProcessEnv, "process_env", key)
	}
}

func applyOverridesFile(c *envelope.Collector, env map[string]string, trace map[string]envelope.TraceEntry, in mergeInputs) {
	if len(in.overridesFileBlob) == 0 {
		return
	}
	if !in.hostEnv.AllowEnvOverrides() {
		c.Add(envelope.WarnOverrideDenied, map[string]any{"target": "OVERRIDES_FILE", "source_kind": "overrides_file", "source_ref": ""})
		return
	}

	var doc struct {
		Environment map[string]string `json:"environment"`
	}
	if err := json.Unmarshal(in.overridesFileBlob, &doc); err != nil {
		c.Add(envelope.WarnOverrideInvalid, map[string]any{"target": "OVERRIDES_FILE", "source_kind": "overrides_file", "reason": "parse_failure"})
		return
	}
	applyOverwriteStrings(env, trace, doc.Environment, envelope.PrecedenceOverridesFile, "overrides_file", "OVERRIDES_FILE")
}

// parseOverrideObject decodes a JSON object of {string:string}, reporting
// override_invalid with the right reason on parse or shape failure (spec
// §4.E step 10).
func parseOverrideObject(c *envelope.Collector, raw, target, sourceKind, sourceRef string) (map[string]string, bool) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		c.Add(envelope.WarnOverrideInvalid, map[string]any{"target": target, "source_kind": sourceKind, "source_ref": sourceRef, "reason": "parse_failure"})
		return nil, false
	}
	kv := make(map[string]string, len(generic))
	for k, v := range generic {
		s, ok := v.(string)
		if !ok {
			c.Add(envelope.WarnOverrideInvalid, map[string]any{"target": target, "source_kind": sourceKind, "source_ref": sourceRef, "reason": "invalid_shape"})
			return nil, false
		}
		kv[k] = s
	}
	return kv, true
}
