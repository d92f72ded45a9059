// Package envelope defines the Launch Contract output shape and the typed
// warning/critical-error taxonomy described in spec §4.I and §7. Replacing a
// stringly-typed warnings accumulator with a closed enum plus a single
// marshaling path keeps every NAH consumer from ever seeing a free-form
// string for a warning key (spec §9 "Warning list as a typed sink").
package envelope

// Schema is the fixed schema string carried by every Launch Contract envelope.
const Schema = "nah.launch.contract.v1"

// CriticalError identifies a terminal failure of composition (spec §7).
// Only these five values are ever produced; there is no permissive fallback
// once one occurs.
type CriticalError string

const (
	ErrManifestMissing      CriticalError = "MANIFEST_MISSING"
	ErrEntrypointNotFound   CriticalError = "ENTRYPOINT_NOT_FOUND"
	ErrPathTraversal        CriticalError = "PATH_TRAVERSAL"
	ErrInstallRecordInvalid CriticalError = "INSTALL_RECORD_INVALID"
	ErrNAKLoaderInvalid     CriticalError = "NAK_LOADER_INVALID"
)

// ExitCode returns the process exit code a CLI collaborator should use for
// this critical error (spec §6): 1 for any critical error, 0 otherwise.
func (e CriticalError) ExitCode() int {
	if e == "" {
		return 0
	}
	return 1
}

// WarningKey is drawn from the fixed closed set in spec §7. No new keys may
// appear in v1.x outputs (spec §8 property 8).
type WarningKey string

const (
	WarnInvalidManifest       WarningKey = "invalid_manifest"
	WarnInvalidConfiguration  WarningKey = "invalid_configuration"
	WarnHostEnvParseError     WarningKey = "host_env_parse_error"
	WarnNAKPinInvalid         WarningKey = "nak_pin_invalid"
	WarnNAKNotFound           WarningKey = "nak_not_found"
	WarnNAKVersionUnsupported WarningKey = "nak_version_unsupported"
	WarnNAKLoaderRequired     WarningKey = "nak_loader_required"
	WarnNAKLoaderMissing      WarningKey = "nak_loader_missing"
	WarnInvalidLibraryPath    WarningKey = "invalid_library_path"
	WarnCapabilityMalformed   WarningKey = "capability_malformed"
	WarnCapabilityUnknown     WarningKey = "capability_unknown"
	WarnMissingEnvVar         WarningKey = "missing_env_var"
	WarnInvalidTrustState     WarningKey = "invalid_trust_state"
	WarnTrustStateUnknown     WarningKey = "trust_state_unknown"
	WarnTrustStateUnverified  WarningKey = "trust_state_unverified"
	WarnTrustStateFailed      WarningKey = "trust_state_failed"
	WarnTrustStateStale       WarningKey = "trust_state_stale"
	WarnOverrideDenied        WarningKey = "override_denied"
	WarnOverrideInvalid       WarningKey = "override_invalid"
)

// Warning is the normative shape from spec §3: {key, action:"warn", fields}.
// Field declaration order is alphabetical (action, fields, key) so that the
// default encoding/json struct-field order already produces the alphabetized
// key ordering §4.I requires, with no custom MarshalJSON needed.
type Warning struct {
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
	Key    WarningKey     `json:"key"`
}

// New builds a Warning with action fixed to "warn". A nil fields map is
// normalized to an empty map so the JSON field is always an object, never
// null.
func New(key WarningKey, fields map[string]any) Warning {
	if fields == nil {
		fields = map[string]any{}
	}
	return Warning{Action: "warn", Fields: fields, Key: key}
}

// Collector accumulates warnings in emission order. Order is never sorted:
// it is the algorithm's iteration order (spec §5), which is itself
// deterministic because every set-like input is iterated in lexicographic
// key order upstream.
type Collector struct {
	warnings []Warning
}

// Add appends a warning, preserving emission order.
func (c *Collector) Add(key WarningKey, fields map[string]any) {
	c.warnings = append(c.warnings, New(key, fields))
}

// List returns the accumulated warnings. Never nil; callers that need the
// JSON array to render as "[]" rather than "null" should use this directly.
func (c *Collector) List() []Warning {
	if c.warnings == nil {
		return []Warning{}
	}
	return c.warnings
}
