package envelope

// App is the app-identity slice of a Launch Contract (spec §3).
type App struct {
	ID         string `json:"id"`
	Version    string `json:"version"`
	Root       string `json:"root"`
	Entrypoint string `json:"entrypoint"`
}

// NAK is the runtime-kit slice of a Launch Contract. Nil when the app is
// standalone or the pin never resolved (spec §4.E state machine).
type NAK struct {
	ID           string `json:"id"`
	Version      string `json:"version"`
	Root         string `json:"root"`
	ResourceRoot string `json:"resource_root"`
	RecordRef    string `json:"record_ref"`
	Loader       string `json:"loader,omitempty"`
}

// Execution describes exactly how to exec the application (spec §3, §4.E
// step 13).
type Execution struct {
	Binary            string   `json:"binary"`
	Arguments         []string `json:"arguments"`
	Cwd               string   `json:"cwd"`
	LibraryPathEnvKey string   `json:"library_path_env_key"`
	LibraryPaths      []string `json:"library_paths"`
}

// Enforcement lists declared capability enforcement points. Always empty in
// v1 (spec §3, §4.E step 12) — the fields exist so a future enforcement
// layer has somewhere to land without breaking the schema.
type Enforcement struct {
	Filesystem []string `json:"filesystem"`
	Network    []string `json:"network"`
}

// Trust surfaces the install record's trust state (spec §4.E step 16).
// Details is opaque pass-through and never interpreted by the composer.
type Trust struct {
	State      string         `json:"state"`
	Source     string         `json:"source,omitempty"`
	EvaluatedAt string        `json:"evaluated_at,omitempty"`
	ExpiresAt  string         `json:"expires_at,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Export is one resolved asset export (spec §4.E step 15).
type Export struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// CapabilityUsage is the derived capability report (spec §4.E step 12).
// Optional and Critical stay empty in v1; only Required is populated.
type CapabilityUsage struct {
	Present  bool     `json:"present"`
	Required []string `json:"required_capabilities"`
	Optional []string `json:"optional_capabilities"`
	Critical []string `json:"critical_capabilities"`
}

// LaunchContract is the pure-function output of composition (spec §3). It
// is never persisted; it exists only to be serialized into an Envelope.
type LaunchContract struct {
	App             App               `json:"app"`
	NAK             *NAK              `json:"nak,omitempty"`
	Execution       Execution         `json:"execution"`
	Environment     map[string]string `json:"environment"`
	Enforcement     Enforcement       `json:"enforcement"`
	Trust           Trust             `json:"trust"`
	Exports         map[string]Export `json:"exports"`
	CapabilityUsage CapabilityUsage   `json:"capability_usage"`
}

// TraceEntry annotates one produced value with the provenance fields from
// spec §4.I: the value itself, where it came from, and its precedence rank
// (1..7 from §4.E step 9; "standard" NAH_* variables get rank 5).
type TraceEntry struct {
	Value          string `json:"value"`
	SourceKind     string `json:"source_kind"`
	SourcePath     string `json:"source_path"`
	PrecedenceRank int    `json:"precedence_rank"`
}

// Trace is the optional diagnostic annotation block. Environment is a map
// keyed by environment variable name; map keys are sorted on marshal by
// encoding/json, satisfying §4.I's "map-like JSON objects ... sorted keys"
// rule with no custom code.
type Trace struct {
	Environment map[string]TraceEntry `json:"environment,omitempty"`
}

// StandardEnvPrecedenceRank is the rank assigned to the NAH_* standard
// variables in trace output (spec §4.E step 9: "standard" gets rank 5).
const StandardEnvPrecedenceRank = 5

// Precedence ranks for the environment merge sources in spec §4.E step 9.
const (
	PrecedenceHostEnv       = 1
	PrecedenceNAKRecord     = 2
	PrecedenceManifest      = 3
	PrecedenceRecordOverride = 4
	PrecedenceStandard      = 5
	PrecedenceProcessEnv    = 6
	PrecedenceOverridesFile = 7
)

// Envelope is the normative JSON output shape (spec §4.I). The embedded
// *LaunchContract is inlined at the top level; when CriticalError is set the
// pointer is left nil so its fields are omitted entirely, matching "the
// envelope ... omits the contract fields" on failure.
type Envelope struct {
	Schema string `json:"schema"`
	*LaunchContract
	Warnings      []Warning `json:"warnings"`
	CriticalError *string   `json:"critical_error"`
	Trace         *Trace    `json:"trace,omitempty"`
}

// Success builds the envelope for a successful composition.
func Success(contract *LaunchContract, warnings []Warning, trace *Trace) *Envelope {
	if warnings == nil {
		warnings = []Warning{}
	}
	return &Envelope{
		Schema:         Schema,
		LaunchContract: contract,
		Warnings:       warnings,
		CriticalError:  nil,
		Trace:          trace,
	}
}

// Failure builds the envelope for a critical error: no contract fields, the
// critical error name, and whatever warnings were collected before the
// failure was detected.
func Failure(err CriticalError, warnings []Warning) *Envelope {
	if warnings == nil {
		warnings = []Warning{}
	}
	name := string(err)
	return &Envelope{
		Schema:        Schema,
		Warnings:      warnings,
		CriticalError: &name,
	}
}
