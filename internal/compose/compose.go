// Package compose implements the composition algorithm of spec §4.E: the
// pure function that turns a manifest, an install record, a resolved (or
// unresolved) NAK pin, host policy, process environment, and an optional
// overrides file into a single Launch Contract envelope.
//
// Composition never does its own I/O beyond what the caller hands it as
// bytes; the NAKLoader callback is the one seam where a caller plugs in
// registry access, keeping this package a pure function of its arguments
// exactly as spec §8 property 2 requires.
package compose

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/manifest"
	"github.com/nah-run/nah/internal/pathsafe"
	"github.com/nah-run/nah/internal/records"
	"github.com/nah-run/nah/internal/semver"
)

// NAKLoadResult is what a NAKLoader returns for a given pin.
type NAKLoadResult struct {
	Record *records.NAKInstallRecord
	Loaded bool
}

// NAKLoader resolves an app's NAK pin into a loaded NAK Install Record, or
// reports it unresolved. It owns every validity check that depends on
// reading the pinned record from storage (parse failures, schema problems,
// non-core versions, range dissatisfaction) and reports them as warnings;
// the composer only acts on Loaded/not.
type NAKLoader func(pin records.NAKPin, m *manifest.Manifest) (NAKLoadResult, []envelope.Warning)

// Input bundles every argument to Compose, named after spec §4.E's ordered
// input list.
type Input struct {
	Root              string
	ManifestBlob      []byte // nil/empty ⇒ absent
	AppRecordBlob     []byte
	NAKLoader         NAKLoader
	HostEnvBlob       []byte // nil/empty ⇒ defaults apply
	ProcessEnv        map[string]string
	OverridesFileBlob []byte // nil/empty ⇒ no overrides file supplied
	Now               time.Time
	WithTrace         bool
}

// Compose runs the full algorithm and always returns a non-nil envelope:
// either a successful contract or a critical-error envelope, with every
// warning collected before the terminal point included either way.
func Compose(in Input) *envelope.Envelope {
	c := &envelope.Collector{}

	// Step 1: load manifest.
	if len(in.ManifestBlob) == 0 {
		return envelope.Failure(envelope.ErrManifestMissing, c.List())
	}
	m, manifestWarnings, err := manifest.Decode(in.ManifestBlob)
	if err != nil {
		return envelope.Failure(envelope.ErrManifestMissing, c.List())
	}
	appendAll(c, manifestWarnings)

	// Step 2: load install record.
	rec, err := records.DecodeAppInstallRecord(in.AppRecordBlob)
	if err != nil {
		return envelope.Failure(envelope.ErrInstallRecordInvalid, c.List())
	}

	// Step 3: audit mismatch.
	auditMismatch(c, m, rec)

	// Step 4: resolve NAK pin.
	var nak NAKLoadResult
	if m.NAKID != "" {
		if in.NAKLoader != nil {
			var nakWarnings []envelope.Warning
			nak, nakWarnings = in.NAKLoader(rec.NAK, m)
			appendAll(c, nakWarnings)
		}
	}

	// Step 5: derive app fields, resolve entrypoint.
	appRoot := rec.Paths.InstallRoot
	if m.EntrypointPath == "" || filepath.IsAbs(m.EntrypointPath) {
		c.Add(envelope.WarnInvalidManifest, map[string]any{"reason": "entrypoint missing or absolute"})
		return envelope.Failure(envelope.ErrEntrypointNotFound, c.List())
	}
	entrypointAbs, err := pathsafe.ResolveUnder(appRoot, m.EntrypointPath)
	if err != nil {
		return envelope.Failure(envelope.ErrPathTraversal, c.List())
	}
	if _, statErr := os.Stat(entrypointAbs); statErr != nil {
		return envelope.Failure(envelope.ErrEntrypointNotFound, c.List())
	}

	// Step 6: validate NAK requirement (informational only).
	if m.NAKID != "" && m.NAKVersionReq != "" {
		if _, rerr := semver.ParseRange(m.NAKVersionReq); rerr != nil {
			c.Add(envelope.WarnInvalidManifest, map[string]any{"reason": "nak_version_req does not parse"})
		}
	}

	// Step 7: derive NAK fields.
	var nakOut *envelope.NAK
	var loaderName string
	var loader records.Loader
	var hasLoader bool
	if nak.Loaded {
		var derr error
		nakOut, loaderName, loader, hasLoader, derr = deriveNAK(c, nak.Record, rec.NAK.Loader, rec.NAK.RecordRef)
		if derr != nil {
			return envelope.Failure(criticalErrorOf(derr), c.List())
		}
	}

	// Step 8: standard environment.
	standard := map[string]string{
		"NAH_APP_ID":      m.AppID,
		"NAH_APP_VERSION": m.AppVersion,
		"NAH_APP_ROOT":    appRoot,
		"NAH_APP_ENTRY":   entrypointAbs,
	}
	if nak.Loaded {
		standard["NAH_NAK_ID"] = nak.Record.ID
		standard["NAH_NAK_ROOT"] = nak.Record.Root
		standard["NAH_NAK_VERSION"] = nak.Record.Version
	}

	hostEnv, hostEnvErr := records.DecodeHostEnvironment(in.HostEnvBlob)
	if hostEnvErr != nil {
		c.Add(envelope.WarnHostEnvParseError, map[string]any{"reason": hostEnvErr.Error()})
	}

	env, trace := mergeEnvironment(c, mergeInputs{
		hostEnv:           hostEnv,
		nakRecord:         nak.Record,
		nakLoaded:         nak.Loaded,
		manifest:          m,
		overrides:         rec.Overrides,
		standard:          standard,
		processEnv:        in.ProcessEnv,
		overridesFileBlob: in.OverridesFileBlob,
	})

	// Step 11: placeholder expansion.
	snapshot := make(map[string]string, len(env))
	for k, v := range env {
		snapshot[k] = v
	}
	env = expandEnvironmentMap(c, env, snapshot)

	var argsTemplate []string
	var nakCwd string
	if hasLoader {
		argsTemplate = make([]string, len(loader.ArgsTemplate))
		for i, a := range loader.ArgsTemplate {
			argsTemplate[i] = expandString(c, a, snapshot, "nak.loader.args_template")
		}
	}
	if nak.Loaded {
		nakCwd = expandString(c, nak.Record.ExecutionCwd, snapshot, "nak.execution.cwd")
	}

	hostLibPrepend := expandStrings(c, hostEnv.Paths.LibraryPrepend, snapshot, "host_env.paths.library_prepend")
	hostLibAppend := expandStrings(c, hostEnv.Paths.LibraryAppend, snapshot, "host_env.paths.library_append")
	overrideArgsPrepend := expandStrings(c, rec.Overrides.Arguments.Prepend, snapshot, "overrides.arguments.prepend")
	overrideArgsAppend := expandStrings(c, rec.Overrides.Arguments.Append, snapshot, "overrides.arguments.append")
	overrideLibPrepend := expandStrings(c, rec.Overrides.Paths.LibraryPrepend, snapshot, "overrides.paths.library_prepend")
	manifestArgs := expandStrings(c, m.EntrypointArgs, snapshot, "manifest.entrypoint_arg")

	// Step 12: capability derivation.
	capUsage := deriveCapabilities(c, m)

	// Step 13: execution assembly.
	binary := entrypointAbs
	if hasLoader {
		binary = loader.ExecPath
	}
	arguments := append(append(append([]string{}, argsTemplate...), overrideArgsPrepend...), manifestArgs...)
	arguments = append(arguments, overrideArgsAppend...)

	cwd := appRoot
	if nak.Loaded && nak.Record.ExecutionCwd != "" {
		if filepath.IsAbs(nakCwd) {
			cwd = nakCwd
		} else {
			cwd = filepath.Join(nak.Record.Root, nakCwd)
		}
	}

	// Step 14: library path assembly.
	libraryPaths, err := assembleLibraryPaths(c, libraryPathInputs{
		hostPrepend:     hostLibPrepend,
		overridePrepend: overrideLibPrepend,
		nakRecord:       nak.Record,
		nakLoaded:       nak.Loaded,
		appRoot:         appRoot,
		manifestLibDirs: m.LibDirs,
		hostAppend:      hostLibAppend,
	})
	if err != nil {
		return envelope.Failure(criticalErrorOf(err), c.List())
	}

	// Step 15: asset exports.
	exports, err := deriveExports(c, appRoot, m.AssetExports)
	if err != nil {
		return envelope.Failure(criticalErrorOf(err), c.List())
	}

	// Step 16: trust surfacing.
	trust := surfaceTrust(c, rec.Trust, in.Now)

	contract := &envelope.LaunchContract{
		App: envelope.App{
			ID:         m.AppID,
			Version:    m.AppVersion,
			Root:       appRoot,
			Entrypoint: entrypointAbs,
		},
		NAK: nakOut,
		Execution: envelope.Execution{
			Binary:            binary,
			Arguments:         arguments,
			Cwd:               cwd,
			LibraryPathEnvKey: libraryPathEnvKey(),
			LibraryPaths:      libraryPaths,
		},
		Environment:     env,
		Enforcement:     envelope.Enforcement{Filesystem: []string{}, Network: []string{}},
		Trust:           trust,
		Exports:         exports,
		CapabilityUsage: capUsage,
	}

	var tracePtr *envelope.Trace
	if in.WithTrace {
		tracePtr = &envelope.Trace{Environment: trace}
	}

	return envelope.Success(contract, c.List(), tracePtr)
}

func appendAll(c *envelope.Collector, warnings []envelope.Warning) {
	for _, w := range warnings {
		c.Add(w.Key, w.Fields)
	}
}

func auditMismatch(c *envelope.Collector, m *manifest.Manifest, rec *records.AppInstallRecord) {
	var diffs []string
	if rec.App.ID != "" && rec.App.ID != m.AppID {
		diffs = append(diffs, "id")
	}
	if rec.App.Version != "" && rec.App.Version != m.AppVersion {
		diffs = append(diffs, "version")
	}
	if rec.App.NAKID != "" && rec.App.NAKID != m.NAKID {
		diffs = append(diffs, "nak_id")
	}
	if rec.App.NAKVersionReq != "" && rec.App.NAKVersionReq != m.NAKVersionReq {
		diffs = append(diffs, "nak_version_req")
	}
	if len(diffs) > 0 {
		c.Add(envelope.WarnInvalidConfiguration, map[string]any{"fields": diffs})
	}
}

type fatalCompose struct {
	Err envelope.CriticalError
}

func (f *fatalCompose) Error() string { return string(f.Err) }

func libraryPathEnvKey() string {
	return platformLibraryPathEnvKey()
}

func criticalErrorOf(err error) envelope.CriticalError {
	if fe, ok := err.(*fatalCompose); ok {
		return fe.Err
	}
	return envelope.ErrPathTraversal
}
