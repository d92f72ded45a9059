package records

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nah-run/nah/internal/envop"
	"github.com/nah-run/nah/internal/semver"
)

// Loader is one entry of a NAK Install Record's loaders map.
type Loader struct {
	ExecPath     string   `json:"exec_path"`
	ArgsTemplate []string `json:"args_template,omitempty"`
}

const defaultLoaderName = "default"

// nakPaths is the NAK Install Record's paths block.
type nakPaths struct {
	Root         string   `json:"root"`
	ResourceRoot string   `json:"resource_root,omitempty"`
	LibDirs      []string `json:"lib_dirs,omitempty"`
}

// nakExecution is the NAK Install Record's execution block.
type nakExecution struct {
	Cwd string `json:"cwd,omitempty"`
}

// nakWire is the on-disk shape, kept unexported so DecodeNAKInstallRecord can
// resolve the legacy singular "loader" object (spec §9 open question 1:
// per-app loader preference vs. legacy singular-loader NAKs — this
// implementation folds a bare "loader" object into loaders["default"]).
type nakWire struct {
	NAK struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	} `json:"nak"`
	Paths       nakPaths                 `json:"paths"`
	Environment map[string]envop.Value   `json:"environment,omitempty"`
	Loaders     map[string]Loader        `json:"loaders,omitempty"`
	Loader      *Loader                  `json:"loader,omitempty"`
	Execution   nakExecution             `json:"execution,omitempty"`
}

// NAKInstallRecord is spec §3's NAK Install Record, after legacy-loader
// normalization.
type NAKInstallRecord struct {
	ID           string
	Version      string
	Root         string
	ResourceRoot string
	LibDirs      []string
	Environment  map[string]envop.Value
	Loaders      map[string]Loader
	ExecutionCwd string
}

// PinInvalidError is the non-fatal failure of NAK Install Record loading
// (spec §4.D): the kit is marked unresolved but composition continues.
type PinInvalidError struct {
	Reason string
}

func (e *PinInvalidError) Error() string { return "nak pin invalid: " + e.Reason }

// DecodeNAKInstallRecord parses and validates a NAK Install Record. A
// *PinInvalidError here means the composer's nak_pin_invalid warning path,
// not a critical error — callers installing the kit itself should instead
// treat a non-nil error as a hard failure (spec §4.D note on install-time
// handling of malformed kit records).
func DecodeNAKInstallRecord(data []byte) (*NAKInstallRecord, error) {
	var wire nakWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &PinInvalidError{Reason: fmt.Sprintf("parse failure: %v", err)}
	}

	if strings.TrimSpace(wire.NAK.ID) == "" {
		return nil, &PinInvalidError{Reason: "nak.id is required"}
	}
	if strings.TrimSpace(wire.NAK.Version) == "" {
		return nil, &PinInvalidError{Reason: "nak.version is required"}
	}
	if !semver.IsCore(wire.NAK.Version) {
		return nil, &PinInvalidError{Reason: "nak.version must be core MAJOR.MINOR.PATCH"}
	}
	if strings.TrimSpace(wire.Paths.Root) == "" {
		return nil, &PinInvalidError{Reason: "paths.root is required"}
	}

	rec := &NAKInstallRecord{
		ID:           wire.NAK.ID,
		Version:      wire.NAK.Version,
		Root:         wire.Paths.Root,
		ResourceRoot: wire.Paths.ResourceRoot,
		LibDirs:      wire.Paths.LibDirs,
		Environment:  wire.Environment,
		ExecutionCwd: wire.Execution.Cwd,
	}
	if rec.ResourceRoot == "" {
		rec.ResourceRoot = rec.Root
	}

	rec.Loaders = map[string]Loader{}
	for name, l := range wire.Loaders {
		rec.Loaders[name] = l
	}
	if wire.Loader != nil {
		if _, exists := rec.Loaders[defaultLoaderName]; !exists {
			rec.Loaders[defaultLoaderName] = *wire.Loader
		}
	}

	return rec, nil
}
