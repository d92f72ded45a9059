// Package records loads the host-owned JSON bookkeeping of spec §3: the App
// Install Record, the NAK Install Record, and the Host Environment. All
// three share the envop.Value decoder for their environment maps.
package records

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nah-run/nah/internal/envop"
)

// AppIdentity is the audit snapshot of spec §3's App Install Record
// app.{id,version,nak_id,nak_version_req} block, compared against the
// manifest at composition time.
type AppIdentity struct {
	ID            string `json:"id"`
	Version       string `json:"version"`
	NAKID         string `json:"nak_id"`
	NAKVersionReq string `json:"nak_version_req"`
}

// NAKPin is the install-time pin written into an App Install Record.
type NAKPin struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	RecordRef string `json:"record_ref"`
	Loader    string `json:"loader,omitempty"`
}

// Trust carries the four fields the composer inspects; Details is opaque
// pass-through.
type Trust struct {
	State      string         `json:"state,omitempty"`
	Source     string         `json:"source,omitempty"`
	EvaluatedAt string        `json:"evaluated_at,omitempty"`
	ExpiresAt  string         `json:"expires_at,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// ArgumentOverrides is the overrides.arguments block.
type ArgumentOverrides struct {
	Prepend []string `json:"prepend,omitempty"`
	Append  []string `json:"append,omitempty"`
}

// PathOverrides is the overrides.paths block.
type PathOverrides struct {
	LibraryPrepend []string `json:"library_prepend,omitempty"`
}

// Overrides is the App Install Record's overrides block.
type Overrides struct {
	Environment map[string]envop.Value `json:"environment,omitempty"`
	Arguments   ArgumentOverrides      `json:"arguments,omitempty"`
	Paths       PathOverrides          `json:"paths,omitempty"`
}

// AppInstallRecord is spec §3's App Install Record.
type AppInstallRecord struct {
	Install struct {
		InstanceID string `json:"instance_id"`
	} `json:"install"`
	App  AppIdentity `json:"app"`
	NAK  NAKPin      `json:"nak"`
	Paths struct {
		InstallRoot string `json:"install_root"`
	} `json:"paths"`
	Provenance   map[string]any `json:"provenance,omitempty"`
	Trust        Trust          `json:"trust,omitempty"`
	Verification map[string]any `json:"verification,omitempty"`
	Overrides    Overrides      `json:"overrides,omitempty"`
}

// InvalidError is the critical-error-producing failure of App Install
// Record loading (spec §4.D): unparseable JSON or a missing required field.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string { return "install record invalid: " + e.Reason }

// DecodeAppInstallRecord parses and validates an App Install Record. Any
// violation is an *InvalidError, mapping to envelope.ErrInstallRecordInvalid
// at the composer — no contract is produced on failure.
func DecodeAppInstallRecord(data []byte) (*AppInstallRecord, error) {
	var rec AppInstallRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &InvalidError{Reason: fmt.Sprintf("parse failure: %v", err)}
	}
	if strings.TrimSpace(rec.Install.InstanceID) == "" {
		return nil, &InvalidError{Reason: "install.instance_id is required"}
	}
	if strings.TrimSpace(rec.Paths.InstallRoot) == "" {
		return nil, &InvalidError{Reason: "paths.install_root is required"}
	}
	return &rec, nil
}
