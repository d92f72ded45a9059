package records

import (
	"encoding/json"
	"fmt"

	"github.com/nah-run/nah/internal/envop"
)

// HostEnvironment is spec §3's host-owned singleton at <root>/host/host.json.
type HostEnvironment struct {
	Environment map[string]envop.Value `json:"environment,omitempty"`
	Paths       struct {
		LibraryPrepend []string `json:"library_prepend,omitempty"`
		LibraryAppend  []string `json:"library_append,omitempty"`
	} `json:"paths,omitempty"`
	Overrides struct {
		AllowEnvOverrides *bool `json:"allow_env_overrides,omitempty"`
	} `json:"overrides,omitempty"`
}

// AllowEnvOverrides reports host policy, defaulting to true when absent
// (spec §3).
func (h *HostEnvironment) AllowEnvOverrides() bool {
	if h.Overrides.AllowEnvOverrides == nil {
		return true
	}
	return *h.Overrides.AllowEnvOverrides
}

// ParseError is emitted as the host_env_parse_error warning; callers fall
// back to an empty HostEnvironment rather than treating this as a critical
// error (host policy never blocks composition).
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "host_env_parse_error: " + e.Reason }

// DecodeHostEnvironment parses a Host Environment document. On parse
// failure it returns a zero-value HostEnvironment alongside a *ParseError
// so the caller can emit the warning and proceed with policy defaults.
func DecodeHostEnvironment(data []byte) (*HostEnvironment, error) {
	var h HostEnvironment
	if len(data) == 0 {
		return &h, nil
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return &HostEnvironment{}, &ParseError{Reason: fmt.Sprintf("parse failure: %v", err)}
	}
	return &h, nil
}
