package compose

import (
	"time"

	"github.com/nah-run/nah/internal/envelope"
	"github.com/nah-run/nah/internal/records"
)

// surfaceTrust implements spec §4.E step 16. Only the four listed trust
// fields and state itself ever drive a warning; Details is opaque
// pass-through.
func surfaceTrust(c *envelope.Collector, trust records.Trust, now time.Time) envelope.Trust {
	state := trust.State
	switch state {
	case "":
		c.Add(envelope.WarnTrustStateUnknown, nil)
		state = "unknown"
	case "verified":
	case "unverified":
		c.Add(envelope.WarnTrustStateUnverified, nil)
	case "failed":
		c.Add(envelope.WarnTrustStateFailed, nil)
	default:
		c.Add(envelope.WarnInvalidTrustState, map[string]any{"state": state})
		c.Add(envelope.WarnTrustStateUnknown, nil)
		state = "unknown"
	}

	if trust.ExpiresAt != "" {
		if expires, err := time.Parse(time.RFC3339, trust.ExpiresAt); err == nil {
			if expires.Before(now) {
				c.Add(envelope.WarnTrustStateStale, nil)
			}
		}
	}

	return envelope.Trust{
		State:       state,
		Source:      trust.Source,
		EvaluatedAt: trust.EvaluatedAt,
		ExpiresAt:   trust.ExpiresAt,
		Details:     trust.Details,
	}
}
