package resolve

import (
	"fmt"
	"strings"
)

// ProbeFailurePolicy decides how a video is classified when the short-form probe errors.
type ProbeFailurePolicy string

const (
	// ProbeFailureLongForm treats an unprobeable video as long-form (fail open).
	ProbeFailureLongForm ProbeFailurePolicy = "long_form"

	// ProbeFailureShort treats an unprobeable video as a short and skips it.
	ProbeFailureShort ProbeFailurePolicy = "short"
)

// DefaultProbeFailurePolicy is used when no policy is configured.
const DefaultProbeFailurePolicy = ProbeFailureLongForm

// ParseProbeFailurePolicy parses a policy name; "" yields the default.
func ParseProbeFailurePolicy(s string) (ProbeFailurePolicy, error) {
	switch ProbeFailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultProbeFailurePolicy, nil
	case ProbeFailureLongForm:
		return ProbeFailureLongForm, nil
	case ProbeFailureShort:
		return ProbeFailureShort, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidProbePolicy, s, ProbeFailureLongForm, ProbeFailureShort)
	}
}

// treatAsShort applies the policy to a failed probe.
func (p ProbeFailurePolicy) treatAsShort() bool {
	return p == ProbeFailureShort
}
