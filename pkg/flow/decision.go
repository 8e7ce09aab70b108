package flow

// Decision is the outcome of an advance attempt evaluated by the
// navigation gateway.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// Warnings holds non-blocking notices, e.g. a soft-failed remote
	// validation. The move is still allowed.
	Warnings []string `json:"warnings,omitempty"`

	// MissingRequirements names the steps that must be completed before
	// the move is allowed. Only set when Allowed is false.
	MissingRequirements []string `json:"missing_requirements,omitempty"`
}

// Blocked builds a denial decision.
func Blocked(reason string, missing ...string) Decision {
	return Decision{Allowed: false, Reason: reason, MissingRequirements: missing}
}

// Allow builds an approval decision with optional warnings.
func Allow(warnings ...string) Decision {
	return Decision{Allowed: true, Warnings: warnings}
}
