package flow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCacheMiss is returned by cache stores when a key does not exist.
var ErrCacheMiss = errors.New("cache entry not found")

// ErrStepNotFound is returned when a step ID is not in the active
// registry.
var ErrStepNotFound = errors.New("step not found")

// ErrSessionExpired is returned when a hydration token is past its
// expiry.
var ErrSessionExpired = errors.New("session expired")

// ValidationError reports a per-step validator rejection. It blocks
// completion of the step; nothing is persisted as complete.
type ValidationError struct {
	StepID string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %s failed validation: %s", e.StepID, strings.Join(e.Issues, "; "))
}

// BlockedError reports a navigation attempt rejected by local rules or
// a definitive remote denial. Missing carries human-readable names of
// the unmet steps.
type BlockedError struct {
	Reason  string
	Missing []string
}

func (e *BlockedError) Error() string {
	if len(e.Missing) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s (missing: %s)", e.Reason, strings.Join(e.Missing, ", "))
}
