package ports

import (
	"context"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// ValidationResult is the pass/fail outcome of a per-step validator.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// StepValidator checks a step payload before the step may be marked
// complete. Implementations own the field-level rules; the controller
// only consumes the verdict.
type StepValidator interface {
	ValidateStep(ctx context.Context, stepID string, payload flow.StepData) ValidationResult
}

// CompletionPredicate decides whether a saved payload represents a
// finished step. Predicates are registered per step id and drive the
// hydration derivation pass; they replace shape-sniffing over arbitrary
// saved data with explicit, testable rules.
type CompletionPredicate func(payload flow.StepData) bool

// AcceptAllValidator passes every payload. Useful as a default and in
// tests.
type AcceptAllValidator struct{}

func (AcceptAllValidator) ValidateStep(context.Context, string, flow.StepData) ValidationResult {
	return ValidationResult{Valid: true}
}
