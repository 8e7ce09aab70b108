// Package validation provides the pluggable per-step payload validators
// and the completion predicates that drive the hydration derivation
// pass.
package validation

import (
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// Predicates maps step IDs to their completion predicate. Registering
// predicates next to the step definitions keeps "is this saved payload a
// finished step" an explicit, testable rule instead of shape-sniffing.
type Predicates map[string]ports.CompletionPredicate

// Evaluate runs the predicate for stepID against payload. Steps without
// a registered predicate fall back to the explicit completion flag.
func (p Predicates) Evaluate(stepID string, payload flow.StepData) bool {
	if payload == nil {
		return false
	}
	pred, ok := p[stepID]
	if !ok {
		pred = FlagPredicate()
	}
	return pred(payload)
}

// FlagPredicate matches an explicit boolean completion marker. With no
// keys given it checks the canonical "completed" field.
func FlagPredicate(keys ...string) ports.CompletionPredicate {
	if len(keys) == 0 {
		keys = []string{"completed"}
	}
	return func(payload flow.StepData) bool {
		for _, key := range keys {
			if v, ok := payload[key].(bool); ok && v {
				return true
			}
		}
		return false
	}
}

// BlocksPredicate reports completion when every named block is present
// as a non-empty map. Legacy sessions saved structured payloads without
// a completion flag; the block test recovers their progress.
func BlocksPredicate(blocks ...string) ports.CompletionPredicate {
	return func(payload flow.StepData) bool {
		for _, name := range blocks {
			block, ok := payload[name].(map[string]any)
			if !ok || len(block) == 0 {
				return false
			}
		}
		return true
	}
}

// Any combines predicates with OR.
func Any(preds ...ports.CompletionPredicate) ports.CompletionPredicate {
	return func(payload flow.StepData) bool {
		for _, pred := range preds {
			if pred(payload) {
				return true
			}
		}
		return false
	}
}

// DefaultPredicates returns the predicate set for the default registry.
func DefaultPredicates() Predicates {
	return Predicates{
		"welcome": Any(FlagPredicate(), FlagPredicate("acknowledged")),
		// A personal-info payload counts as complete only when both the
		// identity block and the emergency-contact block carry data.
		"personal-info":    Any(FlagPredicate(), BlocksPredicate("identity", "emergencyContact")),
		"job-details":      FlagPredicate(),
		"company-policies": Any(FlagPredicate(), FlagPredicate("policiesAccepted")),
		"i9-section1":      FlagPredicate(),
		"w4-form":          FlagPredicate(),
		"direct-deposit":   FlagPredicate(),
		"final-review":     Any(FlagPredicate(), FlagPredicate("submitted")),
	}
}
