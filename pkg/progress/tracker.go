// Package progress derives per-step states and progress metadata from
// the completed set, the current index, and the step registry.
package progress

import (
	"math"

	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/registry"
)

// Tracker computes derived progress for one registry. It holds no
// mutable state of its own; bind a fresh Tracker when the active
// registry changes (e.g. entering single-step mode).
type Tracker struct {
	reg *registry.Registry
}

// NewTracker binds a tracker to a registry.
func NewTracker(reg *registry.Registry) *Tracker {
	return &Tracker{reg: reg}
}

// Registry returns the bound registry.
func (t *Tracker) Registry() *registry.Registry {
	return t.reg
}

// StepStates derives the status of every registered step. The function
// is pure and idempotent: identical inputs always produce an identical
// map. Precedence per step: complete > locked > in-progress > ready.
func (t *Tracker) StepStates(completed map[string]struct{}, currentIndex int) map[string]flow.StepStatus {
	states := make(map[string]flow.StepStatus, t.reg.Len())
	for i, step := range t.reg.Steps() {
		if _, done := completed[step.ID]; done {
			states[step.ID] = flow.StatusComplete
			continue
		}
		if t.hasUnmetDependency(step.ID, completed) {
			states[step.ID] = flow.StatusLocked
			continue
		}
		if i == currentIndex {
			states[step.ID] = flow.StatusInProgress
			continue
		}
		states[step.ID] = flow.StatusReady
	}
	return states
}

// UnmetDependencies returns the dependencies of stepID missing from the
// completed set, in registry resolution order.
func (t *Tracker) UnmetDependencies(stepID string, completed map[string]struct{}) []string {
	var unmet []string
	for _, dep := range t.reg.Dependencies(stepID) {
		if _, done := completed[dep]; !done {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

func (t *Tracker) hasUnmetDependency(stepID string, completed map[string]struct{}) bool {
	for _, dep := range t.reg.Dependencies(stepID) {
		if _, done := completed[dep]; !done {
			return true
		}
	}
	return false
}

// Recompute is the single choke point that re-establishes every
// Progress invariant after a mutation: it deduplicates the completed
// set, drops ids unknown to the active registry, clamps the current
// index, and rebuilds percent, canProceed, and the state map. All
// public mutations must end here; no other code path may hand-patch
// Progress.
func (t *Tracker) Recompute(p *flow.Progress) {
	// Dedupe and filter to registered ids, preserving order.
	seen := make(map[string]struct{}, len(p.CompletedSteps))
	kept := p.CompletedSteps[:0]
	for _, id := range p.CompletedSteps {
		if _, dup := seen[id]; dup {
			continue
		}
		if !t.reg.Contains(id) {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}
	p.CompletedSteps = kept

	p.TotalSteps = t.reg.Len()

	// Clamp the index to the active registry bounds.
	if p.CurrentStepIndex < 0 {
		p.CurrentStepIndex = 0
	}
	if max := p.TotalSteps - 1; p.CurrentStepIndex > max && max >= 0 {
		p.CurrentStepIndex = max
	}

	if p.TotalSteps > 0 {
		p.PercentComplete = int(math.Round(float64(len(p.CompletedSteps)) / float64(p.TotalSteps) * 100))
	} else {
		p.PercentComplete = 0
	}

	p.CanProceed = false
	if current, ok := t.reg.At(p.CurrentStepIndex); ok {
		_, done := seen[current.ID]
		p.CanProceed = done || !current.Required
	}

	p.StepStates = t.StepStates(seen, p.CurrentStepIndex)
}
