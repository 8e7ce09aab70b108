package flow

import "sort"

// Progress is the derived progress snapshot for a session. It is
// recomputed as a whole after every mutation; callers must treat it as
// read-only.
type Progress struct {
	CurrentStepIndex int                   `json:"current_step_index"`
	CompletedSteps   []string              `json:"completed_steps"`
	TotalSteps       int                   `json:"total_steps"`
	PercentComplete  int                   `json:"percent_complete"`
	CanProceed       bool                  `json:"can_proceed"`
	StepStates       map[string]StepStatus `json:"step_states"`
}

// NewProgress returns a zero-progress snapshot for the given step count.
func NewProgress(totalSteps int) *Progress {
	return &Progress{
		CompletedSteps: []string{},
		TotalSteps:     totalSteps,
		StepStates:     make(map[string]StepStatus),
	}
}

// Completed reports whether stepID is in the completed set.
func (p *Progress) Completed(stepID string) bool {
	for _, id := range p.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// CompletedSet returns the completed steps as a set.
func (p *Progress) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.CompletedSteps))
	for _, id := range p.CompletedSteps {
		set[id] = struct{}{}
	}
	return set
}

// AddCompleted unions stepIDs into the completed set, preserving
// insertion order for ids not already present. The completed set only
// ever grows; there is no removal operation.
func (p *Progress) AddCompleted(stepIDs ...string) {
	seen := p.CompletedSet()
	for _, id := range stepIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		p.CompletedSteps = append(p.CompletedSteps, id)
	}
}

// Clone returns a deep copy, so stores and observers can hold a snapshot
// without racing later recomputes.
func (p *Progress) Clone() *Progress {
	cp := *p
	cp.CompletedSteps = append([]string{}, p.CompletedSteps...)
	cp.StepStates = make(map[string]StepStatus, len(p.StepStates))
	for k, v := range p.StepStates {
		cp.StepStates[k] = v
	}
	return &cp
}

// SortedCompleted returns the completed ids in lexical order. Useful for
// deterministic wire payloads and test assertions.
func (p *Progress) SortedCompleted() []string {
	out := append([]string{}, p.CompletedSteps...)
	sort.Strings(out)
	return out
}
