// Package registry holds the canonical ordered step list and resolves
// step dependencies.
package registry

import (
	"fmt"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// Registry is an immutable, ordered collection of steps. Build one with
// New (or Default) at construction time and share it freely; it is safe
// for concurrent reads.
type Registry struct {
	steps []flow.Step
	byID  map[string]int
}

// New builds a registry from steps in the given order. It returns an
// error when the definition is structurally invalid (see validate).
func New(steps []flow.Step) (*Registry, error) {
	r := &Registry{
		steps: append([]flow.Step{}, steps...),
		byID:  make(map[string]int, len(steps)),
	}
	for i, s := range r.steps {
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate step id %q", s.ID)
		}
		r.byID[s.ID] = i
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the standard full onboarding flow.
func Default() *Registry {
	r, err := New([]flow.Step{
		{ID: "welcome", Name: "Welcome", Order: 1, Required: true, EstimatedMinutes: 2},
		{ID: "personal-info", Name: "Personal Information", Order: 2, Required: true, EstimatedMinutes: 10},
		{ID: "job-details", Name: "Job Details", Order: 3, Required: true, EstimatedMinutes: 5},
		{ID: "company-policies", Name: "Company Policies", Order: 4, Required: true, EstimatedMinutes: 15},
		{ID: "i9-section1", Name: "Employment Eligibility (I-9)", Order: 5, Required: true, EstimatedMinutes: 10, GovernmentRequired: true},
		{ID: "w4-form", Name: "Tax Withholding (W-4)", Order: 6, Required: true, EstimatedMinutes: 10, GovernmentRequired: true},
		{ID: "direct-deposit", Name: "Payroll Setup", Order: 7, Required: false, EstimatedMinutes: 5},
		{ID: "final-review", Name: "Final Review", Order: 8, Required: true, EstimatedMinutes: 5},
	})
	if err != nil {
		panic(err) // built-in definition, covered by tests
	}
	return r
}

// Steps returns the ordered step list. Callers must not mutate it.
func (r *Registry) Steps() []flow.Step {
	return r.steps
}

// Len returns the number of active steps.
func (r *Registry) Len() int {
	return len(r.steps)
}

// Step looks a step up by ID.
func (r *Registry) Step(id string) (flow.Step, bool) {
	i, ok := r.byID[id]
	if !ok {
		return flow.Step{}, false
	}
	return r.steps[i], true
}

// At returns the step at index, or false when out of range.
func (r *Registry) At(index int) (flow.Step, bool) {
	if index < 0 || index >= len(r.steps) {
		return flow.Step{}, false
	}
	return r.steps[index], true
}

// Index returns the position of a step ID, or -1.
func (r *Registry) Index(id string) int {
	i, ok := r.byID[id]
	if !ok {
		return -1
	}
	return i
}

// Contains reports whether id is a registered step.
func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Dependencies resolves the effective dependency set for a step: the
// explicit set when non-empty, otherwise all prior required steps in
// registry order. The fallback keeps required steps strictly sequential
// while explicit graphs can opt out.
func (r *Registry) Dependencies(id string) []string {
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	step := r.steps[i]
	if len(step.Dependencies) > 0 {
		return append([]string{}, step.Dependencies...)
	}
	var deps []string
	for _, prior := range r.steps[:i] {
		if prior.Required {
			deps = append(deps, prior.ID)
		}
	}
	return deps
}

// SingleStep returns a registry reduced to exactly the requested step.
// The step keeps its definition but sheds its dependencies: nothing
// comes before it.
func (r *Registry) SingleStep(id string) (*Registry, error) {
	step, ok := r.Step(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrStepNotFound, id)
	}
	step.Order = 1
	step.Dependencies = nil
	return New([]flow.Step{step})
}

// validate runs the structural checks: non-empty ids, positive
// estimates, dependency ids that exist, and no dependency cycles.
func (r *Registry) validate() error {
	for _, s := range r.steps {
		if s.ID == "" {
			return fmt.Errorf("step %q has an empty id", s.Name)
		}
		if s.EstimatedMinutes <= 0 {
			return fmt.Errorf("step %q: estimated_minutes must be positive", s.ID)
		}
		if s.GovernmentRequired && !s.Required {
			return fmt.Errorf("step %q: government-required steps must be required", s.ID)
		}
		for _, dep := range s.Dependencies {
			if _, ok := r.byID[dep]; !ok {
				return fmt.Errorf("step %q depends on unknown step %q", s.ID, dep)
			}
			if dep == s.ID {
				return fmt.Errorf("step %q depends on itself", s.ID)
			}
		}
	}
	return r.checkCycles()
}

// checkCycles walks the effective dependency graph depth-first.
func (r *Registry) checkCycles() error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(r.steps))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("dependency cycle through step %q", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range r.Dependencies(id) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, s := range r.steps {
		if err := visit(s.ID); err != nil {
			return err
		}
	}
	return nil
}
