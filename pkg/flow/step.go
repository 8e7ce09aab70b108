package flow

// StepStatus is the derived state of a step within a session.
type StepStatus string

const (
	StatusLocked     StepStatus = "locked"      // One or more dependencies unmet
	StatusReady      StepStatus = "ready"       // Dependencies met, not yet started
	StatusInProgress StepStatus = "in-progress" // The step at the current index
	StatusComplete   StepStatus = "complete"    // Present in the completed set
)

// Step describes one unit of the onboarding wizard. Steps are static
// registry data; per-session state lives in Progress.
type Step struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Order is 1-based and unique within a registry.
	Order int `json:"order" yaml:"order"`

	Required         bool `json:"required" yaml:"required"`
	EstimatedMinutes int  `json:"estimated_minutes" yaml:"estimated_minutes"`

	// GovernmentRequired flags legally mandated steps (employment
	// eligibility, tax withholding). They are always Required.
	GovernmentRequired bool `json:"government_required,omitempty" yaml:"government_required,omitempty"`

	// Dependencies lists step IDs that must be complete first. An empty
	// set means the step depends on all prior required steps in registry
	// order.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}
