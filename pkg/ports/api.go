package ports

import (
	"context"
	"errors"
	"time"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// ErrScopeMismatch marks the navigation-validation endpoint rejecting an
// onboarding token with 401. The endpoint expects a different credential
// scope, so for this token class the response is an expected artifact,
// not a real denial; the gateway allows the move silently.
var ErrScopeMismatch = errors.New("navigation validator rejected token scope")

// WelcomePayload is the full-flow hydration response.
type WelcomePayload struct {
	Employee      flow.Employee            `json:"employee"`
	Property      flow.Property            `json:"property"`
	Progress      *flow.Progress           `json:"progress,omitempty"`
	SavedFormData map[string]flow.StepData `json:"saved_form_data,omitempty"`
	ExpiresAt     time.Time                `json:"expires_at,omitzero"`
}

// SingleStepPayload is the invitation-link hydration response. Employee
// and Property may be absent for invitations issued before hire.
type SingleStepPayload struct {
	Employee      *flow.Employee           `json:"employee,omitempty"`
	Property      *flow.Property           `json:"property,omitempty"`
	SavedFormData map[string]flow.StepData `json:"saved_form_data,omitempty"`
	Session       flow.SingleStepInfo      `json:"session_data"`
}

// SaveRequest is the envelope for both the progress-save and the
// mark-complete remote writes.
type SaveRequest struct {
	EmployeeID string        `json:"employee_id"`
	StepID     string        `json:"step_id"`
	FormData   flow.StepData `json:"form_data"`
	Timestamp  time.Time     `json:"timestamp"`
	SingleStep bool          `json:"is_single_step"`
	SessionID  string        `json:"session_id,omitempty"`
	TargetStep string        `json:"target_step,omitempty"`
}

// NavigationRequest asks the remote validator whether an advance is
// allowed.
type NavigationRequest struct {
	EmployeeID     string    `json:"employee_id"`
	CurrentStep    string    `json:"current_step"`
	NextStep       string    `json:"next_step"`
	CompletedSteps []string  `json:"completed_steps"`
	SingleStep     bool      `json:"is_single_step"`
	Timestamp      time.Time `json:"timestamp"`
}

// NavigationResponse is the validator's verdict.
type NavigationResponse struct {
	Allowed             bool     `json:"allowed"`
	Reason              string   `json:"reason,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
	MissingRequirements []string `json:"missing_requirements,omitempty"`
}

// OnboardingAPI is the remote endpoint surface the controller consumes.
// The write operations are best-effort: callers dispatch them through
// the outbox and never block the user on the result. ValidateNavigation
// must return ErrScopeMismatch (wrapped is fine) for the known 401
// token-scope artifact, and plain errors for transport failures and
// other non-2xx responses.
type OnboardingAPI interface {
	FetchWelcome(ctx context.Context, token string) (*WelcomePayload, error)
	FetchSingleStep(ctx context.Context, token string) (*SingleStepPayload, error)
	SaveStepProgress(ctx context.Context, req SaveRequest) error
	MarkStepComplete(ctx context.Context, req SaveRequest) error
	ValidateNavigation(ctx context.Context, req NavigationRequest) (*NavigationResponse, error)
}
