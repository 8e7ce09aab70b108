package flow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Employee is an opaque reference record owned by the HR system. The
// controller never inspects it beyond the ID.
type Employee struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Property is the work location / business unit reference record.
type Property struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// SingleStepInfo carries the invitation metadata for a single-step
// session.
type SingleStepInfo struct {
	SessionID      string    `json:"session_id"`
	TargetStepID   string    `json:"target_step_id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Session is the runtime state of one onboarding instance.
type Session struct {
	Employee Employee  `json:"employee"`
	Property Property  `json:"property"`
	Progress *Progress `json:"progress"`

	// Token is the opaque credential redeemed at hydration. Never
	// inspected, only forwarded.
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`

	// StepData holds the per-step payloads, keyed by step ID. Payloads
	// are opaque; writes to the same step shallow-merge over earlier
	// ones.
	StepData map[string]StepData `json:"step_data"`

	// SingleStep is non-nil when the session is scoped to exactly one
	// step via a standalone invitation link.
	SingleStep *SingleStepInfo `json:"single_step,omitempty"`
}

// SingleStepMode reports whether the session is restricted to one step.
func (s *Session) SingleStepMode() bool {
	return s.SingleStep != nil
}

// Demo reports whether the session runs against synthetic records and
// must skip every remote leg (background sync, remote navigation
// validation).
func (s *Session) Demo() bool {
	if s.SingleStepMode() {
		// Invitation sessions sync by session ID and may legitimately
		// carry a placeholder employee.
		return s.Token == ""
	}
	return s.Employee.Placeholder || strings.HasPrefix(s.Employee.ID, "demo-") || s.Token == ""
}

// Scope is the namespace for this session's local cache and outbox
// entries: the invitation session ID in single-step mode, otherwise the
// employee ID.
func (s *Session) Scope() string {
	if s.SingleStep != nil && s.SingleStep.SessionID != "" {
		return s.SingleStep.SessionID
	}
	return s.Employee.ID
}

// Data returns the payload for stepID, or nil when the step has no
// saved data yet.
func (s *Session) Data(stepID string) StepData {
	return s.StepData[stepID]
}

// MergeData shallow-merges payload into the step's stored data,
// creating the entry on first write.
func (s *Session) MergeData(stepID string, payload StepData) {
	if s.StepData == nil {
		s.StepData = make(map[string]StepData)
	}
	existing, ok := s.StepData[stepID]
	if !ok {
		s.StepData[stepID] = payload.Clone()
		return
	}
	existing.Merge(payload)
}

// PlaceholderEmployee returns a clearly-marked synthetic employee so
// single-step sessions without a hired employee never need special
// casing downstream.
func PlaceholderEmployee(email string) Employee {
	if email == "" {
		email = "pending@invitation.local"
	}
	return Employee{
		ID:          "pending-" + uuid.NewString(),
		Name:        "Pending Employee",
		Email:       email,
		Placeholder: true,
	}
}

// PlaceholderProperty returns a synthetic property record.
func PlaceholderProperty() Property {
	return Property{
		ID:          "pending-" + uuid.NewString(),
		Name:        "Pending Property",
		Placeholder: true,
	}
}
