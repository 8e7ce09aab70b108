package flow

import "time"

// SaveState describes what the persistence layer is currently doing.
type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveError  SaveState = "error"
)

// SaveStatus is the summary the auto-save coordinator polls for UI
// display. It observes persistence; it never drives it.
type SaveStatus struct {
	State       SaveState `json:"state"`
	LastSavedAt time.Time `json:"last_saved_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`

	// PendingRemote counts outbox operations not yet acknowledged by the
	// server. Non-zero means local truth is ahead of server truth.
	PendingRemote int `json:"pending_remote"`
}
