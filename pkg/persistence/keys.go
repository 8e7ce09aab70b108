// Package persistence mediates between the in-memory session state, the
// local durable cache, and the remote API. The local leg is synchronous
// and never fails the caller; the remote leg runs through a durable
// outbox and is best-effort.
package persistence

import "strings"

// Key layout in the local cache, namespaced per session scope so
// unrelated sessions on the same store never collide:
//
//	onboarding:<scope>:step:<stepID>       per-step payload blob
//	onboarding:<scope>:progress            aggregate progress blob
//	onboarding:<scope>:completed:<stepID>  completion flag ("true")
//	onboarding:<scope>:outbox:<seq>        pending remote operation
//
// Every entry is disposable: absent, malformed, or stale blobs are
// treated as if they were never written.
const keyRoot = "onboarding:"

// Keyspace builds cache keys for one session scope (the employee ID, or
// the invitation session ID in single-step mode).
type Keyspace struct {
	scope string
}

// NewKeyspace creates a keyspace for scope.
func NewKeyspace(scope string) Keyspace {
	return Keyspace{scope: scope}
}

func (k Keyspace) prefix() string {
	return keyRoot + k.scope + ":"
}

// StepData returns the per-step payload key.
func (k Keyspace) StepData(stepID string) string {
	return k.prefix() + "step:" + stepID
}

// Progress returns the aggregate progress blob key.
func (k Keyspace) Progress() string {
	return k.prefix() + "progress"
}

// Completed returns the completion flag key for stepID.
func (k Keyspace) Completed(stepID string) string {
	return k.prefix() + "completed:" + stepID
}

// CompletedPrefix returns the shared prefix of all completion flags.
func (k Keyspace) CompletedPrefix() string {
	return k.prefix() + "completed:"
}

// Outbox returns the key for a pending remote operation.
func (k Keyspace) Outbox(seq string) string {
	return k.prefix() + "outbox:" + seq
}

// OutboxPrefix returns the shared prefix of all outbox entries.
func (k Keyspace) OutboxPrefix() string {
	return k.prefix() + "outbox:"
}

// StepFromCompletedKey extracts the step ID from a completion flag key,
// or "" when the key has a different shape.
func (k Keyspace) StepFromCompletedKey(key string) string {
	stepID, ok := strings.CutPrefix(key, k.CompletedPrefix())
	if !ok {
		return ""
	}
	return stepID
}
