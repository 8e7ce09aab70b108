package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/persistence"
	"github.com/gangwayhq/gangway/pkg/ports"
	"github.com/gangwayhq/gangway/pkg/registry"
)

type fakeAPI struct {
	welcome    *ports.WelcomePayload
	welcomeErr error
	single     *ports.SingleStepPayload
	singleErr  error
}

func (f *fakeAPI) FetchWelcome(context.Context, string) (*ports.WelcomePayload, error) {
	return f.welcome, f.welcomeErr
}

func (f *fakeAPI) FetchSingleStep(context.Context, string) (*ports.SingleStepPayload, error) {
	return f.single, f.singleErr
}

func (f *fakeAPI) SaveStepProgress(context.Context, ports.SaveRequest) error { return nil }
func (f *fakeAPI) MarkStepComplete(context.Context, ports.SaveRequest) error { return nil }
func (f *fakeAPI) ValidateNavigation(context.Context, ports.NavigationRequest) (*ports.NavigationResponse, error) {
	return &ports.NavigationResponse{Allowed: true}, nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func welcomePayload() *ports.WelcomePayload {
	return &ports.WelcomePayload{
		Employee: flow.Employee{ID: "emp-1", Name: "Dana Reyes", Email: "dana@example.com"},
		Property: flow.Property{ID: "prop-1", Name: "Harborview"},
	}
}

func TestHydrateFull_SeedsSessionFromPayload(t *testing.T) {
	payload := welcomePayload()
	payload.SavedFormData = map[string]flow.StepData{
		"personal-info": {"completed": true, "firstName": "Dana"},
	}
	api := &fakeAPI{welcome: payload}
	m := NewManager(api, memory.NewStore(), registry.Default())

	sess, err := m.HydrateFull(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "emp-1", sess.Employee.ID)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, true, sess.Data("personal-info")["completed"])
	assert.False(t, sess.SingleStepMode())
}

func TestHydrateFull_FetchErrorIsFatal(t *testing.T) {
	api := &fakeAPI{welcomeErr: errors.New("boom")}
	m := NewManager(api, memory.NewStore(), registry.Default())

	_, err := m.HydrateFull(context.Background(), "tok-1")
	require.Error(t, err)
}

func TestHydrateFull_ExpiredToken(t *testing.T) {
	payload := welcomePayload()
	payload.ExpiresAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{welcome: payload}
	m := NewManager(api, memory.NewStore(), registry.Default(),
		WithClock(fixedClock{at: payload.ExpiresAt.Add(time.Hour)}))

	_, err := m.HydrateFull(context.Background(), "tok-1")
	require.ErrorIs(t, err, flow.ErrSessionExpired)
}

func TestHydrateFull_DerivesCompletionFromSavedPayloads(t *testing.T) {
	// The server returns saved data with a completion flag but no
	// progress record mentioning the step.
	payload := welcomePayload()
	payload.SavedFormData = map[string]flow.StepData{
		"job-details": {"completed": true},
	}
	api := &fakeAPI{welcome: payload}
	m := NewManager(api, memory.NewStore(), registry.Default())

	sess, err := m.HydrateFull(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, sess.Progress.Completed("job-details"))
}

func TestHydrateFull_DerivationIsMonotonic(t *testing.T) {
	// A payload without completion signals must not remove a completion
	// the server already recorded.
	payload := welcomePayload()
	payload.Progress = flow.NewProgress(registry.Default().Len())
	payload.Progress.AddCompleted("welcome", "personal-info")
	payload.SavedFormData = map[string]flow.StepData{
		"personal-info": {"firstName": "Dana"},
	}
	api := &fakeAPI{welcome: payload}
	m := NewManager(api, memory.NewStore(), registry.Default())

	sess, err := m.HydrateFull(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, sess.Progress.Completed("personal-info"))
	assert.True(t, sess.Progress.Completed("welcome"))
}

func TestHydrateFull_UnionsLocalCache(t *testing.T) {
	store := memory.NewStore()
	cache := persistence.NewCache(store, "emp-1")
	ctx := context.Background()
	require.NoError(t, cache.MarkCompleted(ctx, "welcome"))
	require.NoError(t, cache.SaveStepData(ctx, "company-policies", flow.StepData{"ack": true}))

	api := &fakeAPI{welcome: welcomePayload()}
	m := NewManager(api, store, registry.Default())

	sess, err := m.HydrateFull(ctx, "tok-1")
	require.NoError(t, err)

	assert.True(t, sess.Progress.Completed("welcome"),
		"locally recorded completion survives a stale server response")
	assert.Equal(t, true, sess.Data("company-policies")["ack"],
		"locally cached payload fills a server gap")
}

func TestHydrateFull_CorruptedLocalBlobIsSkipped(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	key := persistence.NewKeyspace("emp-1").StepData("personal-info")
	require.NoError(t, store.Put(ctx, key, []byte("{not json")))

	api := &fakeAPI{welcome: welcomePayload()}
	m := NewManager(api, store, registry.Default())

	sess, err := m.HydrateFull(ctx, "tok-1")
	require.NoError(t, err)
	assert.Nil(t, sess.Data("personal-info"))
}

func TestHydrateFull_ResumesAtFirstIncompleteStep(t *testing.T) {
	payload := welcomePayload()
	payload.SavedFormData = map[string]flow.StepData{
		"welcome":       {"completed": true},
		"personal-info": {"completed": true},
	}
	api := &fakeAPI{welcome: payload}
	m := NewManager(api, memory.NewStore(), registry.Default())

	sess, err := m.HydrateFull(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, registry.Default().Index("job-details"), sess.Progress.CurrentStepIndex)
}

func TestHydrateFull_ResumesAtLocallyCachedIndex(t *testing.T) {
	store := memory.NewStore()
	cache := persistence.NewCache(store, "emp-1")
	cached := flow.NewProgress(registry.Default().Len())
	cached.AddCompleted("welcome")
	cached.CurrentStepIndex = registry.Default().Index("company-policies")
	require.NoError(t, cache.SaveProgress(context.Background(), cached))

	api := &fakeAPI{welcome: welcomePayload()}
	m := NewManager(api, store, registry.Default())

	sess, err := m.HydrateFull(context.Background(), "tok-1")
	require.NoError(t, err)

	// The local blob wins over the first-incomplete fallback, and its
	// completion set is unioned in.
	assert.Equal(t, registry.Default().Index("company-policies"), sess.Progress.CurrentStepIndex)
	assert.True(t, sess.Progress.Completed("welcome"))
}

func TestHydrateSingleStep(t *testing.T) {
	api := &fakeAPI{single: &ports.SingleStepPayload{
		Session: flow.SingleStepInfo{
			SessionID:      "sess-9",
			TargetStepID:   "w4-form",
			RecipientEmail: "new.hire@example.com",
		},
	}}
	m := NewManager(api, memory.NewStore(), registry.Default())

	sess, reg, err := m.HydrateSingleStep(context.Background(), "tok-9", "w4-form")
	require.NoError(t, err)

	assert.True(t, sess.SingleStepMode())
	assert.Equal(t, "sess-9", sess.Scope())
	assert.Equal(t, 1, reg.Len())
	step, ok := reg.Step("w4-form")
	require.True(t, ok)
	assert.Empty(t, step.Dependencies)
	assert.True(t, sess.Employee.Placeholder)
	assert.Equal(t, "new.hire@example.com", sess.Employee.Email)
}

func TestHydrateSingleStep_UnknownStep(t *testing.T) {
	api := &fakeAPI{single: &ports.SingleStepPayload{
		Session: flow.SingleStepInfo{SessionID: "sess-9", TargetStepID: "no-such-step"},
	}}
	m := NewManager(api, memory.NewStore(), registry.Default())

	_, _, err := m.HydrateSingleStep(context.Background(), "tok-9", "no-such-step")
	require.ErrorIs(t, err, flow.ErrStepNotFound)
}

func TestHydrateSingleStep_ExpiredInvitation(t *testing.T) {
	expiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeAPI{single: &ports.SingleStepPayload{
		Session: flow.SingleStepInfo{
			SessionID:    "sess-9",
			TargetStepID: "w4-form",
			ExpiresAt:    expiry,
		},
	}}
	m := NewManager(api, memory.NewStore(), registry.Default(),
		WithClock(fixedClock{at: expiry.Add(time.Minute)}))

	_, _, err := m.HydrateSingleStep(context.Background(), "tok-9", "w4-form")
	require.ErrorIs(t, err, flow.ErrSessionExpired)
}
