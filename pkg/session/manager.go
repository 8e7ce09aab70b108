// Package session hydrates onboarding sessions from invitation tokens,
// merging server-authoritative state with the local durable cache.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/persistence"
	"github.com/gangwayhq/gangway/pkg/ports"
	"github.com/gangwayhq/gangway/pkg/progress"
	"github.com/gangwayhq/gangway/pkg/registry"
	"github.com/gangwayhq/gangway/pkg/validation"
)

// Manager redeems tokens into fully reconciled sessions.
type Manager struct {
	api        ports.OnboardingAPI
	store      ports.BlobStore
	reg        *registry.Registry
	predicates validation.Predicates
	clock      ports.Clock
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock injects the clock used for expiry checks.
func WithClock(clock ports.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithPredicates replaces the completion predicate set used by the
// derivation pass.
func WithPredicates(p validation.Predicates) Option {
	return func(m *Manager) { m.predicates = p }
}

// NewManager creates a session manager over the full-flow registry.
func NewManager(api ports.OnboardingAPI, store ports.BlobStore, reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		api:        api,
		store:      store,
		reg:        reg,
		predicates: validation.DefaultPredicates(),
		clock:      ports.SystemClock{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HydrateFull redeems a full-flow token: fetch the welcome payload,
// seed step data, derive completions from saved payloads, union in the
// local cache, and recompute progress.
func (m *Manager) HydrateFull(ctx context.Context, token string) (*flow.Session, error) {
	payload, err := m.api.FetchWelcome(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem onboarding token: %w", err)
	}
	if !payload.ExpiresAt.IsZero() && m.clock.Now().After(payload.ExpiresAt) {
		return nil, flow.ErrSessionExpired
	}

	sess := &flow.Session{
		Employee:  payload.Employee,
		Property:  payload.Property,
		Token:     token,
		ExpiresAt: payload.ExpiresAt,
		StepData:  make(map[string]flow.StepData, len(payload.SavedFormData)),
	}
	for stepID, data := range payload.SavedFormData {
		sess.StepData[stepID] = data.Clone()
	}

	serverProvidedIndex := false
	if payload.Progress != nil {
		sess.Progress = payload.Progress.Clone()
		serverProvidedIndex = true
	} else {
		sess.Progress = flow.NewProgress(m.reg.Len())
	}

	m.deriveCompletions(sess)
	local := m.reconcileLocal(ctx, sess)

	tracker := progress.NewTracker(m.reg)
	if !serverProvidedIndex {
		if local != nil {
			// Resume where the local session left off. Recompute clamps
			// the index if the registry shrank since.
			sess.Progress.CurrentStepIndex = local.CurrentStepIndex
		} else {
			sess.Progress.CurrentStepIndex = m.firstIncompleteIndex(sess.Progress)
		}
	}
	tracker.Recompute(sess.Progress)

	m.logger.Info("hydrated onboarding session",
		"employee", sess.Employee.ID,
		"completed", len(sess.Progress.CompletedSteps),
		"current_index", sess.Progress.CurrentStepIndex,
	)
	return sess, nil
}

// HydrateSingleStep redeems an invitation token scoped to one step. The
// returned registry is the singleton registry the rest of the
// controller must use for this session.
func (m *Manager) HydrateSingleStep(ctx context.Context, token, stepID string) (*flow.Session, *registry.Registry, error) {
	payload, err := m.api.FetchSingleStep(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to redeem invitation token: %w", err)
	}

	target := payload.Session.TargetStepID
	if target == "" {
		target = stepID
	}

	singleReg, err := m.reg.SingleStep(target)
	if err != nil {
		return nil, nil, err
	}

	info := payload.Session
	if !info.ExpiresAt.IsZero() && m.clock.Now().After(info.ExpiresAt) {
		return nil, nil, flow.ErrSessionExpired
	}

	sess := &flow.Session{
		Token:      token,
		ExpiresAt:  info.ExpiresAt,
		StepData:   make(map[string]flow.StepData, len(payload.SavedFormData)),
		SingleStep: &info,
		Progress:   flow.NewProgress(1),
	}
	sess.SingleStep.TargetStepID = target

	// Invitations issued before hire carry no employee/property yet;
	// placeholders keep the rest of the controller uniform.
	if payload.Employee != nil {
		sess.Employee = *payload.Employee
	} else {
		sess.Employee = flow.PlaceholderEmployee(info.RecipientEmail)
	}
	if payload.Property != nil {
		sess.Property = *payload.Property
	} else {
		sess.Property = flow.PlaceholderProperty()
	}

	for id, data := range payload.SavedFormData {
		sess.StepData[id] = data.Clone()
	}

	tracker := progress.NewTracker(singleReg)
	if m.predicates.Evaluate(target, sess.Data(target)) {
		sess.Progress.AddCompleted(target)
	}
	m.reconcileLocal(ctx, sess)
	tracker.Recompute(sess.Progress)

	m.logger.Info("hydrated single-step session",
		"session", info.SessionID,
		"step", target,
	)
	return sess, singleReg, nil
}

// deriveCompletions inspects every saved payload for completion signals
// and unions positives into the completed set. Remote completion
// bookkeeping lags (or is absent for legacy sessions); the saved
// payloads themselves are the fallback record. The pass is monotonic
// and idempotent: it only ever adds ids, and a second run adds nothing
// new.
func (m *Manager) deriveCompletions(sess *flow.Session) {
	for _, step := range m.reg.Steps() {
		if sess.Progress.Completed(step.ID) {
			continue
		}
		if m.predicates.Evaluate(step.ID, sess.Data(step.ID)) {
			sess.Progress.AddCompleted(step.ID)
			m.logger.Debug("derived completion from saved payload", "step", step.ID)
		}
	}
}

// reconcileLocal unions completion markers and fills in step payloads
// from the local durable cache. Union, never intersection: progress a
// user made offline, or whose server write failed, must not regress
// because of a stale server response. It returns the locally cached
// aggregate progress blob when one survives, so the caller can resume
// at the step the user last saw.
func (m *Manager) reconcileLocal(ctx context.Context, sess *flow.Session) *flow.Progress {
	cache := persistence.NewCache(m.store, sess.Scope(), persistence.WithCacheLogger(m.logger))

	local, err := cache.LoadProgress(ctx)
	if err != nil {
		local = nil
	}
	if local != nil {
		for _, stepID := range local.CompletedSteps {
			sess.Progress.AddCompleted(stepID)
		}
	}

	for _, stepID := range cache.CompletedSteps(ctx) {
		sess.Progress.AddCompleted(stepID)
	}

	// Fill in payloads the server did not return. Corrupted blobs read
	// as misses and are skipped.
	for _, step := range m.reg.Steps() {
		if _, ok := sess.StepData[step.ID]; ok {
			continue
		}
		data, err := cache.LoadStepData(ctx, step.ID)
		if err != nil {
			continue
		}
		sess.MergeData(step.ID, data)
	}
	return local
}

// firstIncompleteIndex picks the resume point when the server sends no
// progress record.
func (m *Manager) firstIncompleteIndex(p *flow.Progress) int {
	completed := p.CompletedSet()
	for i, step := range m.reg.Steps() {
		if _, done := completed[step.ID]; !done {
			return i
		}
	}
	if m.reg.Len() == 0 {
		return 0
	}
	return m.reg.Len() - 1
}
