package gangway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/autosave"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/navigation"
	"github.com/gangwayhq/gangway/pkg/persistence"
	"github.com/gangwayhq/gangway/pkg/ports"
	"github.com/gangwayhq/gangway/pkg/progress"
	"github.com/gangwayhq/gangway/pkg/registry"
	"github.com/gangwayhq/gangway/pkg/session"
	"github.com/gangwayhq/gangway/pkg/validation"
)

// Controller is the high-level entry point for the Gangway library. It
// drives one onboarding session: hydration, step completion with the
// dual-write model, dependency-gated navigation, and save-status
// reporting for the hosting UI.
//
// All methods are safe for concurrent use. Writes commit locally before
// returning; the matching remote sync runs in the background and never
// fails the caller.
type Controller struct {
	api        ports.OnboardingAPI
	store      ports.BlobStore
	validator  ports.StepValidator
	predicates validation.Predicates
	clock      ports.Clock
	logger     *slog.Logger
	metrics    *persistence.Metrics

	pollInterval time.Duration

	mu      sync.Mutex
	sess    *flow.Session
	reg     *registry.Registry
	tracker *progress.Tracker
	cache   *persistence.Cache
	outbox  *persistence.Outbox
	gateway *navigation.Gateway
	saves   *autosave.Coordinator
	closed  bool
}

// Option defines a functional option for configuring the Controller.
type Option func(*Controller)

// WithStore injects the local durable cache backend. Defaults to an
// in-memory store, which is fine for demos and tests but loses state on
// exit.
func WithStore(store ports.BlobStore) Option {
	return func(c *Controller) { c.store = store }
}

// WithValidator replaces the per-step payload validator.
func WithValidator(v ports.StepValidator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithPredicates replaces the completion predicate set used during
// hydration.
func WithPredicates(p validation.Predicates) Option {
	return func(c *Controller) { c.predicates = p }
}

// WithRegistry replaces the default step registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *Controller) { c.reg = reg }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock injects the clock. Tests use this to control expiry and
// timestamps.
func WithClock(clock ports.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithMetrics registers persistence metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Controller) { c.metrics = persistence.NewMetrics(reg) }
}

// WithSaveStatusInterval sets how often the auto-save coordinator polls
// the outbox.
func WithSaveStatusInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollInterval = d }
}

// New creates a Controller bound to the remote API. The session is not
// live until Start or StartSingleStep succeeds.
func New(api ports.OnboardingAPI, opts ...Option) *Controller {
	c := &Controller{
		api:          api,
		validator:    validation.NewValidator(),
		predicates:   validation.DefaultPredicates(),
		clock:        ports.SystemClock{},
		logger:       logging.NewNop(),
		metrics:      persistence.NopMetrics(),
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = memory.NewStore()
	}
	if c.reg == nil {
		c.reg = registry.Default()
	}
	return c
}

// Start redeems a full-flow token and brings the session live.
func (c *Controller) Start(ctx context.Context, token string) error {
	mgr := session.NewManager(c.api, c.store, c.reg,
		session.WithLogger(c.logger),
		session.WithClock(c.clock),
		session.WithPredicates(c.predicates),
	)
	sess, err := mgr.HydrateFull(ctx, token)
	if err != nil {
		return err
	}
	c.activate(sess, c.reg)
	return nil
}

// StartSingleStep redeems an invitation token scoped to one step. The
// controller's registry is reduced to that step for the lifetime of the
// session.
func (c *Controller) StartSingleStep(ctx context.Context, token, stepID string) error {
	mgr := session.NewManager(c.api, c.store, c.reg,
		session.WithLogger(c.logger),
		session.WithClock(c.clock),
		session.WithPredicates(c.predicates),
	)
	sess, singleReg, err := mgr.HydrateSingleStep(ctx, token, stepID)
	if err != nil {
		return err
	}
	c.activate(sess, singleReg)
	return nil
}

// activate wires the per-session machinery once hydration resolved the
// scope.
func (c *Controller) activate(sess *flow.Session, reg *registry.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The redeemed token authenticates subsequent remote writes.
	if bearer, ok := c.api.(interface{ SetToken(string) }); ok {
		bearer.SetToken(sess.Token)
	}

	// Restarting replaces the per-session workers; stop the previous
	// ones so their goroutines do not outlive the session they served.
	if c.saves != nil {
		c.saves.Close()
	}
	if c.outbox != nil {
		c.outbox.Close()
	}

	scope := sess.Scope()
	c.sess = sess
	c.reg = reg
	c.tracker = progress.NewTracker(reg)
	c.cache = persistence.NewCache(c.store, scope, persistence.WithCacheLogger(c.logger))
	c.outbox = persistence.NewOutbox(c.store, c.api, scope,
		persistence.WithOutboxLogger(c.logger),
		persistence.WithOutboxClock(c.clock),
		persistence.WithOutboxMetrics(c.metrics),
	)
	c.saves = autosave.New(c.outbox, autosave.WithInterval(c.pollInterval))

	gwOpts := []navigation.Option{
		navigation.WithLogger(c.logger),
		navigation.WithClock(c.clock),
	}
	if c.api != nil {
		gwOpts = append(gwOpts, navigation.WithRemoteValidator(c.api))
	}
	c.gateway = navigation.New(c.validator, gwOpts...)
}

func (c *Controller) requireSession() error {
	if c.sess == nil {
		return fmt.Errorf("no active session: call Start or StartSingleStep first")
	}
	return nil
}

// Session returns a snapshot of the live session. The progress and
// step-data maps are copies; mutating them does not affect the
// controller.
func (c *Controller) Session() (flow.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return flow.Session{}, err
	}

	snap := *c.sess
	snap.Progress = c.sess.Progress.Clone()
	snap.StepData = make(map[string]flow.StepData, len(c.sess.StepData))
	for id, data := range c.sess.StepData {
		snap.StepData[id] = data.Clone()
	}
	return snap, nil
}

// Steps returns the active registry's steps in wizard order.
func (c *Controller) Steps() []flow.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Steps()
}

// CurrentStep returns the step the session is positioned on.
func (c *Controller) CurrentStep() (flow.Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return flow.Step{}, err
	}
	step, ok := c.reg.At(c.sess.Progress.CurrentStepIndex)
	if !ok {
		return flow.Step{}, flow.ErrStepNotFound
	}
	return step, nil
}

// StepState returns the display state for one step.
func (c *Controller) StepState(stepID string) (flow.StepStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return "", err
	}
	state, ok := c.sess.Progress.StepStates[stepID]
	if !ok {
		return "", fmt.Errorf("%w: %s", flow.ErrStepNotFound, stepID)
	}
	return state, nil
}

// Progress returns a copy of the aggregate progress record.
func (c *Controller) Progress() (flow.Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return flow.Progress{}, err
	}
	return *c.sess.Progress.Clone(), nil
}

// SaveStatus reports the persistence layer's current state for UI
// display.
func (c *Controller) SaveStatus() flow.SaveStatus {
	c.mu.Lock()
	outbox := c.outbox
	c.mu.Unlock()
	if outbox == nil {
		return flow.SaveStatus{State: flow.SaveIdle}
	}
	return outbox.Status()
}

// SubscribeSaveStatus registers a listener for save-status changes. The
// current status is delivered immediately.
func (c *Controller) SubscribeSaveStatus(fn autosave.Listener) error {
	c.mu.Lock()
	saves := c.saves
	c.mu.Unlock()
	if saves == nil {
		return fmt.Errorf("no active session: call Start or StartSingleStep first")
	}
	saves.Subscribe(fn)
	return nil
}

// SaveProgress merges a partial payload into the step's saved data and
// commits it: synchronously to the local cache, asynchronously to the
// server. It never fails because of a cache or network problem; only an
// unknown step or a missing session is an error.
func (c *Controller) SaveProgress(ctx context.Context, stepID string, data flow.StepData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return err
	}
	if !c.reg.Contains(stepID) {
		return fmt.Errorf("%w: %s", flow.ErrStepNotFound, stepID)
	}

	c.sess.MergeData(stepID, data)
	c.commitLocal(ctx, stepID)
	c.enqueueRemote(ctx, persistence.OpSaveProgress, stepID)
	return nil
}

// MarkStepComplete validates the step's payload, records the completion
// locally, and schedules the remote sync. A validator rejection returns
// *flow.ValidationError and nothing is persisted as complete.
func (c *Controller) MarkStepComplete(ctx context.Context, stepID string, data flow.StepData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return err
	}
	if !c.reg.Contains(stepID) {
		return fmt.Errorf("%w: %s", flow.ErrStepNotFound, stepID)
	}

	c.sess.MergeData(stepID, data)

	if res := c.validator.ValidateStep(ctx, stepID, c.sess.Data(stepID)); !res.Valid {
		return &flow.ValidationError{StepID: stepID, Issues: res.Errors}
	}

	c.sess.Progress.AddCompleted(stepID)
	c.tracker.Recompute(c.sess.Progress)

	c.commitLocal(ctx, stepID)
	if err := c.cache.MarkCompleted(ctx, stepID); err != nil {
		c.logger.Warn("failed to record completion locally", "step", stepID, "err", err)
	}
	// The payload travels in its own save request; the completion marker
	// follows it.
	c.enqueueRemote(ctx, persistence.OpSaveProgress, stepID)
	c.enqueueRemote(ctx, persistence.OpMarkComplete, stepID)

	c.logger.Info("step completed",
		"step", stepID,
		"percent", c.sess.Progress.PercentComplete,
	)
	return nil
}

// commitLocal is the synchronous half of the dual write. Cache failures
// are logged, never surfaced: in-memory state is already updated and the
// user keeps working.
func (c *Controller) commitLocal(ctx context.Context, stepID string) {
	if err := c.cache.SaveStepData(ctx, stepID, c.sess.Data(stepID)); err != nil {
		c.logger.Warn("failed to cache step data", "step", stepID, "err", err)
	}
	if err := c.cache.SaveProgress(ctx, c.sess.Progress); err != nil {
		c.logger.Warn("failed to cache progress", "step", stepID, "err", err)
	}
}

// enqueueRemote schedules the background server write. Demo sessions
// never touch the network.
func (c *Controller) enqueueRemote(ctx context.Context, kind persistence.OpKind, stepID string) {
	if c.sess.Demo() {
		return
	}

	req := ports.SaveRequest{
		EmployeeID: c.sess.Employee.ID,
		StepID:     stepID,
		FormData:   c.sess.Data(stepID),
		Timestamp:  c.clock.Now(),
	}
	if c.sess.SingleStepMode() {
		req.SingleStep = true
		req.SessionID = c.sess.SingleStep.SessionID
		req.TargetStep = c.sess.SingleStep.TargetStepID
	}
	c.outbox.Enqueue(ctx, kind, req)
}

// AdvanceToNextStep runs the navigation decision ladder and, when the
// move is allowed, repositions the session on the next step. The
// returned decision carries warnings from soft-failed remote checks; a
// blocked move also returns *flow.BlockedError.
func (c *Controller) AdvanceToNextStep(ctx context.Context) (flow.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return flow.Decision{}, err
	}

	decision := c.gateway.Evaluate(ctx, c.sess, c.tracker)
	if !decision.Allowed {
		return decision, &flow.BlockedError{
			Reason:  decision.Reason,
			Missing: decision.MissingRequirements,
		}
	}

	c.sess.Progress.CurrentStepIndex++
	c.tracker.Recompute(c.sess.Progress)
	if err := c.cache.SaveProgress(ctx, c.sess.Progress); err != nil {
		c.logger.Warn("failed to cache progress after navigation", "err", err)
	}
	return decision, nil
}

// GoToPreviousStep moves back one step. Backward moves are always
// allowed; completed work stays completed.
func (c *Controller) GoToPreviousStep(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return err
	}
	if c.sess.Progress.CurrentStepIndex == 0 {
		return &flow.BlockedError{Reason: "already at the first step"}
	}

	c.sess.Progress.CurrentStepIndex--
	c.tracker.Recompute(c.sess.Progress)
	if err := c.cache.SaveProgress(ctx, c.sess.Progress); err != nil {
		c.logger.Warn("failed to cache progress after navigation", "err", err)
	}
	return nil
}

// GoToStep jumps directly to the step at index. Jumps to locked steps
// are rejected; anything visited or unlocked is reachable.
func (c *Controller) GoToStep(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return err
	}

	step, ok := c.reg.At(index)
	if !ok {
		return fmt.Errorf("%w: index %d", flow.ErrStepNotFound, index)
	}
	if c.sess.Progress.StepStates[step.ID] == flow.StatusLocked {
		unmet := c.tracker.UnmetDependencies(step.ID, c.sess.Progress.CompletedSet())
		names := make([]string, 0, len(unmet))
		for _, id := range unmet {
			if dep, ok := c.reg.Step(id); ok {
				names = append(names, dep.Name)
			} else {
				names = append(names, id)
			}
		}
		return &flow.BlockedError{
			Reason:  fmt.Sprintf("step %q has unmet requirements", step.Name),
			Missing: names,
		}
	}

	c.sess.Progress.CurrentStepIndex = index
	c.tracker.Recompute(c.sess.Progress)
	if err := c.cache.SaveProgress(ctx, c.sess.Progress); err != nil {
		c.logger.Warn("failed to cache progress after navigation", "err", err)
	}
	return nil
}

// Flush synchronously drains the outbox. Callers use it before exit so
// pending remote writes get one last attempt.
func (c *Controller) Flush(ctx context.Context) {
	c.mu.Lock()
	outbox := c.outbox
	c.mu.Unlock()
	if outbox != nil {
		outbox.Flush(ctx)
	}
}

// Close stops the background machinery. Pending remote operations stay
// in the durable cache and resume on the next session.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	saves, outbox := c.saves, c.outbox
	c.mu.Unlock()

	if saves != nil {
		saves.Close()
	}
	if outbox != nil {
		outbox.Close()
	}
}
