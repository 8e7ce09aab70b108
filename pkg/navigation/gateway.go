// Package navigation decides whether an advance through the wizard is
// allowed. Local rules (completion, dependency satisfaction) are
// authoritative blocks; the remote validator is advisory and can only
// soften to a warning, never wedge the user.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
	"github.com/gangwayhq/gangway/pkg/progress"
)

// Gateway evaluates advance attempts.
type Gateway struct {
	api           ports.OnboardingAPI
	validator     ports.StepValidator
	clock         ports.Clock
	logger        *slog.Logger
	softFallbacks prometheus.Counter
}

// Option configures the gateway.
type Option func(*Gateway)

// WithRemoteValidator enables the optional remote check. Without it the
// gateway runs local rules only.
func WithRemoteValidator(api ports.OnboardingAPI) Option {
	return func(g *Gateway) { g.api = api }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithClock injects the clock used for request timestamps.
func WithClock(clock ports.Clock) Option {
	return func(g *Gateway) { g.clock = clock }
}

// WithSoftFallbackCounter counts remote validations that degraded to a
// local-only decision.
func WithSoftFallbackCounter(c prometheus.Counter) Option {
	return func(g *Gateway) { g.softFallbacks = c }
}

// New creates a gateway. validator runs the departing step's local
// proceed-check; pass ports.AcceptAllValidator{} to skip it.
func New(validator ports.StepValidator, opts ...Option) *Gateway {
	g := &Gateway{
		validator: validator,
		clock:     ports.SystemClock{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the decision ladder for advancing out of the current
// step. It never mutates the session; the controller applies the move
// when the decision allows it.
func (g *Gateway) Evaluate(ctx context.Context, sess *flow.Session, tracker *progress.Tracker) flow.Decision {
	reg := tracker.Registry()
	p := sess.Progress
	completed := p.CompletedSet()

	next, ok := reg.At(p.CurrentStepIndex + 1)
	if !ok {
		return flow.Blocked("final step reached")
	}

	current, ok := reg.At(p.CurrentStepIndex)
	if !ok {
		return flow.Blocked("no active step")
	}

	if _, done := completed[current.ID]; current.Required && !done {
		return flow.Blocked(
			fmt.Sprintf("complete %q before continuing", current.Name),
			current.Name,
		)
	}

	if res := g.validator.ValidateStep(ctx, current.ID, sess.Data(current.ID)); !res.Valid {
		return flow.Decision{
			Allowed:             false,
			Reason:              fmt.Sprintf("step %q has invalid data", current.Name),
			MissingRequirements: res.Errors,
		}
	}

	if unmet := tracker.UnmetDependencies(next.ID, completed); len(unmet) > 0 {
		names := make([]string, 0, len(unmet))
		for _, id := range unmet {
			if step, ok := reg.Step(id); ok {
				names = append(names, step.Name)
			} else {
				names = append(names, id)
			}
		}
		return flow.Blocked(
			fmt.Sprintf("step %q has unmet requirements", next.Name),
			names...,
		)
	}

	return g.consultRemote(ctx, sess, current, next)
}

// consultRemote runs the optional server-side check. Only a definitive
// "not allowed" response blocks; every failure mode degrades to
// Allowed, silently for the known token-scope 401 and with a warning
// otherwise.
func (g *Gateway) consultRemote(ctx context.Context, sess *flow.Session, current, next flow.Step) flow.Decision {
	if g.api == nil || sess.Demo() || sess.SingleStepMode() {
		return flow.Allow()
	}

	resp, err := g.api.ValidateNavigation(ctx, ports.NavigationRequest{
		EmployeeID:     sess.Employee.ID,
		CurrentStep:    current.ID,
		NextStep:       next.ID,
		CompletedSteps: sess.Progress.SortedCompleted(),
		SingleStep:     false,
		Timestamp:      g.clock.Now(),
	})

	switch {
	case err == nil && !resp.Allowed:
		return flow.Decision{
			Allowed:             false,
			Reason:              resp.Reason,
			MissingRequirements: resp.MissingRequirements,
		}

	case err == nil:
		return flow.Allow(resp.Warnings...)

	case errors.Is(err, ports.ErrScopeMismatch):
		// Expected for onboarding tokens; not a failure, no warning.
		g.logger.Debug("navigation validator rejected token scope, allowing locally", "next", next.ID)
		g.countSoftFallback()
		return flow.Allow()

	default:
		g.logger.Warn("remote navigation validation unavailable, falling back to local checks",
			"next", next.ID,
			"err", err,
		)
		g.countSoftFallback()
		return flow.Allow("navigation validation unavailable; continued using local checks")
	}
}

func (g *Gateway) countSoftFallback() {
	if g.softFallbacks != nil {
		g.softFallbacks.Inc()
	}
}
