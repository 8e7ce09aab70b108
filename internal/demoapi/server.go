// Package demoapi is an in-memory onboarding backend used by the demo
// server command and by end-to-end tests. It implements the same wire
// surface the production HR system exposes, with canned fixtures and no
// persistence beyond process memory.
package demoapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// Server holds the fixture state behind the demo endpoints.
type Server struct {
	logger *slog.Logger

	mu          sync.Mutex
	employees   map[string]*ports.WelcomePayload    // token -> payload
	invitations map[string]*ports.SingleStepPayload // token -> payload
	saved       map[string]map[string]flow.StepData // employeeID -> stepID -> data
	completed   map[string]map[string]time.Time     // employeeID -> stepID -> at
	denials     map[string]ports.NavigationResponse // nextStep -> canned denial
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a demo backend with a default employee fixture reachable
// via the token "demo".
func New(opts ...Option) *Server {
	s := &Server{
		logger:      logging.NewNop(),
		employees:   make(map[string]*ports.WelcomePayload),
		invitations: make(map[string]*ports.SingleStepPayload),
		saved:       make(map[string]map[string]flow.StepData),
		completed:   make(map[string]map[string]time.Time),
		denials:     make(map[string]ports.NavigationResponse),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.employees["demo"] = &ports.WelcomePayload{
		Employee: flow.Employee{ID: "emp-0001", Name: "Jordan Fixture", Email: "jordan@example.com"},
		Property: flow.Property{ID: "prop-0001", Name: "Harborview Hotel"},
	}
	s.invitations["demo-invite"] = &ports.SingleStepPayload{
		Session: flow.SingleStepInfo{
			SessionID:      "inv-0001",
			TargetStepID:   "direct-deposit",
			RecipientEmail: "jordan@example.com",
			ExpiresAt:      time.Now().Add(72 * time.Hour),
		},
	}
	return s
}

// SeedWelcome registers a welcome payload under token.
func (s *Server) SeedWelcome(token string, payload *ports.WelcomePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[token] = payload
}

// SeedInvitation registers a single-step payload under token.
func (s *Server) SeedInvitation(token string, payload *ports.SingleStepPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[token] = payload
}

// DenyNavigation makes the validator reject moves into stepID.
func (s *Server) DenyNavigation(stepID string, resp ports.NavigationResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denials[stepID] = resp
}

// Completed returns the completion timestamps recorded for employeeID.
func (s *Server) Completed(employeeID string) map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.completed[employeeID]))
	for id, at := range s.completed[employeeID] {
		out[id] = at
	}
	return out
}

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/onboarding/welcome/{token}", s.handleWelcome)
	r.Get("/onboarding/single-step/{token}", s.handleSingleStep)
	r.Post("/onboarding/{employeeID}/progress/{stepID}", s.handleSaveProgress)
	r.Post("/onboarding/{employeeID}/complete/{stepID}", s.handleMarkComplete)
	r.Post("/navigation/validate", s.handleValidateNavigation)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	s.mu.Lock()
	payload, ok := s.employees[token]
	if ok {
		// Reflect the writes this server has seen so re-hydration
		// behaves like the real backend.
		merged := *payload
		merged.SavedFormData = s.savedCopy(payload.Employee.ID)
		payload = &merged
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown token", http.StatusNotFound)
		return
	}
	s.writeJSON(w, payload)
}

func (s *Server) handleSingleStep(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	s.mu.Lock()
	payload, ok := s.invitations[token]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "unknown invitation", http.StatusNotFound)
		return
	}
	s.writeJSON(w, payload)
}

func (s *Server) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var req ports.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	stepID := chi.URLParam(r, "stepID")

	s.mu.Lock()
	if s.saved[employeeID] == nil {
		s.saved[employeeID] = make(map[string]flow.StepData)
	}
	existing := s.saved[employeeID][stepID]
	if existing == nil {
		existing = flow.StepData{}
		s.saved[employeeID][stepID] = existing
	}
	existing.Merge(req.FormData)
	s.mu.Unlock()

	s.logger.Debug("saved step progress", "employee", employeeID, "step", stepID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	var req ports.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	stepID := chi.URLParam(r, "stepID")

	s.mu.Lock()
	if s.completed[employeeID] == nil {
		s.completed[employeeID] = make(map[string]time.Time)
	}
	s.completed[employeeID][stepID] = time.Now()
	// Completion requests carry the final payload too; keep it so a
	// rehydration after complete-without-save still sees the data.
	if len(req.FormData) > 0 {
		if s.saved[employeeID] == nil {
			s.saved[employeeID] = make(map[string]flow.StepData)
		}
		if s.saved[employeeID][stepID] == nil {
			s.saved[employeeID][stepID] = flow.StepData{}
		}
		s.saved[employeeID][stepID].Merge(req.FormData)
	}
	s.mu.Unlock()

	s.logger.Info("marked step complete", "employee", employeeID, "step", stepID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidateNavigation(w http.ResponseWriter, r *http.Request) {
	// The production validator requires an admin-scoped credential;
	// onboarding tokens get 401. The demo keeps that quirk so clients
	// exercise their soft-fallback path when asked to.
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer admin:") {
		s.validateNavigation(w, r)
		return
	}
	http.Error(w, "token scope not accepted", http.StatusUnauthorized)
}

func (s *Server) validateNavigation(w http.ResponseWriter, r *http.Request) {
	var req ports.NavigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	resp, denied := s.denials[req.NextStep]
	s.mu.Unlock()

	if !denied {
		resp = ports.NavigationResponse{Allowed: true}
	}
	s.writeJSON(w, resp)
}

func (s *Server) savedCopy(employeeID string) map[string]flow.StepData {
	if len(s.saved[employeeID]) == 0 {
		return nil
	}
	out := make(map[string]flow.StepData, len(s.saved[employeeID]))
	for id, data := range s.saved[employeeID] {
		out[id] = data.Clone()
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "err", err)
	}
}
