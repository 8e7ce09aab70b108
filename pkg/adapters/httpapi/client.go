// Package httpapi implements the remote onboarding API over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gangwayhq/gangway/pkg/ports"
)

// DefaultTimeout bounds every remote call. A hung validator or save
// endpoint must degrade to a soft failure, never to a stuck wizard.
const DefaultTimeout = 10 * time.Second

// Client implements ports.OnboardingAPI against a base URL.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to inject a
// custom transport. A zero timeout is replaced with DefaultTimeout so
// remote calls stay bounded.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cl := *hc
		if cl.Timeout == 0 {
			cl.Timeout = DefaultTimeout
		}
		c.http = &cl
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sets the bearer credential up front.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken swaps the bearer credential. The hydration endpoints take
// the token in the path; everything afterwards sends it as a header, so
// the controller sets it once the session exists.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchWelcome redeems a full-flow token.
func (c *Client) FetchWelcome(ctx context.Context, token string) (*ports.WelcomePayload, error) {
	var payload ports.WelcomePayload
	path := "/onboarding/welcome/" + url.PathEscape(token)
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchSingleStep redeems a single-step invitation token.
func (c *Client) FetchSingleStep(ctx context.Context, token string) (*ports.SingleStepPayload, error) {
	var payload ports.SingleStepPayload
	path := "/onboarding/single-step/" + url.PathEscape(token)
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// SaveStepProgress persists a step payload remotely. Best-effort: the
// caller runs this through the outbox.
func (c *Client) SaveStepProgress(ctx context.Context, req ports.SaveRequest) error {
	path := fmt.Sprintf("/onboarding/%s/progress/%s", url.PathEscape(req.EmployeeID), url.PathEscape(req.StepID))
	return c.postJSON(ctx, path, req, nil)
}

// MarkStepComplete records a completed step remotely.
func (c *Client) MarkStepComplete(ctx context.Context, req ports.SaveRequest) error {
	path := fmt.Sprintf("/onboarding/%s/complete/%s", url.PathEscape(req.EmployeeID), url.PathEscape(req.StepID))
	return c.postJSON(ctx, path, req, nil)
}

// ValidateNavigation asks the remote validator about an advance. A 401
// maps to ports.ErrScopeMismatch: the validation endpoint expects a
// different credential scope than onboarding tokens carry, so the
// gateway treats it as expected noise rather than a denial.
func (c *Client) ValidateNavigation(ctx context.Context, req ports.NavigationRequest) (*ports.NavigationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode navigation request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/navigation/validate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("navigation validation request failed: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("navigation validate returned 401: %w", ports.ErrScopeMismatch)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("navigation validate returned status %d", resp.StatusCode)
	}

	var decision ports.NavigationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("failed to decode navigation response: %w", err)
	}
	return &decision, nil
}

// Helpers

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// drain fully reads and closes the body so connections get reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
