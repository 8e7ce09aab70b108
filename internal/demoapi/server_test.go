package demoapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/httpapi"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

func newTestServer(t *testing.T) (*Server, *httpapi.Client) {
	t.Helper()
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, httpapi.NewClient(ts.URL)
}

func TestWelcomeRoundTrip(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	payload, err := client.FetchWelcome(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "emp-0001", payload.Employee.ID)

	_, err = client.FetchWelcome(ctx, "nope")
	require.Error(t, err)

	// Saved writes show up on re-hydration.
	require.NoError(t, client.SaveStepProgress(ctx, ports.SaveRequest{
		EmployeeID: "emp-0001",
		StepID:     "personal-info",
		FormData:   flow.StepData{"firstName": "Jordan"},
		Timestamp:  time.Now(),
	}))
	payload, err = client.FetchWelcome(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "Jordan", payload.SavedFormData["personal-info"]["firstName"])

	require.NoError(t, client.MarkStepComplete(ctx, ports.SaveRequest{
		EmployeeID: "emp-0001",
		StepID:     "personal-info",
	}))
	assert.Contains(t, srv.Completed("emp-0001"), "personal-info")
}

func TestMarkCompleteRetainsPayload(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	// A completion that was never preceded by a save still carries the
	// final payload; re-hydration must see it.
	require.NoError(t, client.MarkStepComplete(ctx, ports.SaveRequest{
		EmployeeID: "emp-0001",
		StepID:     "w4-form",
		FormData:   flow.StepData{"completed": true, "filingStatus": "single"},
		Timestamp:  time.Now(),
	}))

	payload, err := client.FetchWelcome(ctx, "demo")
	require.NoError(t, err)
	require.Contains(t, payload.SavedFormData, "w4-form")
	assert.Equal(t, "single", payload.SavedFormData["w4-form"]["filingStatus"])
	assert.Contains(t, srv.Completed("emp-0001"), "w4-form")
}

func TestSingleStepInvitation(t *testing.T) {
	_, client := newTestServer(t)

	payload, err := client.FetchSingleStep(context.Background(), "demo-invite")
	require.NoError(t, err)
	assert.Equal(t, "direct-deposit", payload.Session.TargetStepID)
	assert.Nil(t, payload.Employee)
}

func TestNavigationScopeRejection(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	// Onboarding tokens hit the documented 401.
	client.SetToken("tok-onboarding")
	_, err := client.ValidateNavigation(ctx, ports.NavigationRequest{NextStep: "beta"})
	require.True(t, errors.Is(err, ports.ErrScopeMismatch))

	// Admin-scoped credentials get real answers.
	client.SetToken("admin:secret")
	resp, err := client.ValidateNavigation(ctx, ports.NavigationRequest{NextStep: "beta"})
	require.NoError(t, err)
	assert.True(t, resp.Allowed)

	srv.DenyNavigation("beta", ports.NavigationResponse{
		Allowed: false,
		Reason:  "background check pending",
	})
	resp, err = client.ValidateNavigation(ctx, ports.NavigationRequest{NextStep: "beta"})
	require.NoError(t, err)
	assert.False(t, resp.Allowed)
	assert.Equal(t, "background check pending", resp.Reason)
}
