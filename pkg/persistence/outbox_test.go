package persistence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// flakyAPI fails the first failures dispatches, then succeeds.
type flakyAPI struct {
	mu       sync.Mutex
	failures int
	saves    []ports.SaveRequest
	complete []ports.SaveRequest
}

func (f *flakyAPI) FetchWelcome(context.Context, string) (*ports.WelcomePayload, error) {
	return nil, errors.New("not implemented")
}

func (f *flakyAPI) FetchSingleStep(context.Context, string) (*ports.SingleStepPayload, error) {
	return nil, errors.New("not implemented")
}

func (f *flakyAPI) ValidateNavigation(context.Context, ports.NavigationRequest) (*ports.NavigationResponse, error) {
	return &ports.NavigationResponse{Allowed: true}, nil
}

func (f *flakyAPI) SaveStepProgress(_ context.Context, req ports.SaveRequest) error {
	return f.record(&f.saves, req)
}

func (f *flakyAPI) MarkStepComplete(_ context.Context, req ports.SaveRequest) error {
	return f.record(&f.complete, req)
}

func (f *flakyAPI) record(dst *[]ports.SaveRequest, req ports.SaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("server unavailable")
	}
	*dst = append(*dst, req)
	return nil
}

func (f *flakyAPI) saved() []ports.SaveRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.SaveRequest, len(f.saves))
	copy(out, f.saves)
	return out
}

// newIdleOutbox builds an outbox whose periodic worker stays out of the
// way so tests drive Flush explicitly.
func newIdleOutbox(t *testing.T, store ports.BlobStore, api ports.OnboardingAPI) *Outbox {
	t.Helper()
	o := NewOutbox(store, api, "emp-1", WithFlushInterval(time.Hour))
	t.Cleanup(o.Close)
	return o
}

func TestOutboxEnqueueAndFlush(t *testing.T) {
	api := &flakyAPI{}
	o := newIdleOutbox(t, memory.NewStore(), api)
	ctx := context.Background()

	o.Enqueue(ctx, OpSaveProgress, ports.SaveRequest{
		EmployeeID: "emp-1",
		StepID:     "personal-info",
		FormData:   flow.StepData{"firstName": "Dana"},
	})
	o.Flush(ctx)

	require.Len(t, api.saved(), 1)
	assert.Equal(t, "personal-info", api.saved()[0].StepID)
	status := o.Status()
	assert.Equal(t, flow.SaveIdle, status.State)
	assert.Zero(t, status.PendingRemote)
	assert.Empty(t, o.Pending())
}

func TestOutboxKeepsFailedOperations(t *testing.T) {
	// More failures than the per-dispatch retry limit.
	api := &flakyAPI{failures: 10}
	o := newIdleOutbox(t, memory.NewStore(), api)
	ctx := context.Background()

	o.Enqueue(ctx, OpSaveProgress, ports.SaveRequest{StepID: "w4-form"})
	o.Flush(ctx)

	status := o.Status()
	assert.Equal(t, flow.SaveError, status.State)
	assert.NotEmpty(t, status.LastError)
	require.Len(t, o.Pending(), 1, "local truth stays ahead until the server acknowledges")

	// Server recovers: the next flush drains the queue.
	api.mu.Lock()
	api.failures = 0
	api.mu.Unlock()

	o.Flush(ctx)
	assert.Empty(t, o.Pending())
	assert.Equal(t, flow.SaveIdle, o.Status().State)
}

func TestOutboxRecoversPersistedOperations(t *testing.T) {
	store := memory.NewStore()
	api := &flakyAPI{failures: 100}
	ctx := context.Background()

	first := NewOutbox(store, api, "emp-1", WithFlushInterval(time.Hour))
	first.Enqueue(ctx, OpMarkComplete, ports.SaveRequest{StepID: "i9-section1"})
	first.Close()

	// A new session over the same store picks the operation back up.
	api.mu.Lock()
	api.failures = 0
	api.mu.Unlock()

	second := newIdleOutbox(t, store, api)
	require.Len(t, second.Pending(), 1)
	assert.Equal(t, OpMarkComplete, second.Pending()[0].Kind)

	second.Flush(ctx)
	assert.Empty(t, second.Pending())

	api.mu.Lock()
	completions := len(api.complete)
	api.mu.Unlock()
	assert.Equal(t, 1, completions)
}

func TestOutboxStripsBulkyFields(t *testing.T) {
	api := &flakyAPI{}
	o := newIdleOutbox(t, memory.NewStore(), api)
	ctx := context.Background()

	o.Enqueue(ctx, OpSaveProgress, ports.SaveRequest{
		StepID: "i9-section1",
		FormData: flow.StepData{
			"name":     "Dana",
			"document": strings.Repeat("A", DefaultMaxFieldBytes+1),
		},
	})
	o.Flush(ctx)

	require.Len(t, api.saved(), 1)
	sent := api.saved()[0].FormData
	assert.Equal(t, "Dana", sent["name"])
	assert.NotContains(t, sent, "document")
}

func TestOutboxWorkerFlushesOnEnqueue(t *testing.T) {
	api := &flakyAPI{}
	store := memory.NewStore()
	o := NewOutbox(store, api, "emp-1", WithFlushInterval(10*time.Millisecond))
	t.Cleanup(o.Close)

	o.Enqueue(context.Background(), OpSaveProgress, ports.SaveRequest{StepID: "welcome"})

	require.Eventually(t, func() bool {
		return len(o.Pending()) == 0
	}, 2*time.Second, 5*time.Millisecond, "background worker drains the queue")
	assert.Len(t, api.saved(), 1)
}

func TestOutboxCorruptedDurableEntryIsDropped(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	keys := NewKeyspace("emp-1")
	require.NoError(t, store.Put(ctx, keys.Outbox(seqKey(0)), []byte("garbage")))

	o := newIdleOutbox(t, store, &flakyAPI{})
	assert.Empty(t, o.Pending())

	remaining, err := store.Keys(ctx, keys.OutboxPrefix())
	require.NoError(t, err)
	assert.Empty(t, remaining, "corrupted entries are removed, not retried forever")
}
