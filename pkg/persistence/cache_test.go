package persistence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/flow"
)

func TestCacheStepDataRoundTrip(t *testing.T) {
	cache := NewCache(memory.NewStore(), "emp-1")
	ctx := context.Background()

	require.NoError(t, cache.SaveStepData(ctx, "personal-info", flow.StepData{"firstName": "Dana"}))

	data, err := cache.LoadStepData(ctx, "personal-info")
	require.NoError(t, err)
	assert.Equal(t, "Dana", data["firstName"])

	_, err = cache.LoadStepData(ctx, "never-saved")
	assert.True(t, IsMiss(err))
}

func TestCacheCorruptedBlobIsAMiss(t *testing.T) {
	store := memory.NewStore()
	cache := NewCache(store, "emp-1")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, NewKeyspace("emp-1").StepData("w4-form"), []byte("{{{")))

	_, err := cache.LoadStepData(ctx, "w4-form")
	assert.True(t, IsMiss(err), "corruption degrades to a miss, not an error")

	require.NoError(t, store.Put(ctx, NewKeyspace("emp-1").Progress(), []byte("not json")))
	_, err = cache.LoadProgress(ctx)
	assert.True(t, IsMiss(err))
}

func TestCacheProgressRoundTrip(t *testing.T) {
	cache := NewCache(memory.NewStore(), "emp-1")
	ctx := context.Background()

	p := flow.NewProgress(8)
	p.AddCompleted("welcome", "personal-info")
	p.CurrentStepIndex = 2
	require.NoError(t, cache.SaveProgress(ctx, p))

	loaded, err := cache.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.CompletedSteps, loaded.CompletedSteps)
	assert.Equal(t, 2, loaded.CurrentStepIndex)
}

func TestCacheCompletionFlags(t *testing.T) {
	cache := NewCache(memory.NewStore(), "emp-1")
	ctx := context.Background()

	require.NoError(t, cache.MarkCompleted(ctx, "welcome"))
	require.NoError(t, cache.MarkCompleted(ctx, "personal-info"))

	steps := cache.CompletedSteps(ctx)
	assert.ElementsMatch(t, []string{"welcome", "personal-info"}, steps)
}

func TestCacheScopesAreIsolated(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	a := NewCache(store, "emp-a")
	b := NewCache(store, "emp-b")
	require.NoError(t, a.MarkCompleted(ctx, "welcome"))

	assert.Empty(t, b.CompletedSteps(ctx))
}

func TestCachePurge(t *testing.T) {
	store := memory.NewStore()
	cache := NewCache(store, "emp-1")
	other := NewCache(store, "emp-2")
	ctx := context.Background()

	require.NoError(t, cache.SaveStepData(ctx, "welcome", flow.StepData{"x": 1}))
	require.NoError(t, cache.MarkCompleted(ctx, "welcome"))
	require.NoError(t, other.MarkCompleted(ctx, "welcome"))

	require.NoError(t, cache.Purge(ctx))

	_, err := cache.LoadStepData(ctx, "welcome")
	assert.True(t, IsMiss(err))
	assert.Empty(t, cache.CompletedSteps(ctx))
	assert.Len(t, other.CompletedSteps(ctx), 1, "purge stays inside its scope")
}

func TestStepFromCompletedKey(t *testing.T) {
	ks := NewKeyspace("emp-1")

	assert.Equal(t, "w4-form", ks.StepFromCompletedKey(ks.Completed("w4-form")))
	assert.Empty(t, ks.StepFromCompletedKey("unrelated:key"))
	assert.Empty(t, ks.StepFromCompletedKey(NewKeyspace("emp-2").Completed("w4-form")))
}

func TestStripBulky(t *testing.T) {
	data := flow.StepData{
		"name":      "Dana",
		"document":  strings.Repeat("A", DefaultMaxFieldBytes+1),
		"signature": []byte{0x01, 0x02},
		"nested": map[string]any{
			"keep": "small",
			"blob": strings.Repeat("B", DefaultMaxFieldBytes+1),
		},
		"count": 3,
	}

	out := StripBulky(data, DefaultMaxFieldBytes)

	assert.Equal(t, "Dana", out["name"])
	assert.Equal(t, 3, out["count"])
	assert.NotContains(t, out, "document")
	assert.NotContains(t, out, "signature")

	nested := out["nested"].(map[string]any)
	assert.Equal(t, "small", nested["keep"])
	assert.NotContains(t, nested, "blob")

	// The original payload is untouched.
	assert.Contains(t, data, "document")
	assert.Nil(t, StripBulky(nil, 0))
}
