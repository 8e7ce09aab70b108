package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/redis"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Contract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	ports.RunBlobStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "onboarding:s1:progress", []byte(`{"current_step_index":0}`)))

	_, err = store.Get(ctx, "onboarding:s1:progress")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, "onboarding:s1:progress")
	assert.ErrorIs(t, err, flow.ErrCacheMiss)
}

func TestRedisStore_NamespaceIsolation(t *testing.T) {
	client := newTestClient(t)
	a := redis.NewFromClient(client, redis.WithNamespace("tenant-a:"))
	b := redis.NewFromClient(client, redis.WithNamespace("tenant-b:"))
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "onboarding:s1:step:welcome", []byte("{}")))

	_, err := b.Get(ctx, "onboarding:s1:step:welcome")
	assert.ErrorIs(t, err, flow.ErrCacheMiss)

	keys, err := b.Keys(ctx, "onboarding:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
