package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/badger"
	"github.com/gangwayhq/gangway/pkg/ports"
)

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.Open(badger.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_Contract(t *testing.T) {
	ports.RunBlobStoreContract(t, newTestStore(t))
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := badger.Open(badger.DefaultOptions(dir))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "onboarding:s1:completed:welcome", []byte("true")))
	require.NoError(t, store.Close())

	reopened, err := badger.Open(badger.DefaultOptions(dir))
	require.NoError(t, err)
	defer reopened.Close()

	val, err := reopened.Get(ctx, "onboarding:s1:completed:welcome")
	require.NoError(t, err)
	assert.Equal(t, "true", string(val))
}
