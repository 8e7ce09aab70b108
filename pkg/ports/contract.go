package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// RunBlobStoreContract runs a suite of tests verifying that a BlobStore
// implementation adheres to the interface contract. Adapter test files
// call this against their own construction.
func RunBlobStoreContract(t *testing.T, store BlobStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + ":"

	t.Run("Put and Get", func(t *testing.T) {
		key := prefix + "step:personal-info"
		err := store.Put(ctx, key, []byte(`{"firstName":"Ada"}`))
		require.NoError(t, err, "Put should not return error")

		val, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.JSONEq(t, `{"firstName":"Ada"}`, string(val))
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "step:w4-form"
		require.NoError(t, store.Put(ctx, key, []byte(`{"allowances":1}`)))
		require.NoError(t, store.Put(ctx, key, []byte(`{"allowances":2}`)))

		val, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"allowances":2}`, string(val))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, flow.ErrCacheMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "step:welcome"
		require.NoError(t, store.Put(ctx, key, []byte(`{}`)))
		require.NoError(t, store.Delete(ctx, key))

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, flow.ErrCacheMiss, "Get after Delete should return ErrCacheMiss")

		// Deleting an absent key is not an error.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("Keys By Prefix", func(t *testing.T) {
		k1 := prefix + "completed:welcome"
		k2 := prefix + "completed:job-details"
		other := "unrelated:" + prefix
		require.NoError(t, store.Put(ctx, k1, []byte("true")))
		require.NoError(t, store.Put(ctx, k2, []byte("true")))
		require.NoError(t, store.Put(ctx, other, []byte("true")))

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
			_ = store.Delete(ctx, other)
		}()

		keys, err := store.Keys(ctx, prefix+"completed:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{k1, k2}, keys)
	})
}
