package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/adapters/memory"
	"github.com/gangwayhq/gangway/pkg/persistence/middleware"
)

func TestRedactMiddleware_MasksMatchingKeys(t *testing.T) {
	inner := memory.NewStore()
	store := middleware.NewRedactMiddleware([]string{"(?i)ssn", "(?i)account"})(inner)
	ctx := context.Background()

	payload := `{"firstName":"Ada","ssn":"123-45-6789","bank":{"accountNumber":"9876"}}`
	require.NoError(t, store.Put(ctx, "onboarding:s1:step:direct-deposit", []byte(payload)))

	// The masked copy is what actually landed in the inner store.
	raw, err := inner.Get(ctx, "onboarding:s1:step:direct-deposit")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "Ada", doc["firstName"])
	assert.Equal(t, "***", doc["ssn"])
	assert.Equal(t, "***", doc["bank"].(map[string]any)["accountNumber"])
}

func TestRedactMiddleware_PassesNonJSONThrough(t *testing.T) {
	inner := memory.NewStore()
	store := middleware.NewRedactMiddleware([]string{"ssn"})(inner)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "onboarding:s1:completed:welcome", []byte("true")))

	raw, err := inner.Get(ctx, "onboarding:s1:completed:welcome")
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))
}

func TestEncryptionMiddleware_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	inner := memory.NewStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(inner)
	ctx := context.Background()

	plain := []byte(`{"ssn":"123-45-6789"}`)
	require.NoError(t, store.Put(ctx, "onboarding:s1:step:i9-section1", plain))

	// Ciphertext at rest.
	raw, err := inner.Get(ctx, "onboarding:s1:step:i9-section1")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "123-45-6789")

	// Plaintext through the middleware.
	got, err := store.Get(ctx, "onboarding:s1:step:i9-section1")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	oldKey := make([]byte, 32)
	newKey := make([]byte, 32)
	_, err := rand.Read(oldKey)
	require.NoError(t, err)
	_, err = rand.Read(newKey)
	require.NoError(t, err)

	inner := memory.NewStore()
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(inner)
	require.NoError(t, oldStore.Put(ctx, "k", []byte("payload")))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(inner)

	got, err := rotated.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestEncryptionMiddleware_PreEncryptionBlobsStillLoad(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	inner := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, inner.Put(ctx, "legacy", []byte(`{"plain":true}`)))

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(inner)
	got, err := store.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.JSONEq(t, `{"plain":true}`, string(got))
}

func TestChain_OrderIsLeftToRight(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	inner := memory.NewStore()
	// Redact first, then encrypt what is left.
	store := middleware.Chain(inner,
		middleware.NewRedactMiddleware([]string{"(?i)ssn"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`{"ssn":"123-45-6789"}`)))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ssn":"***"}`, string(got))
}
