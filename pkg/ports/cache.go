package ports

import "context"

// BlobStore is the local durable cache surface. Implementations must
// return flow.ErrCacheMiss from Get for unknown keys and must tolerate
// concurrent use. Every entry is disposable: the controller never
// depends on a blob being present, well-formed, or fresh.
type BlobStore interface {
	// Put stores value under key, overwriting any existing entry.
	Put(ctx context.Context, key string, value []byte) error

	// Get retrieves the value for key, or flow.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
