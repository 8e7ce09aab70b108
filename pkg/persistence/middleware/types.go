package middleware

import "github.com/gangwayhq/gangway/pkg/ports"

// Middleware wraps a BlobStore to add behavior on the local cache path.
type Middleware func(ports.BlobStore) ports.BlobStore

// Chain applies middlewares left to right: the first one listed sees
// caller traffic first.
func Chain(store ports.BlobStore, mws ...Middleware) ports.BlobStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
