package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gangwayhq/gangway/internal/logging"
	"github.com/gangwayhq/gangway/pkg/flow"
	"github.com/gangwayhq/gangway/pkg/ports"
)

// Cache is the typed view over the local BlobStore for one session
// scope. Reads tolerate absent and corrupted blobs by reporting them as
// misses; writes surface errors so the caller can log and move on, but
// no caller is expected to fail on them.
type Cache struct {
	store  ports.BlobStore
	keys   Keyspace
	logger *slog.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger for dropped-blob notices.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a cache view scoped to scope.
func NewCache(store ports.BlobStore, scope string, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		keys:   NewKeyspace(scope),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SaveStepData persists the step payload blob.
func (c *Cache) SaveStepData(ctx context.Context, stepID string, data flow.StepData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.keys.StepData(stepID), blob)
}

// LoadStepData reads the step payload blob. Corrupted blobs are dropped
// and reported as a miss, never as an error.
func (c *Cache) LoadStepData(ctx context.Context, stepID string) (flow.StepData, error) {
	blob, err := c.store.Get(ctx, c.keys.StepData(stepID))
	if err != nil {
		return nil, err
	}
	var data flow.StepData
	if err := json.Unmarshal(blob, &data); err != nil {
		c.logger.Warn("dropping corrupted cached step payload", "step", stepID, "err", err)
		return nil, flow.ErrCacheMiss
	}
	return data, nil
}

// SaveProgress persists the aggregate progress blob.
func (c *Cache) SaveProgress(ctx context.Context, p *flow.Progress) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.keys.Progress(), blob)
}

// LoadProgress reads the aggregate progress blob, treating corruption
// as a miss.
func (c *Cache) LoadProgress(ctx context.Context) (*flow.Progress, error) {
	blob, err := c.store.Get(ctx, c.keys.Progress())
	if err != nil {
		return nil, err
	}
	var p flow.Progress
	if err := json.Unmarshal(blob, &p); err != nil {
		c.logger.Warn("dropping corrupted cached progress blob", "err", err)
		return nil, flow.ErrCacheMiss
	}
	return &p, nil
}

// MarkCompleted writes the per-step completion flag.
func (c *Cache) MarkCompleted(ctx context.Context, stepID string) error {
	return c.store.Put(ctx, c.keys.Completed(stepID), []byte("true"))
}

// CompletedSteps returns every step ID with a completion flag in the
// cache. Store errors degrade to an empty result: local markers are an
// availability bonus, never a dependency.
func (c *Cache) CompletedSteps(ctx context.Context) []string {
	keys, err := c.store.Keys(ctx, c.keys.CompletedPrefix())
	if err != nil {
		c.logger.Warn("failed to list cached completion flags", "err", err)
		return nil
	}
	steps := make([]string, 0, len(keys))
	for _, key := range keys {
		if id := c.keys.StepFromCompletedKey(key); id != "" {
			steps = append(steps, id)
		}
	}
	return steps
}

// Purge removes every cache entry in this scope.
func (c *Cache) Purge(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, c.keys.prefix())
	if err != nil {
		return err
	}
	var firstErr error
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsMiss reports whether err is the cache-miss sentinel.
func IsMiss(err error) bool {
	return errors.Is(err, flow.ErrCacheMiss)
}
