package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/gangwayhq/gangway/pkg/ports"
)

type redactMiddleware struct {
	next     ports.BlobStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks the values of JSON
// fields whose keys match any of the patterns before they reach the
// underlying store. Onboarding payloads carry SSNs and bank details;
// deployments whose local cache is a shared store (Redis) use this to
// keep raw identifiers out of it. Non-JSON blobs pass through untouched.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.BlobStore) ports.BlobStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Put(ctx context.Context, key string, value []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(value, &doc); err != nil {
		// Completion flags and other scalar blobs are not candidates.
		return m.next.Put(ctx, key, value)
	}

	maskMap(doc, m.patterns)

	masked, err := json.Marshal(doc)
	if err != nil {
		return m.next.Put(ctx, key, value)
	}
	return m.next.Put(ctx, key, masked)
}

func (m *redactMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	return m.next.Get(ctx, key)
}

func (m *redactMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *redactMiddleware) Keys(ctx context.Context, prefix string) ([]string, error) {
	return m.next.Keys(ctx, prefix)
}

func maskMap(doc map[string]any, patterns []*regexp.Regexp) {
	for k, v := range doc {
		for _, p := range patterns {
			if p.MatchString(k) {
				doc[k] = "***"
				break
			}
		}

		if sub, ok := v.(map[string]any); ok {
			maskMap(sub, patterns)
		}
	}
}
