// Package file provides a filesystem-backed BlobStore. Entries are
// written atomically (temp file + fsync + rename) so a crash mid-write
// never leaves a corrupted cache blob behind.
package file

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gangwayhq/gangway/pkg/flow"
)

const blobExt = ".blob"

// Store implements ports.BlobStore on the local filesystem.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath. If basePath is empty, it
// defaults to ".gangway/cache".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".gangway", "cache")
	}
	return &Store{BasePath: basePath}
}

// fileName encodes the cache key into a collision-free filename. Keys
// carry ':' and arbitrary ids, so they are not usable as paths directly.
func fileName(key string) string {
	return base64.URLEncoding.EncodeToString([]byte(key)) + blobExt
}

func keyFromFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, blobExt) {
		return "", false
	}
	raw, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(name, blobExt))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// Put writes the blob atomically: temp file in the same directory,
// fsync, then rename.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}

	destPath := filepath.Join(s.BasePath, fileName(key))

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+blobExt)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(value); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename on Windows fails when the destination exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to replace existing blob: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get reads the blob for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.BasePath, fileName(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, flow.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob file.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.BasePath, fileName(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache blob: %w", err)
	}
	return nil
}

// Keys lists stored keys with the given prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := keyFromFileName(entry.Name())
		if !ok {
			continue // stray file, not ours
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
