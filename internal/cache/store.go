// Package cache provides a content-addressable, TTL-expiring store for
// analysis results.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports a missing store entry.
var ErrNotFound = errors.New("cache entry not found")

// Store is the persistent byte store backing the cache service.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	SizeBytes() (int64, error)
}

const fileExt = ".json"

// fsStore keeps one file per entry in a directory.
type fsStore struct {
	dir string
}

// NewFSStore creates (if needed) and opens a directory-backed store.
func NewFSStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &fsStore{dir: dir}, nil
}

func (s *fsStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func (s *fsStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *fsStore) Put(key string, data []byte) error {
	return os.WriteFile(s.path(key), data, 0o644)
}

func (s *fsStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fsStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), fileExt))
	}
	return keys, nil
}

func (s *fsStore) SizeBytes() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}
