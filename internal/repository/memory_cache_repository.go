package repository

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/coocood/freecache"
	"github.com/goccy/go-json"

	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

const minMemoryCacheBytes = 512 * 1024

// MemoryCacheRepository is an in-process cache used when Redis is not deployed.
type MemoryCacheRepository struct {
	cache *freecache.Cache
}

// NewMemoryCacheRepository allocates a freecache segment of sizeMB megabytes.
func NewMemoryCacheRepository(sizeMB int) *MemoryCacheRepository {
	size := sizeMB * 1024 * 1024
	if size < minMemoryCacheBytes {
		size = minMemoryCacheBytes
	}
	return &MemoryCacheRepository{cache: freecache.NewCache(size)}
}

// Get unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, err := r.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("memory cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value for ttl, rounded up to whole seconds.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	seconds := int((ttl + time.Second - 1) / time.Second)
	if err := r.cache.Set([]byte(key), payload, seconds); err != nil {
		return fmt.Errorf("memory cache set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes every entry whose key matches the glob pattern.
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("memory cache pattern %s: %w", pattern, err)
	}
	var matched [][]byte
	iter := r.cache.NewIterator()
	for entry := iter.Next(); entry != nil; entry = iter.Next() {
		if ok, _ := path.Match(pattern, string(entry.Key)); ok {
			matched = append(matched, entry.Key)
		}
	}
	for _, key := range matched {
		r.cache.Del(key)
	}
	return nil
}

// Ping always succeeds.
func (r *MemoryCacheRepository) Ping(context.Context) error {
	return nil
}

// EntryCount reports the number of live entries.
func (r *MemoryCacheRepository) EntryCount() int64 {
	return r.cache.EntryCount()
}
