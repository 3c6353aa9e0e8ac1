// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/law-makers/harvest/internal/snapshot"
	"github.com/rs/zerolog/log"
)

// Cache defines the interface for snapshot caching implementations.
//
// A hit lets the orchestrator retry another algorithm against the same page
// without refetching it. Common implementations include:
//   - MemoryCache: In-memory cache with LRU eviction
type Cache interface {
	// Get retrieves a cached snapshot by key.
	// Returns the cached snapshot and a boolean indicating if the key was found.
	Get(key string) (*snapshot.Snapshot, bool)

	// Set stores a snapshot in cache with the specified TTL.
	// If the key already exists, it should be updated.
	// Implementations may evict entries based on their eviction strategy.
	Set(key string, snap *snapshot.Snapshot, ttl time.Duration) error

	// Delete removes a cached snapshot by key.
	// Should not error if the key doesn't exist.
	Delete(key string) error

	// Clear removes all cached snapshots.
	Clear() error

	// Close performs cleanup and closes the cache.
	// Implementations must ensure background goroutines are stopped.
	Close()
}

// cacheEntry represents a cached snapshot with expiry metadata
type cacheEntry struct {
	Snap      *snapshot.Snapshot
	ExpiresAt time.Time
	Key       string // For LRU tracking
}

// entrySize estimates the footprint of a snapshot in bytes.
func entrySize(snap *snapshot.Snapshot) int64 {
	size := int64(1024) // struct, maps, slice headers
	for _, el := range snap.Elements() {
		size += int64(len(el.Text) + len(el.Href) + len(el.Src) + len(el.Tag) + 64)
		for _, c := range el.Classes {
			size += int64(len(c))
		}
	}
	return size
}

// MemoryCache implements in-memory snapshot caching with LRU eviction
type MemoryCache struct {
	store   map[string]*list.Element // Map key to list element
	lruList *list.List               // Doubly-linked list for LRU ordering
	mu      sync.RWMutex
	maxSize int64 // Maximum cache size in bytes
	size    int64 // Current size in bytes
	ctx     context.Context
	cancel  context.CancelFunc
	hits    uint64 // Cache hit counter
	misses  uint64 // Cache miss counter
}

// NewMemoryCache creates a new in-memory cache with LRU eviction
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 100 * 1024 * 1024 // Default: 100MB
	}

	ctx, cancel := context.WithCancel(context.Background())

	cache := &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		size:    0,
		ctx:     ctx,
		cancel:  cancel,
	}

	// Start background cleanup routine with context
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached snapshot, moving the accessed item to the front of
// the LRU list. Manual unlock instead of defer for hot path.
func (mc *MemoryCache) Get(key string) (*snapshot.Snapshot, bool) {
	mc.mu.Lock() // Need write lock for LRU update
	element, exists := mc.store[key]
	if !exists {
		mc.misses++
		mc.mu.Unlock()
		return nil, false
	}

	entry := element.Value.(*cacheEntry)

	// Check if expired
	if time.Now().After(entry.ExpiresAt) {
		mc.misses++
		mc.mu.Unlock()
		// Expired, delete it
		go mc.Delete(key)
		return nil, false
	}

	// Move to front (most recently used)
	mc.lruList.MoveToFront(element)
	mc.hits++
	mc.mu.Unlock()

	log.Debug().Str("key", key).Msg("Snapshot cache hit")
	return entry.Snap, true
}

// Set stores a snapshot in cache with TTL
func (mc *MemoryCache) Set(key string, snap *snapshot.Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Minute // Default: 5 minutes
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	size := entrySize(snap)

	// Check if key already exists - update it
	if element, exists := mc.store[key]; exists {
		oldEntry := element.Value.(*cacheEntry)
		mc.size -= entrySize(oldEntry.Snap)

		entry := &cacheEntry{
			Snap:      snap,
			ExpiresAt: time.Now().Add(ttl),
			Key:       key,
		}
		element.Value = entry
		mc.lruList.MoveToFront(element)
		mc.size += size

		log.Debug().
			Str("key", key).
			Dur("ttl", ttl).
			Int64("size_bytes", size).
			Msg("Updated cache entry")

		return nil
	}

	// Check if we need to evict entries (LRU eviction)
	for mc.size+size > mc.maxSize && mc.lruList.Len() > 0 {
		mc.evictLRU()
	}

	entry := &cacheEntry{
		Snap:      snap,
		ExpiresAt: time.Now().Add(ttl),
		Key:       key,
	}

	// Add to front of list (most recently used)
	element := mc.lruList.PushFront(entry)
	mc.store[key] = element
	mc.size += size

	log.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int64("size_bytes", size).
		Msg("Cached snapshot")

	return nil
}

// Delete removes a cached snapshot
func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, exists := mc.store[key]; exists {
		entry := element.Value.(*cacheEntry)
		mc.lruList.Remove(element)
		delete(mc.store, key)
		mc.size -= entrySize(entry.Snap)
		log.Debug().Str("key", key).Msg("Deleted from cache")
	}

	return nil
}

// Clear removes all cached snapshots
func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[string]*list.Element)
	mc.lruList = list.New()
	mc.size = 0
	mc.hits = 0
	mc.misses = 0

	log.Debug().Msg("Cache cleared")
	return nil
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.cancel()
	log.Debug().Msg("Cache closed")
}

// evictLRU removes the least recently used entry from cache (must be called with lock held)
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}

	entry := element.Value.(*cacheEntry)

	mc.lruList.Remove(element)
	delete(mc.store, entry.Key)
	mc.size -= entrySize(entry.Snap)

	log.Debug().Str("key", entry.Key).Msg("Evicted from cache (LRU)")
}

// cleanupExpired periodically removes expired entries
func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := time.Now()

			// Iterate over list to find expired entries
			var next *list.Element
			for element := mc.lruList.Front(); element != nil; element = next {
				next = element.Next()
				entry := element.Value.(*cacheEntry)

				if now.After(entry.ExpiresAt) {
					mc.lruList.Remove(element)
					delete(mc.store, entry.Key)
					mc.size -= entrySize(entry.Snap)
				}
			}
			mc.mu.Unlock()
		case <-mc.ctx.Done():
			log.Debug().Msg("Cache cleanup routine stopped")
			return
		}
	}
}

// Stats returns cache statistics including hit rate
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	hitRate := 0.0
	total := mc.hits + mc.misses
	if total > 0 {
		hitRate = float64(mc.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"entries":     mc.lruList.Len(),
		"size_bytes":  mc.size,
		"max_size":    mc.maxSize,
		"utilization": float64(mc.size) / float64(mc.maxSize) * 100,
		"hits":        mc.hits,
		"misses":      mc.misses,
		"hit_rate":    hitRate,
	}
}

// CacheKeyFromURL generates a cache key from a URL and the mode it was
// rendered with, so static and browser snapshots never collide.
func CacheKeyFromURL(url, mode string) string {
	if mode != "" {
		return fmt.Sprintf("%s::%s", url, mode)
	}
	return url
}
