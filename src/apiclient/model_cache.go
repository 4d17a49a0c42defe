package apiclient

import (
	"sync"
	"time"

	"github.com/elee1766/quorum/src/provider"
)

// ModelCache remembers the last model list resolved for each provider.
// It is advisory only: a miss falls back to the static catalog.
type ModelCache struct {
	lists map[provider.ID]*cachedModelList
	mu    sync.RWMutex
	ttl   time.Duration
}

type cachedModelList struct {
	models    []provider.Model
	fetchedAt time.Time
}

// NewModelCache creates a new model cache
func NewModelCache(ttl time.Duration) *ModelCache {
	return &ModelCache{
		lists: make(map[provider.ID]*cachedModelList),
		ttl:   ttl,
	}
}

// Get returns the cached list for id if it is still fresh
func (mc *ModelCache) Get(id provider.ID) ([]provider.Model, bool) {
	mc.mu.RLock()
	cached, exists := mc.lists[id]
	mc.mu.RUnlock()

	if !exists || time.Since(cached.fetchedAt) >= mc.ttl {
		return nil, false
	}
	out := make([]provider.Model, len(cached.models))
	copy(out, cached.models)
	return out, true
}

// Put stores a resolved list
func (mc *ModelCache) Put(id provider.ID, models []provider.Model) {
	stored := make([]provider.Model, len(models))
	copy(stored, models)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.lists[id] = &cachedModelList{
		models:    stored,
		fetchedAt: time.Now(),
	}
}

// Remove drops the cached list for one provider
func (mc *ModelCache) Remove(id provider.ID) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.lists, id)
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalEntries   int           `json:"total_entries"`
	ValidEntries   int           `json:"valid_entries"`
	ExpiredEntries int           `json:"expired_entries"`
	TTL            time.Duration `json:"ttl"`
}

// GetCacheStats returns cache statistics
func (mc *ModelCache) GetCacheStats() CacheStats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	var valid, expired int
	now := time.Now()
	for _, cached := range mc.lists {
		if now.Sub(cached.fetchedAt) < mc.ttl {
			valid++
		} else {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   len(mc.lists),
		ValidEntries:   valid,
		ExpiredEntries: expired,
		TTL:            mc.ttl,
	}
}
