package verification

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// HistoryCache keeps histories that reached Completed. Nothing else is cached:
// every other state can still change, and unavailable results must stay re-queryable.
type HistoryCache struct {
	c *cache.Cache
}

func NewHistoryCache(expiration, cleanupInterval time.Duration) *HistoryCache {
	return &HistoryCache{c: cache.New(expiration, cleanupInterval)}
}

func (h *HistoryCache) Get(id string) (VerificationResult, bool) {
	value, found := h.c.Get(id)
	if !found {
		return VerificationResult{}, false
	}
	result, ok := value.(VerificationResult)
	return result, ok
}

// Put stores result when it is terminal and reports whether it did
func (h *HistoryCache) Put(id string, result VerificationResult) bool {
	latest, ok := result.Latest()
	if !ok || latest.Status != types.StatusCompleted {
		return false
	}
	h.c.Set(id, result, cache.DefaultExpiration)
	return true
}

func (h *HistoryCache) Delete(id string) {
	h.c.Delete(id)
}

func (h *HistoryCache) Len() int {
	return h.c.ItemCount()
}
