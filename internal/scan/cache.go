package scan

import (
	"sync"
	"time"

	"github.com/HerbHall/netsentry/pkg/models"
)

// resultCache is a per-host TTL cache of probe results, owned by one
// Scanner instance. It bounds probe load on frequently rescanned subnets:
// a result younger than the TTL is reused instead of re-probing the host.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	nowFunc func() time.Time
}

type cacheEntry struct {
	result   models.ProbeResult
	cachedAt time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		nowFunc: time.Now,
	}
}

// get returns a fresh cached result for the address, if any. The returned
// copy is flagged FromCache so snapshots show which hosts were not probed.
func (c *resultCache) get(address string) (models.ProbeResult, bool) {
	if c.ttl <= 0 {
		return models.ProbeResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[address]
	if !ok {
		return models.ProbeResult{}, false
	}
	if c.nowFunc().Sub(e.cachedAt) >= c.ttl {
		delete(c.entries, address)
		return models.ProbeResult{}, false
	}

	r := e.result
	r.FromCache = true
	return r, true
}

// put stores a probe result. Unresolved results are not cached: they carry
// no information about the host, only about the scan budget.
func (c *resultCache) put(result models.ProbeResult) {
	if c.ttl <= 0 || result.Unresolved {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.Address] = cacheEntry{result: result, cachedAt: c.nowFunc()}
}

// len returns the number of cached entries (expired or not).
func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
