package media

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	probe   Probe
	expires time.Time
}

// CachingProber wraps another Prober with a TTL-based in-memory cache. Staged
// uploads are probed once even when several workers look at the same file.
type CachingProber struct {
	base Prober
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingProber returns a Prober that caches results for the provided TTL.
func NewCachingProber(base Prober, ttl time.Duration) *CachingProber {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingProber{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Probe returns a cached result when available, otherwise it delegates to the
// underlying prober and stores the result.
func (c *CachingProber) Probe(ctx context.Context, path string) (Probe, error) {
	if c == nil || c.base == nil {
		return Probe{}, ErrProberUnavailable
	}

	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[path]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.probe, nil
	}

	probe, err := c.base.Probe(ctx, path)
	if err != nil {
		return Probe{}, err
	}

	c.mu.Lock()
	c.items[path] = cacheEntry{probe: probe, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return probe, nil
}
