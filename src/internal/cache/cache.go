// Package cache is the in-process calculation cache: a mutex-guarded TTL map
// with single-flight fetch coalescing, stale-while-revalidate and a periodic
// sweep of expired entries.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/team-pulse/availability-service/src/internal/metrics"
)

const (
	// DefaultAnalyticsTTL bounds how long team/company reports are reused.
	DefaultAnalyticsTTL = 5 * time.Minute
	// DefaultAlertsTTL is shorter: alert data is higher-volatility.
	DefaultAlertsTTL = 30 * time.Second
	// DefaultSweepInterval is how often expired entries are removed.
	DefaultSweepInterval = 5 * time.Minute

	backgroundRefreshTimeout = 30 * time.Second
)

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// Cache is a process-local TTL cache keyed by query-parameter strings.
// Entry lifecycle: absent -> fresh -> stale -> expired -> swept.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	refreshing map[string]struct{}
	group      singleflight.Group
	log        *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

// New builds a cache and, when sweepInterval is positive, starts the
// janitor goroutine. Call Stop on shutdown.
func New[V any](log *zap.Logger, sweepInterval time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries:    make(map[string]entry[V]),
		refreshing: make(map[string]struct{}),
		log:        log,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
	if sweepInterval > 0 {
		go c.janitor(sweepInterval)
	}
	return c
}

// Get returns the cached value when present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with an absolute expiry ttl from now.
func (c *Cache[V]) Set(key string, v V, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: v, storedAt: now, expiresAt: now.Add(ttl)}
}

// IsStale reports whether the entry is older than staleAfter but not yet
// expired. Stale entries are still served while a refresh runs.
func (c *Cache[V]) IsStale(key string, staleAfter time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	now := c.now()
	return now.Before(e.expiresAt) && !now.Before(e.storedAt.Add(staleAfter))
}

// Invalidate expires a single key immediately.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix expires every key with the given prefix. Mutations use
// this so acknowledged writes are never shadowed by cached reads.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len counts unexpired entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Stop terminates the janitor goroutine.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// GetOrFetch returns the cached value for key, fetching on miss. Concurrent
// misses for the same key share exactly one underlying fetch. A hit past
// staleAfter is served immediately while a background refresh is started
// (stale-while-revalidate); staleAfter <= 0 disables revalidation.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, ttl, staleAfter time.Duration, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		if staleAfter > 0 && c.IsStale(key, staleAfter) {
			metrics.RecordCacheLookup("stale_hit")
			c.refreshInBackground(key, ttl, fetch)
		} else {
			metrics.RecordCacheLookup("hit")
		}
		return v, nil
	}

	metrics.RecordCacheLookup("miss")
	v, err, shared := c.group.Do(key, func() (any, error) {
		metrics.RecordCacheFetch("sync")
		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, fetched, ttl)
		return fetched, nil
	})
	if shared {
		metrics.RecordCacheFetch("coalesced")
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// refreshInBackground starts at most one refresh per key. The refresh runs
// on a detached context so a cancelled request does not abort work that
// other callers will benefit from.
func (c *Cache[V]) refreshInBackground(key string, ttl time.Duration, fetch func(context.Context) (V, error)) {
	c.mu.Lock()
	if _, busy := c.refreshing[key]; busy {
		c.mu.Unlock()
		return
	}
	c.refreshing[key] = struct{}{}
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, key)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
		defer cancel()

		metrics.RecordCacheFetch("background")
		v, err, _ := c.group.Do(key, func() (any, error) {
			fetched, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			return fetched, nil
		})
		if err != nil {
			// Keep serving the stale value until it fully expires.
			c.log.Warn("cache: background refresh failed", zap.String("key", key), zap.Error(err))
			return
		}
		c.Set(key, v.(V), ttl)
	}()
}

func (c *Cache[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) sweep() {
	now := c.now()
	c.mu.Lock()
	swept := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			swept++
		}
	}
	c.mu.Unlock()
	if swept > 0 {
		metrics.CacheSweptEntries.Add(float64(swept))
		c.log.Debug("cache: sweep removed expired entries", zap.Int("count", swept))
	}
}
