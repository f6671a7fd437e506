package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cache hands out one limiter per client key, evicting idle entries after
// ttl and the least recently seen entry once maxEntries is reached.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration
	newLimiter func() *rate.Limiter
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewCache(maxEntries int, ttl time.Duration, newLimiter func() *rate.Limiter) *Cache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{
		entries:    make(map[string]*entry, maxEntries),
		maxEntries: maxEntries,
		ttl:        ttl,
		newLimiter: newLimiter,
	}
}

// PerSecond builds a cache whose limiters allow rps requests per second with
// the given burst.
func PerSecond(rps float64, burst int) *Cache {
	return NewCache(0, 0, func() *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), burst) })
}

func (c *Cache) Get(key string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(now)
	if e, ok := c.entries[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	if len(c.entries) >= c.maxEntries {
		// evict oldest
		var oldestKey string
		var oldest time.Time
		first := true
		for k, v := range c.entries {
			if first || v.lastSeen.Before(oldest) {
				oldestKey = k
				oldest = v.lastSeen
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}
	lim := c.newLimiter()
	c.entries[key] = &entry{lim: lim, lastSeen: now}
	return lim
}

// Allow takes one token from key's limiter.
func (c *Cache) Allow(key string, now time.Time) bool {
	return c.Get(key, now).AllowN(now, 1)
}

func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked(now time.Time) {
	cutoff := now.Add(-c.ttl)
	for k, e := range c.entries {
		if e.lastSeen.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}
