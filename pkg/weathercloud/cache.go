package weathercloud

import (
	"sync"
	"time"
)

// Cache decides whether a new upstream query is warranted. A ttl of zero or
// less means the first successful query is kept forever.
type Cache struct {
	mu            sync.RWMutex
	ttl           time.Duration
	lastQueriedAt time.Time
	queried       bool
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

func (c *Cache) IsInfinite() bool {
	return c.ttl <= 0
}

func (c *Cache) ShouldQuery(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.queried {
		return true
	}
	if c.IsInfinite() {
		return false
	}
	return now.Sub(c.lastQueriedAt) >= c.ttl
}

// MarkQueried records a successful query at now.
func (c *Cache) MarkQueried(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastQueriedAt = now
	c.queried = true
}

// LastQueried returns the time of the last successful query, if any.
func (c *Cache) LastQueried() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastQueriedAt, c.queried
}
