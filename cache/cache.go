package cache

import (
	"sync"
	"time"
)

const (
	// defaultTTL is the default entry time to live.
	defaultTTL = time.Minute
	// defaultCleanupInterval is the default sweep cadence for expired entries.
	defaultCleanupInterval = time.Second * 30
)

// Config represents the configuration for the TTL cache.
type Config struct {
	// DefaultTTL is the entry time to live used by Set.
	DefaultTTL time.Duration
	// CleanupInterval is the cadence of the background expiry sweep.
	CleanupInterval time.Duration
}

// entry represents a cached value with its expiry instant.
type entry struct {
	value  interface{}
	expiry time.Time
}

// TTLCache represents a keyed in-memory store with per-entry expiry and a
// periodic background sweep. The sweeper is owned by the cache instance and
// stopped via Stop.
type TTLCache struct {
	cfg         *Config
	entries     map[string]entry
	mtx         sync.RWMutex
	stopSweeper chan struct{}
	stopOnce    sync.Once
}

// New initializes a new TTL cache and starts its sweeper.
func New(cfg *Config) *TTLCache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = defaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	c := &TTLCache{
		cfg:         cfg,
		entries:     make(map[string]entry),
		stopSweeper: make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Get returns the cached value for the provided key. Expired entries are
// evicted on read.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mtx.RLock()
	e, ok := c.entries[key]
	c.mtx.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiry) {
		c.Delete(key)
		return nil, false
	}

	return e.value, true
}

// Set stores the provided value under the key with the default TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	c.SetTTL(key, value, c.cfg.DefaultTTL)
}

// SetTTL stores the provided value under the key with an explicit TTL.
func (c *TTLCache) SetTTL(key string, value interface{}, ttl time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.entries[key] = entry{
		value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Delete removes the entry for the provided key.
func (c *TTLCache) Delete(key string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries.
func (c *TTLCache) Clear() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.entries = make(map[string]entry)
}

// Len returns the number of entries currently stored, expired or not.
func (c *TTLCache) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	return len(c.entries)
}

// Stop terminates the background sweeper.
func (c *TTLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopSweeper)
	})
}

// sweep periodically removes expired entries.
func (c *TTLCache) sweep() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopSweeper:
			return
		}
	}
}

// deleteExpired removes all expired entries.
func (c *TTLCache) deleteExpired() {
	now := time.Now()

	c.mtx.Lock()
	defer c.mtx.Unlock()

	for key, e := range c.entries {
		if now.After(e.expiry) {
			delete(c.entries, key)
		}
	}
}
