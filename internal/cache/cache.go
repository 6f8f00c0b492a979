// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = 5 * time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	lastCleanup atomic.Int64 // unix nanos
	stop        chan struct{}
	stopOnce    sync.Once
}

// Stats is a point-in-time copy of cache counters.
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	TotalKeys   int64     `json:"total_keys"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// New creates a cache whose entries live for ttl and starts the background
// sweeper. Call Close to stop it.
func New[V any](ttl time.Duration) *Cache[V] {
	return NewWithCleanup[V](ttl, DefaultCleanupInterval)
}

// NewWithCleanup is New with a custom sweep interval.
func NewWithCleanup[V any](ttl, cleanupInterval time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	c.lastCleanup.Store(time.Now().UnixNano())

	go c.cleanupLoop(cleanupInterval)

	return c
}

// Get returns the cached value for key. Expired entries are removed and
// reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, still := c.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return zero, false
	}

	c.hits.Add(1)
	return e.value, true
}

// Set stores value with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key. Missing keys are ignored.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evictions.Add(1)
	}
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	n := int64(len(c.entries))
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()

	c.evictions.Add(n)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a copy of the current counters.
func (c *Cache[V]) GetStats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		TotalKeys:   int64(c.Len()),
		LastCleanup: time.Unix(0, c.lastCleanup.Load()),
	}
}

// HitRate returns the hit rate as a percentage.
func (c *Cache[V]) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes all expired entries.
func (c *Cache[V]) cleanup() {
	now := time.Now()

	c.mu.Lock()
	var n int64
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()

	c.evictions.Add(n)
	c.lastCleanup.Store(now.UnixNano())
}

// GenerateKey creates a cache key from a method name and parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Fallback to simple string key
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
