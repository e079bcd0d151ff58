// Package cache provides the time-expiring read cache layered in front
// of repository read paths. Entries are keyed by operation name plus the
// stringified call arguments; writes that could change a cached answer
// invalidate explicitly, the cache never writes through.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type entry struct {
	value    interface{}
	storedAt time.Time
}

// ReadCache is a TTL cache over a concurrent map. Reads and writes need
// no external locking; the check-then-fill pattern can race, so two
// callers may both recompute the same key once. That duplicate work is
// accepted.
type ReadCache struct {
	data sync.Map // string -> entry
	ttl  time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats are point-in-time cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// New creates a cache whose entries expire after ttl and starts the
// background sweep that removes expired entries every sweepInterval.
// A sweepInterval of 0 disables the sweeper; expired entries are then
// only dropped on access.
func New(ttl, sweepInterval time.Duration) *ReadCache {
	c := &ReadCache{ttl: ttl, stop: make(chan struct{})}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Key builds the cache key for an operation and its arguments.
func Key(op string, args ...interface{}) string {
	if len(args) == 0 {
		return op
	}
	parts := make([]string, len(args)+1)
	parts[0] = op
	for i, arg := range args {
		parts[i+1] = fmt.Sprint(arg)
	}
	return strings.Join(parts, ":")
}

// Get returns the cached value for key. Entries older than the TTL are
// treated as absent and removed.
func (c *ReadCache) Get(key string) (interface{}, bool) {
	raw, ok := c.data.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := raw.(entry)
	if time.Since(e.storedAt) > c.ttl {
		c.data.Delete(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *ReadCache) Set(key string, value interface{}) {
	c.data.Store(key, entry{value: value, storedAt: time.Now()})
}

// Invalidate removes one key.
func (c *ReadCache) Invalidate(key string) {
	c.data.Delete(key)
}

// InvalidatePrefix removes every key beginning with prefix. Writers use
// it to drop whole operation families ("entry.List") whose arguments
// they cannot enumerate.
func (c *ReadCache) InvalidatePrefix(prefix string) {
	c.data.Range(func(k, _ interface{}) bool {
		if strings.HasPrefix(k.(string), prefix) {
			c.data.Delete(k)
		}
		return true
	})
}

// Clear removes every entry.
func (c *ReadCache) Clear() {
	c.data.Range(func(k, _ interface{}) bool {
		c.data.Delete(k)
		return true
	})
}

// Stats returns the current counters.
func (c *ReadCache) Stats() Stats {
	size := 0
	c.data.Range(func(_, _ interface{}) bool {
		size++
		return true
	})
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}

// Stop ends the background sweep. Idempotent.
func (c *ReadCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// sweepLoop bounds memory by removing expired entries that nobody reads.
func (c *ReadCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(k, raw interface{}) bool {
				if now.Sub(raw.(entry).storedAt) > c.ttl {
					c.data.Delete(k)
				}
				return true
			})
		}
	}
}
