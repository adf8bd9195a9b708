package cache

import (
	"bytes"
	"sync"
	"sync/atomic"
)

const (
	DefaultCapacity      = 10
	DefaultMaxObjectSize = 102400
)

type slot struct {
	key       string
	buf       []byte
	valid     bool
	timestamp uint64
}

// ObjectCache is a fixed-capacity in-memory cache of raw responses.
//
// Reads share the lock with each other and exclude writers. After a hit the reader tries,
// without blocking, to take the lock exclusively and move the entry's timestamp forward.
// If a writer (or another reader) holds the lock at that moment the refresh is skipped,
// so eviction order is only approximately LRU under contention.
type ObjectCache struct {
	mu            sync.RWMutex
	readers       atomic.Int64
	slots         []slot
	clock         uint64
	maxObjectSize int
	stats         stats
}

// NewObjectCache creates a cache with the given number of slots, each holding at most maxObjectSize bytes.
// Non-positive arguments select the defaults.
func NewObjectCache(capacity, maxObjectSize int) *ObjectCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxObjectSize <= 0 {
		maxObjectSize = DefaultMaxObjectSize
	}
	return &ObjectCache{
		slots:         make([]slot, capacity),
		maxObjectSize: maxObjectSize,
	}
}

// MaxObjectSize returns the largest value Put accepts.
func (c *ObjectCache) MaxObjectSize() int {
	return c.maxObjectSize
}

// Capacity returns the number of slots.
func (c *ObjectCache) Capacity() int {
	return len(c.slots)
}

// Lookup returns the slot index holding key, or -1.
func (c *ObjectCache) Lookup(key string) int {
	c.enterRead()
	defer c.exitRead()
	return c.lookup(key)
}

func (c *ObjectCache) lookup(key string) int {
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].key == key {
			return i
		}
	}
	return -1
}

// Get returns a copy of the value stored under key.
func (c *ObjectCache) Get(key string) ([]byte, bool) {
	c.enterRead()
	i := c.lookup(key)
	if i < 0 {
		c.exitRead()
		c.stats.misses.Add(1)
		return nil, false
	}
	value := bytes.Clone(c.slots[i].buf)
	c.exitRead()

	c.stats.hits.Add(1)
	c.refresh(i, key)
	return value, true
}

func (c *ObjectCache) enterRead() {
	c.mu.RLock()
	c.readers.Add(1)
}

func (c *ObjectCache) exitRead() {
	c.readers.Add(-1)
	c.mu.RUnlock()
}

// refresh marks slot i as just used, unless the lock is busy.
// The slot may have been overwritten since the read, so the key is checked again.
func (c *ObjectCache) refresh(i int, key string) {
	if !c.mu.TryLock() {
		c.stats.skippedRefreshes.Add(1)
		return
	}
	defer c.mu.Unlock()
	s := &c.slots[i]
	if !s.valid || s.key != key {
		return
	}
	s.timestamp = c.clock
	c.clock++
	c.stats.refreshes.Add(1)
}

// Put stores a copy of value under key.
// An existing entry for the same key is overwritten, otherwise the first free slot is used,
// otherwise the least recently used entry is evicted.
func (c *ObjectCache) Put(key string, value []byte) error {
	if len(value) > c.maxObjectSize {
		return ErrObjectTooLarge
	}
	if len(value) == 0 {
		return ErrEmptyObject
	}
	buf := bytes.Clone(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.lookup(key)
	if i < 0 {
		i = c.freeSlot()
	}
	if i < 0 {
		i = c.victim()
		c.stats.evictions.Add(1)
	}

	c.slots[i] = slot{
		key:       key,
		buf:       buf,
		valid:     true,
		timestamp: c.clock,
	}
	c.clock++
	c.stats.stores.Add(1)
	return nil
}

func (c *ObjectCache) freeSlot() int {
	for i := range c.slots {
		if !c.slots[i].valid {
			return i
		}
	}
	return -1
}

// victim returns the valid slot unused for the longest time.
// Ties go to the lowest index.
func (c *ObjectCache) victim() int {
	victim := -1
	var maxAge uint64
	for i := range c.slots {
		if !c.slots[i].valid {
			continue
		}
		age := c.clock - c.slots[i].timestamp
		if victim < 0 || age > maxAge {
			victim = i
			maxAge = age
		}
	}
	return victim
}

// Entries lists the occupied slots in slot order.
func (c *ObjectCache) Entries() []Entry {
	c.enterRead()
	defer c.exitRead()
	entries := make([]Entry, 0, len(c.slots))
	for i, s := range c.slots {
		if s.valid {
			entries = append(entries, Entry{
				Slot:      i,
				Key:       s.key,
				Size:      len(s.buf),
				Timestamp: s.timestamp,
			})
		}
	}
	return entries
}

// Stats returns a snapshot of the cache counters.
func (c *ObjectCache) Stats() Stats {
	c.enterRead()
	clock := c.clock
	c.exitRead()
	return c.stats.snapshot(clock, len(c.slots), c.maxObjectSize)
}
