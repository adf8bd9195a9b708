package cache

import "sync/atomic"

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Capacity         int    `json:"capacity"`
	MaxObjectSize    int    `json:"maxObjectSize"`
	Clock            uint64 `json:"clock"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	Stores           uint64 `json:"stores"`
	Evictions        uint64 `json:"evictions"`
	Refreshes        uint64 `json:"refreshes"`
	SkippedRefreshes uint64 `json:"skippedRefreshes"`
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// counters are updated outside the cache lock, hence atomics
type stats struct {
	hits             atomic.Uint64
	misses           atomic.Uint64
	stores           atomic.Uint64
	evictions        atomic.Uint64
	refreshes        atomic.Uint64
	skippedRefreshes atomic.Uint64
}

func (s *stats) snapshot(clock uint64, capacity, maxObjectSize int) Stats {
	return Stats{
		Capacity:         capacity,
		MaxObjectSize:    maxObjectSize,
		Clock:            clock,
		Hits:             s.hits.Load(),
		Misses:           s.misses.Load(),
		Stores:           s.stores.Load(),
		Evictions:        s.evictions.Load(),
		Refreshes:        s.refreshes.Load(),
		SkippedRefreshes: s.skippedRefreshes.Load(),
	}
}
