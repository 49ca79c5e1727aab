// Package cache provides a bounded LRU of compiled patterns.
//
// A PatternCache amortizes compilation when the same pattern text repeats
// across rows of a per-row pattern column. Entries are immutable once
// inserted; a hit refreshes recency and a miss that pushes the cache past
// capacity evicts the least recently used entry.
//
// A PatternCache is not safe for concurrent use. Get-or-compile is a
// read-modify-write sequence, so each concurrent evaluation owns its own
// instance.
package cache

import (
	"github.com/coregx/regextract/engine"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity is the capacity used when none is configured.
const DefaultCapacity = 64

// Stats holds cumulative cache counters.
type Stats struct {
	// Hits counts lookups answered from the cache.
	Hits uint64

	// Misses counts lookups that had to compile, including failed compiles.
	Misses uint64

	// Compiled counts successful compilations inserted into the cache.
	Compiled uint64

	// Evictions counts entries dropped to stay within capacity.
	Evictions uint64
}

// HitRate returns hits/(hits+misses) as a percentage, or 100 when no lookup
// has happened yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 100
	}
	return 100 * float64(s.Hits) / float64(total)
}

// PatternCache maps pattern text to a compiled regex.
type PatternCache struct {
	engine engine.Engine
	lru    *simplelru.LRU[string, engine.Regex]
	cap    int
	stats  Stats
}

// New returns an empty cache compiling through eng.
// capacity is clamped to at least 1.
func New(eng engine.Engine, capacity int) *PatternCache {
	if capacity < 1 {
		capacity = 1
	}
	c := &PatternCache{engine: eng, cap: capacity}
	// NewLRU only fails for a non-positive size.
	lru, err := simplelru.NewLRU[string, engine.Regex](capacity, c.onEvict)
	if err != nil {
		panic("cache: " + err.Error())
	}
	c.lru = lru
	return c
}

func (c *PatternCache) onEvict(string, engine.Regex) {
	c.stats.Evictions++
}

// GetOrCompile returns the compiled regex for pattern, compiling and
// inserting it on a miss. Compile failures are returned unchanged and
// nothing is cached for them.
func (c *PatternCache) GetOrCompile(pattern string) (engine.Regex, error) {
	if re, ok := c.lru.Get(pattern); ok {
		c.stats.Hits++
		return re, nil
	}
	c.stats.Misses++

	re, err := c.engine.Compile(pattern)
	if err != nil {
		return nil, err
	}
	c.stats.Compiled++
	c.lru.Add(pattern, re)
	return re, nil
}

// Contains reports whether pattern is cached without touching recency or
// counters.
func (c *PatternCache) Contains(pattern string) bool {
	return c.lru.Contains(pattern)
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	return c.lru.Len()
}

// Cap returns the effective capacity.
func (c *PatternCache) Cap() int {
	return c.cap
}

// Engine returns the engine used for compilation.
func (c *PatternCache) Engine() engine.Engine {
	return c.engine
}

// Stats returns the cumulative counters.
func (c *PatternCache) Stats() Stats {
	return c.stats
}

// ResetStats zeroes the counters. Cached entries are kept.
func (c *PatternCache) ResetStats() {
	c.stats = Stats{}
}

// Purge drops every cached entry. Counters are kept; purged entries are not
// counted as evictions.
func (c *PatternCache) Purge() {
	evictions := c.stats.Evictions
	c.lru.Purge()
	c.stats.Evictions = evictions
}
