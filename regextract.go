// Package regextract extracts a regex capture group from every value of an
// Arrow string column.
//
// It is the columnar form of the scalar regexp_extract(str, pattern, idx)
// text function. The pattern and the group index are each either a single
// value shared by all rows (a length-1 array) or a per-row column of the same
// length as the subject column.
//
// Row semantics:
//   - null subject, pattern or index -> null
//   - idx < 0 -> the invocation fails with *NegativeIndexError
//   - no match, missing group, non-participating group -> ""
//   - idx == 0 -> the whole match
//
// Basic usage:
//
//	out, err := regextract.Extract(subjects, patterns, indices, regextract.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer out.Release()
//
// The output has the subject column's width (String or LargeString),
// independent of the pattern and index widths.
//
// Backends:
//   - engine.Linear (default): coregex, linear-time, no look-around or
//     back-references.
//   - engine.Expressive: regexp2, supports look-around and back-references;
//     matches may fail at run time, which the InvalidPattern policy handles
//     like a compile failure.
package regextract

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/engine"
	"github.com/coregx/regextract/kernel"
)

// Extractor evaluates regexp_extract batches with a fixed configuration.
//
// An Extractor is safe for concurrent use. Each Extract call owns a fresh
// pattern cache unless WithPersistentCache is set, in which case calls share
// one cache and are serialized.
type Extractor struct {
	cfg     Config
	engine  engine.Engine
	logger  *zap.Logger
	metrics *Metrics
	mem     memory.Allocator

	persistent bool
	mu         sync.Mutex
	cache      *cache.PatternCache
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for per-invocation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records every invocation in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithAllocator sets the allocator backing output columns.
func WithAllocator(mem memory.Allocator) Option {
	return func(e *Extractor) {
		if mem != nil {
			e.mem = mem
		}
	}
}

// WithPersistentCache keeps one pattern cache across Extract calls so that
// recurring per-row pattern sets stay compiled between batches.
func WithPersistentCache() Option {
	return func(e *Extractor) { e.persistent = true }
}

// New returns an Extractor for cfg.
func New(cfg Config, opts ...Option) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg.Backend, cfg.engineOptions())
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		cfg:    cfg,
		engine: eng,
		logger: zap.NewNop(),
		mem:    memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.persistent {
		e.cache = cache.New(eng, cfg.CacheSize)
	}
	return e, nil
}

// Config returns the configuration the Extractor was built with.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract evaluates one batch. patterns and indices must have length 1 or
// subjects.Len(). The caller owns the returned array and must Release it.
func (e *Extractor) Extract(subjects, patterns, indices arrow.Array) (arrow.Array, error) {
	in := kernel.Input{Strings: subjects, Patterns: patterns, Indices: indices}
	if e.persistent {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.run(in, e.cache)
	}
	return e.run(in, e.newCache())
}

func (e *Extractor) newCache() *cache.PatternCache {
	return cache.New(e.engine, e.cfg.CacheSize)
}

// run evaluates one batch and records it.
func (e *Extractor) run(in kernel.Input, c *cache.PatternCache) (arrow.Array, error) {
	out, st, cs, err := e.exec(in, c)
	e.record(st, cs, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// exec evaluates one batch and returns the cache activity it caused.
func (e *Extractor) exec(in kernel.Input, c *cache.PatternCache) (arrow.Array, kernel.Stats, cache.Stats, error) {
	before := c.Stats()
	out, st, err := kernel.Run(in, kernel.Options{
		Policy:    e.cfg.InvalidPattern,
		Cache:     c,
		Engine:    e.engine,
		Allocator: e.mem,
	})
	return out, st, statsSince(c.Stats(), before), err
}

// record reports one invocation to metrics and the logger.
func (e *Extractor) record(st kernel.Stats, cs cache.Stats, err error) {
	e.metrics.observe(st, cs, err)

	if err != nil {
		e.logger.Debug("regexp_extract failed",
			zap.String("kind", ErrorKind(err)),
			zap.Int("rows", st.Rows),
			zap.Error(err),
		)
		return
	}

	if ce := e.logger.Check(zap.DebugLevel, "regexp_extract"); ce != nil {
		ce.Write(
			zap.Int("rows", st.Rows),
			zap.Bool("fast_path", st.FastPath),
			zap.Bool("scalar_pattern", st.ScalarPattern),
			zap.Int("nulls", st.Nulls),
			zap.Int("absorbed", st.Absorbed),
			zap.Uint64("hits", cs.Hits),
			zap.Uint64("misses", cs.Misses),
			zap.Uint64("compiled", cs.Compiled),
			zap.Float64("hit_rate", cs.HitRate()),
		)
	}
}

// CacheStats returns the cumulative counters of the persistent cache, or
// zero stats when WithPersistentCache is not set.
func (e *Extractor) CacheStats() cache.Stats {
	if !e.persistent {
		return cache.Stats{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Stats()
}

// Extract evaluates one batch with a throwaway Extractor built from cfg.
func Extract(subjects, patterns, indices arrow.Array, cfg Config) (arrow.Array, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return e.Extract(subjects, patterns, indices)
}

func addStats(a, b cache.Stats) cache.Stats {
	return cache.Stats{
		Hits:      a.Hits + b.Hits,
		Misses:    a.Misses + b.Misses,
		Compiled:  a.Compiled + b.Compiled,
		Evictions: a.Evictions + b.Evictions,
	}
}

func statsSince(now, before cache.Stats) cache.Stats {
	return cache.Stats{
		Hits:      now.Hits - before.Hits,
		Misses:    now.Misses - before.Misses,
		Compiled:  now.Compiled - before.Compiled,
		Evictions: now.Evictions - before.Evictions,
	}
}
