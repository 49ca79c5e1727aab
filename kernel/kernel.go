// Package kernel implements the columnar regexp_extract row loop.
//
// One invocation takes a subject string column, a pattern argument and a
// group index argument (each scalar or per-row), and produces one output
// column with exactly one cell per subject row, in row order:
//
//   - a null subject, pattern or index yields a null cell
//   - a negative index aborts the invocation
//   - no match, an out of range group, or a group that did not participate
//     yields ""
//   - index 0 yields the whole match
//
// Pattern compile failures and match-time failures are handled by the
// invocation's Policy. A scalar pattern is compiled once up front; per-row
// patterns are resolved through a cache.PatternCache.
//
// An invocation is synchronous and single-threaded. Callers that want
// parallelism partition rows across independent invocations, each with its
// own cache.
package kernel

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/column"
	"github.com/coregx/regextract/engine"
	"github.com/coregx/regextract/internal/conv"
)

// Input holds the three columnar arguments.
type Input struct {
	// Strings is the subject column, String or LargeString. Its length
	// defines the row count and its width defines the output width.
	Strings arrow.Array

	// Patterns is String or LargeString of length 1 or len(Strings).
	Patterns arrow.Array

	// Indices is Int32 or Int64 of length 1 or len(Strings).
	Indices arrow.Array

	// PerRowPatterns marks a length-1 Patterns column as a slice of a
	// per-row column, so that it goes through the cache and failures
	// report row numbers.
	PerRowPatterns bool
}

// Options configures one invocation.
type Options struct {
	Policy Policy

	// Cache resolves per-row patterns. When nil a fresh cache of
	// cache.DefaultCapacity is created over Engine.
	Cache *cache.PatternCache

	// Engine compiles the scalar pattern. When nil the cache's engine is
	// used, or the default linear engine if Cache is nil too.
	Engine engine.Engine

	// Allocator backs the output column. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
}

// Stats describes one completed invocation.
type Stats struct {
	Rows          int
	Nulls         int
	Absorbed      int
	FastPath      bool
	ScalarPattern bool
}

type run struct {
	policy   Policy
	cache    *cache.PatternCache
	subjects column.Strings
	patterns column.Patterns
	indices  column.Indices
	out      column.Builder

	scalarRe      engine.Regex
	scalarInvalid bool

	stats Stats
}

// Run evaluates one batch. On error no output is returned.
func Run(in Input, opts Options) (arrow.Array, Stats, error) {
	subjects, err := column.NewStrings("strings", in.Strings)
	if err != nil {
		return nil, Stats{}, err
	}
	rows := subjects.Len()

	patterns, err := column.NewPatterns(in.Patterns, rows)
	if err != nil {
		return nil, Stats{}, err
	}
	if in.PerRowPatterns {
		patterns = patterns.AsPerRow()
	}
	indices, err := column.NewIndices(in.Indices, rows)
	if err != nil {
		return nil, Stats{}, err
	}

	eng, c, err := resolveEngine(opts)
	if err != nil {
		return nil, Stats{}, err
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	if rows == 0 {
		return column.Empty(mem, in.Strings.DataType()), Stats{}, nil
	}

	k := &run{
		policy:   opts.Policy,
		cache:    c,
		subjects: subjects,
		patterns: patterns,
		indices:  indices,
		stats: Stats{
			Rows:          rows,
			ScalarPattern: patterns.IsScalar(),
			FastPath:      subjects.NullN() == 0 && !patterns.HasNulls() && !indices.HasNulls(),
		},
	}

	if patterns.IsScalar() {
		if pat, ok := patterns.Scalar(); ok {
			re, err := eng.Compile(pat)
			switch {
			case err == nil:
				k.scalarRe = re
			case opts.Policy.absorbs():
				k.scalarInvalid = true
			default:
				return nil, k.stats, &InvalidPatternError{Row: ScalarRow, Pattern: pat, Err: err}
			}
		}
	}

	k.out = column.NewBuilder(mem, in.Strings.DataType(), rows, estimateBytes(subjects, indices))
	defer k.out.Release()

	if k.stats.FastPath {
		for i := 0; i < rows; i++ {
			if err := k.row(i); err != nil {
				return nil, k.stats, err
			}
		}
	} else {
		for i := 0; i < rows; i++ {
			if k.isNull(i) {
				k.out.AppendNull()
				k.stats.Nulls++
				continue
			}
			if err := k.row(i); err != nil {
				return nil, k.stats, err
			}
		}
	}

	return k.out.NewArray(), k.stats, nil
}

func resolveEngine(opts Options) (engine.Engine, *cache.PatternCache, error) {
	eng := opts.Engine
	if eng == nil && opts.Cache != nil {
		eng = opts.Cache.Engine()
	}
	if eng == nil {
		var err error
		eng, err = engine.New(engine.Linear, engine.DefaultOptions())
		if err != nil {
			return nil, nil, err
		}
	}
	c := opts.Cache
	if c == nil {
		c = cache.New(eng, cache.DefaultCapacity)
	}
	return eng, c, nil
}

func (k *run) isNull(i int) bool {
	if k.subjects.IsNull(i) || k.indices.IsNull(i) {
		return true
	}
	if k.patterns.IsScalar() {
		_, ok := k.patterns.Scalar()
		return !ok
	}
	return k.patterns.IsNull(i)
}

// row processes a non-null row: index check, regex resolution, match.
func (k *run) row(i int) error {
	idx := k.indices.Value(i)
	if idx < 0 {
		return &NegativeIndexError{Row: i, Index: idx}
	}

	re, err := k.regex(i)
	if err != nil {
		if k.policy.absorbs() {
			k.absorb()
			return nil
		}
		return err
	}
	if re == nil {
		k.absorb()
		return nil
	}

	caps, ok, err := re.FindCaptures(k.subjects.Value(i))
	if err != nil {
		if k.policy.absorbs() {
			k.absorb()
			return nil
		}
		return &MatchError{Row: i, Pattern: re.String(), Err: err}
	}
	if !ok {
		k.out.Append("")
		return nil
	}

	g, ok := conv.GroupIndex(idx)
	if !ok {
		k.out.Append("")
		return nil
	}
	s, _ := caps.Group(g)
	k.out.Append(s)
	return nil
}

// regex returns the compiled pattern for row i, or nil for an invalid scalar
// pattern that the policy already absorbed.
func (k *run) regex(i int) (engine.Regex, error) {
	if k.patterns.IsScalar() {
		if k.scalarInvalid {
			return nil, nil
		}
		return k.scalarRe, nil
	}
	pat := k.patterns.Value(i)
	re, err := k.cache.GetOrCompile(pat)
	if err != nil {
		return nil, &InvalidPatternError{Row: i, Pattern: pat, Err: err}
	}
	return re, nil
}

func (k *run) absorb() {
	k.out.Append("")
	k.stats.Absorbed++
}

// estimateBytes sizes the output data buffer: at least 4 bytes per row, or
// the total length of the rows that will be matched, scaled down to a quarter
// unless every row extracts the whole match.
func estimateBytes(subjects column.Strings, indices column.Indices) int {
	rows := subjects.Len()
	base := conv.SaturatingMul(rows, 4)

	sum := 0
	for i := 0; i < rows; i++ {
		if subjects.IsNull(i) {
			continue
		}
		if !indices.IsScalar() && indices.IsNull(i) {
			continue
		}
		sum = conv.SaturatingAdd(sum, len(subjects.Value(i)))
	}

	factor := 0.25
	if idx, ok := indices.Scalar(); indices.IsScalar() && ok && idx == 0 {
		factor = 1
	}
	return max(base, conv.Scale(sum, factor))
}
