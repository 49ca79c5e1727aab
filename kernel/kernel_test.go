package kernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/column"
	"github.com/coregx/regextract/engine"
)

// utf8 builds a String array; nil entries become nulls.
func utf8(mem memory.Allocator, vals ...any) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(v.(string))
	}
	return b.NewArray()
}

func largeUTF8(mem memory.Allocator, vals ...any) arrow.Array {
	b := array.NewLargeStringBuilder(mem)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(v.(string))
	}
	return b.NewArray()
}

// i64 builds an Int64 array; nil entries become nulls.
func i64(mem memory.Allocator, vals ...any) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(int64(v.(int)))
	}
	return b.NewArray()
}

func i32(mem memory.Allocator, vals ...any) arrow.Array {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	for _, v := range vals {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(int32(v.(int)))
	}
	return b.NewArray()
}

// cells flattens a string output column; nulls become nil.
func cells(t *testing.T, arr arrow.Array) []any {
	t.Helper()
	r, err := column.NewStrings("out", arr)
	require.NoError(t, err)
	out := make([]any, r.Len())
	for i := range out {
		if r.IsNull(i) {
			continue
		}
		out[i] = r.Value(i)
	}
	return out
}

type fixture struct {
	t   *testing.T
	mem *memory.CheckedAllocator
}

func newFixture(t *testing.T) *fixture {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return &fixture{t: t, mem: mem}
}

// run releases its inputs and returns the output cells.
func (f *fixture) run(strs, pats, idx arrow.Array, opts Options) ([]any, Stats, error) {
	f.t.Helper()
	defer strs.Release()
	defer pats.Release()
	defer idx.Release()

	opts.Allocator = f.mem
	out, st, err := Run(Input{Strings: strs, Patterns: pats, Indices: idx}, opts)
	if err != nil {
		require.Nil(f.t, out)
		return nil, st, err
	}
	defer out.Release()
	require.Equal(f.t, strs.Len(), out.Len())
	require.True(f.t, arrow.TypeEqual(strs.DataType(), out.DataType()))
	return cells(f.t, out), st, nil
}

func TestExtraction(t *testing.T) {
	const pat = `(\d+)-(\d+)`

	tests := []struct {
		name string
		s    []any
		p    []any
		idx  []any
		want []any
	}{
		{"null propagation", []any{"100-200", nil}, []any{pat}, []any{1}, []any{"100", nil}},
		{"whole match", []any{"100-200"}, []any{pat}, []any{0}, []any{"100-200"}},
		{"second group", []any{"a 100-200 b"}, []any{pat}, []any{2}, []any{"200"}},
		{"group out of range", []any{"100-200"}, []any{pat}, []any{3}, []any{""}},
		{"no match", []any{"foo"}, []any{`(\d+)`}, []any{1}, []any{""}},
		{"non-participating group", []any{"b"}, []any{`(a)|(b)`}, []any{1}, []any{""}},
		{"empty subject", []any{""}, []any{`(\d+)`}, []any{1}, []any{""}},
		{"empty pattern whole", []any{"abc"}, []any{``}, []any{0}, []any{""}},
		{"empty pattern group", []any{"abc"}, []any{``}, []any{1}, []any{""}},
		{"null scalar pattern", []any{"a", "b"}, []any{nil}, []any{0}, []any{nil, nil}},
		{"null scalar index", []any{"a", "b"}, []any{`a`}, []any{nil}, []any{nil, nil}},
		{
			"per-row patterns",
			[]any{"a1", "b2", "c3"},
			[]any{`(a)(\d)`, `(b)(\d)`, `(c)(\d)`},
			[]any{2},
			[]any{"1", "2", "3"},
		},
		{
			"per-row indices",
			[]any{"100-200", "100-200", "100-200", "100-200"},
			[]any{pat},
			[]any{0, 1, 2, nil},
			[]any{"100-200", "100", "200", nil},
		},
		{
			"per-row nulls everywhere",
			[]any{nil, "x1", "x2", "x3"},
			[]any{`x(\d)`, nil, `x(\d)`, `x(\d)`},
			[]any{1, 1, nil, 1},
			[]any{nil, nil, nil, "3"},
		},
		{
			"unicode",
			[]any{"naïve café 42"},
			[]any{`(\p{L}+) (\p{L}+)`},
			[]any{2},
			[]any{"café"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			got, _, err := f.run(utf8(f.mem, tt.s...), utf8(f.mem, tt.p...), i64(f.mem, tt.idx...), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNegativeIndexIsAlwaysFatal(t *testing.T) {
	for _, policy := range []Policy{PolicyError, PolicyEmptyString} {
		t.Run(policy.String(), func(t *testing.T) {
			f := newFixture(t)
			_, _, err := f.run(
				utf8(f.mem, "100-200", "100-200"),
				utf8(f.mem, `(\d+)-(\d+)`),
				i64(f.mem, 1, -1),
				Options{Policy: policy},
			)

			var ne *NegativeIndexError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, NegativeIndexError{Row: 1, Index: -1}, *ne)
			assert.Contains(t, err.Error(), "idx must be >= 0, got -1")
		})
	}

	t.Run("with invalid scalar pattern", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(utf8(f.mem, "x"), utf8(f.mem, `(?<=a)b`), i64(f.mem, -3), Options{Policy: PolicyEmptyString})

		var ne *NegativeIndexError
		require.ErrorAs(t, err, &ne)
	})

	t.Run("null row wins", func(t *testing.T) {
		f := newFixture(t)
		got, _, err := f.run(utf8(f.mem, nil), utf8(f.mem, `x`), i64(f.mem, -1), Options{})
		require.NoError(t, err)
		assert.Equal(t, []any{nil}, got)
	})
}

func TestPolicyDivergence(t *testing.T) {
	// Look-behind is rejected by the linear backend.
	const unsupported = `(?<=a)b`

	t.Run("scalar strict", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(utf8(f.mem, "ab", "cb"), utf8(f.mem, unsupported), i64(f.mem, 0), Options{})

		var pe *InvalidPatternError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, ScalarRow, pe.Row)
		assert.Equal(t, unsupported, pe.Pattern)

		var ce *engine.CompileError
		assert.ErrorAs(t, err, &ce)
		assert.Contains(t, err.Error(), "regexp_extract: invalid regex pattern")
	})

	t.Run("scalar lenient", func(t *testing.T) {
		f := newFixture(t)
		got, st, err := f.run(
			utf8(f.mem, "ab", nil, "cb"),
			utf8(f.mem, unsupported),
			i64(f.mem, 0),
			Options{Policy: PolicyEmptyString},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{"", nil, ""}, got)
		assert.Equal(t, 2, st.Absorbed)
		assert.Equal(t, 1, st.Nulls)
	})

	t.Run("per-row strict", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(
			utf8(f.mem, "a1", "ab", "a2"),
			utf8(f.mem, `a(\d)`, unsupported, `a(\d)`),
			i64(f.mem, 1),
			Options{},
		)

		var pe *InvalidPatternError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.Row)
		assert.Contains(t, err.Error(), "at row 1")
	})

	t.Run("per-row lenient", func(t *testing.T) {
		f := newFixture(t)
		got, st, err := f.run(
			utf8(f.mem, "a1", "ab", "a2"),
			utf8(f.mem, `a(\d)`, unsupported, `a(\d)`),
			i64(f.mem, 1),
			Options{Policy: PolicyEmptyString},
		)
		require.NoError(t, err)
		assert.Equal(t, []any{"1", "", "2"}, got)
		assert.Equal(t, 1, st.Absorbed)
	})

	t.Run("expressive backend accepts it", func(t *testing.T) {
		f := newFixture(t)
		eng, err := engine.New(engine.Expressive, engine.DefaultOptions())
		require.NoError(t, err)

		got, _, err := f.run(utf8(f.mem, "ab", "cb"), utf8(f.mem, unsupported), i64(f.mem, 0), Options{Engine: eng})
		require.NoError(t, err)
		assert.Equal(t, []any{"b", ""}, got)
	})
}

func TestPerRowPatternsHint(t *testing.T) {
	f := newFixture(t)

	got, st, err := f.run(utf8(f.mem, "a1"), utf8(f.mem, `a(\d)`), i64(f.mem, 1), Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"1"}, got)
	assert.True(t, st.ScalarPattern)

	eng, err := engine.New(engine.Linear, engine.DefaultOptions())
	require.NoError(t, err)
	c := cache.New(eng, 4)
	s, p, x := utf8(f.mem, "a1"), utf8(f.mem, `a(\d)`), i64(f.mem, 1)
	defer s.Release()
	defer p.Release()
	defer x.Release()

	out, st, err := Run(
		Input{Strings: s, Patterns: p, Indices: x, PerRowPatterns: true},
		Options{Cache: c, Engine: eng, Allocator: f.mem},
	)
	require.NoError(t, err)
	defer out.Release()
	assert.False(t, st.ScalarPattern)
	assert.Equal(t, []any{"1"}, cells(t, out))
	assert.Equal(t, uint64(1), c.Stats().Compiled)

	bad := utf8(f.mem, `a(`)
	defer bad.Release()
	_, _, err = Run(
		Input{Strings: s, Patterns: bad, Indices: x, PerRowPatterns: true},
		Options{Engine: eng, Allocator: f.mem},
	)
	var pe *InvalidPatternError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 0, pe.Row)
	assert.Contains(t, err.Error(), "at row 0")
}

// failingEngine compiles through the linear backend but fails every match
// against the subject "boom".
type failingEngine struct {
	engine.Engine
}

func (e failingEngine) Compile(pattern string) (engine.Regex, error) {
	re, err := e.Engine.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return failingRegex{Regex: re}, nil
}

type failingRegex struct {
	engine.Regex
}

var errBoom = errors.New("boom")

func (r failingRegex) FindCaptures(text string) (engine.Captures, bool, error) {
	if text == "boom" {
		return nil, false, &engine.MatchError{Backend: engine.Expressive, Pattern: r.String(), Err: errBoom}
	}
	return r.Regex.FindCaptures(text)
}

func newFailingEngine(t *testing.T) engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Linear, engine.DefaultOptions())
	require.NoError(t, err)
	return failingEngine{Engine: e}
}

func TestMatchFailurePolicy(t *testing.T) {
	for _, scalar := range []bool{true, false} {
		name := "per-row"
		if scalar {
			name = "scalar"
		}

		t.Run(name+"/strict", func(t *testing.T) {
			f := newFixture(t)
			pats := utf8(f.mem, `(o+)`, `(o+)`, `(o+)`)
			if scalar {
				pats.Release()
				pats = utf8(f.mem, `(o+)`)
			}
			_, _, err := f.run(utf8(f.mem, "foo", "boom", "zoo"), pats, i64(f.mem, 1), Options{Engine: newFailingEngine(t)})

			var me *MatchError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, 1, me.Row)
			assert.ErrorIs(t, err, errBoom)
		})

		t.Run(name+"/lenient", func(t *testing.T) {
			f := newFixture(t)
			pats := utf8(f.mem, `(o+)`, `(o+)`, `(o+)`)
			if scalar {
				pats.Release()
				pats = utf8(f.mem, `(o+)`)
			}
			got, st, err := f.run(
				utf8(f.mem, "foo", "boom", "zoo"),
				pats,
				i64(f.mem, 1),
				Options{Engine: newFailingEngine(t), Policy: PolicyEmptyString},
			)
			require.NoError(t, err)
			assert.Equal(t, []any{"oo", "", "oo"}, got)
			assert.Equal(t, 1, st.Absorbed)
		})
	}
}

func TestCacheUnderRepetition(t *testing.T) {
	const k, n = 4, 400

	f := newFixture(t)
	strs := make([]any, n)
	pats := make([]any, n)
	for i := 0; i < n; i++ {
		strs[i] = fmt.Sprintf("k%d=%d", i%k, i)
		pats[i] = fmt.Sprintf(`k%d=(\d+)`, i%k)
	}

	eng, err := engine.New(engine.Linear, engine.DefaultOptions())
	require.NoError(t, err)
	c := cache.New(eng, k)

	got, st, err := f.run(utf8(f.mem, strs...), utf8(f.mem, pats...), i64(f.mem, 1), Options{Cache: c})
	require.NoError(t, err)
	assert.True(t, st.FastPath)
	assert.False(t, st.ScalarPattern)

	cs := c.Stats()
	assert.Equal(t, uint64(k), cs.Compiled)
	assert.Equal(t, uint64(n-k), cs.Hits)

	// Same output as compiling every row from scratch.
	for i := 0; i < n; i++ {
		re, err := eng.Compile(pats[i].(string))
		require.NoError(t, err)
		caps, ok, err := re.FindCaptures(strs[i].(string))
		require.NoError(t, err)
		require.True(t, ok)
		want, _ := caps.Group(1)
		assert.Equal(t, want, got[i])
	}
}

func TestWidthIndependence(t *testing.T) {
	type build func(memory.Allocator, ...any) arrow.Array

	for _, sb := range []build{utf8, largeUTF8} {
		for _, pb := range []build{utf8, largeUTF8} {
			for _, ib := range []build{i64, i32} {
				f := newFixture(t)
				strs := sb(f.mem, "100-200", nil)
				pats := pb(f.mem, `(\d+)-(\d+)`)
				idx := ib(f.mem, 2)
				name := fmt.Sprintf("%s/%s/%s", strs.DataType(), pats.DataType(), idx.DataType())

				got, _, err := f.run(strs, pats, idx, Options{})
				require.NoError(t, err, name)
				assert.Equal(t, []any{"200", nil}, got, name)
			}
		}
	}
}

func TestArgumentErrors(t *testing.T) {
	t.Run("pattern shape", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(utf8(f.mem, "a", "b", "c"), utf8(f.mem, "a", "b"), i64(f.mem, 0), Options{})
		var se *column.ShapeError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "pattern", se.Arg)
	})

	t.Run("index shape", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(utf8(f.mem, "a", "b", "c"), utf8(f.mem, "a"), i64(f.mem, 0, 1), Options{})
		var se *column.ShapeError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "idx", se.Arg)
	})

	t.Run("subject type", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.run(i64(f.mem, 1), utf8(f.mem, "a"), i64(f.mem, 0), Options{})
		var te *column.TypeError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "strings", te.Arg)
	})
}

func TestZeroRows(t *testing.T) {
	f := newFixture(t)
	got, st, err := f.run(largeUTF8(f.mem), utf8(f.mem, `(unclosed`), i64(f.mem, 0), Options{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, Stats{}, st)
}

func TestFastPathEligibility(t *testing.T) {
	tests := []struct {
		name string
		s    []any
		p    []any
		idx  []any
		fast bool
	}{
		{"no nulls", []any{"a", "b"}, []any{"a"}, []any{0}, true},
		{"null subject", []any{"a", nil}, []any{"a"}, []any{0}, false},
		{"null per-row pattern", []any{"a", "b"}, []any{"a", nil}, []any{0}, false},
		{"null per-row index", []any{"a", "b"}, []any{"a"}, []any{0, nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, st, err := f.run(utf8(f.mem, tt.s...), utf8(f.mem, tt.p...), i64(f.mem, tt.idx...), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.fast, st.FastPath)
			assert.Equal(t, len(tt.s), st.Rows)
		})
	}
}

func TestEstimateBytes(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	long := fmt.Sprintf("%0100d", 7)

	tests := []struct {
		name string
		s    []any
		idx  []any
		want int
	}{
		{"base lower bound", []any{"a", "b"}, []any{0}, 8},
		{"whole match uses full length", []any{long, long}, []any{0}, 200},
		{"group uses a quarter", []any{long, long}, []any{1}, 50},
		{"null rows skipped", []any{long, nil, long}, []any{1, 1, nil}, 25},
		{"per-row zero is not whole match", []any{long, long}, []any{0, 0}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strs := utf8(mem, tt.s...)
			defer strs.Release()
			idx := i64(mem, tt.idx...)
			defer idx.Release()

			sr, err := column.NewStrings("strings", strs)
			require.NoError(t, err)
			ix, err := column.NewIndices(idx, strs.Len())
			require.NoError(t, err)

			assert.Equal(t, tt.want, estimateBytes(sr, ix))
		})
	}
}

func TestPolicyText(t *testing.T) {
	for _, p := range []Policy{PolicyError, PolicyEmptyString} {
		text, err := p.MarshalText()
		require.NoError(t, err)

		var back Policy
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}

	p, err := ParsePolicy("EmptyString")
	require.NoError(t, err)
	assert.Equal(t, PolicyEmptyString, p)

	_, err = ParsePolicy("ignore")
	require.Error(t, err)

	_, err = Policy(9).MarshalText()
	require.Error(t, err)
	assert.False(t, Policy(9).Valid())
	assert.Equal(t, "Policy(9)", Policy(9).String())
}
