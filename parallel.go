package regextract

import (
	"context"
	"errors"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/sync/errgroup"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/column"
	"github.com/coregx/regextract/kernel"
)

// ExtractParallel splits the rows into at most partitions contiguous ranges
// and evaluates each range with its own fresh pattern cache. Results are
// concatenated in row order.
//
// The first fatal error cancels partitions that have not started and is
// returned with its row number relative to the whole batch; no partial
// output is returned. A partition that has started runs to completion. The
// persistent cache, if any, is not used.
//
// The call is recorded in metrics and logs once, with the partition
// statistics summed.
func (e *Extractor) ExtractParallel(ctx context.Context, subjects, patterns, indices arrow.Array, partitions int) (arrow.Array, error) {
	rows := subjects.Len()
	if partitions < 1 {
		partitions = 1
	}
	if partitions > rows {
		partitions = rows
	}
	if partitions <= 1 {
		if err := ctx.Err(); err != nil {
			e.record(kernel.Stats{Rows: rows}, cache.Stats{}, err)
			return nil, err
		}
		return e.run(kernel.Input{Strings: subjects, Patterns: patterns, Indices: indices}, e.newCache())
	}

	// Shapes are checked up front so a bad argument is reported as such
	// rather than as a per-slice error.
	pats, err := column.NewPatterns(patterns, rows)
	if err == nil {
		_, err = column.NewIndices(indices, rows)
	}
	if err != nil {
		e.record(kernel.Stats{}, cache.Stats{}, err)
		return nil, err
	}

	var (
		mu    sync.Mutex
		total = kernel.Stats{FastPath: true, ScalarPattern: pats.IsScalar()}
		cs    cache.Stats
	)
	parts := make([]arrow.Array, partitions)
	defer func() {
		for _, p := range parts {
			if p != nil {
				p.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(partitions)
	chunk := (rows + partitions - 1) / partitions
	for i := 0; i < partitions; i++ {
		lo := int64(i * chunk)
		hi := min(int64((i+1)*chunk), int64(rows))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := array.NewSlice(subjects, lo, hi)
			defer s.Release()
			p := sliceArg(patterns, rows, lo, hi)
			defer p.Release()
			x := sliceArg(indices, rows, lo, hi)
			defer x.Release()

			out, st, pcs, err := e.exec(kernel.Input{
				Strings:        s,
				Patterns:       p,
				Indices:        x,
				PerRowPatterns: !pats.IsScalar(),
			}, e.newCache())

			mu.Lock()
			total.Nulls += st.Nulls
			total.Absorbed += st.Absorbed
			total.FastPath = total.FastPath && st.FastPath
			cs = addStats(cs, pcs)
			mu.Unlock()

			if err != nil {
				return offsetRow(err, int(lo))
			}
			parts[i] = out
			return nil
		})
	}
	err = g.Wait()
	total.Rows = rows
	e.record(total, cs, err)
	if err != nil {
		return nil, err
	}

	filled := parts[:0:0]
	for _, p := range parts {
		if p != nil {
			filled = append(filled, p)
		}
	}
	return array.Concatenate(filled, e.mem)
}

// sliceArg slices a per-row argument and retains a scalar one, so that the
// caller can Release either result.
func sliceArg(arr arrow.Array, rows int, lo, hi int64) arrow.Array {
	if arr.Len() == 1 && rows != 1 {
		arr.Retain()
		return arr
	}
	return array.NewSlice(arr, lo, hi)
}

// offsetRow rebases the row of a partition error onto the whole batch.
func offsetRow(err error, lo int) error {
	var (
		ne *NegativeIndexError
		pe *InvalidPatternError
		me *MatchError
	)
	switch {
	case errors.As(err, &ne):
		ne.Row += lo
	case errors.As(err, &pe):
		if pe.Row != kernel.ScalarRow {
			pe.Row += lo
		}
	case errors.As(err, &me):
		me.Row += lo
	}
	return err
}
