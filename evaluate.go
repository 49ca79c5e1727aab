package regextract

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/coregx/regextract/column"
)

// Evaluate is the query-engine entry point: args are (subjects, pattern,
// idx) as array or scalar datums, and rows is the batch row count.
//
// A scalar subject is expanded to rows values. A scalar pattern or index is
// passed to the kernel as a length-1 column, so the pattern is compiled once.
// The result is an array datum of the subject's string width; the caller
// must Release it.
func (e *Extractor) Evaluate(args []compute.Datum, rows int) (compute.Datum, error) {
	if len(args) != 3 {
		return nil, &ArgCountError{Got: len(args)}
	}

	subjects, err := datumArray("strings", args[0], rows, e.mem)
	if err != nil {
		return nil, err
	}
	defer subjects.Release()

	patterns, err := datumArray("pattern", args[1], 1, e.mem)
	if err != nil {
		return nil, err
	}
	defer patterns.Release()

	indices, err := datumArray("idx", args[2], 1, e.mem)
	if err != nil {
		return nil, err
	}
	defer indices.Release()

	if !column.IsStringType(subjects.DataType()) {
		return nil, &TypeError{Arg: "strings", Type: subjects.DataType(), Want: "Utf8 or LargeUtf8"}
	}

	out, err := e.Extract(subjects, patterns, indices)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	return compute.NewDatum(out), nil
}

// datumArray materializes d, expanding a scalar to scalarLen values.
func datumArray(arg string, d compute.Datum, scalarLen int, mem memory.Allocator) (arrow.Array, error) {
	switch v := d.(type) {
	case *compute.ArrayDatum:
		return v.MakeArray(), nil
	case *compute.ScalarDatum:
		return scalar.MakeArrayFromScalar(v.Value, scalarLen, mem)
	default:
		return nil, &TypeError{Arg: arg, Type: arrow.Null, Want: "an array or scalar datum"}
	}
}
