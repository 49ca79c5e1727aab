package column

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Indices is the group index argument resolved to scalar or per-row access.
// Int32 and Int64 columns are both read as int64.
type Indices struct {
	scalar      bool
	scalarValid bool
	scalarValue int64

	nulls  int
	isNull func(i int) bool
	at     func(i int) int64
}

// NewIndices checks arr against rows and returns its accessor.
func NewIndices(arr arrow.Array, rows int) (Indices, error) {
	var at func(i int) int64
	switch a := arr.(type) {
	case *array.Int64:
		at = a.Value
	case *array.Int32:
		at = func(i int) int64 { return int64(a.Value(i)) }
	default:
		return Indices{}, &TypeError{Arg: "idx", Type: arr.DataType(), Want: "Int32 or Int64"}
	}

	scalar, err := checkShape("idx", arr.Len(), rows)
	if err != nil {
		return Indices{}, err
	}

	ix := Indices{scalar: scalar, nulls: arr.NullN(), isNull: arr.IsNull, at: at}
	if scalar {
		valid := arr.IsValid(0)
		ix.scalarValid = valid
		ix.isNull = func(int) bool { return !valid }
		if valid {
			v := at(0)
			ix.scalarValue = v
			ix.at = func(int) int64 { return v }
		}
	}
	return ix, nil
}

// IsScalar reports whether one index is shared by every row.
func (x Indices) IsScalar() bool { return x.scalar }

// HasNulls reports whether any row would see a null index.
func (x Indices) HasNulls() bool {
	if x.scalar {
		return !x.scalarValid
	}
	return x.nulls > 0
}

// Scalar returns the shared index. Only meaningful when IsScalar is true.
func (x Indices) Scalar() (idx int64, valid bool) {
	return x.scalarValue, x.scalarValid
}

// IsNull reports whether the index seen by row i is null.
func (x Indices) IsNull(i int) bool { return x.isNull(i) }

// Value returns the index seen by row i. The row must not be null.
func (x Indices) Value(i int) int64 { return x.at(i) }
