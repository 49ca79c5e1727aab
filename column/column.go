// Package column wraps arrow arrays in the read strategies used by the
// extraction kernel.
//
// Pattern and index arguments are either scalar (length 1, broadcast to every
// row) or per-row (length N). The choice is resolved once, when the accessor
// is built, so the row loop reads values through a fixed strategy instead of
// re-checking lengths on every row.
package column

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Strings reads a String or LargeString array.
// Both *array.String and *array.LargeString satisfy it.
type Strings interface {
	Len() int
	NullN() int
	IsNull(i int) bool
	Value(i int) string
}

// NewStrings returns a reader over arr, which must be String or LargeString.
// arg names the argument in errors.
func NewStrings(arg string, arr arrow.Array) (Strings, error) {
	switch a := arr.(type) {
	case *array.String:
		return a, nil
	case *array.LargeString:
		return a, nil
	default:
		return nil, &TypeError{Arg: arg, Type: arr.DataType(), Want: "Utf8 or LargeUtf8"}
	}
}

// IsStringType reports whether dt is one of the supported string widths.
func IsStringType(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return true
	default:
		return false
	}
}

// checkShape verifies that an argument of length n can be broadcast over
// rows and reports whether it is scalar.
func checkShape(arg string, n, rows int) (scalar bool, err error) {
	switch {
	case n == 1:
		return true, nil
	case n == rows:
		return false, nil
	default:
		return false, &ShapeError{Arg: arg, Len: n, Rows: rows}
	}
}

// ShapeError reports an argument whose length is neither 1 nor the row count.
type ShapeError struct {
	Arg  string
	Len  int
	Rows int
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("regexp_extract: %s array must have length 1 or %d, got %d", e.Arg, e.Rows, e.Len)
}

// TypeError reports an argument of an unsupported arrow type.
type TypeError struct {
	Arg  string
	Type arrow.DataType
	Want string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("regexp_extract: %s must be %s, got %s", e.Arg, e.Want, e.Type)
}
