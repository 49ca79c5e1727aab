package column

import "github.com/apache/arrow-go/v18/arrow"

// Patterns is the pattern argument resolved to scalar or per-row access.
type Patterns struct {
	values Strings
	scalar bool
}

// NewPatterns checks arr against rows and returns its accessor.
func NewPatterns(arr arrow.Array, rows int) (Patterns, error) {
	values, err := NewStrings("pattern", arr)
	if err != nil {
		return Patterns{}, err
	}
	scalar, err := checkShape("pattern", values.Len(), rows)
	if err != nil {
		return Patterns{}, err
	}
	return Patterns{values: values, scalar: scalar}, nil
}

// AsPerRow treats a single-row pattern column as per-row rather than as a
// scalar shared by every row. It has no effect on longer columns.
func (p Patterns) AsPerRow() Patterns {
	if p.values.Len() == 1 {
		p.scalar = false
	}
	return p
}

// IsScalar reports whether one pattern is shared by every row.
func (p Patterns) IsScalar() bool { return p.scalar }

// HasNulls reports whether any row would see a null pattern.
func (p Patterns) HasNulls() bool {
	if p.scalar {
		return p.values.IsNull(0)
	}
	return p.values.NullN() > 0
}

// Scalar returns the shared pattern. Only valid when IsScalar is true.
func (p Patterns) Scalar() (pattern string, valid bool) {
	if p.values.IsNull(0) {
		return "", false
	}
	return p.values.Value(0), true
}

// IsNull reports whether row i of a per-row pattern column is null.
func (p Patterns) IsNull(i int) bool { return p.values.IsNull(i) }

// Value returns row i of a per-row pattern column.
func (p Patterns) Value(i int) string { return p.values.Value(i) }
