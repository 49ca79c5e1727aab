package column

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder appends output cells. *array.StringBuilder and
// *array.LargeStringBuilder both satisfy it.
type Builder interface {
	Append(v string)
	AppendNull()
	Reserve(n int)
	ReserveData(n int)
	NewArray() arrow.Array
	Release()
}

// NewBuilder returns a builder producing the same string width as like,
// sized for rows cells and dataBytes bytes of character data. The size hints
// only affect how often the builder grows.
func NewBuilder(mem memory.Allocator, like arrow.DataType, rows, dataBytes int) Builder {
	var b Builder
	if like.ID() == arrow.LARGE_STRING {
		b = array.NewLargeStringBuilder(mem)
	} else {
		b = array.NewStringBuilder(mem)
	}
	b.Reserve(rows)
	if dataBytes > 0 {
		b.ReserveData(dataBytes)
	}
	return b
}

// Empty returns a zero-length array of the given string width.
func Empty(mem memory.Allocator, like arrow.DataType) arrow.Array {
	b := NewBuilder(mem, like, 0, 0)
	defer b.Release()
	return b.NewArray()
}
