// Package columntest builds column.Batch values from plain Go slices. It is
// a test and benchmark convenience only — the real ingestion/schema
// derivation pipeline the engine consumes in production is an external
// collaborator per spec §1 and is not implemented in this repository.
package columntest

import (
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/arx-os/arxquery/internal/column"
)

// Builder accumulates named columns for a fixed row count and produces a
// Batch. Nulls are indicated with nil/zero-value-and-mask pairs.
type Builder struct {
	alloc  memory.Allocator
	n      int
	fields []string
	cols   []*column.Column
}

// NewBuilder starts a batch builder for n rows.
func NewBuilder(n int) *Builder {
	return &Builder{alloc: memory.NewGoAllocator(), n: n}
}

func (b *Builder) validity(nullMask []bool) ([]byte, int) {
	if nullMask == nil {
		return nil, 0
	}
	v := column.NewValidityBitmap(b.alloc, b.n)
	nulls := 0
	for i, isNull := range nullMask {
		if isNull {
			column.SetValid(v, i, false)
			nulls++
		}
	}
	return v, nulls
}

// Int64 adds a signed 64-bit column. nullMask may be nil for an all-valid column.
func (b *Builder) Int64(field string, values []int64, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Int64, Length: b.n, I64: values, Validity: v, NullCount: nulls})
	return b
}

// Int32 adds a signed 32-bit column, widened into I64.
func (b *Builder) Int32(field string, values []int32, nullMask []bool) *Builder {
	widened := make([]int64, len(values))
	for i, v := range values {
		widened[i] = int64(v)
	}
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Int32, Length: b.n, I64: widened, Validity: v, NullCount: nulls})
	return b
}

// Uint64 adds an unsigned 64-bit column.
func (b *Builder) Uint64(field string, values []uint64, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Uint64, Length: b.n, U64: values, Validity: v, NullCount: nulls})
	return b
}

// Float64 adds a 64-bit float column.
func (b *Builder) Float64(field string, values []float64, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Float64, Length: b.n, F64: values, Validity: v, NullCount: nulls})
	return b
}

// Float32 adds a 32-bit float column.
func (b *Builder) Float32(field string, values []float32, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Float32, Length: b.n, F32: values, Validity: v, NullCount: nulls})
	return b
}

// Decimal64 adds a fixed-scale decimal column backed by int64 mantissas.
func (b *Builder) Decimal64(field string, scale int32, mantissas []int64, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Decimal64, Length: b.n, Scale: scale, I64: mantissas, Validity: v, NullCount: nulls})
	return b
}

// TimestampMs adds a UTC-millisecond timestamp column.
func (b *Builder) TimestampMs(field string, values []int64, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.TimestampMs, Length: b.n, I64: values, Validity: v, NullCount: nulls})
	return b
}

// Bool adds a packed boolean column.
func (b *Builder) Bool(field string, values []bool, nullMask []bool) *Builder {
	words := (b.n + 63) / 64
	bits := make([]uint64, words)
	for i, v := range values {
		column.SetPackedBool(bits, i, v)
	}
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Bool, Length: b.n, Bits: bits, Validity: v, NullCount: nulls})
	return b
}

// String adds a plain (non-dictionary) string column.
func (b *Builder) String(field string, values []string, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.String, Length: b.n, Str: values, Validity: v, NullCount: nulls})
	return b
}

// StringDict adds a dictionary-encoded string column: codes index into dict.
func (b *Builder) StringDict(field string, codes []int32, dict []string, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.StringDict, Length: b.n, DictCodes: codes, Dict: dict, Validity: v, NullCount: nulls})
	return b
}

// Binary adds a variable-length binary column.
func (b *Builder) Binary(field string, values [][]byte, nullMask []bool) *Builder {
	v, nulls := b.validity(nullMask)
	b.push(field, &column.Column{Type: column.Binary, Length: b.n, Bin: values, Validity: v, NullCount: nulls})
	return b
}

func (b *Builder) push(field string, c *column.Column) {
	b.fields = append(b.fields, field)
	b.cols = append(b.cols, c)
}

// Build finalizes the batch.
func (b *Builder) Build() (*column.Batch, error) {
	return column.NewBatch(b.alloc, b.n, b.fields, b.cols)
}
