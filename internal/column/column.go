package column

import (
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/arx-os/arxquery/internal/zonemap"
)

// Column holds one field's physical buffers for Length rows. Exactly one of
// the typed value slices is populated, selected by Type. Validity is the
// Arrow-layout LSB-first validity bitmap (spec §6): bit i of byte i/8 is 1
// iff row i is non-null. Validity is nil when NullCount == 0.
type Column struct {
	Type      LogicalType
	Length    int
	Scale     int32 // decimal places, only meaningful for Decimal64
	Validity  []byte
	NullCount int

	I64 []int64   // Int8/16/32/64, Uint8/16/32 (widened), Decimal64 mantissa, TimestampMs
	U64 []uint64  // Uint64 only (the one width that doesn't fit losslessly in I64)
	F32 []float32
	F64 []float64
	Bits []uint64 // Bool: packed LSB-first, ceil(Length/64) words — mirrors Arrow's packed boolean layout
	Str []string  // String
	Bin [][]byte  // Binary

	DictCodes []int32  // StringDict: row -> code; Validity applies to codes
	Dict      []string // StringDict: code -> distinct value

	// ZoneMaps holds one zonemap.Stats per zonemap.ChunkSize-row span,
	// computed exactly once by buildZoneMaps when the column's batch is
	// constructed and never recomputed afterward (spec §3/§4.3: "built
	// once at batch construction; immutable thereafter"). Nil for
	// non-numeric types, which have no zone map.
	ZoneMaps []zonemap.Stats
}

// NumRows returns the column's row count.
func (c *Column) NumRows() int { return c.Length }

// IsValid reports whether row i is non-null according to an LSB-first
// validity bitmap. A nil bitmap means "no nulls" (all rows valid).
func IsValid(validity []byte, i int) bool {
	if validity == nil {
		return true
	}
	return validity[i>>3]&(1<<(uint(i)&7)) != 0
}

// SetValid sets or clears bit i of an LSB-first validity bitmap in place.
func SetValid(validity []byte, i int, valid bool) {
	byteIdx, bit := i>>3, byte(1<<(uint(i)&7))
	if valid {
		validity[byteIdx] |= bit
	} else {
		validity[byteIdx] &^= bit
	}
}

// NewValidityBitmap allocates a validity bitmap for n rows via alloc,
// initialized to all-valid (every bit set), using the real Arrow memory
// allocator abstraction for the one buffer whose physical layout spec §6
// mandates exactly (LSB-first bytes ANDed against the selection bitmap).
func NewValidityBitmap(alloc memory.Allocator, n int) []byte {
	nbytes := (n + 7) / 8
	buf := alloc.Allocate(nbytes)
	for i := range buf {
		buf[i] = 0xFF
	}
	if rem := n % 8; rem != 0 {
		buf[nbytes-1] = (1 << uint(rem)) - 1
	}
	return buf
}

// PackedBool reads logical boolean row i from a packed LSB-first []uint64
// buffer, exactly as Arrow packs boolean values buffers.
func PackedBool(bits []uint64, i int) bool {
	return bits[i>>6]&(1<<(uint(i)&63)) != 0
}

// SetPackedBool sets or clears boolean row i in a packed LSB-first []uint64
// buffer.
func SetPackedBool(bits []uint64, i int, v bool) {
	word, bit := i>>6, uint(i)&63
	if v {
		bits[word] |= 1 << bit
	} else {
		bits[word] &^= 1 << bit
	}
}

// ValueAt extracts row i of col as its natural Go type, or nil if the row is
// null. StringDict resolves through the dictionary to the distinct string
// value rather than exposing the dictionary code.
func ValueAt(col *Column, i int) any {
	if !IsValid(col.Validity, i) {
		return nil
	}
	switch col.Type {
	case Uint64:
		return col.U64[i]
	case Float32:
		return col.F32[i]
	case Float64:
		return col.F64[i]
	case Bool:
		return PackedBool(col.Bits, i)
	case String:
		return col.Str[i]
	case StringDict:
		return col.Dict[col.DictCodes[i]]
	case Binary:
		return col.Bin[i]
	default:
		return col.I64[i]
	}
}
