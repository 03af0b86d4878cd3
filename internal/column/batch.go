package column

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Batch is the finite, ordered, immutable record batch the engine executes
// queries against (spec §3). N (NumRows) is fixed for the batch's lifetime;
// there is no mutation API.
type Batch struct {
	NumRows    int
	Columns    []*Column
	FieldIndex map[string]int
	alloc      memory.Allocator
}

// NewBatch validates that every column's Length matches numRows and builds
// the field_name -> column_index map the analyzer resolves predicates
// against (spec §4.5).
func NewBatch(alloc memory.Allocator, numRows int, fields []string, cols []*Column) (*Batch, error) {
	if len(fields) != len(cols) {
		return nil, fmt.Errorf("column: %d field names for %d columns", len(fields), len(cols))
	}
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		c := cols[i]
		if c.Length != numRows {
			return nil, fmt.Errorf("column: field %q has %d rows, batch has %d", f, c.Length, numRows)
		}
		idx[f] = i
		// Zone maps are built exactly once, here, at construction time
		// (spec §3/§4.3) — never recomputed on a later query.
		c.ZoneMaps = buildZoneMaps(c)
	}
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	return &Batch{NumRows: numRows, Columns: cols, FieldIndex: idx, alloc: alloc}, nil
}

// Column returns the column at the given resolved index.
func (b *Batch) Column(i int) *Column { return b.Columns[i] }

// Allocator returns the batch's memory allocator. The engine's own query
// paths do not call it; their scratch buffers are ordinary Go slices.
func (b *Batch) Allocator() memory.Allocator { return b.alloc }

// ColumnIndex resolves a field name, returning (index, true) on success.
func (b *Batch) ColumnIndex(field string) (int, bool) {
	i, ok := b.FieldIndex[field]
	return i, ok
}
