package column

import (
	"testing"

	"github.com/arx-os/arxquery/internal/zonemap"
)

func TestNewBatchBuildsZoneMapsOncePerChunk(t *testing.T) {
	n := zonemap.ChunkSize + 100
	vals := make([]int64, n)
	for i := range vals {
		vals[i] = int64(i)
	}
	// Second chunk's values run far higher than the first's.
	for i := zonemap.ChunkSize; i < n; i++ {
		vals[i] = int64(i) + 1_000_000
	}
	b, err := NewBatch(nil, n, []string{"v"}, []*Column{{Type: Int64, Length: n, I64: vals}})
	if err != nil {
		t.Fatal(err)
	}
	zones := b.Column(0).ZoneMaps
	if len(zones) != 2 {
		t.Fatalf("expected 2 zone chunks, got %d", len(zones))
	}
	if zones[0].Min != 0 || zones[0].Max != float64(zonemap.ChunkSize-1) {
		t.Fatalf("chunk 0 got %+v", zones[0])
	}
	wantMin := float64(zonemap.ChunkSize) + 1_000_000
	wantMax := float64(n-1) + 1_000_000
	if zones[1].Min != wantMin || zones[1].Max != wantMax {
		t.Fatalf("chunk 1 got %+v, want min=%v max=%v", zones[1], wantMin, wantMax)
	}
}

func TestNewBatchZoneMapsAllNullChunk(t *testing.T) {
	validity := make([]byte, (5+7)/8)
	col := &Column{Type: Int64, Length: 5, I64: []int64{1, 2, 3, 4, 5}, Validity: validity, NullCount: 5}
	b, err := NewBatch(nil, 5, []string{"v"}, []*Column{col})
	if err != nil {
		t.Fatal(err)
	}
	zones := b.Column(0).ZoneMaps
	if len(zones) != 1 || !zones[0].AllNull {
		t.Fatalf("expected a single all-null zone, got %+v", zones)
	}
}

func TestNewBatchZoneMapsNilForNonNumeric(t *testing.T) {
	b, err := NewBatch(nil, 2, []string{"s"}, []*Column{{Type: String, Length: 2, Str: []string{"a", "b"}}})
	if err != nil {
		t.Fatal(err)
	}
	if b.Column(0).ZoneMaps != nil {
		t.Fatal("non-numeric column should have no zone map")
	}
}
