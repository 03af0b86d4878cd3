package materialize

import (
	"context"
	"testing"

	"github.com/arx-os/arxquery/internal/bitmap"
)

func TestRowIndicesAscending(t *testing.T) {
	sel := bitmap.New(20, false)
	defer sel.Release()
	for _, i := range []int{1, 5, 19} {
		sel.Set(i)
	}
	got := RowIndices(sel)
	want := []int{1, 5, 19}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFillSequentialPreservesOrder(t *testing.T) {
	sel := bitmap.New(10, false)
	defer sel.Release()
	for _, i := range []int{2, 4, 6, 8} {
		sel.Set(i)
	}
	dst := make([]int, 4)
	n, err := Fill(context.Background(), sel, func(destIndex, srcRow int) {
		dst[destIndex] = srcRow
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("n=%d, want 4", n)
	}
	want := []int{2, 4, 6, 8}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst=%v, want %v", dst, want)
		}
	}
}

func TestFillParallelMatchesSequentialOrder(t *testing.T) {
	n := 25000
	sel := bitmap.New(n, true)
	defer sel.Release()
	// Clear every third row so the result count still exceeds the
	// parallel threshold but isn't a trivial contiguous range.
	for i := 0; i < n; i += 3 {
		sel.Clear(i)
	}
	dst := make([]int, sel.CountSet())
	count, err := Fill(context.Background(), sel, func(destIndex, srcRow int) {
		dst[destIndex] = srcRow
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != len(dst) {
		t.Fatalf("count=%d, len(dst)=%d", count, len(dst))
	}
	for i := 1; i < len(dst); i++ {
		if dst[i] <= dst[i-1] {
			t.Fatalf("result not in ascending row order at %d: %d <= %d", i, dst[i], dst[i-1])
		}
	}
}

func TestFillEmptySelection(t *testing.T) {
	sel := bitmap.New(5, false)
	defer sel.Release()
	n, err := Fill(context.Background(), sel, func(int, int) { t.Fatal("should not be called") })
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("n=%d, want 0", n)
	}
}
