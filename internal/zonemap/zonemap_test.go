package zonemap

import "testing"

func TestMayMatchSkipsOutOfRange(t *testing.T) {
	s := Stats{Min: 10, Max: 20}
	if MayMatch(s, Lt, 10) {
		t.Fatal("Lt 10 should be provably false when Min==10")
	}
	if !MayMatch(s, Lt, 11) {
		t.Fatal("Lt 11 could match when Min==10")
	}
	if MayMatch(s, Gt, 20) {
		t.Fatal("Gt 20 should be provably false when Max==20")
	}
	if MayMatch(s, Eq, 25) {
		t.Fatal("Eq outside range should be skippable")
	}
	if !MayMatch(s, Eq, 15) {
		t.Fatal("Eq within range must not be skipped")
	}
}

func TestMayMatchAllNullOnlySatisfiesIsNull(t *testing.T) {
	s := Stats{AllNull: true}
	if MayMatch(s, Eq, 1) {
		t.Fatal("an all-null chunk can't satisfy Eq")
	}
	if !MayMatch(s, IsNull, 0) {
		t.Fatal("an all-null chunk always satisfies IsNull")
	}
}

func TestGlobalStats(t *testing.T) {
	g := GlobalStats([]Stats{
		{Min: 5, Max: 10},
		{AllNull: true},
		{Min: 1, Max: 7},
	})
	if g.Min != 1 || g.Max != 10 || g.AllNull {
		t.Fatalf("got %+v", g)
	}
}

func TestLookupFoldsOverlappingChunks(t *testing.T) {
	zones := []Stats{
		{Min: 1, Max: 5},   // rows [0, ChunkSize)
		{Min: 10, Max: 20}, // rows [ChunkSize, 2*ChunkSize)
	}
	got := Lookup(zones, ChunkSize-1, ChunkSize+1)
	if got.Min != 1 || got.Max != 20 {
		t.Fatalf("got %+v, want folded range across both chunks", got)
	}
}

func TestLookupPermissiveWithNoZoneData(t *testing.T) {
	got := Lookup(nil, 0, 100)
	if got.AllNull {
		t.Fatal("missing zone data must never look all-null (would wrongly skip)")
	}
	if !MayMatch(got, Lt, 0) || !MayMatch(got, Gt, 1e18) {
		t.Fatal("missing zone data must be fully permissive (never skip)")
	}
}
