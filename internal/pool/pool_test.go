package pool

import "testing"

func TestBoundedMaxHeapKeepsKSmallest(t *testing.T) {
	h := AcquireMaxHeap(3)
	defer ReleaseMaxHeap(h)

	for _, c := range []Candidate{
		{ID: "a", Distance: 5},
		{ID: "b", Distance: 1},
		{ID: "c", Distance: 9},
		{ID: "d", Distance: 2},
		{ID: "e", Distance: 0.5},
	} {
		h.Offer(c)
	}

	sorted := h.Sorted()
	if len(sorted) != 3 {
		t.Fatalf("expected 3 candidates kept, got %d", len(sorted))
	}
	wantIDs := []string{"e", "b", "d"}
	for i, want := range wantIDs {
		if sorted[i].ID != want {
			t.Fatalf("sorted[%d].ID = %q, want %q (full: %+v)", i, sorted[i].ID, want, sorted)
		}
	}
}

func TestBoundedMaxHeapTieBreaksByID(t *testing.T) {
	h := AcquireMaxHeap(2)
	defer ReleaseMaxHeap(h)

	h.Offer(Candidate{ID: "z", Distance: 1})
	h.Offer(Candidate{ID: "a", Distance: 1})

	sorted := h.Sorted()
	if sorted[0].ID != "a" || sorted[1].ID != "z" {
		t.Fatalf("expected tie-break by ID ascending, got %+v", sorted)
	}
}

func TestAcquireReleaseCandidateSlice(t *testing.T) {
	s := AcquireCandidateSlice()
	if len(s) != 0 {
		t.Fatalf("acquired slice should start empty, len=%d", len(s))
	}
	s = append(s, Candidate{ID: "x"})
	ReleaseCandidateSlice(s)

	s2 := AcquireCandidateSlice()
	if len(s2) != 0 {
		t.Fatalf("reacquired slice should be reset to zero length, len=%d", len(s2))
	}
}

func TestAcquireReleaseIDSet(t *testing.T) {
	set := AcquireIDSet()
	set["x"] = struct{}{}
	ReleaseIDSet(set)

	set2 := AcquireIDSet()
	if len(set2) != 0 {
		t.Fatalf("reacquired set should be cleared, len=%d", len(set2))
	}
}
