package entitystore

import (
	"testing"

	"github.com/arbortree/spatialidx/internal/geom"
)

func TestPutGetDelete(t *testing.T) {
	s := New[int]()
	rec := &Record[int]{ID: "a", Position: geom.Point3{X: 1, Y: 2, Z: 3}, OccupyingKeys: map[int]struct{}{5: {}}}
	s.Put(rec)

	got, ok := s.Get("a")
	if !ok || got != rec {
		t.Fatal("Get should return the record just put")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.Delete("a")
	if _, ok := s.Get("a"); ok {
		t.Fatal("Get should fail after Delete")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after delete", s.Len())
	}
}

func TestRangeStopsEarly(t *testing.T) {
	s := New[int]()
	for _, id := range []string{"a", "b", "c"} {
		s.Put(&Record[int]{ID: id, OccupyingKeys: map[int]struct{}{}})
	}
	seen := 0
	s.Range(func(*Record[int]) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Fatalf("Range should stop after the callback returns false, saw %d", seen)
	}
}
