package morton

import (
	"testing"

	"github.com/arbortree/spatialidx/internal/geom"
)

func TestBackendCoordToKeyOutOfDomain(t *testing.T) {
	b := New()
	_, err := b.CoordToKey(geom.Point3{X: -1, Y: 0, Z: 0}, 5)
	if err == nil {
		t.Fatal("expected OutOfDomain error for negative coordinate")
	}
}

func TestBackendNextExhaustsRange(t *testing.T) {
	b := New()
	if _, ok := b.Next(Root()); ok {
		t.Fatal("Next(root) should fail since level 0 has a single cell")
	}
	k := Root().ChildAt(0)
	next, ok := b.Next(k)
	if !ok {
		t.Fatal("Next(k) should succeed since k is not the max key at level 1")
	}
	if !k.Less(next) {
		t.Fatal("Next(k) should be greater than k in SFC order")
	}
}

func TestBackendNeighborsCount(t *testing.T) {
	b := New()
	k := FromCoords(CoordMax/2, CoordMax/2, CoordMax/2, 10)
	neighbors := b.Neighbors(k)
	if len(neighbors) == 0 {
		t.Fatal("expected neighbors for an interior cell")
	}
	for _, n := range neighbors {
		if n == k {
			t.Fatal("Neighbors should not include k itself")
		}
	}
}

func TestBackendEnclosingKeysForBoxOrdering(t *testing.T) {
	b := New()
	bounds := geom.Bounds{
		Min: geom.Point3{X: 100, Y: 100, Z: 100},
		Max: geom.Point3{X: 300, Y: 300, Z: 300},
	}
	kMin, kMax, err := b.EnclosingKeysForBox(bounds, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kMax.Less(kMin) {
		t.Fatal("expected kMin <= kMax")
	}
}
