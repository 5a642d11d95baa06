package tetra

import (
	"testing"

	"github.com/arbortree/spatialidx/internal/geom"
)

// TestLocateContainsInvariant is spec property 5/property-based test:
// ∀ point p, level l: locate(p,l).contains(p).
func TestLocateContainsInvariant(t *testing.T) {
	points := []geom.Point3{
		{X: 100, Y: 100, Z: 100},
		{X: 1, Y: 1, Z: 1},
		{X: 1000, Y: 2000, Z: 3000},
		{X: 0, Y: 0, Z: 0},
	}
	for _, p := range points {
		for level := uint8(1); level <= 12; level += 3 {
			tet, err := Locate(p, level)
			if err != nil {
				t.Fatalf("Locate(%+v, %d) failed: %v", p, level, err)
			}
			if !tet.Contains(p) {
				t.Fatalf("Locate(%+v, %d) = %+v does not contain p", p, level, tet)
			}
		}
	}
}

func TestLocateOutOfDomain(t *testing.T) {
	if _, err := Locate(geom.Point3{X: -1, Y: 0, Z: 0}, 5); err == nil {
		t.Fatal("expected OutOfDomain error for negative coordinate")
	}
	if _, err := Locate(geom.Point3{X: 0, Y: 0, Z: 0}, key21Plus1()); err == nil {
		t.Fatal("expected InvalidLevel error for level beyond MaxLevel")
	}
}

func key21Plus1() uint8 { return 22 }

// TestTMIndexRoundTrip is spec property 7: tmIndex(Tet).tet() == Tet
// and Tet.tmIndex() == TetKey for any in-domain Tet.
func TestTMIndexRoundTrip(t *testing.T) {
	base := Tet{X: 0, Y: 0, Z: 0, Level: 0, Type: 0}
	tets := []Tet{base}
	cur := base
	for level := uint8(1); level <= 6; level++ {
		cur = cur.Child(level % 8)
		tets = append(tets, cur)
	}

	for _, tet := range tets {
		k := tet.TMIndex()
		got := k.Tet()
		if got != tet {
			t.Fatalf("round-trip failed: tet=%+v tmIndex=%+v tet()=%+v", tet, k, got)
		}
	}
}

func TestParentOfRootIsNone(t *testing.T) {
	if _, ok := Root().Parent(); ok {
		t.Fatal("Root().Parent() returned ok=true, want false")
	}
}

// TestSixTypesCoverCube checks the coverage half of spec property 6:
// sampling points inside the anchor cube and checking at least one of
// the six S-types at that anchor contains each. Overlap is not
// checked; the cube-center sample lies on the diagonal all six share.
func TestSixTypesCoverCube(t *testing.T) {
	anchor := Tet{X: 0, Y: 0, Z: 0, Level: 5}
	h := float64(anchor.CellSize())

	samples := []geom.Point3{
		{X: h * 0.1, Y: h * 0.2, Z: h * 0.3},
		{X: h * 0.5, Y: h * 0.5, Z: h * 0.5},
		{X: h * 0.9, Y: h * 0.8, Z: h * 0.7},
		{X: h * 0.25, Y: h * 0.75, Z: h * 0.4},
	}

	for _, p := range samples {
		hits := 0
		for typ := uint8(0); typ < 6; typ++ {
			candidate := anchor
			candidate.Type = typ
			if candidate.Contains(p) {
				hits++
			}
		}
		if hits == 0 {
			t.Fatalf("point %+v not contained by any of the 6 types", p)
		}
	}
}
