package morton

import "testing"

func TestFromCoordsRoundTrip(t *testing.T) {
	for level := uint8(0); level <= MaxTestLevel; level++ {
		h := uint32(1) << uint(CoordBits-int(level))
		x, y, z := h*3, h*5, h*7
		if x >= CoordMax || y >= CoordMax || z >= CoordMax {
			continue
		}
		k := FromCoords(x, y, z, level)
		gx, gy, gz := k.Coordinates()
		if gx != x || gy != y || gz != z {
			t.Fatalf("level %d: FromCoords(%d,%d,%d).Coordinates() = (%d,%d,%d)", level, x, y, z, gx, gy, gz)
		}
	}
}

const MaxTestLevel = 10

func TestParentChildRoundTrip(t *testing.T) {
	root := Root()
	for slot := uint8(0); slot < 8; slot++ {
		child := root.ChildAt(slot)
		parent, ok := child.Parent()
		if !ok {
			t.Fatalf("slot %d: child.Parent() returned ok=false", slot)
		}
		if parent != root {
			t.Fatalf("slot %d: child.Parent() = %+v, want root %+v", slot, parent, root)
		}
	}
}

func TestRootParentIsNone(t *testing.T) {
	if _, ok := Root().Parent(); ok {
		t.Fatal("Root().Parent() returned ok=true, want false")
	}
}

func TestLessIsStrictTotalOrder(t *testing.T) {
	a := FromCoords(0, 0, 0, 5)
	b := FromCoords(1<<(CoordBits-5), 0, 0, 5)
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected !(b < a)")
	}
	if a.Less(a) {
		t.Fatal("expected !(a < a)")
	}
}

func TestCellSizeHalvesPerLevel(t *testing.T) {
	k0 := Root()
	k1 := k0.ChildAt(0)
	if k0.CellSize() != 2*k1.CellSize() {
		t.Fatalf("CellSize() did not halve: level0=%d level1=%d", k0.CellSize(), k1.CellSize())
	}
}
