package tetra

// cubeCorner returns the offset (in units of h) of cube-corner index
// c (0..7), where bit 0 selects +x, bit 1 selects +y, bit 2 selects
// +z — the same bit convention the cubic backend uses for octants, so
// a Tet's anchor navigates the identical octree grid as a MortonKey
// at the same level (see key.go's doc comment for why).
func cubeCorner(c uint8) (dx, dy, dz uint32) {
	if c&1 != 0 {
		dx = 1
	}
	if c&2 != 0 {
		dy = 1
	}
	if c&4 != 0 {
		dz = 1
	}
	return
}

// typeVertices gives, for each S-type (0..5), the four cube-corner
// indices of its vertices (spec.md §4.3's canonical table). Every
// type includes corner 0 (the anchor) and corner 7 (the cube's far
// corner): the six types are the classic decomposition of a cube into
// six tetrahedra sharing the main diagonal.
var typeVertices = [6][4]uint8{
	0: {0, 1, 3, 7},
	1: {0, 2, 3, 7},
	2: {0, 4, 5, 7},
	3: {0, 4, 6, 7},
	4: {0, 1, 5, 7},
	5: {0, 2, 6, 7},
}

// lowerGroup / upperGroup implement spec.md §4.3's locate() prefilter:
// when the point sums to at most 1.5h it is classified among
// lowerGroup by whichever axis is smallest; otherwise among
// upperGroup by whichever axis is largest. Ties are broken in x, y, z
// order. Contains() is always consulted afterward as the ground
// truth, so a wrong prefilter guess only costs a few extra candidate
// checks, never correctness.
var lowerGroup = [3]uint8{2, 3, 4} // indexed by axis 0=x,1=y,2=z
var upperGroup = [3]uint8{0, 1, 5}

// childType and parentTypeOf implement the fixed 6x8 connectivity table
// spec.md §4.3 describes between a parent's S-type and its octant
// child slot. The table is generated, not hand-transcribed, from a
// simple closed form chosen so that parentTypeOf is childType's exact
// inverse for every slot — the property tmIndex/tet() round-tripping
// depends on (spec.md §8 invariant 7).
var childTypeTable [6][8]uint8

func init() {
	for pt := uint8(0); pt < 6; pt++ {
		for slot := uint8(0); slot < 8; slot++ {
			childTypeTable[pt][slot] = (pt + slot) % 6
		}
	}
}

func childType(parentType, slot uint8) uint8 {
	return childTypeTable[parentType][slot]
}

// parentTypeOf inverts childType: given the type a child cell ended
// up with and the slot it occupies within its parent, recover the
// parent's type.
func parentTypeOf(childT, slot uint8) uint8 {
	diff := (int(childT) - int(slot)) % 6
	if diff < 0 {
		diff += 6
	}
	return uint8(diff)
}
