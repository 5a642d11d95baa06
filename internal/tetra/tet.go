package tetra

import (
	"math"

	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/key"
	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// DomainMax is one past the largest representable coordinate on any
// axis: tetrahedral coordinates are non-negative only (spec.md §6).
const DomainMax = 1 << key.MaxLevel

// Tet is the tetrahedron descriptor of spec.md §3: an anchor cube of
// side h = 1<<(MaxLevel-Level) at (X,Y,Z), holding one of the six
// characteristic tetrahedra (Type 0..5) that tile it.
type Tet struct {
	X, Y, Z uint32
	Level   uint8
	Type    uint8
}

// CellSize returns h, the side length of the anchor cube, in the same
// integer units as X, Y, Z.
func (t Tet) CellSize() uint32 {
	return 1 << uint(key.MaxLevel-int(t.Level))
}

// Vertices returns the four corners of the tetrahedron in world
// coordinates.
func (t Tet) Vertices() [4]geom.Point3 {
	h := float64(t.CellSize())
	anchor := geom.Point3{X: float64(t.X), Y: float64(t.Y), Z: float64(t.Z)}
	var out [4]geom.Point3
	for i, corner := range typeVertices[t.Type] {
		dx, dy, dz := cubeCorner(corner)
		out[i] = anchor.Add(geom.Point3{X: float64(dx) * h, Y: float64(dy) * h, Z: float64(dz) * h})
	}
	return out
}

// Contains reports whether point lies within the tetrahedron, via
// barycentric coordinates on its four vertices (spec.md §4.3).
func (t Tet) Contains(p geom.Point3) bool {
	v := t.Vertices()
	// Solve p = v0 + a*(v1-v0) + b*(v2-v0) + c*(v3-v0) for a,b,c.
	e1 := v[1].Sub(v[0])
	e2 := v[2].Sub(v[0])
	e3 := v[3].Sub(v[0])
	rhs := p.Sub(v[0])

	det := mat3Det(e1, e2, e3)
	if math.Abs(det) < 1e-12 {
		return false
	}
	a := mat3Det(rhs, e2, e3) / det
	b := mat3Det(e1, rhs, e3) / det
	c := mat3Det(e1, e2, rhs) / det

	const eps = 1e-9
	return a >= -eps && b >= -eps && c >= -eps && a+b+c <= 1+eps
}

// mat3Det returns the determinant of the 3x3 matrix whose columns are
// c1, c2, c3.
func mat3Det(c1, c2, c3 geom.Point3) float64 {
	return c1.X*(c2.Y*c3.Z-c2.Z*c3.Y) -
		c2.X*(c1.Y*c3.Z-c1.Z*c3.Y) +
		c3.X*(c1.Y*c2.Z-c1.Z*c2.Y)
}

// Parent returns the tetrahedron one level up, or ok=false at the
// root. The anchor is found by clearing this cell's bit on each axis
// (spec.md §4.3); the parent's type is the inverse of childType,
// given the octant slot this cell occupies within its parent.
func (t Tet) Parent() (Tet, bool) {
	if t.Level == 0 {
		return Tet{}, false
	}
	h := t.CellSize()
	slot := octantSlot(t.X, t.Y, t.Z, h)
	return Tet{
		X:     t.X &^ h,
		Y:     t.Y &^ h,
		Z:     t.Z &^ h,
		Level: t.Level - 1,
		Type:  parentTypeOf(t.Type, slot),
	}, true
}

// Child returns the child in octant slot (0..7), typed by childType:
// O(1), no need to materialize all eight.
func (t Tet) Child(slot uint8) Tet {
	childH := t.CellSize() / 2
	dx, dy, dz := cubeCorner(slot & 0b111)
	return Tet{
		X:     t.X + dx*childH,
		Y:     t.Y + dy*childH,
		Z:     t.Z + dz*childH,
		Level: t.Level + 1,
		Type:  childType(t.Type, slot&0b111),
	}
}

// octantSlot recovers which of the 8 octants (anchored at h below
// parent's cell of size 2h) a cell of size h at (x,y,z) occupies,
// using the same bit convention as cubeCorner.
func octantSlot(x, y, z, h uint32) (slot uint8) {
	if x&h != 0 {
		slot |= 1
	}
	if y&h != 0 {
		slot |= 2
	}
	if z&h != 0 {
		slot |= 4
	}
	return
}

// TMIndex packs the path from root to t into a Key. Complexity
// O(level) (spec.md §4.3); callers on a hot path should consult
// TetCache first.
func (t Tet) TMIndex() Key {
	// Walk the parent chain, recording at each step the octant slot
	// that step's child occupied, then replay root-to-leaf.
	slots := make([]uint8, 0, t.Level)
	cur := t
	for cur.Level > 0 {
		h := cur.CellSize()
		slots = append(slots, octantSlot(cur.X, cur.Y, cur.Z, h))
		parent, _ := cur.Parent()
		cur = parent
	}
	k := Root()
	for i := len(slots) - 1; i >= 0; i-- {
		k = k.ChildAt(slots[i])
	}
	return k
}

// cellSizeAtLevel returns h for an arbitrary level, independent of
// any Tet value.
func cellSizeAtLevel(level uint8) uint32 {
	return 1 << uint(key.MaxLevel-int(level))
}

// Locate implements spec.md §4.3's deterministic region classifier:
// compute the anchor cube containing point at level, then pick the
// characteristic tetrahedron whose region the point's offset within
// that cube falls into. The prefilter is the spec's textual rule; the
// final answer is always verified (and, on a boundary tie, corrected)
// by Contains, which guarantees locate(p,l).Contains(p) holds for
// every in-domain p (spec.md §8 invariant 5).
func Locate(p geom.Point3, level uint8) (Tet, error) {
	if level > key.MaxLevel {
		return Tet{}, spatialerr.ErrInvalidLevel
	}
	if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= DomainMax || p.Y >= DomainMax || p.Z >= DomainMax {
		return Tet{}, spatialerr.ErrOutOfDomain
	}

	h := float64(cellSizeAtLevel(level))
	ax := math.Floor(p.X/h) * h
	ay := math.Floor(p.Y/h) * h
	az := math.Floor(p.Z/h) * h
	anchor := Tet{X: uint32(ax), Y: uint32(ay), Z: uint32(az), Level: level}

	local := geom.Point3{X: p.X - ax, Y: p.Y - ay, Z: p.Z - az}

	group, axisOf := lowerGroup, smallestAxis
	if local.X+local.Y+local.Z > 1.5*h {
		group, axisOf = upperGroup, largestAxis
	}
	preferred := group[axisOf(local)]

	candidate := anchor
	candidate.Type = preferred
	if candidate.Contains(p) {
		return candidate, nil
	}

	// Boundary tie or prefilter miss: fall back to checking every
	// type in fixed order.
	for typ := uint8(0); typ < 6; typ++ {
		candidate.Type = typ
		if candidate.Contains(p) {
			return candidate, nil
		}
	}
	// Floating-point edge case exactly on a shared face: default to
	// type 0, which always borders the anchor/far-corner diagonal.
	candidate.Type = 0
	return candidate, nil
}

func smallestAxis(p geom.Point3) int {
	if p.X <= p.Y && p.X <= p.Z {
		return 0
	}
	if p.Y <= p.Z {
		return 1
	}
	return 2
}

func largestAxis(p geom.Point3) int {
	if p.X >= p.Y && p.X >= p.Z {
		return 0
	}
	if p.Y >= p.Z {
		return 1
	}
	return 2
}
