package morton

import (
	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/key"
	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// Backend implements key.Backend[Key] for the cubic octree. The
// coordinate domain is [0, 2^21) on every axis — spec.md §4.2 defines
// MortonKey's coordinates as unsigned 21-bit values, and §6 explicitly
// permits a backend to narrow "[-2^30, 2^30)" down to "as the encoding
// permits"; this backend takes that option rather than carrying a
// separate signed-to-unsigned offset translation no spec invariant
// requires.
type Backend struct{}

// New constructs the cubic octree backend. It holds no state — every
// method is a pure function of its arguments.
func New() *Backend { return &Backend{} }

var _ key.Backend[Key] = (*Backend)(nil)

func (*Backend) Root() Key       { return Root() }
func (*Backend) MaxLevel() uint8 { return key.MaxLevel }

func toCoords(p geom.Point3) (x, y, z uint32, inDomain bool) {
	if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= CoordMax || p.Y >= CoordMax || p.Z >= CoordMax {
		return 0, 0, 0, false
	}
	return uint32(p.X), uint32(p.Y), uint32(p.Z), true
}

func (b *Backend) CoordToKey(p geom.Point3, level uint8) (Key, error) {
	if level > key.MaxLevel {
		return Key{}, spatialerr.ErrInvalidLevel
	}
	x, y, z, ok := toCoords(p)
	if !ok {
		return Key{}, spatialerr.ErrOutOfDomain
	}
	return FromCoords(x, y, z, level), nil
}

// EnclosingKeysForBox computes the Morton min/max of the bounding box
// at level in O(1); per spec.md §4.2 this over-approximates the true
// box and callers must re-filter by real geometry.
func (b *Backend) EnclosingKeysForBox(bounds geom.Bounds, level uint8) (Key, Key, error) {
	if level > key.MaxLevel {
		return Key{}, Key{}, spatialerr.ErrInvalidLevel
	}
	minX, minY, minZ, ok1 := toCoords(bounds.Min)
	maxPoint := geom.Point3{X: bounds.Max.X, Y: bounds.Max.Y, Z: bounds.Max.Z}
	maxX, maxY, maxZ, ok2 := toCoords(maxPoint)
	if !ok1 || !ok2 {
		return Key{}, Key{}, spatialerr.ErrOutOfDomain
	}
	return FromCoords(minX, minY, minZ, level), FromCoords(maxX, maxY, maxZ, level), nil
}

func (b *Backend) NodeAABB(k Key) geom.Bounds {
	x, y, z := k.Coordinates()
	h := float64(k.CellSize())
	min := geom.Point3{X: float64(x), Y: float64(y), Z: float64(z)}
	return geom.Bounds{Min: min, Max: min.Add(geom.Point3{X: h, Y: h, Z: h})}
}

// Neighbors enumerates the 26 face/edge/vertex-adjacent cells of k at
// k's own level, skipping any that would fall outside the domain.
func (b *Backend) Neighbors(k Key) []Key {
	x, y, z := k.Coordinates()
	h := k.CellSize()
	out := make([]Key, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx := int64(x) + int64(dx)*int64(h)
				ny := int64(y) + int64(dy)*int64(h)
				nz := int64(z) + int64(dz)*int64(h)
				if nx < 0 || ny < 0 || nz < 0 || nx >= CoordMax || ny >= CoordMax || nz >= CoordMax {
					continue
				}
				out = append(out, FromCoords(uint32(nx), uint32(ny), uint32(nz), k.level))
			}
		}
	}
	return out
}

func (b *Backend) InRange(candidate, lo, hi Key) bool {
	return !candidate.Less(lo) && !hi.Less(candidate)
}

// Next returns the SFC successor of k: the next Morton code at the
// same level, or ok=false if k.code is already the maximum
// representable code at that level.
func (b *Backend) Next(k Key) (Key, bool) {
	shift := uint(3 * (key.MaxLevel - int(k.level)))
	step := uint64(1) << shift
	// Codes use 63 bits total (21 coordinate bits per axis); the
	// maximum valid code at this level has every bit from shift to 62
	// set and the low shift bits (this level doesn't address them)
	// clear.
	const mask63 = uint64(1)<<63 - 1
	maxCode := mask63 &^ (step - 1)
	if k.code == maxCode {
		return Key{}, false
	}
	return Key{level: k.level, code: k.code + step}, true
}
