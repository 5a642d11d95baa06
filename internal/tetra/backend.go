package tetra

import (
	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/key"
	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// Backend implements key.Backend[Key] for the tetrahedral tree. It
// wraps a *Cache (defaulting to the process-wide Global) so TetKey
// construction benefits from spec.md §4.4's caching contract without
// every call site having to know about it.
type Backend struct {
	cache *Cache
}

// New constructs the tetrahedral backend using the process-wide
// cache. Use NewWithCache for a per-engine cache instance.
func New() *Backend { return &Backend{cache: Global} }

// NewWithCache constructs the tetrahedral backend against a specific
// Cache, for the per-engine/per-thread mode spec.md §4.4 allows.
func NewWithCache(c *Cache) *Backend { return &Backend{cache: c} }

var _ key.Backend[Key] = (*Backend)(nil)

func (*Backend) Root() Key       { return Root() }
func (*Backend) MaxLevel() uint8 { return key.MaxLevel }

func (b *Backend) CoordToKey(p geom.Point3, level uint8) (Key, error) {
	t, err := Locate(p, level)
	if err != nil {
		return Key{}, err
	}
	return b.cache.TMIndexCached(t), nil
}

// EnclosingKeysForBox computes the SFC range over the box's min and
// max corners' located Tets at level. Like the cubic backend, this is
// an over-approximation of the box in general — it bounds the path
// space between two corners, not the exact set of intersecting
// cells — and callers must re-filter by NodeAABB (spec.md §6).
func (b *Backend) EnclosingKeysForBox(bounds geom.Bounds, level uint8) (Key, Key, error) {
	if level > key.MaxLevel {
		return Key{}, Key{}, spatialerr.ErrInvalidLevel
	}
	minTet, err := Locate(bounds.Min, level)
	if err != nil {
		return Key{}, Key{}, err
	}
	// Max corner is exclusive-ish in many callers' bounds, but the
	// domain is closed; clamp into range rather than erroring on an
	// exactly-on-the-edge max corner.
	maxPoint := bounds.Max
	if maxPoint.X >= DomainMax {
		maxPoint.X = DomainMax - 1
	}
	if maxPoint.Y >= DomainMax {
		maxPoint.Y = DomainMax - 1
	}
	if maxPoint.Z >= DomainMax {
		maxPoint.Z = DomainMax - 1
	}
	maxTet, err := Locate(maxPoint, level)
	if err != nil {
		return Key{}, Key{}, err
	}
	kMin, kMax := b.cache.TMIndexCached(minTet), b.cache.TMIndexCached(maxTet)
	if kMax.Less(kMin) {
		kMin, kMax = kMax, kMin
	}
	return kMin, kMax, nil
}

func (b *Backend) NodeAABB(k Key) geom.Bounds {
	t := k.Tet()
	minV, maxV := t.Vertices()[0], t.Vertices()[0]
	for _, v := range t.Vertices() {
		minV = geom.Point3{X: min(minV.X, v.X), Y: min(minV.Y, v.Y), Z: min(minV.Z, v.Z)}
		maxV = geom.Point3{X: max(maxV.X, v.X), Y: max(maxV.Y, v.Y), Z: max(maxV.Z, v.Z)}
	}
	return geom.Bounds{Min: minV, Max: maxV}
}

// Neighbors enumerates the TetKeys of the 26 octant-adjacent anchor
// cubes at k's level, each carrying every S-type present at that
// anchor — mirroring the cubic backend's neighbor enumeration but
// fanned out across the up-to-6 tetrahedra sharing each neighboring
// cube, since k-NN/ray traversal need every tetrahedron that could
// hold a closer entity, not just the anchor cube itself.
func (b *Backend) Neighbors(k Key) []Key {
	t := k.Tet()
	h := t.CellSize()
	out := make([]Key, 0, 26*6)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx := int64(t.X) + int64(dx)*int64(h)
				ny := int64(t.Y) + int64(dy)*int64(h)
				nz := int64(t.Z) + int64(dz)*int64(h)
				if nx < 0 || ny < 0 || nz < 0 || nx >= DomainMax || ny >= DomainMax || nz >= DomainMax {
					continue
				}
				for typ := uint8(0); typ < 6; typ++ {
					nt := Tet{X: uint32(nx), Y: uint32(ny), Z: uint32(nz), Level: t.Level, Type: typ}
					out = append(out, b.cache.TMIndexCached(nt))
				}
			}
		}
	}
	return out
}

func (b *Backend) InRange(candidate, lo, hi Key) bool {
	return !candidate.Less(lo) && !hi.Less(candidate)
}

// Next returns the SFC successor of k: the lexicographically next
// path at the same level (path+1), or ok=false once the path field
// overflows its 3*level bits.
func (b *Backend) Next(k Key) (Key, bool) {
	maxPath := uint64(1)<<uint(3*int(k.level)) - 1
	if k.path >= maxPath {
		return Key{}, false
	}
	return Key{level: k.level, path: k.path + 1}, true
}
