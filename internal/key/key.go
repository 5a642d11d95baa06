// Package key defines the abstract, type-safe identifier the generic
// engine requires of any space-filling-curve backend, plus the small
// capability interface backends implement once to plug into it.
//
// This replaces the inheritance-based node hierarchy the original
// design grew from: backend behavior (coordinate to key, neighbor
// enumeration, node bounds) is chosen at type-instantiation via a Go
// generic parameter, not by runtime dispatch on a common superclass.
package key

import "github.com/arbortree/spatialidx/internal/geom"

// MaxLevel is the deepest level any backend may subdivide to.
const MaxLevel = 21

// Spatial is the total-ordered, type-safe identifier of a tree node
// that the engine requires of any key type K. Two keys are equal iff
// they denote the same cell at the same level. Mixing key types is a
// compile error, not a runtime one — there is exactly one type
// parameter K throughout the engine.
type Spatial[K any] interface {
	comparable

	// Level returns the depth of this key, 0 at the root.
	Level() uint8

	// Less defines the space-filling-curve traversal order. It must
	// be a strict total order consistent with comparable equality.
	Less(other K) bool

	// Parent returns the key one level up, or ok=false at the root.
	Parent() (parent K, ok bool)

	// ChildAt constructs the child key for the given child slot
	// (0..7 for both backends; tetra uses the same octant slots as
	// the cubic backend — see internal/tetra).
	ChildAt(slot uint8) K
}

// Backend is the small capability interface each concrete SFC
// implements once. The engine only ever talks to a backend through
// this interface; it never knows whether it is driving a cubic octree
// or a tetrahedral tree.
type Backend[K Spatial[K]] interface {
	// Root returns the unique level-0 key.
	Root() K

	// MaxLevel returns the deepest level this backend supports
	// (spec-wide constant 21, but kept on the interface so a backend
	// could restrict it further).
	MaxLevel() uint8

	// CoordToKey maps a point to the key of the cell containing it at
	// the given level. Returns ErrOutOfDomain if the point is outside
	// the backend's representable coordinate domain.
	CoordToKey(p geom.Point3, level uint8) (K, error)

	// EnclosingKeysForBox computes the SFC range [kMin, kMax] at level
	// that encloses bounds. This is an over-approximation in general —
	// callers must still test each yielded key's NodeAABB against the
	// real bounds (spec's load-bearing "coarse AABB" contract).
	EnclosingKeysForBox(bounds geom.Bounds, level uint8) (kMin, kMax K, err error)

	// NodeAABB returns the axis-aligned bounding box of the cell k
	// denotes.
	NodeAABB(k K) geom.Bounds

	// Neighbors enumerates the keys of cells adjacent to (or, for the
	// tetrahedral backend, sharing a face/edge/vertex with) k at k's
	// own level. Used by k-NN expansion and ray traversal.
	Neighbors(k K) []K

	// InRange reports whether candidate lies within [lo, hi] in SFC
	// order. The lazy range iterator does not call it; it stops when
	// Next reaches kMax.
	InRange(candidate, lo, hi K) bool

	// Next returns the SFC-successor of k, used by the lazy range
	// iterator to step through [kMin, kMax] without materializing the
	// whole range. ok is false if k has no representable successor
	// (e.g. k is the maximum key for its level).
	Next(k K) (next K, ok bool)
}
