package spatialidx

import (
	"github.com/arbortree/spatialidx/internal/collision"
	"github.com/arbortree/spatialidx/internal/engine"
	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/pool"
)

// Geometry re-exports, so callers never import an internal package.
type (
	Point3  = geom.Point3
	Bounds  = geom.Bounds
	Ray     = geom.Ray
	Plane   = geom.Plane
	Frustum = geom.Frustum
	Sphere  = geom.Sphere
	Box     = geom.Box
	Capsule = geom.Capsule
)

// Candidate is one k-NN result: an entity ID and its squared distance
// from the query point, ascending (spec.md §6 k-NN ordering).
type Candidate = pool.Candidate

// RayHit is one ray-intersection result, ordered by T ascending.
type RayHit = engine.RayHit

// BulkItem is one entity to load via BulkLoad.
type BulkItem = engine.BulkItem

// BulkResult reports a BulkLoad call's outcome.
type BulkResult = engine.BulkResult

// VisitResult is a Visitor callback's return value.
type VisitResult = engine.VisitResult

const (
	Continue    = engine.Continue
	SkipSubtree = engine.SkipSubtree
	Terminate   = engine.Terminate
)

// Shape is any narrow-phase-testable collision shape.
type Shape = collision.Shape

// Contact is one narrow-phase collision result.
type Contact = collision.Contact

// CollisionEntity pairs a broad-phase candidate with its narrow-phase
// shape, for use with DetectCollisions.
type CollisionEntity = collision.Entity

// Balancer implements spec.md §4.6's TreeBalancer split/merge policy.
type Balancer = engine.Balancer

// DetectCollisions runs spec.md §4.9's broad+narrow phase pipeline
// over an explicit candidate set (typically gathered via a tree's
// Range query), returning contacts ordered by descending penetration.
func DetectCollisions(candidates []CollisionEntity) []Contact {
	return collision.NarrowPhase(collision.BroadPhase(candidates))
}
