package spatialidx

import (
	"context"

	"github.com/arbortree/spatialidx/internal/engine"
	"github.com/arbortree/spatialidx/internal/morton"
)

// OctreeVisitor is the Visitor callback set for an Octree traversal.
type OctreeVisitor = engine.Visitor[morton.Key]

// Insert adds a point entity at position, stored at the node
// containing it at level. Returns the generated entity ID.
func (o *Octree) Insert(position Point3, level uint8, content any) (string, error) {
	return o.eng.Insert(position, level, content)
}

// InsertBounded adds a bounded entity; its occupying-key set depends
// on the tree's spanning policy (spec.md §6).
func (o *Octree) InsertBounded(position Point3, level uint8, content any, bounds Bounds) (string, error) {
	return o.eng.InsertBounded(position, level, content, bounds)
}

// InsertSphere adds a point entity carrying a narrow-phase sphere
// radius used by Ray; it does not affect node placement, unlike
// InsertBounded.
func (o *Octree) InsertSphere(position Point3, level uint8, content any, radius float64) (string, error) {
	return o.eng.InsertSphere(position, level, content, radius)
}

// Remove deletes the entity with the given ID.
func (o *Octree) Remove(id string) error { return o.eng.Remove(id) }

// Update moves the entity with the given ID to newPosition at level.
func (o *Octree) Update(id string, newPosition Point3, level uint8) error {
	return o.eng.Update(id, newPosition, level)
}

// Lookup returns the entity IDs stored at the node containing
// position at level.
func (o *Octree) Lookup(position Point3, level uint8) ([]string, error) {
	return o.eng.Lookup(position, level)
}

// Range returns the entity IDs whose position or bounds intersects
// bounds, streamed via the lazy range iterator at the given level.
// ctx cancellation returns the partial result accumulated so far.
func (o *Octree) Range(ctx context.Context, bounds Bounds, level uint8) ([]string, error) {
	return o.eng.Range(bounds, level, stopChanFromContext(ctx))
}

// KNN returns the k nearest entities to q, ascending by distance,
// ties broken by ID. maxDist <= 0 means unbounded.
func (o *Octree) KNN(q Point3, k int, maxDist float64, level uint8) ([]Candidate, error) {
	return o.eng.KNN(q, k, maxDist, level)
}

// Ray returns every entity the ray intersects within maxT, ordered by
// hit distance ascending. maxT <= 0 means unbounded.
func (o *Octree) Ray(r Ray, maxT float64, level uint8) ([]RayHit, error) {
	return o.eng.Ray(r, maxT, level)
}

// Frustum returns every entity inside or intersecting f.
func (o *Octree) Frustum(f Frustum) []string { return o.eng.Frustum(f) }

// Plane returns every entity on the positive side of, or straddling,
// p.
func (o *Octree) Plane(p Plane) []string { return o.eng.Plane(p) }

// BulkLoad loads items in bulk at level, building subtrees in
// parallel and merging them into the tree in a single pass.
func (o *Octree) BulkLoad(ctx context.Context, items []BulkItem, level uint8) (BulkResult, error) {
	return o.eng.BulkLoad(ctx, items, level)
}

// Len returns the number of entities currently indexed.
func (o *Octree) Len() int { return o.eng.Len() }

// WalkDepthFirst traverses the tree pre-order under the read lock.
func (o *Octree) WalkDepthFirst(v OctreeVisitor) { o.eng.WalkDepthFirst(v) }

// WalkBreadthFirst traverses the tree level-order under the read lock.
func (o *Octree) WalkBreadthFirst(v OctreeVisitor) { o.eng.WalkBreadthFirst(v) }

// Rebalance applies b's split/merge policy across the tree, merging
// sibling leaves under the write lock where b.ShouldMerge allows it.
func (o *Octree) Rebalance(b Balancer) { o.eng.Rebalance(b) }
