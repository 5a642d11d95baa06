package spatialidx

import (
	"context"

	"github.com/arbortree/spatialidx/internal/engine"
	"github.com/arbortree/spatialidx/internal/tetra"
)

// TetTreeVisitor is the Visitor callback set for a TetTree traversal.
type TetTreeVisitor = engine.Visitor[tetra.Key]

// Insert adds a point entity at position, stored at the node
// containing it at level. Returns the generated entity ID.
func (t *TetTree) Insert(position Point3, level uint8, content any) (string, error) {
	return t.eng.Insert(position, level, content)
}

// InsertBounded adds a bounded entity; its occupying-key set depends
// on the tree's spanning policy (spec.md §6).
func (t *TetTree) InsertBounded(position Point3, level uint8, content any, bounds Bounds) (string, error) {
	return t.eng.InsertBounded(position, level, content, bounds)
}

// InsertSphere adds a point entity carrying a narrow-phase sphere
// radius used by Ray; it does not affect node placement, unlike
// InsertBounded.
func (t *TetTree) InsertSphere(position Point3, level uint8, content any, radius float64) (string, error) {
	return t.eng.InsertSphere(position, level, content, radius)
}

// Remove deletes the entity with the given ID.
func (t *TetTree) Remove(id string) error { return t.eng.Remove(id) }

// Update moves the entity with the given ID to newPosition at level.
func (t *TetTree) Update(id string, newPosition Point3, level uint8) error {
	return t.eng.Update(id, newPosition, level)
}

// Lookup returns the entity IDs stored at the node containing
// position at level.
func (t *TetTree) Lookup(position Point3, level uint8) ([]string, error) {
	return t.eng.Lookup(position, level)
}

// Range returns the entity IDs whose position or bounds intersects
// bounds, streamed via the lazy range iterator at the given level.
func (t *TetTree) Range(ctx context.Context, bounds Bounds, level uint8) ([]string, error) {
	return t.eng.Range(bounds, level, stopChanFromContext(ctx))
}

// KNN returns the k nearest entities to q, ascending by distance,
// ties broken by ID. maxDist <= 0 means unbounded.
func (t *TetTree) KNN(q Point3, k int, maxDist float64, level uint8) ([]Candidate, error) {
	return t.eng.KNN(q, k, maxDist, level)
}

// Ray returns every entity the ray intersects within maxT, ordered by
// hit distance ascending. maxT <= 0 means unbounded.
func (t *TetTree) Ray(r Ray, maxT float64, level uint8) ([]RayHit, error) {
	return t.eng.Ray(r, maxT, level)
}

// Frustum returns every entity inside or intersecting f.
func (t *TetTree) Frustum(f Frustum) []string { return t.eng.Frustum(f) }

// Plane returns every entity on the positive side of, or straddling,
// p.
func (t *TetTree) Plane(p Plane) []string { return t.eng.Plane(p) }

// BulkLoad loads items in bulk at level, building subtrees in
// parallel and merging them into the tree in a single pass.
func (t *TetTree) BulkLoad(ctx context.Context, items []BulkItem, level uint8) (BulkResult, error) {
	return t.eng.BulkLoad(ctx, items, level)
}

// Len returns the number of entities currently indexed.
func (t *TetTree) Len() int { return t.eng.Len() }

// WalkDepthFirst traverses the tree pre-order under the read lock.
func (t *TetTree) WalkDepthFirst(v TetTreeVisitor) { t.eng.WalkDepthFirst(v) }

// WalkBreadthFirst traverses the tree level-order under the read lock.
func (t *TetTree) WalkBreadthFirst(v TetTreeVisitor) { t.eng.WalkBreadthFirst(v) }

// Rebalance applies b's split/merge policy across the tree, merging
// sibling leaves under the write lock where b.ShouldMerge allows it.
func (t *TetTree) Rebalance(b Balancer) { t.eng.Rebalance(b) }
