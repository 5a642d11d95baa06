package engine

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/morton"
)

func newTestOctree(t *testing.T, maxEntitiesPerNode uint16, maxDepth uint8) *Engine[morton.Key] {
	t.Helper()
	return New[morton.Key](morton.New(), Config{
		MaxEntitiesPerNode: maxEntitiesPerNode,
		MaxDepth:           maxDepth,
	})
}

// TestInsertAllRemoveAllEmptiesEngine is spec.md §8's first
// property-based test.
func TestInsertAllRemoveAllEmptiesEngine(t *testing.T) {
	e := newTestOctree(t, 4, 10)
	var ids []string
	for i := 0; i < 50; i++ {
		id, err := e.Insert(geom.Point3{X: float64(i), Y: float64(i), Z: float64(i)}, 8, i)
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
		ids = append(ids, id)
	}
	if e.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", e.Len())
	}

	for _, id := range ids {
		if err := e.Remove(id); err != nil {
			t.Fatalf("remove %s failed: %v", id, err)
		}
	}
	if e.Len() != 0 {
		t.Fatalf("Len() = %d after removing all, want 0", e.Len())
	}
	if e.entities.Len() != 0 {
		t.Fatal("entity store should be empty after removing all entities")
	}
}

// TestScenarioThreePointsLookup is spec.md §8 end-to-end scenario 1.
func TestScenarioThreePointsLookup(t *testing.T) {
	e := newTestOctree(t, 16, 10)
	points := []geom.Point3{{X: 100, Y: 100, Z: 100}, {X: 200, Y: 200, Z: 200}, {X: 900, Y: 900, Z: 900}}

	var ids []string
	for _, p := range points {
		id, err := e.Insert(p, 10, nil)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		ids = append(ids, id)
	}

	if e.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", e.Len())
	}

	for i, p := range points {
		found, err := e.Lookup(p, 10)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if len(found) != 1 || found[0] != ids[i] {
			t.Fatalf("lookup(%+v, 10) = %v, want exactly [%s]", p, found, ids[i])
		}
	}
}

// TestScenarioRandomPointsRespectThreshold is spec.md §8 end-to-end
// scenario 2.
func TestScenarioRandomPointsRespectThreshold(t *testing.T) {
	e := newTestOctree(t, 4, 16)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		p := geom.Point3{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Z: rng.Float64() * 1000}
		if _, err := e.Insert(p, 10, i); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	total := 0
	for _, n := range e.nodes {
		if n.IsLeaf() {
			if n.Count() > 4 {
				t.Fatalf("leaf node count %d exceeds maxEntitiesPerNode=4", n.Count())
			}
		}
		total += n.Count()
	}
	if total != 100 {
		t.Fatalf("sum over leaves of count = %d, want 100", total)
	}
}

// TestScenarioKNNMatchesBruteForce is spec.md §8 end-to-end scenario 3.
func TestScenarioKNNMatchesBruteForce(t *testing.T) {
	e := newTestOctree(t, 4, 10)
	rng := rand.New(rand.NewSource(2))

	type placed struct {
		id  string
		pos geom.Point3
	}
	var all []placed
	for i := 0; i < 100; i++ {
		p := geom.Point3{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Z: rng.Float64() * 1000}
		id, err := e.Insert(p, 10, i)
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
		all = append(all, placed{id: id, pos: p})
	}

	q := geom.Point3{X: 500, Y: 500, Z: 500}
	got, err := e.KNN(q, 5, 0, 10)
	if err != nil {
		t.Fatalf("KNN failed: %v", err)
	}

	sort.Slice(all, func(i, j int) bool {
		di, dj := all[i].pos.DistSq(q), all[j].pos.DistSq(q)
		if di != dj {
			return di < dj
		}
		return all[i].id < all[j].id
	})

	if len(got) != 5 {
		t.Fatalf("KNN returned %d results, want 5", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].ID != all[i].id {
			t.Fatalf("KNN result[%d] = %s, brute force = %s", i, got[i].ID, all[i].id)
		}
	}
}

// TestScenarioBoundedEntitySpanCells is spec.md §8 end-to-end scenario
// 4.
func TestScenarioBoundedEntitySpanCells(t *testing.T) {
	e := New[morton.Key](morton.New(), Config{MaxEntitiesPerNode: 16, MaxDepth: 10, SpanningPolicy: SpanCells})
	center := geom.Point3{X: 500, Y: 500, Z: 500}
	bounds := geom.Bounds{Min: center.Sub(geom.Point3{X: 25, Y: 25, Z: 25}), Max: center.Add(geom.Point3{X: 25, Y: 25, Z: 25})}

	id, err := e.InsertBounded(center, 10, "box", bounds)
	if err != nil {
		t.Fatalf("InsertBounded failed: %v", err)
	}

	rec, ok := e.entities.Get(id)
	if !ok {
		t.Fatal("entity record missing after InsertBounded")
	}
	if len(rec.OccupyingKeys) == 0 {
		t.Fatal("occupying_keys should be non-empty")
	}
	for k := range rec.OccupyingKeys {
		if !e.backend.NodeAABB(k).Intersects(bounds) {
			t.Fatalf("occupying key %+v's cell does not intersect bounds", k)
		}
	}
}

// TestScenarioRayOrderedByT is spec.md §8 end-to-end scenario 5:
// entities on (or near) the ray, each carrying a sphere radius of 10,
// hit in order of increasing T. "near" is the point: an entity 9 units
// off the ray axis must still register as a hit because it falls
// within its own radius, and one 11 units off must not.
func TestScenarioRayOrderedByT(t *testing.T) {
	e := newTestOctree(t, 16, 10)
	positions := map[string]geom.Point3{
		"100": {X: 100, Y: 500, Z: 500},
		"300": {X: 300, Y: 500, Z: 500},
		"200": {X: 200, Y: 509, Z: 500}, // 9 units off-axis: within radius 10
		"off": {X: 250, Y: 511, Z: 500}, // 11 units off-axis: outside radius 10
	}
	idFor := make(map[string]string)
	for label, p := range positions {
		id, err := e.InsertSphere(p, 10, label, 10)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		idFor[id] = label
	}

	ray := geom.Ray{Origin: geom.Point3{X: 0, Y: 500, Z: 500}, Dir: geom.Point3{X: 1, Y: 0, Z: 0}}
	hits, err := e.Ray(ray, 0, 10)
	if err != nil {
		t.Fatalf("Ray failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 ray hits, got %d: %+v", len(hits), hits)
	}
	wantOrder := []string{"100", "200", "300"}
	for i, hit := range hits {
		if idFor[hit.ID] != wantOrder[i] {
			t.Fatalf("hit[%d] label = %s, want %s", i, idFor[hit.ID], wantOrder[i])
		}
		if idFor[hit.ID] == "off" {
			t.Fatalf("entity 11 units off-axis should not have registered as a hit within radius 10")
		}
	}
}

// TestScenarioFrustumCull is spec.md §8 end-to-end scenario 6.
func TestScenarioFrustumCull(t *testing.T) {
	e := newTestOctree(t, 16, 10)
	inID, err := e.Insert(geom.Point3{X: 100, Y: 100, Z: 100}, 10, "in")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := e.Insert(geom.Point3{X: 900, Y: 900, Z: 900}, 10, "out"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	frustum := geom.Frustum{Planes: [6]geom.Plane{
		{Normal: geom.Point3{X: 1}, D: 0},
		{Normal: geom.Point3{X: -1}, D: -500},
		{Normal: geom.Point3{Y: 1}, D: 0},
		{Normal: geom.Point3{Y: -1}, D: -500},
		{Normal: geom.Point3{Z: 1}, D: 0},
		{Normal: geom.Point3{Z: -1}, D: -500},
	}}

	got := e.Frustum(frustum)
	if len(got) != 1 || got[0] != inID {
		t.Fatalf("Frustum() = %v, want exactly [%s]", got, inID)
	}
}

func TestRangeQueryMatchesLinearScan(t *testing.T) {
	e := newTestOctree(t, 4, 10)
	rng := rand.New(rand.NewSource(3))

	type placed struct {
		id  string
		pos geom.Point3
	}
	var all []placed
	for i := 0; i < 60; i++ {
		p := geom.Point3{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Z: rng.Float64() * 1000}
		id, err := e.Insert(p, 9, i)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		all = append(all, placed{id: id, pos: p})
	}

	box := geom.Bounds{Min: geom.Point3{X: 300, Y: 300, Z: 300}, Max: geom.Point3{X: 700, Y: 700, Z: 700}}
	got, err := e.Range(box, 9, nil)
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	want := map[string]bool{}
	for _, p := range all {
		if box.Contains(p.pos) {
			want[p.id] = true
		}
	}
	if len(got) != len(want) {
		t.Fatalf("Range returned %d entities, linear scan expects %d", len(got), len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("Range returned unexpected entity %s", id)
		}
	}
}

func TestBulkLoadReportsFailedIndices(t *testing.T) {
	e := newTestOctree(t, 4, 10)
	items := []BulkItem{
		{Position: geom.Point3{X: 10, Y: 10, Z: 10}, Content: "ok"},
		{Position: geom.Point3{X: -1, Y: 0, Z: 0}, Content: "bad"},
		{Position: geom.Point3{X: 20, Y: 20, Z: 20}, Content: "ok2"},
	}
	result, err := e.BulkLoad(context.Background(), items, 10)
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if len(result.FailedIndices) != 1 || result.FailedIndices[0] != 1 {
		t.Fatalf("FailedIndices = %v, want [1]", result.FailedIndices)
	}
	if result.IDs[0] == "" || result.IDs[2] == "" {
		t.Fatal("valid items should have been assigned IDs")
	}
	if result.IDs[1] != "" {
		t.Fatal("failed item should not have been assigned an ID")
	}
	if e.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after bulk load", e.Len())
	}
}

func TestUpdateMovesEntity(t *testing.T) {
	e := newTestOctree(t, 16, 10)
	id, err := e.Insert(geom.Point3{X: 10, Y: 10, Z: 10}, 10, "x")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	newPos := geom.Point3{X: 5000, Y: 5000, Z: 5000}
	if err := e.Update(id, newPos, 10); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	oldLookup, _ := e.Lookup(geom.Point3{X: 10, Y: 10, Z: 10}, 10)
	for _, found := range oldLookup {
		if found == id {
			t.Fatal("entity should no longer be at its old position")
		}
	}
	newLookup, err := e.Lookup(newPos, 10)
	if err != nil {
		t.Fatalf("lookup at new position failed: %v", err)
	}
	found := false
	for _, f := range newLookup {
		if f == id {
			found = true
		}
	}
	if !found {
		t.Fatal("entity should be found at its new position")
	}
}

func TestRemoveUnknownEntityFails(t *testing.T) {
	e := newTestOctree(t, 16, 10)
	if err := e.Remove("nonexistent"); err == nil {
		t.Fatal("expected EntityNotFound error")
	}
}

// TestUpdateTriggersSubdivide guards against Update's re-insert path
// silently skipping the same split-threshold check Insert performs:
// moving an entity into an already-full node must subdivide it rather
// than letting its count grow past maxEntitiesPerNode forever.
func TestUpdateTriggersSubdivide(t *testing.T) {
	e := newTestOctree(t, 4, 12)
	packed := geom.Point3{X: 10, Y: 10, Z: 10}

	var ids []string
	for i := 0; i < 4; i++ {
		p := geom.Point3{X: 10 + float64(i), Y: 10, Z: 10}
		id, err := e.Insert(p, 10, i)
		if err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
		ids = append(ids, id)
	}

	packedKey, err := e.backend.CoordToKey(packed, 10)
	if err != nil {
		t.Fatalf("CoordToKey failed: %v", err)
	}
	if n, ok := e.nodes[packedKey]; !ok || !n.IsLeaf() || n.Count() != 4 {
		t.Fatalf("setup invariant broken: node at packed key should be a leaf with 4 entities")
	}

	far := geom.Point3{X: 5000, Y: 5000, Z: 5000}
	movedID, err := e.Insert(far, 10, "moving")
	if err != nil {
		t.Fatalf("insert far entity failed: %v", err)
	}

	if err := e.Update(movedID, geom.Point3{X: 13, Y: 10, Z: 10}, 10); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	n, ok := e.nodes[packedKey]
	if !ok {
		t.Fatal("packed node should still exist after update pushed it over threshold")
	}
	if n.IsLeaf() {
		t.Fatal("node should have been subdivided once Update pushed its count past maxEntitiesPerNode, like Insert does")
	}
	if n.Count() != 0 {
		t.Fatalf("subdivided node should have redistributed its entities to children, got %d left directly on it", n.Count())
	}

	for _, id := range append(ids, movedID) {
		rec, ok := e.entities.Get(id)
		if !ok {
			t.Fatalf("entity %s missing after subdivide", id)
		}
		found := false
		for k := range rec.OccupyingKeys {
			if kn, ok := e.nodes[k]; ok {
				for _, eid := range kn.Entities() {
					if eid == id {
						found = true
					}
				}
			}
		}
		if !found {
			t.Fatalf("entity %s not reachable from any of its occupying keys after subdivide", id)
		}
	}
}
