package engine

import (
	"testing"

	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/morton"
)

func TestWalkDepthFirstVisitsAllEntities(t *testing.T) {
	e := newTestOctree(t, 2, 8)
	for i := 0; i < 20; i++ {
		p := geom.Point3{X: float64(i * 10), Y: float64(i * 10), Z: float64(i * 10)}
		if _, err := e.Insert(p, 8, i); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	seen := make(map[string]bool)
	e.WalkDepthFirst(Visitor[morton.Key]{
		VisitEntity: func(k morton.Key, depth uint8, id string) VisitResult {
			seen[id] = true
			return Continue
		},
	})
	if len(seen) != e.Len() {
		t.Fatalf("depth-first walk visited %d entities, want %d", len(seen), e.Len())
	}
}

func TestWalkDepthFirstSkipSubtreeStopsChildren(t *testing.T) {
	e := newTestOctree(t, 2, 8)
	for i := 0; i < 20; i++ {
		p := geom.Point3{X: float64(i * 10), Y: float64(i * 10), Z: float64(i * 10)}
		if _, err := e.Insert(p, 8, i); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	var preVisits int
	e.WalkDepthFirst(Visitor[morton.Key]{
		VisitNodePre: func(k morton.Key, parent morton.Key, parentOK bool, depth uint8) VisitResult {
			preVisits++
			if depth == 0 {
				return SkipSubtree
			}
			return Continue
		},
	})
	if preVisits != 1 {
		t.Fatalf("SkipSubtree at the root should prevent descending into children, got %d pre-visits", preVisits)
	}
}

func TestWalkDepthFirstTerminateStopsImmediately(t *testing.T) {
	e := newTestOctree(t, 2, 8)
	for i := 0; i < 20; i++ {
		p := geom.Point3{X: float64(i * 10), Y: float64(i * 10), Z: float64(i * 10)}
		if _, err := e.Insert(p, 8, i); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	count := 0
	e.WalkDepthFirst(Visitor[morton.Key]{
		VisitEntity: func(k morton.Key, depth uint8, id string) VisitResult {
			count++
			return Terminate
		},
	})
	if count != 1 {
		t.Fatalf("Terminate should stop traversal after the first entity, visited %d", count)
	}
}

func TestWalkBreadthFirstVisitsAllEntities(t *testing.T) {
	e := newTestOctree(t, 2, 8)
	for i := 0; i < 20; i++ {
		p := geom.Point3{X: float64(i * 10), Y: float64(i * 10), Z: float64(i * 10)}
		if _, err := e.Insert(p, 8, i); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	seen := make(map[string]bool)
	e.WalkBreadthFirst(Visitor[morton.Key]{
		VisitEntity: func(k morton.Key, depth uint8, id string) VisitResult {
			seen[id] = true
			return Continue
		},
	})
	if len(seen) != e.Len() {
		t.Fatalf("breadth-first walk visited %d entities, want %d", len(seen), e.Len())
	}
}

func TestRebalanceMergesSparseSiblings(t *testing.T) {
	e := newTestOctree(t, 2, 8)
	for i := 0; i < 3; i++ {
		p := geom.Point3{X: float64(i), Y: float64(i), Z: float64(i)}
		if _, err := e.Insert(p, 4, i); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	before := len(e.nodes)

	e.Rebalance(Balancer{MaxEntitiesPerNode: 2, MaxDepth: 8, MergeThreshold: 16})
	after := len(e.nodes)
	if after >= before {
		t.Fatalf("expected Rebalance to merge nodes, before=%d after=%d", before, after)
	}
	if e.Len() != 3 {
		t.Fatalf("Rebalance should not change the entity count, got %d", e.Len())
	}
}
