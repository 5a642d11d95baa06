package engine

import (
	"time"

	"github.com/arbortree/spatialidx/internal/geom"
)

// Frustum implements spec.md §4.6 frustum culling: a recursive visit
// from the root, pruning Outside nodes, emitting every descendant
// entity of an Inside node without further testing, and recursing
// (re-testing each entity's own bounds) on Intersecting nodes.
func (e *Engine[K]) Frustum(f geom.Frustum) []string {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() {
		e.cfg.Metrics.QueriesTotal.WithLabelValues("frustum").Inc()
		e.cfg.Metrics.QueryLatency.WithLabelValues("frustum").Observe(time.Since(start).Seconds())
	}()

	var out []string
	e.walkPlaneClassified(e.backend.Root(), func(b geom.Bounds) geom.PlaneClass {
		return f.ClassifyBounds(b)
	}, &out)
	return out
}

// Plane implements spec.md §4.6 plane intersection: analogous to
// Frustum but classifying against a single plane's signed distance.
func (e *Engine[K]) Plane(p geom.Plane) []string {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() {
		e.cfg.Metrics.QueriesTotal.WithLabelValues("plane").Inc()
		e.cfg.Metrics.QueryLatency.WithLabelValues("plane").Observe(time.Since(start).Seconds())
	}()

	var out []string
	e.walkPlaneClassified(e.backend.Root(), func(b geom.Bounds) geom.PlaneClass {
		return p.ClassifyBounds(b)
	}, &out)
	return out
}

// walkPlaneClassified recurses from k, classifying each node's AABB
// with classify, pruning Outside subtrees, emitting every entity of an
// Inside node unconditionally, and re-testing entity bounds within an
// Intersecting node.
func (e *Engine[K]) walkPlaneClassified(k K, classify func(geom.Bounds) geom.PlaneClass, out *[]string) {
	n, ok := e.nodes[k]
	if !ok {
		return
	}
	class := classify(e.backend.NodeAABB(k))
	switch class {
	case geom.Outside:
		return
	case geom.Inside:
		*out = append(*out, n.Entities()...)
	case geom.Intersecting:
		for _, id := range n.Entities() {
			rec, ok := e.entities.Get(id)
			if !ok {
				continue
			}
			bounds := geom.Bounds{Min: rec.Position, Max: rec.Position}
			if rec.Bounds != nil {
				bounds = *rec.Bounds
			}
			if classify(bounds) != geom.Outside {
				*out = append(*out, id)
			}
		}
	}

	if n.IsLeaf() {
		return
	}
	for slot := uint8(0); slot < 8; slot++ {
		if n.HasChild(slot) {
			e.walkPlaneClassified(k.ChildAt(slot), classify, out)
		}
	}
}
